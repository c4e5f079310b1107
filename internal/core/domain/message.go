package domain

import (
	"errors"
	"time"
)

type Message struct {
	ID        MessageID
	Sender    Identity
	Recipient Identity
	Content   string
	SentAt    time.Time
}

func NewMessage(sender, recipient Identity, content string) (*Message, error) {
	if content == "" {
		return nil, errors.New("message content cannot be empty")
	}
	if recipient == "" {
		return nil, errors.New("message recipient cannot be empty")
	}
	return &Message{
		ID:        NewMessageID(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		SentAt:    time.Now(),
	}, nil
}

// FileTransfer is a named blob relayed between two users. The payload is
// held in full; streaming large files is not a concern at this layer.
type FileTransfer struct {
	ID        FileID
	Sender    Identity
	Recipient Identity
	Name      string
	Payload   []byte
	SentAt    time.Time
}

func NewFileTransfer(sender, recipient Identity, name string, payload []byte) (*FileTransfer, error) {
	if name == "" {
		return nil, errors.New("file name cannot be empty")
	}
	if recipient == "" {
		return nil, errors.New("file recipient cannot be empty")
	}
	return &FileTransfer{
		ID:        NewFileID(),
		Sender:    sender,
		Recipient: recipient,
		Name:      name,
		Payload:   payload,
		SentAt:    time.Now(),
	}, nil
}

// User is the stored account the auth collaborator resolves logins against.
type User struct {
	Name         Identity
	PasswordHash string
	CreatedAt    time.Time
}
