package domain

import (
	"github.com/google/uuid"
)

type MessageID uuid.UUID
type FileID uuid.UUID

func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

func NewFileID() FileID {
	return FileID(uuid.New())
}

func (id MessageID) String() string {
	return uuid.UUID(id).String()
}

func (id FileID) String() string {
	return uuid.UUID(id).String()
}
