package port

import (
	"context"
	"errors"

	"github.com/Wyydra/lyra/internal/core/domain"
)

var (
	ErrUserExists = errors.New("user already exists")
	ErrNotFound   = errors.New("not found")
)

type MessageRepository interface {
	Save(ctx context.Context, msg domain.Message) error
	// History returns the messages exchanged between two users, oldest
	// first, capped at limit (0 means no cap).
	History(ctx context.Context, a, b domain.Identity, limit int) ([]domain.Message, error)
}

type FileRepository interface {
	Save(ctx context.Context, f domain.FileTransfer) error
	Get(ctx context.Context, id domain.FileID) (domain.FileTransfer, error)
}

type UserRepository interface {
	Save(ctx context.Context, u domain.User) error
	FindByName(ctx context.Context, name domain.Identity) (domain.User, error)
}
