package port

import (
	"context"
	"errors"

	"github.com/Wyydra/lyra/internal/core/domain"
)

var ErrBadCredentials = errors.New("invalid username or password")

// Authenticator is the credential collaborator. Register creates an
// account; Login resolves credentials to an identity or fails.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (domain.Identity, error)
	Login(ctx context.Context, username, password string) (domain.Identity, error)
}
