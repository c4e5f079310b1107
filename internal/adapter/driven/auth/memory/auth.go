package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator resolves credentials against a user repository, hashing
// with bcrypt. Implements port.Authenticator.
type Authenticator struct {
	users port.UserRepository
}

func NewAuthenticator(users port.UserRepository) *Authenticator {
	return &Authenticator{users: users}
}

func (a *Authenticator) Register(ctx context.Context, username, password string) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("username cannot be empty")
	}
	if len(password) < 4 {
		return "", errors.New("password too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	u := domain.User{
		Name:         domain.Identity(username),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := a.users.Save(ctx, u); err != nil {
		return "", err
	}
	return u.Name, nil
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (domain.Identity, error) {
	u, err := a.users.FindByName(ctx, domain.Identity(strings.TrimSpace(username)))
	if err != nil {
		return "", port.ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", port.ErrBadCredentials
	}
	return u.Name, nil
}
