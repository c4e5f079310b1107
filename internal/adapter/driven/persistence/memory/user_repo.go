package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[domain.Identity]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[domain.Identity]domain.User),
	}
}

func (r *UserRepository) Save(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Name]; ok {
		return port.ErrUserExists
	}
	r.users[u.Name] = u
	return nil
}

func (r *UserRepository) FindByName(ctx context.Context, name domain.Identity) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[name]
	if !ok {
		return domain.User{}, port.ErrNotFound
	}
	return u, nil
}
