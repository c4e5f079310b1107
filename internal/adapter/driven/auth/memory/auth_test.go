package memory

import (
	"context"
	"testing"

	repo "github.com/Wyydra/lyra/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	a := NewAuthenticator(repo.NewUserRepository())

	id, err := a.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice"), id)

	id, err = a.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice"), id)

	_, err = a.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, port.ErrBadCredentials)

	_, err = a.Login(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, port.ErrBadCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	a := NewAuthenticator(repo.NewUserRepository())

	_, err := a.Register(ctx, "", "hunter2")
	assert.Error(t, err)

	_, err = a.Register(ctx, "alice", "pw")
	assert.Error(t, err, "short password rejected")

	_, err = a.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	_, err = a.Register(ctx, "alice", "hunter2")
	assert.ErrorIs(t, err, port.ErrUserExists)
}
