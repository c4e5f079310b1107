package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	authmem "github.com/Wyydra/lyra/internal/adapter/driven/auth/memory"
	repo "github.com/Wyydra/lyra/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/lyra/internal/core/service"
	"github.com/Wyydra/lyra/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	users := repo.NewUserRepository()
	registry := service.NewSessionRegistry(5*time.Minute, time.Minute)
	calls := service.NewCallCoordinator(30 * time.Second)
	router := service.NewRouter(registry, calls, authmem.NewAuthenticator(users),
		repo.NewMessageRepository(), repo.NewFileRepository())

	s := NewServer("127.0.0.1:0", router)
	require.NoError(t, s.Start())
	return s
}

func TestServeAndRespond(t *testing.T) {
	s := newTestServer(t)
	defer s.Shutdown(context.Background())

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	req := protocol.Request{
		Type: protocol.TypeRegister,
		Payload: map[string]string{
			protocol.FieldUsername: "alice",
			protocol.FieldPassword: "hunter2",
		},
	}
	require.NoError(t, json.NewEncoder(c).Encode(req))

	sc := bufio.NewScanner(c)
	require.True(t, sc.Scan())
	var res protocol.Response
	require.NoError(t, json.Unmarshal(sc.Bytes(), &res))
	assert.True(t, res.Success, res.Message)
}

// Shutdown must unblock dispatch loops sitting in a read; an idle
// client must not hold the server past its deadline.
func TestShutdownDrainsIdleConnections(t *testing.T) {
	s := newTestServer(t)

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	// let the dispatch loop pick the connection up and block reading
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
