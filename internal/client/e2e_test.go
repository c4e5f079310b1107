package client_test

import (
	"context"
	"sync"
	"testing"
	"time"

	authmem "github.com/Wyydra/lyra/internal/adapter/driven/auth/memory"
	"github.com/Wyydra/lyra/internal/adapter/driven/audio/loopback"
	repo "github.com/Wyydra/lyra/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/lyra/internal/adapter/driving/tcp"
	"github.com/Wyydra/lyra/internal/client"
	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"github.com/Wyydra/lyra/internal/core/service"
	"github.com/Wyydra/lyra/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second
const tick = 10 * time.Millisecond

func startRelay(t *testing.T) string {
	t.Helper()
	registry := service.NewSessionRegistry(5*time.Minute, time.Minute)
	calls := service.NewCallCoordinator(30 * time.Second)
	router := service.NewRouter(registry, calls,
		authmem.NewAuthenticator(repo.NewUserRepository()),
		repo.NewMessageRepository(), repo.NewFileRepository())

	srv := tcp.NewServer("127.0.0.1:0", router)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		calls.Stop()
		registry.Stop()
	})
	return srv.Addr().String()
}

// peer bundles one connected, logged-in client. Fresh loopback devices
// are handed out per call, mirroring real per-call device acquisition.
type peer struct {
	conn     *client.Conn
	facade   *client.Facade
	incoming chan domain.Identity

	mu  sync.Mutex
	in  *loopback.Device
	out *loopback.Device
}

func (p *peer) openDevices() (port.AudioDevice, port.AudioDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in = loopback.NewDevice()
	p.out = loopback.NewDevice()
	return p.in, p.out, nil
}

func (p *peer) devices() (*loopback.Device, *loopback.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in, p.out
}

func newPeer(t *testing.T, addr, name string) *peer {
	t.Helper()
	ctx := context.Background()

	conn, err := client.Dial(addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, client.Register(ctx, conn, name, "hunter2"))
	_, err = client.Login(ctx, conn, name, "hunter2")
	require.NoError(t, err)

	p := &peer{
		conn:     conn,
		incoming: make(chan domain.Identity, 4),
	}
	p.facade = client.NewFacade(conn, domain.Identity(name), p.openDevices, client.Options{
		ChunkSize:        512,
		SilenceThreshold: 0.02,
		Handlers: client.Handlers{
			OnIncoming: func(caller domain.Identity) { p.incoming <- caller },
		},
	})

	runCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.facade.Run(runCtx)
	return p
}

func waitIncoming(t *testing.T, p *peer) domain.Identity {
	t.Helper()
	select {
	case caller := <-p.incoming:
		return caller
	case <-time.After(waitFor):
		t.Fatal("no incoming call")
		return ""
	}
}

func waitPhase(t *testing.T, p *peer, want client.Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return p.facade.Phase() == want },
		waitFor, tick, "waiting for phase %s, stuck at %s", want, p.facade.Phase())
}

func TestCallOfflinePeerFails(t *testing.T) {
	addr := startRelay(t)
	alice := newPeer(t, addr, "alice")

	err := alice.facade.Call(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, client.PhaseIdle, alice.facade.Phase())
}

func TestCallLifecycleWithAudio(t *testing.T) {
	ctx := context.Background()
	addr := startRelay(t)
	alice := newPeer(t, addr, "alice")
	bob := newPeer(t, addr, "bob")

	// scenario 1: initiate rings the callee with the caller's identity
	require.NoError(t, alice.facade.Call(ctx, "bob"))
	assert.Equal(t, client.PhaseCalling, alice.facade.Phase())
	assert.Equal(t, domain.Identity("alice"), waitIncoming(t, bob))
	waitPhase(t, bob, client.PhaseRinging)

	// a second initiate for the live pair is refused
	res, err := alice.conn.Do(ctx, protocol.CallSignal(protocol.ActionInitiate, "alice", "bob"))
	require.NoError(t, err)
	assert.False(t, res.Success)

	// scenario 2: accept connects both sides and audio flows a->b
	require.NoError(t, bob.facade.Accept(ctx))
	waitPhase(t, bob, client.PhaseConnected)
	waitPhase(t, alice, client.PhaseConnected)

	require.Eventually(t, func() bool {
		in, _ := alice.devices()
		return in != nil
	}, waitFor, tick, "caller audio devices not opened")

	chunk := make([]byte, 512)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	aliceIn, _ := alice.devices()
	require.NoError(t, aliceIn.QueueCapture(chunk))

	require.Eventually(t, func() bool {
		_, out := bob.devices()
		return out != nil && len(out.Played()) > 0
	}, waitFor, tick, "no audio arrived at callee")
	_, bobOut := bob.devices()
	assert.Equal(t, chunk, bobOut.Played()[0], "decoded bytes must be identical")

	// scenario 4: reject while connected fails and changes nothing
	res, err = bob.conn.Do(ctx, protocol.CallSignal(protocol.ActionReject, "alice", "bob"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, client.PhaseConnected, bob.facade.Phase())

	// scenario 3: hangup ends the call on both sides
	require.NoError(t, alice.facade.Hangup(ctx))
	waitPhase(t, alice, client.PhaseIdle)
	waitPhase(t, bob, client.PhaseIdle)

	// repeated hangup for the same pair still succeeds
	res, err = bob.conn.Do(ctx, protocol.CallSignal(protocol.ActionHangup, "bob", "alice"))
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
}

func TestReinitiateAndReject(t *testing.T) {
	ctx := context.Background()
	addr := startRelay(t)
	alice := newPeer(t, addr, "alice")
	bob := newPeer(t, addr, "bob")

	require.NoError(t, alice.facade.Call(ctx, "bob"))
	waitIncoming(t, bob)
	waitPhase(t, bob, client.PhaseRinging)

	require.NoError(t, bob.facade.Reject(ctx))
	waitPhase(t, alice, client.PhaseIdle)
	waitPhase(t, bob, client.PhaseIdle)

	// the terminal record does not block a fresh call
	require.NoError(t, alice.facade.Call(ctx, "bob"))
	assert.Equal(t, domain.Identity("alice"), waitIncoming(t, bob))
}

func TestPeerDisconnectEndsCall(t *testing.T) {
	ctx := context.Background()
	addr := startRelay(t)
	alice := newPeer(t, addr, "alice")
	bob := newPeer(t, addr, "bob")

	require.NoError(t, alice.facade.Call(ctx, "bob"))
	waitIncoming(t, bob)
	waitPhase(t, bob, client.PhaseRinging)
	require.NoError(t, bob.facade.Accept(ctx))
	waitPhase(t, alice, client.PhaseConnected)

	// bob's transport dies mid-call; the relay tells alice
	bob.conn.Close()
	waitPhase(t, alice, client.PhaseIdle)
	waitPhase(t, bob, client.PhaseError)
}

func TestMessageRelay(t *testing.T) {
	ctx := context.Background()
	addr := startRelay(t)
	alice := newPeer(t, addr, "alice")
	newPeer(t, addr, "bob")

	users, err := client.ConnectedUsers(ctx, alice.conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	res, err := alice.conn.Do(ctx, protocol.Request{
		Type: protocol.TypeSendMessage,
		Payload: map[string]string{
			protocol.FieldTo:      "bob",
			protocol.FieldContent: "hi bob",
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
}
