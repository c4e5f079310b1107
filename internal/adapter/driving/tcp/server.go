package tcp

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/service"
	"github.com/Wyydra/lyra/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Server accepts line-protocol peers and runs one dispatch loop per
// connection.
type Server struct {
	addr   string
	router *service.Router

	ln   net.Listener
	wg   sync.WaitGroup
	quit chan struct{}
	once sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(addr string, router *service.Router) *Server {
	return &Server{
		addr:   addr,
		router: router,
		quit:   make(chan struct{}),
		conns:  make(map[net.Conn]struct{}),
	}
}

func (s *Server) track(c net.Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Start binds the listener and begins accepting in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Info().Str("addr", ln.Addr().String()).Msg("Signaling listener started")
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr reports the bound address, useful when started on port 0.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			log.Error().Err(err).Msg("Accept failed")
			continue
		}
		s.wg.Add(1)
		go s.handleConn(c)
	}
}

// handleConn is the dispatch loop: one blocking read per iteration,
// route, respond. A malformed line gets a failure response and the loop
// keeps going; a dead stream triggers disconnect cleanup and exits.
func (s *Server) handleConn(c net.Conn) {
	defer s.wg.Done()
	s.track(c)
	defer s.untrack(c)

	l := log.With().Str("remote", c.RemoteAddr().String()).Logger()
	l.Info().Msg("Peer connected")

	conn := newPeerConn(c)
	dec := protocol.NewDecoder(c)
	ctx := context.Background()
	var identity domain.Identity

	defer func() {
		if identity != "" {
			s.router.Cleanup(identity)
		}
		conn.Close()
		l.Info().Str("identity", identity.String()).Msg("Peer disconnected")
	}()

	for {
		req, err := dec.Decode()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				l.Warn().Err(err).Msg("Dropping malformed request")
				if conn.SendResponse(protocol.Fail("malformed request")) != nil {
					return
				}
				continue
			}
			return
		}
		res, id := s.router.Handle(ctx, conn, identity, req)
		identity = id
		if err := conn.SendResponse(res); err != nil {
			return
		}
	}
}

// Shutdown stops accepting, force-closes every open connection so the
// dispatch loops unblock from their reads, and waits for them to drain
// or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.quit) })
	if s.ln != nil {
		s.ln.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
