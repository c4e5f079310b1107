package service

import (
	"sync"

	"github.com/Wyydra/lyra/internal/protocol"
)

// fakeConn records everything pushed at a peer.
type fakeConn struct {
	mu        sync.Mutex
	signals   []protocol.Request
	responses []protocol.Response
	closed    bool
}

func (f *fakeConn) SendSignal(sig protocol.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeConn) SendResponse(res protocol.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, res)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) lastSignal() (protocol.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.signals) == 0 {
		return protocol.Request{}, false
	}
	return f.signals[len(f.signals)-1], true
}
