package tcp

import (
	"net"
	"time"

	"github.com/Wyydra/lyra/internal/protocol"
)

// A slow or wedged peer must not stall loops relaying signals to it.
const writeTimeout = 10 * time.Second

// peerConn implements port.Conn over a raw TCP connection, writing one
// JSON envelope per line through a shared encoder.
type peerConn struct {
	c   net.Conn
	enc *protocol.Encoder
}

func newPeerConn(c net.Conn) *peerConn {
	return &peerConn{c: c, enc: protocol.NewEncoder(c)}
}

func (p *peerConn) SendSignal(sig protocol.Request) error {
	p.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.enc.Encode(sig)
}

func (p *peerConn) SendResponse(res protocol.Response) error {
	p.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.enc.Encode(res)
}

func (p *peerConn) Close() error {
	return p.c.Close()
}
