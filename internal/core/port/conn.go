package port

import "github.com/Wyydra/lyra/internal/protocol"

// Conn is the outbound side of one peer connection as stored in the
// session registry. Both transports (raw TCP and websocket) implement
// it; writes must be safe for concurrent use because signals relayed
// from the partner's dispatch loop share the connection with responses.
type Conn interface {
	SendSignal(sig protocol.Request) error
	SendResponse(res protocol.Response) error
	Close() error
}
