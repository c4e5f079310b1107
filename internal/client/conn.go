package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/Wyydra/lyra/internal/protocol"
)

var ErrConnClosed = errors.New("connection closed")

// Conn is the client side of the line protocol. One reader goroutine
// demuxes incoming lines: objects with a "type" key are server pushes,
// everything else is the response to the oldest in-flight request
// (the server answers strictly in order).
type Conn struct {
	c   net.Conn
	enc *protocol.Encoder

	mu      sync.Mutex
	pending []chan protocol.Response // nil entry: response is discarded

	events chan protocol.Request
	closed chan struct{}
	once   sync.Once
}

func Dial(addr string) (*Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	conn := &Conn{
		c:      c,
		enc:    protocol.NewEncoder(c),
		events: make(chan protocol.Request, 64),
		closed: make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

// Do sends a request and waits for its response.
func (c *Conn) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	ch := make(chan protocol.Response, 1)
	if err := c.send(req, ch); err != nil {
		return protocol.Response{}, err
	}
	select {
	case res := <-ch:
		return res, nil
	case <-c.closed:
		return protocol.Response{}, ErrConnClosed
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

// Send is fire-and-forget; the response is read and discarded. Used for
// the media path where waiting per chunk would stall capture.
func (c *Conn) Send(req protocol.Request) error {
	return c.send(req, nil)
}

// Events delivers server pushes. The channel closes when the
// connection is lost.
func (c *Conn) Events() <-chan protocol.Request {
	return c.events
}

func (c *Conn) Close() error {
	return c.c.Close()
}

// send keeps the pending append and the write atomic so response order
// always matches request order.
func (c *Conn) send(req protocol.Request, ch chan protocol.Response) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, ch)
	if err := c.enc.Encode(req); err != nil {
		c.pending = c.pending[:len(c.pending)-1]
		return err
	}
	return nil
}

func (c *Conn) readLoop() {
	defer c.shutdown()
	sc := bufio.NewScanner(c.c)
	sc.Buffer(make([]byte, 4096), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		var probe struct {
			Type protocol.RequestType `json:"type"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if probe.Type != "" {
			var ev protocol.Request
			if json.Unmarshal(line, &ev) == nil {
				select {
				case c.events <- ev:
				case <-c.closed:
					return
				}
			}
			continue
		}
		var res protocol.Response
		if json.Unmarshal(line, &res) != nil {
			continue
		}
		c.mu.Lock()
		var waiter chan protocol.Response
		if len(c.pending) > 0 {
			waiter = c.pending[0]
			c.pending = c.pending[1:]
		}
		c.mu.Unlock()
		if waiter != nil {
			waiter <- res
		}
	}
}

func (c *Conn) shutdown() {
	c.once.Do(func() {
		close(c.closed)
		close(c.events)
		c.c.Close()
	})
}
