// Package loopback provides an in-memory audio device: capture reads
// come from chunks queued by the test or demo harness, playback writes
// accumulate for inspection. It stands in for real sound hardware,
// which is an external collaborator of this subsystem.
package loopback

import (
	"io"
	"sync"
)

type Device struct {
	in   chan []byte
	quit chan struct{}
	once sync.Once

	mu     sync.Mutex
	played [][]byte
}

func NewDevice() *Device {
	return &Device{
		in:   make(chan []byte, 64),
		quit: make(chan struct{}),
	}
}

// QueueCapture feeds one chunk to be returned by a later ReadChunk.
// Closed always wins: once Close has run, QueueCapture fails even if
// the queue has room.
func (d *Device) QueueCapture(chunk []byte) error {
	select {
	case <-d.quit:
		return io.ErrClosedPipe
	default:
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	select {
	case d.in <- c:
		return nil
	case <-d.quit:
		return io.ErrClosedPipe
	}
}

// ReadChunk blocks until a queued chunk is available or the device is
// closed. Close drops anything still queued; after it, ReadChunk
// returns EOF rather than draining.
func (d *Device) ReadChunk(buf []byte) (int, error) {
	select {
	case <-d.quit:
		return 0, io.EOF
	default:
	}
	select {
	case chunk := <-d.in:
		return copy(buf, chunk), nil
	case <-d.quit:
		return 0, io.EOF
	}
}

func (d *Device) WriteChunk(chunk []byte) error {
	select {
	case <-d.quit:
		return io.ErrClosedPipe
	default:
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	d.mu.Lock()
	d.played = append(d.played, c)
	d.mu.Unlock()
	return nil
}

// Played snapshots everything written so far.
func (d *Device) Played() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.played))
	copy(out, d.played)
	return out
}

func (d *Device) Close() error {
	d.once.Do(func() { close(d.quit) })
	return nil
}
