package port

import "errors"

var ErrDeviceUnavailable = errors.New("audio device unavailable")

// AudioDevice abstracts one direction of the local sound hardware.
// ReadChunk blocks until captured samples are available and reports how
// many bytes were filled; WriteChunk queues samples for playback. Any
// error from either call means the device is gone and the owning loop
// must stop.
type AudioDevice interface {
	ReadChunk(buf []byte) (int, error)
	WriteChunk(chunk []byte) error
	Close() error
}
