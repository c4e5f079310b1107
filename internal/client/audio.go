package client

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
)

// AudioPipeline owns the media loops of one connected call: a capture
// goroutine reading fixed-size chunks from the input device and sending
// them out, and a playback path writing received chunks to the output
// device. Stopping is cooperative; Stop closes the devices so a blocked
// read unwinds, then waits for the capture loop.
type AudioPipeline struct {
	in  port.AudioDevice
	out port.AudioDevice

	send      func(chunk []byte) error
	onFailure func()
	onLevel   func(rms float64, silent bool)

	chunkSize int
	silence   float64
	inGain    atomic.Uint64 // float64 bits
	outGain   atomic.Uint64

	quit     chan struct{}
	stopOnce sync.Once
	failOnce sync.Once
	wg       sync.WaitGroup
}

func newAudioPipeline(in, out port.AudioDevice, chunkSize int, silence float64,
	send func([]byte) error, onFailure func(), onLevel func(float64, bool)) *AudioPipeline {
	p := &AudioPipeline{
		in:        in,
		out:       out,
		send:      send,
		onFailure: onFailure,
		onLevel:   onLevel,
		chunkSize: chunkSize,
		silence:   silence,
		quit:      make(chan struct{}),
	}
	p.SetInputGain(1.0)
	p.SetOutputGain(1.0)
	return p
}

func (p *AudioPipeline) Start() {
	p.wg.Add(1)
	go p.captureLoop()
}

func (p *AudioPipeline) captureLoop() {
	defer p.wg.Done()
	buf := make([]byte, p.chunkSize)
	for {
		select {
		case <-p.quit:
			return
		default:
		}
		n, err := p.in.ReadChunk(buf)
		if err != nil {
			p.fail()
			return
		}
		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		domain.ApplyGain(chunk, p.InputGain())
		if err := p.send(chunk); err != nil {
			p.fail()
			return
		}
	}
}

// Play writes one received chunk to the output device. The RMS level is
// reported for UI feedback; silent chunks are still played.
func (p *AudioPipeline) Play(chunk []byte) {
	domain.ApplyGain(chunk, p.OutputGain())
	if p.onLevel != nil {
		rms := domain.RMS(chunk)
		p.onLevel(rms, rms < p.silence)
	}
	if err := p.out.WriteChunk(chunk); err != nil {
		p.fail()
	}
}

// Stop tears the pipeline down synchronously: devices are released
// before Stop returns.
func (p *AudioPipeline) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.in.Close()
	p.out.Close()
	p.wg.Wait()
}

// fail fires the failure callback once, off the calling goroutine so a
// callback that stops the pipeline cannot deadlock against it.
func (p *AudioPipeline) fail() {
	p.failOnce.Do(func() {
		select {
		case <-p.quit:
			return // deliberate stop, not a failure
		default:
		}
		if p.onFailure != nil {
			go p.onFailure()
		}
	})
}

func (p *AudioPipeline) SetInputGain(g float64)  { p.inGain.Store(math.Float64bits(g)) }
func (p *AudioPipeline) SetOutputGain(g float64) { p.outGain.Store(math.Float64bits(g)) }
func (p *AudioPipeline) InputGain() float64      { return math.Float64frombits(p.inGain.Load()) }
func (p *AudioPipeline) OutputGain() float64     { return math.Float64frombits(p.outGain.Load()) }
