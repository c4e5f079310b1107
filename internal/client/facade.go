package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"github.com/Wyydra/lyra/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Phase mirrors the server-side call status from this peer's point of
// view.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCalling
	PhaseRinging
	PhaseConnected
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseCalling:
		return "CALLING"
	case PhaseRinging:
		return "RINGING"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DeviceOpener acquires the per-call capture and playback devices.
// Called on every transition into CONNECTED; both handles are released
// when the call leaves CONNECTED.
type DeviceOpener func() (in, out port.AudioDevice, err error)

type Handlers struct {
	OnIncoming func(caller domain.Identity)
	OnPhase    func(Phase)
	OnSignal   func(action protocol.CallAction, from domain.Identity, data string)
	OnMessage  func(from domain.Identity, content string)
	OnLevel    func(rms float64, silent bool)
}

type Options struct {
	ChunkSize        int
	SilenceThreshold float64
	Handlers         Handlers
}

// Facade turns UI intent into CALL envelopes and dispatches inbound
// signaling to the handlers and the audio pipeline.
type Facade struct {
	conn    *Conn
	self    domain.Identity
	devices DeviceOpener
	opts    Options

	mu       sync.Mutex
	phase    Phase
	peer     domain.Identity
	pipeline *AudioPipeline
}

func NewFacade(conn *Conn, self domain.Identity, devices DeviceOpener, opts Options) *Facade {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 4096
	}
	return &Facade{
		conn:    conn,
		self:    self,
		devices: devices,
		opts:    opts,
		phase:   PhaseIdle,
	}
}

func (f *Facade) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *Facade) Peer() domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peer
}

// Call rings callee. Valid from IDLE only.
func (f *Facade) Call(ctx context.Context, callee domain.Identity) error {
	f.mu.Lock()
	if f.phase != PhaseIdle {
		f.mu.Unlock()
		return fmt.Errorf("cannot call while %s", f.phase)
	}
	f.mu.Unlock()

	// The mirror must be CALLING before the request hits the wire: the
	// partner's accept is pushed by its own dispatch loop and can land
	// here ahead of our initiate response.
	f.setPhase(PhaseCalling, callee)
	res, err := f.do(ctx, protocol.CallSignal(protocol.ActionInitiate, f.self.String(), callee.String()))
	if err != nil {
		return err
	}
	if !res.Success {
		// a push may have already resolved the attempt; only unwind an
		// initiate that is still pending
		f.mu.Lock()
		pending := f.phase == PhaseCalling && f.peer == callee
		f.mu.Unlock()
		if pending {
			f.setPhase(PhaseIdle, "")
		}
		return errors.New(res.Message)
	}
	return nil
}

// Accept answers the currently ringing call and starts audio.
func (f *Facade) Accept(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != PhaseRinging {
		f.mu.Unlock()
		return fmt.Errorf("no ringing call to accept (phase %s)", f.phase)
	}
	caller := f.peer
	f.mu.Unlock()

	res, err := f.do(ctx, protocol.CallSignal(protocol.ActionAccept, caller.String(), f.self.String()))
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	f.setPhase(PhaseConnected, caller)
	return f.startAudio(caller)
}

// Reject declines the currently ringing call.
func (f *Facade) Reject(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != PhaseRinging {
		f.mu.Unlock()
		return fmt.Errorf("no ringing call to reject (phase %s)", f.phase)
	}
	caller := f.peer
	f.mu.Unlock()

	res, err := f.do(ctx, protocol.CallSignal(protocol.ActionReject, caller.String(), f.self.String()))
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	f.setPhase(PhaseIdle, "")
	return nil
}

// Hangup ends the current call from any non-idle phase.
func (f *Facade) Hangup(ctx context.Context) error {
	f.mu.Lock()
	if f.phase == PhaseIdle || f.peer == "" {
		f.mu.Unlock()
		return nil
	}
	peer := f.peer
	f.mu.Unlock()

	f.stopAudio()
	res, err := f.do(ctx, protocol.CallSignal(protocol.ActionHangup, f.self.String(), peer.String()))
	if err != nil {
		return err
	}
	f.setPhase(PhaseIdle, "")
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

// Run dispatches server pushes until the context ends or the
// connection drops. Losing the connection mid-call forces ERROR and
// releases the audio devices.
func (f *Facade) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-f.conn.Events():
			if !ok {
				f.mu.Lock()
				inCall := f.phase != PhaseIdle
				f.mu.Unlock()
				if inCall {
					f.stopAudio()
					f.setPhase(PhaseError, "")
				}
				return
			}
			f.dispatch(ev)
		}
	}
}

func (f *Facade) dispatch(ev protocol.Request) {
	switch ev.Type {
	case protocol.TypeSendMessage:
		if f.opts.Handlers.OnMessage != nil {
			f.opts.Handlers.OnMessage(domain.Identity(ev.Payload[protocol.FieldFrom]), ev.Payload[protocol.FieldContent])
		}
		return
	case protocol.TypeCall:
	default:
		log.Debug().Str("type", string(ev.Type)).Msg("Ignoring server push")
		return
	}

	caller := domain.Identity(ev.Payload[protocol.FieldCaller])
	switch ev.Action() {
	case protocol.ActionIncomingCall:
		f.mu.Lock()
		busy := f.phase != PhaseIdle
		f.mu.Unlock()
		if busy {
			// already in a call attempt: decline without surfacing
			f.conn.Send(protocol.CallSignal(protocol.ActionReject, caller.String(), f.self.String()))
			return
		}
		f.setPhase(PhaseRinging, caller)
		if f.opts.Handlers.OnIncoming != nil {
			f.opts.Handlers.OnIncoming(caller)
		}

	case protocol.ActionCallAccepted:
		f.mu.Lock()
		calling := f.phase == PhaseCalling
		peer := f.peer
		f.mu.Unlock()
		if !calling {
			return
		}
		f.setPhase(PhaseConnected, peer)
		if err := f.startAudio(peer); err != nil {
			log.Error().Err(err).Msg("Audio setup failed")
		}

	case protocol.ActionCallRejected:
		f.mu.Lock()
		calling := f.phase == PhaseCalling
		f.mu.Unlock()
		if calling {
			f.setPhase(PhaseIdle, "")
		}

	case protocol.ActionCallEnded:
		f.stopAudio()
		f.setPhase(PhaseIdle, "")

	case protocol.ActionOffer, protocol.ActionAnswer, protocol.ActionICECandidate:
		if f.opts.Handlers.OnSignal != nil {
			f.opts.Handlers.OnSignal(ev.Action(), caller, ev.Payload[protocol.FieldData])
		}

	case protocol.ActionAudioData:
		f.mu.Lock()
		pipeline := f.pipeline
		f.mu.Unlock()
		if pipeline == nil {
			return
		}
		chunk, err := protocol.DecodeAudio(ev.Payload[protocol.FieldData])
		if err != nil {
			log.Warn().Msg("Dropping undecodable audio chunk")
			return
		}
		pipeline.Play(chunk)

	default:
		log.Debug().Str("action", string(ev.Action())).Msg("Ignoring call push")
	}
}

// startAudio opens the devices and launches the capture loop. A device
// failure aborts the call locally: hang up, surface ERROR.
func (f *Facade) startAudio(peer domain.Identity) error {
	in, out, err := f.devices()
	if err != nil {
		f.conn.Send(protocol.CallSignal(protocol.ActionHangup, f.self.String(), peer.String()))
		f.setPhase(PhaseError, "")
		return fmt.Errorf("%w: %v", port.ErrDeviceUnavailable, err)
	}

	send := func(chunk []byte) error {
		sig := protocol.CallSignal(protocol.ActionAudioData, f.self.String(), peer.String())
		sig.Payload[protocol.FieldData] = protocol.EncodeAudio(chunk)
		return f.conn.Send(sig)
	}

	p := newAudioPipeline(in, out, f.opts.ChunkSize, f.opts.SilenceThreshold,
		send, func() { f.localHangup(peer) }, f.opts.Handlers.OnLevel)

	f.mu.Lock()
	f.pipeline = p
	f.mu.Unlock()
	p.Start()
	return nil
}

// localHangup runs when a media loop dies underneath a connected call.
func (f *Facade) localHangup(peer domain.Identity) {
	f.mu.Lock()
	connected := f.phase == PhaseConnected
	f.mu.Unlock()
	if !connected {
		return
	}
	log.Warn().Str("peer", peer.String()).Msg("Media path failed, hanging up")
	f.stopAudio()
	f.conn.Send(protocol.CallSignal(protocol.ActionHangup, f.self.String(), peer.String()))
	f.setPhase(PhaseIdle, "")
}

func (f *Facade) stopAudio() {
	f.mu.Lock()
	p := f.pipeline
	f.pipeline = nil
	f.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Pipeline exposes the live pipeline for volume control, nil outside a
// connected call.
func (f *Facade) Pipeline() *AudioPipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipeline
}

func (f *Facade) setPhase(p Phase, peer domain.Identity) {
	f.mu.Lock()
	changed := f.phase != p
	f.phase = p
	f.peer = peer
	f.mu.Unlock()
	if changed && f.opts.Handlers.OnPhase != nil {
		f.opts.Handlers.OnPhase(p)
	}
}

func (f *Facade) do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	res, err := f.conn.Do(ctx, req)
	if err != nil {
		f.mu.Lock()
		inCall := f.phase != PhaseIdle
		f.mu.Unlock()
		if inCall {
			f.stopAudio()
			f.setPhase(PhaseError, "")
		}
		return protocol.Response{}, err
	}
	return res, nil
}
