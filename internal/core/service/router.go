package service

import (
	"context"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"github.com/Wyydra/lyra/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Router turns one decoded request into one response, mutating the
// registry/coordinator and pushing signaling at the other party's
// connection as a side effect. Both the TCP and websocket dispatch
// loops share it; the loops own reading and connection teardown.
type Router struct {
	registry *SessionRegistry
	calls    *CallCoordinator
	auth     port.Authenticator
	messages port.MessageRepository
	files    port.FileRepository
}

func NewRouter(registry *SessionRegistry, calls *CallCoordinator, auth port.Authenticator,
	messages port.MessageRepository, files port.FileRepository) *Router {
	return &Router{
		registry: registry,
		calls:    calls,
		auth:     auth,
		messages: messages,
		files:    files,
	}
}

// Handle processes req for the connection currently bound to identity
// (empty before login) and returns the response plus the new binding.
// A malformed or unknown request yields a failure response, never an
// exit; only the loop's own read errors terminate a connection.
func (r *Router) Handle(ctx context.Context, conn port.Conn, identity domain.Identity, req protocol.Request) (protocol.Response, domain.Identity) {
	if identity != "" {
		r.registry.Touch(identity)
	}
	switch req.Type {
	case protocol.TypeRegister:
		return r.handleRegister(ctx, req), identity
	case protocol.TypeLogin:
		return r.handleLogin(ctx, conn, req)
	case protocol.TypeDisconnect:
		if identity != "" {
			r.registry.Unregister(identity)
		}
		return protocol.OK("disconnected", nil), ""
	case protocol.TypeGetConnectedUsers:
		return protocol.OK("connected users", r.registry.Online()), identity
	case protocol.TypeSendMessage:
		return r.handleSendMessage(ctx, identity, req), identity
	case protocol.TypeSendFile:
		return r.handleSendFile(ctx, identity, req), identity
	case protocol.TypeCall:
		return r.handleCall(ctx, identity, req), identity
	default:
		return protocol.Fail("unknown request type: " + string(req.Type)), identity
	}
}

// Cleanup runs when a connection drops without a clean DISCONNECT:
// the session goes away and every active call the identity was part of
// ends, with the surviving partner told why.
func (r *Router) Cleanup(identity domain.Identity) {
	r.registry.Unregister(identity)
	for _, partner := range r.calls.EndInvolving(identity) {
		if conn, ok := r.registry.Lookup(partner); ok {
			ev := protocol.CallSignal(protocol.ActionCallEnded, identity.String(), partner.String())
			if err := conn.SendSignal(ev); err != nil {
				log.Error().Err(err).Str("identity", partner.String()).Msg("Error notifying partner of hangup")
			}
		}
	}
}

func (r *Router) handleRegister(ctx context.Context, req protocol.Request) protocol.Response {
	id, err := r.auth.Register(ctx, req.Payload[protocol.FieldUsername], req.Payload[protocol.FieldPassword])
	if err != nil {
		return protocol.Fail(err.Error())
	}
	return protocol.OK("registered", id.String())
}

func (r *Router) handleLogin(ctx context.Context, conn port.Conn, req protocol.Request) (protocol.Response, domain.Identity) {
	id, err := r.auth.Login(ctx, req.Payload[protocol.FieldUsername], req.Payload[protocol.FieldPassword])
	if err != nil {
		return protocol.Fail(err.Error()), ""
	}
	r.registry.Register(id, conn)
	return protocol.OK("logged in", id.String()), id
}

func (r *Router) handleSendMessage(ctx context.Context, identity domain.Identity, req protocol.Request) protocol.Response {
	if identity == "" {
		return protocol.Fail("login required")
	}
	msg, err := domain.NewMessage(identity, domain.Identity(req.Payload[protocol.FieldTo]), req.Payload[protocol.FieldContent])
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if err := r.messages.Save(ctx, *msg); err != nil {
		return protocol.Fail("could not store message")
	}
	if conn, ok := r.registry.Lookup(msg.Recipient); ok {
		ev := protocol.Request{
			Type: protocol.TypeSendMessage,
			Payload: map[string]string{
				protocol.FieldFrom:    identity.String(),
				protocol.FieldContent: msg.Content,
			},
		}
		if err := conn.SendSignal(ev); err != nil {
			log.Error().Err(err).Str("identity", msg.Recipient.String()).Msg("Error relaying message")
		}
		return protocol.OK("delivered", msg.ID.String())
	}
	return protocol.OK("stored, recipient offline", msg.ID.String())
}

func (r *Router) handleSendFile(ctx context.Context, identity domain.Identity, req protocol.Request) protocol.Response {
	if identity == "" {
		return protocol.Fail("login required")
	}
	payload, err := protocol.DecodeAudio(req.Payload[protocol.FieldData])
	if err != nil {
		return protocol.Fail("bad file payload")
	}
	f, err := domain.NewFileTransfer(identity, domain.Identity(req.Payload[protocol.FieldTo]), req.Payload[protocol.FieldFilename], payload)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if err := r.files.Save(ctx, *f); err != nil {
		return protocol.Fail("could not store file")
	}
	if conn, ok := r.registry.Lookup(f.Recipient); ok {
		ev := protocol.Request{
			Type: protocol.TypeSendFile,
			Payload: map[string]string{
				protocol.FieldFrom:     identity.String(),
				protocol.FieldFilename: f.Name,
				protocol.FieldData:     req.Payload[protocol.FieldData],
			},
		}
		if err := conn.SendSignal(ev); err != nil {
			log.Error().Err(err).Str("identity", f.Recipient.String()).Msg("Error relaying file")
		}
	}
	return protocol.OK("file stored", f.ID.String())
}

func (r *Router) handleCall(ctx context.Context, identity domain.Identity, req protocol.Request) protocol.Response {
	if identity == "" {
		return protocol.Fail("login required")
	}
	caller := domain.Identity(req.Payload[protocol.FieldCaller])
	callee := domain.Identity(req.Payload[protocol.FieldCallee])
	if caller == "" || callee == "" {
		return protocol.Fail("call requires caller and callee")
	}
	if identity != caller && identity != callee {
		return protocol.Fail("not a participant of this call")
	}
	partner := caller
	if identity == caller {
		partner = callee
	}

	switch req.Action() {
	case protocol.ActionInitiate:
		if !r.registry.IsOnline(callee) {
			return protocol.Fail("peer unreachable: " + callee.String())
		}
		if !r.calls.Create(caller, callee) {
			return protocol.Fail("call already active")
		}
		r.push(callee, protocol.CallSignal(protocol.ActionIncomingCall, caller.String(), callee.String()))
		return protocol.OK("ringing", nil)

	case protocol.ActionAccept:
		if !r.calls.Accept(caller, callee) {
			return protocol.Fail("call is not ringing")
		}
		r.push(partner, protocol.CallSignal(protocol.ActionCallAccepted, caller.String(), callee.String()))
		return protocol.OK("call connected", nil)

	case protocol.ActionReject:
		if !r.calls.Reject(caller, callee) {
			return protocol.Fail("call is not ringing")
		}
		r.push(partner, protocol.CallSignal(protocol.ActionCallRejected, caller.String(), callee.String()))
		return protocol.OK("call rejected", nil)

	case protocol.ActionHangup:
		if !r.calls.End(caller, callee) {
			return protocol.Fail("no such call")
		}
		r.push(partner, protocol.CallSignal(protocol.ActionCallEnded, caller.String(), callee.String()))
		return protocol.OK("call ended", nil)

	case protocol.ActionOffer, protocol.ActionAnswer, protocol.ActionICECandidate, protocol.ActionAudioData:
		// pass-through: relayed verbatim, coordinator untouched
		conn, ok := r.registry.Lookup(partner)
		if !ok {
			return protocol.Fail("peer unreachable: " + partner.String())
		}
		if err := conn.SendSignal(req); err != nil {
			return protocol.Fail("peer unreachable: " + partner.String())
		}
		return protocol.OK("relayed", nil)

	default:
		return protocol.Fail("unknown call action: " + string(req.Action()))
	}
}

func (r *Router) push(to domain.Identity, sig protocol.Request) {
	conn, ok := r.registry.Lookup(to)
	if !ok {
		return
	}
	if err := conn.SendSignal(sig); err != nil {
		log.Error().Err(err).Str("identity", to.String()).Msg("Error pushing signal")
	}
}
