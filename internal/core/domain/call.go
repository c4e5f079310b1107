package domain

import "time"

type CallStatus int

const (
	CallRinging CallStatus = iota
	CallConnected
	CallRejected
	CallEnded
)

func (s CallStatus) String() string {
	switch s {
	case CallRinging:
		return "RINGING"
	case CallConnected:
		return "CONNECTED"
	case CallRejected:
		return "REJECTED"
	case CallEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether the status still blocks a new call for the pair.
func (s CallStatus) Active() bool {
	return s == CallRinging || s == CallConnected
}

// CallSession is the signaling-level state of one call attempt between
// two identities, keyed by PairKey(Caller, Callee).
type CallSession struct {
	Caller    Identity
	Callee    Identity
	Status    CallStatus
	CreatedAt time.Time
}

// Partner returns the other party of the call, or "" if id is not a
// participant.
func (c CallSession) Partner(id Identity) Identity {
	switch id {
	case c.Caller:
		return c.Callee
	case c.Callee:
		return c.Caller
	default:
		return ""
	}
}
