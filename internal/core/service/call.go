package service

import (
	"sync"
	"time"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/rs/zerolog/log"
)

type callRecord struct {
	mu        sync.Mutex
	caller    domain.Identity
	callee    domain.Identity
	status    domain.CallStatus
	createdAt time.Time
	purge     *time.Timer
}

func (r *callRecord) snapshot() domain.CallSession {
	return domain.CallSession{
		Caller:    r.caller,
		Callee:    r.callee,
		Status:    r.status,
		CreatedAt: r.createdAt,
	}
}

// CallCoordinator owns the call lifecycle between identity pairs.
// Records live in a sync.Map keyed by the normalized pair key; each
// record carries its own mutex so transitions for one pair never block
// another. Terminal records linger for a grace window purely to absorb
// late duplicate signaling; they never block a fresh call.
type CallCoordinator struct {
	calls sync.Map // pair key -> *callRecord
	grace time.Duration
}

func NewCallCoordinator(grace time.Duration) *CallCoordinator {
	return &CallCoordinator{grace: grace}
}

// Create installs a RINGING record for the pair. It fails while a
// RINGING or CONNECTED record exists; a terminal record is replaced
// immediately.
func (c *CallCoordinator) Create(caller, callee domain.Identity) bool {
	key := domain.PairKey(caller, callee)
	for {
		fresh := &callRecord{
			caller:    caller,
			callee:    callee,
			status:    domain.CallRinging,
			createdAt: time.Now(),
		}
		actual, loaded := c.calls.LoadOrStore(key, fresh)
		if !loaded {
			log.Info().Str("caller", caller.String()).Str("callee", callee.String()).Msg("Call created")
			return true
		}
		rec := actual.(*callRecord)
		rec.mu.Lock()
		if rec.status.Active() {
			rec.mu.Unlock()
			return false
		}
		if rec.purge != nil {
			rec.purge.Stop()
		}
		rec.mu.Unlock()
		// terminal record: drop it and retry the insert
		c.calls.CompareAndDelete(key, actual)
	}
}

// Accept moves RINGING to CONNECTED. Any other state fails.
func (c *CallCoordinator) Accept(caller, callee domain.Identity) bool {
	return c.transition(caller, callee, func(rec *callRecord) bool {
		if rec.status != domain.CallRinging {
			return false
		}
		rec.status = domain.CallConnected
		return true
	})
}

// Reject moves RINGING to REJECTED and schedules the grace purge.
func (c *CallCoordinator) Reject(caller, callee domain.Identity) bool {
	key := domain.PairKey(caller, callee)
	return c.transition(caller, callee, func(rec *callRecord) bool {
		if rec.status != domain.CallRinging {
			return false
		}
		rec.status = domain.CallRejected
		c.schedulePurge(key, rec)
		return true
	})
}

// End moves any existing record to ENDED. Repeated end on a terminal
// record still succeeds so late hangups resolve cleanly.
func (c *CallCoordinator) End(caller, callee domain.Identity) bool {
	key := domain.PairKey(caller, callee)
	return c.transition(caller, callee, func(rec *callRecord) bool {
		if !rec.status.Active() {
			return true
		}
		rec.status = domain.CallEnded
		c.schedulePurge(key, rec)
		return true
	})
}

func (c *CallCoordinator) IsActive(a, b domain.Identity) bool {
	s, ok := c.Status(a, b)
	return ok && s.Active()
}

func (c *CallCoordinator) Status(a, b domain.Identity) (domain.CallStatus, bool) {
	v, ok := c.calls.Load(domain.PairKey(a, b))
	if !ok {
		return 0, false
	}
	rec := v.(*callRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.status, true
}

// Get returns a snapshot of the pair's record, if any.
func (c *CallCoordinator) Get(a, b domain.Identity) (domain.CallSession, bool) {
	v, ok := c.calls.Load(domain.PairKey(a, b))
	if !ok {
		return domain.CallSession{}, false
	}
	rec := v.(*callRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), true
}

// EndInvolving ends every active call id participates in and returns
// the partners, so the caller can notify them. Used by disconnect
// cleanup.
func (c *CallCoordinator) EndInvolving(id domain.Identity) []domain.Identity {
	var partners []domain.Identity
	c.calls.Range(func(k, v any) bool {
		rec := v.(*callRecord)
		rec.mu.Lock()
		if rec.status.Active() && (rec.caller == id || rec.callee == id) {
			rec.status = domain.CallEnded
			c.schedulePurge(k.(string), rec)
			partners = append(partners, rec.snapshot().Partner(id))
		}
		rec.mu.Unlock()
		return true
	})
	return partners
}

// Stop cancels every pending purge timer at process shutdown.
func (c *CallCoordinator) Stop() {
	c.calls.Range(func(_, v any) bool {
		rec := v.(*callRecord)
		rec.mu.Lock()
		if rec.purge != nil {
			rec.purge.Stop()
		}
		rec.mu.Unlock()
		return true
	})
}

func (c *CallCoordinator) transition(caller, callee domain.Identity, fn func(*callRecord) bool) bool {
	v, ok := c.calls.Load(domain.PairKey(caller, callee))
	if !ok {
		return false
	}
	rec := v.(*callRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	ok = fn(rec)
	if ok {
		log.Debug().Str("caller", rec.caller.String()).Str("callee", rec.callee.String()).
			Stringer("status", rec.status).Msg("Call transition")
	}
	return ok
}

// schedulePurge arms the delayed removal of a terminal record. The
// CompareAndDelete pins the removal to this exact record, so a timer
// surviving a re-initiated call can never delete the newer record.
// Callers hold rec.mu.
func (c *CallCoordinator) schedulePurge(key string, rec *callRecord) {
	if rec.purge != nil {
		rec.purge.Stop()
	}
	rec.purge = time.AfterFunc(c.grace, func() {
		c.calls.CompareAndDelete(key, rec)
	})
}
