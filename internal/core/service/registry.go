package service

import (
	"sort"
	"sync"
	"time"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"github.com/rs/zerolog/log"
)

// session records are immutable once published: Touch installs a fresh
// record instead of mutating lastSeen in place, so the sweep's
// CompareAndDelete can only remove the exact record it judged idle.
type session struct {
	conn     port.Conn
	lastSeen int64 // unix nanos
}

// SessionRegistry maps a logged-in identity to its live connection.
// A sync.Map keeps register/unregister for unrelated identities from
// contending; the idle sweep never takes a registry-wide lock.
type SessionRegistry struct {
	sessions    sync.Map // domain.Identity -> *session
	idleTimeout time.Duration
	sweepEvery  time.Duration
	quit        chan struct{}
	stopOnce    sync.Once
}

func NewSessionRegistry(idleTimeout, sweepEvery time.Duration) *SessionRegistry {
	return &SessionRegistry{
		idleTimeout: idleTimeout,
		sweepEvery:  sweepEvery,
		quit:        make(chan struct{}),
	}
}

// Register binds identity to conn, last writer wins. A replaced
// session's connection is closed so its dispatch loop unwinds through
// the normal disconnect path.
func (r *SessionRegistry) Register(id domain.Identity, conn port.Conn) {
	s := &session{conn: conn, lastSeen: time.Now().UnixNano()}
	if prev, ok := r.sessions.Swap(id, s); ok {
		old := prev.(*session)
		log.Warn().Str("identity", id.String()).Msg("Replacing existing session")
		old.conn.Close()
	}
	log.Info().Str("identity", id.String()).Msg("Session registered")
}

// Unregister is idempotent; unregistering an absent identity is a no-op.
func (r *SessionRegistry) Unregister(id domain.Identity) {
	if _, ok := r.sessions.LoadAndDelete(id); ok {
		log.Info().Str("identity", id.String()).Msg("Session unregistered")
	}
}

func (r *SessionRegistry) Lookup(id domain.Identity) (port.Conn, bool) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*session).conn, true
}

func (r *SessionRegistry) IsOnline(id domain.Identity) bool {
	_, ok := r.sessions.Load(id)
	return ok
}

// Touch refreshes the idle clock; called for every dispatched request.
// Swapping in a fresh record defeats any sweep that already judged the
// old one idle.
func (r *SessionRegistry) Touch(id domain.Identity) {
	for {
		v, ok := r.sessions.Load(id)
		if !ok {
			return
		}
		s := v.(*session)
		fresh := &session{conn: s.conn, lastSeen: time.Now().UnixNano()}
		if r.sessions.CompareAndSwap(id, v, fresh) {
			return
		}
		// lost to a concurrent re-login, unregister or sweep; re-check
	}
}

// Online lists the registered identities, sorted.
func (r *SessionRegistry) Online() []string {
	var ids []string
	r.sessions.Range(func(k, _ any) bool {
		ids = append(ids, k.(domain.Identity).String())
		return true
	})
	sort.Strings(ids)
	return ids
}

// Run drives the periodic idle sweep until Stop is called.
func (r *SessionRegistry) Run() {
	t := time.NewTicker(r.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-r.quit:
			return
		case <-t.C:
			r.sweep(time.Now())
		}
	}
}

func (r *SessionRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

func (r *SessionRegistry) sweep(now time.Time) {
	cutoff := now.Add(-r.idleTimeout).UnixNano()
	r.sessions.Range(func(k, v any) bool {
		s := v.(*session)
		if s.lastSeen >= cutoff {
			return true
		}
		// CompareAndDelete so a concurrent re-login or Touch, both of
		// which install a new record, is never evicted
		if r.sessions.CompareAndDelete(k, v) {
			log.Info().Str("identity", k.(domain.Identity).String()).Msg("Evicting idle session")
			s.conn.Close()
		}
		return true
	})
}
