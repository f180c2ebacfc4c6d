package tracker

import (
	"context"
	"sync"
	"time"
)

// Registry keeps the open sessions by form id.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	emitter     Emitter
	submitter   LeadSubmitter
	idleTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(emitter Emitter, submitter LeadSubmitter, idleTimeout time.Duration) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		emitter:     emitter,
		submitter:   submitter,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Start opens a session. Starting a form id that is already open returns the
// existing session.
func (r *Registry) Start(cfg SessionConfig) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[cfg.FormID]; ok {
		return s
	}
	s := newSession(cfg, r.emitter, r.submitter, r.now)
	r.sessions[cfg.FormID] = s
	return s
}

func (r *Registry) Get(formID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[formID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ExpireIdle abandons open sessions with no activity for the idle timeout and
// drops finished ones. Sessions with a submit in flight are left alone. It
// returns how many sessions were abandoned.
func (r *Registry) ExpireIdle(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.State().Terminal() {
			delete(r.sessions, id)
			continue
		}
		if s.expirable(now, r.idleTimeout) {
			idle = append(idle, s)
		}
	}
	r.mu.Unlock()

	abandoned := 0
	for _, s := range idle {
		if !s.Abandon(ctx, "idle timeout") {
			continue
		}
		abandoned++
		r.mu.Lock()
		if r.sessions[s.FormID()] == s {
			delete(r.sessions, s.FormID())
		}
		r.mu.Unlock()
	}
	return abandoned
}
