package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/popcorn/internal/catalog"
)

// Registry maps session identifiers to live sessions.
type Registry struct {
	client catalog.Client
	opts   Options

	mu       sync.Mutex
	sessions map[string]*Session
	opening  singleflight.Group
}

// NewRegistry constructs an empty Registry.
func NewRegistry(client catalog.Client, opts Options) *Registry {
	return &Registry{
		client:   client,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Open returns the session for id, creating it when needed. An empty or
// malformed id gets a fresh identifier. A session created for a known id is
// restored from the mirror before any caller sees it; concurrent opens of the
// same id wait for that restore and share the result. Restore failures are
// logged and the session starts empty.
func (r *Registry) Open(ctx context.Context, id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = ""
	}
	if id == "" {
		s := NewSession(uuid.NewString(), r.client, r.opts)
		r.mu.Lock()
		r.sessions[s.ID()] = s
		r.mu.Unlock()
		return s
	}

	if s, ok := r.Get(id); ok {
		s.touch()
		return s
	}

	v, _, _ := r.opening.Do(id, func() (any, error) {
		if s, ok := r.Get(id); ok {
			return s, nil
		}
		s := NewSession(id, r.client, r.opts)
		if err := s.Restore(context.WithoutCancel(ctx)); err != nil {
			r.opts.Logger.Warn("restore watched list failed", "session", id, "error", err)
		}
		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		return s, nil
	})
	s := v.(*Session)
	s.touch()
	return s
}

// Sweep discards sessions idle for longer than idle and returns how many
// were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.opts.Now().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Shutdown()
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.opts.Logger.Info("swept idle sessions", "count", n)
			}
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
