package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
)

// Registry tracks the open sessions of a process and closes idle ones.
type Registry struct {
	root string
	deps Deps
	opts Options
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry whose sessions live under root
func NewRegistry(root string, deps Deps, opts Options, ttl time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Registry{
		root:     root,
		deps:     deps,
		opts:     opts,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session with a random id
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s, err := NewSession(id, r.root, r.deps, r.opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.deps.Logger.Info(logger.WithSession(ctx, id), "Session created")
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close removes the session and its workspace
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return s.Close(ctx)
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle since before now-ttl and returns how many were closed
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if now.Sub(s.idleSince()) > r.ttl {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		r.deps.Logger.Info(logger.WithSession(ctx, s.ID()), "Session idle for more than %s, closing", r.ttl)
		if err := s.Close(ctx); err != nil {
			r.deps.Logger.Warn(ctx, "Failed to close idle session %s: %v", s.ID(), err)
		}
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is cancelled, then closes all of them
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll(context.WithoutCancel(ctx))
			return
		case now := <-ticker.C:
			r.Sweep(ctx, now)
		}
	}
}

// CloseAll closes every open session
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		if err := s.Close(ctx); err != nil {
			r.deps.Logger.Warn(ctx, "Failed to close session %s: %v", s.ID(), err)
		}
	}
}
