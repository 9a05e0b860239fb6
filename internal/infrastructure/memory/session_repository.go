package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session repository: not found")
	ErrSessionConflict = errors.New("session repository: id already in use")
)

type sessionEntry[S any] struct {
	session   S
	touchedAt time.Time
}

// SessionRepository keeps live sessions by id. Sessions are stored by reference;
// the session type guards its own state.
type SessionRepository[S any] struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry[S]
	now      func() time.Time
}

func NewSessionRepository[S any]() *SessionRepository[S] {
	return &SessionRepository[S]{
		sessions: make(map[string]*sessionEntry[S]),
		now:      time.Now,
	}
}

func (r *SessionRepository[S]) Insert(ctx context.Context, id string, s S) error {
	_ = ctx
	if id == "" {
		return errors.New("session repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return ErrSessionConflict
	}
	r.sessions[id] = &sessionEntry[S]{session: s, touchedAt: r.now()}
	return nil
}

func (r *SessionRepository[S]) Get(ctx context.Context, id string) (S, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		var zero S
		return zero, ErrSessionNotFound
	}
	entry.touchedAt = r.now()
	return entry.session, nil
}

func (r *SessionRepository[S]) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle drops sessions untouched for longer than maxIdle and returns how many
// were removed. Reserved units of evicted sessions are not released.
func (r *SessionRepository[S]) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, entry := range r.sessions {
		if entry.touchedAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
