package chat

import (
	"context"
	"sync"
	"time"
)

type registryEntry struct {
	mu   sync.Mutex
	sess *ChatSession
}

// Registry keeps one session per key (usually the username) for callers
// that serve several users. Turns on the same session are serialized.
type Registry struct {
	interp   *Interpreter
	mu       sync.Mutex
	sessions map[string]*registryEntry
}

func NewRegistry(interp *Interpreter) *Registry {
	return &Registry{interp: interp, sessions: make(map[string]*registryEntry)}
}

func (r *Registry) entry(key string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[key]
	if !ok {
		e = &registryEntry{sess: NewSession(key)}
		r.sessions[key] = e
	}
	return e
}

// Handle runs one turn on the session for key and returns the reply with
// a copy of the session after the turn.
func (r *Registry) Handle(ctx context.Context, key, input string) (string, ChatSession) {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	reply := r.interp.Handle(ctx, e.sess, input)
	snapshot := *e.sess
	snapshot.History = append([]Turn(nil), e.sess.History...)
	return reply, snapshot
}

// Session returns a copy of the session for key.
func (r *Registry) Session(key string) ChatSession {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := *e.sess
	snapshot.History = append([]Turn(nil), e.sess.History...)
	return snapshot
}

func (r *Registry) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Expire drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Expire(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, e := range r.sessions {
		e.mu.Lock()
		idle := e.sess.LastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
