package bridge

import "sync"

// Registry tracks the live bridge session per call so the WebSocket surface
// can route mid-call reconfiguration and hangups to it.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*Session)}
}

func (r *Registry) Put(callID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[callID] = s
}

func (r *Registry) Get(callID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[callID]
	return s, ok
}

// Remove drops the registration and returns the session, if any. The caller
// owns the hangup.
func (r *Registry) Remove(callID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[callID]
	if ok {
		delete(r.m, callID)
	}
	return s, ok
}
