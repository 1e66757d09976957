package scheduler

import "sync"

// Registry tracks the conversations the scheduler drives batches for. It is
// an explicit object handed to whoever ingests messages, so new
// conversations join the schedule as soon as their first message arrives.
type Registry struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewRegistry creates an empty conversation registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[int64]struct{})}
}

// Register adds a conversation to the schedule. Registering an existing
// conversation is a no-op. Returns true if the conversation was new.
func (r *Registry) Register(conversationID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[conversationID]; ok {
		return false
	}
	r.ids[conversationID] = struct{}{}
	return true
}

// IDs returns a snapshot of the registered conversation IDs.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	return out
}

// Len returns the number of registered conversations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
