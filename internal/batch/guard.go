package batch

import "sync"

// Guard is the per-conversation single-flight guard. A conversation's token
// is held for the full duration of one batch run (claim, external call,
// write); a concurrent acquire for the same conversation fails immediately
// rather than queueing, since the caller can simply skip the cycle.
type Guard struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

// NewGuard creates an empty guard registry.
func NewGuard() *Guard {
	return &Guard{
		held: make(map[int64]struct{}),
	}
}

// TryAcquire attempts to take the token for the conversation.
// Returns false without blocking if the token is already held.
func (g *Guard) TryAcquire(conversationID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[conversationID]; ok {
		return false
	}

	g.held[conversationID] = struct{}{}
	return true
}

// Release returns the token for the conversation. Releasing a token that is
// not held is a no-op.
func (g *Guard) Release(conversationID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, conversationID)
}

// InFlight returns the number of conversations with an active batch.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}
