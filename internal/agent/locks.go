package agent

import (
	"sync"
)

// conversationLocks serializes orchestration per conversation so two inbound
// messages arriving concurrently cannot race on the handler flag or the
// failure counters. Entries are reference-counted and removed when idle.
type conversationLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the conversation lock is held and returns the release
// function.
func (l *conversationLocks) acquire(conversationID string) func() {
	l.mu.Lock()
	entry, ok := l.entries[conversationID]
	if !ok {
		entry = &lockEntry{}
		l.entries[conversationID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, conversationID)
		}
		l.mu.Unlock()
	}
}
