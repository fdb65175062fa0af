package engine

import "github.com/tinyland-inc/gridchat/pkg/chat"

// Read-only derived views for the UI layer. All return copies; the UI
// never touches the index directly.

// Self returns the effective local identity (fallback included).
func (e *Engine) Self() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selfLocked()
}

// Selected returns the active conversation peer, or "".
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Messages returns every known message ordered by timestamp.
func (e *Engine) Messages() []chat.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.All()
}

// Conversation returns the ordered thread with one peer, broadcasts
// included.
func (e *Engine) Conversation(peer string) []chat.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Conversation(e.selfLocked(), peer)
}

// Message returns one message by id.
func (e *Engine) Message(id string) (chat.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Get(id)
}

// UnreadCounts returns a copy of the per-peer unread counters.
func (e *Engine) UnreadCounts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UnreadCounts()
}

// Unread returns the counter for one peer.
func (e *Engine) Unread(peer string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Unread(peer)
}
