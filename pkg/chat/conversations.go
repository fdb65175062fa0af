package chat

import "sort"

// ConversationStore derives per-peer message sequences and unread counters
// from the MessageIndex. Conversations are not stored; they are computed
// from the index on demand. Unread counts are explicit overrides: the
// server is authoritative via unread frames, but the engine zeroes them
// optimistically on selection and increments them on inbound messages from
// non-selected peers.
//
// Like the index, the store is owned and serialized by the engine.
type ConversationStore struct {
	index  *MessageIndex
	unread map[string]int
}

func NewConversationStore(index *MessageIndex) *ConversationStore {
	return &ConversationStore{
		index:  index,
		unread: make(map[string]int),
	}
}

// All returns every known message ordered by timestamp ascending, arrival
// order breaking ties.
func (cs *ConversationStore) All() []Message {
	msgs := cs.index.All()
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
	return msgs
}

// Conversation returns the ordered two-party thread between self and peer,
// including broadcast messages, which appear in every thread.
func (cs *ConversationStore) Conversation(self, peer string) []Message {
	all := cs.All()
	out := make([]Message, 0, len(all))
	for i := range all {
		if all[i].InConversation(self, peer) {
			out = append(out, all[i])
		}
	}
	return out
}

// Unread returns the counter for one peer.
func (cs *ConversationStore) Unread(peer string) int {
	return cs.unread[peer]
}

// UnreadCounts returns a copy of every non-zero counter.
func (cs *ConversationStore) UnreadCounts() map[string]int {
	out := make(map[string]int, len(cs.unread))
	for k, v := range cs.unread {
		out[k] = v
	}
	return out
}

// IncrementUnread bumps the counter for a peer by one.
func (cs *ConversationStore) IncrementUnread(peer string) {
	cs.unread[peer]++
}

// SetUnread overwrites the counter with the server's authoritative value.
func (cs *ConversationStore) SetUnread(peer string, count int) {
	cs.unread[peer] = count
}

// ResetUnread zeroes the counter for a peer.
func (cs *ConversationStore) ResetUnread(peer string) {
	cs.unread[peer] = 0
}

// SetAllUnread replaces every counter, used when bootstrapping from the
// unread-summary endpoint.
func (cs *ConversationStore) SetAllUnread(counts map[string]int) {
	cs.unread = make(map[string]int, len(counts))
	for k, v := range counts {
		cs.unread[k] = v
	}
}
