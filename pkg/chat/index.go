package chat

// MessageIndex is the id-keyed store of every message the engine has seen.
// Messages are never physically removed, only marked deleted. All
// operations are total: applying them to an unknown id is a safe no-op,
// because inbound events may reference ids not yet observed.
//
// The index is not safe for concurrent use; the engine owns it and
// serializes access (see pkg/engine).
type MessageIndex struct {
	byID  map[string]*Message
	order []string // arrival order, used as the tiebreak for equal timestamps
}

func NewMessageIndex() *MessageIndex {
	return &MessageIndex{byID: make(map[string]*Message)}
}

// Has reports whether the id has been seen.
func (ix *MessageIndex) Has(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Len returns the number of indexed messages.
func (ix *MessageIndex) Len() int {
	return len(ix.byID)
}

// Get returns a copy of the message with the given id.
func (ix *MessageIndex) Get(id string) (Message, bool) {
	m, ok := ix.byID[id]
	if !ok {
		return Message{}, false
	}
	return m.clone(), true
}

// Upsert inserts the message if its id is unseen, otherwise merges the
// incoming fields into the existing record. Inbound data wins over a prior
// optimistic placeholder, with two exceptions that are never reverted:
// a Deleted flag stays set, and an attached quote snapshot is kept as-is.
func (ix *MessageIndex) Upsert(m Message) {
	if m.ID == "" {
		return
	}
	cur, ok := ix.byID[m.ID]
	if !ok {
		c := m.clone()
		ix.byID[m.ID] = &c
		ix.order = append(ix.order, m.ID)
		return
	}

	if m.From != "" {
		cur.From = m.From
	}
	if m.To != "" {
		cur.To = m.To
	}
	if m.Timestamp != "" {
		cur.Timestamp = m.Timestamp
	}
	if m.Kind != "" {
		cur.Kind = m.Kind
	}
	if m.UpdatedAt != "" {
		cur.UpdatedAt = m.UpdatedAt
	}
	if m.QuotedID != "" {
		cur.QuotedID = m.QuotedID
	}
	if cur.Quoted == nil && m.Quoted != nil {
		q := *m.Quoted
		cur.Quoted = &q
	}
	if m.Reaction != ReactionNone {
		cur.Reaction = m.Reaction
	}
	if len(m.ReadBy) > 0 {
		cur.ReadBy = append([]string(nil), m.ReadBy...)
	}
	if m.Deleted {
		cur.Deleted = true
	}
	// A soft-deleted message has no text, ever.
	if cur.Deleted {
		cur.Text = ""
	} else if m.Text != "" {
		cur.Text = m.Text
	}
}

// ApplyReaction sets the viewer's own reaction on the message.
// Last-write-wins; unknown ids are ignored.
func (ix *MessageIndex) ApplyReaction(id string, r Reaction) {
	if m, ok := ix.byID[id]; ok {
		m.Reaction = r
	}
}

// ApplySoftDelete marks the message deleted and replaces its text and
// update time. Unknown ids are dropped: the message will eventually arrive
// via history with deleted already set.
func (ix *MessageIndex) ApplySoftDelete(id string, deleted bool, text, updatedAt string) {
	m, ok := ix.byID[id]
	if !ok {
		return
	}
	if m.Deleted && !deleted {
		return // deletion is not reversible
	}
	m.Deleted = deleted
	if deleted {
		m.Text = ""
	} else {
		m.Text = text
	}
	if updatedAt != "" {
		m.UpdatedAt = updatedAt
	}
}

// ResolveQuote attaches a quote snapshot to the message if it references a
// quoted id, has no snapshot yet, and the quoted message is already
// indexed. A snapshot, once attached, is never replaced.
func (ix *MessageIndex) ResolveQuote(m *Message) {
	if m.Quoted != nil || m.QuotedID == "" {
		return
	}
	q, ok := ix.byID[m.QuotedID]
	if !ok {
		return
	}
	m.Quoted = &Quote{
		ID:        q.ID,
		From:      q.From,
		Text:      q.Text,
		Timestamp: q.Timestamp,
		Deleted:   q.Deleted,
	}
}

// ReplaceAll atomically replaces the full known message set. Used for
// history frames, which are authoritative for the requesting context.
func (ix *MessageIndex) ReplaceAll(msgs []Message) {
	ix.byID = make(map[string]*Message, len(msgs))
	ix.order = ix.order[:0]
	for i := range msgs {
		ix.Upsert(msgs[i])
	}
}

// All returns copies of every indexed message in arrival order.
func (ix *MessageIndex) All() []Message {
	out := make([]Message, 0, len(ix.order))
	for _, id := range ix.order {
		if m, ok := ix.byID[id]; ok {
			out = append(out, m.clone())
		}
	}
	return out
}
