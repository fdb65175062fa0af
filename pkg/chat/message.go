// Package chat holds the canonical message model and the in-memory stores
// the sync engine reconciles into: the id-keyed MessageIndex and the
// derived ConversationStore.
package chat

import "strings"

// Reaction is the viewer's own private reaction to a message. It is never
// visible to the other party.
type Reaction string

const (
	ReactionNone Reaction = ""
	ReactionUp   Reaction = "up"
	ReactionDown Reaction = "down"
)

// ParseReaction maps a wire value (possibly nil) to a Reaction.
func ParseReaction(s *string) Reaction {
	if s == nil {
		return ReactionNone
	}
	switch strings.ToLower(*s) {
	case "up":
		return ReactionUp
	case "down":
		return ReactionDown
	default:
		return ReactionNone
	}
}

// Kind distinguishes ordinary two-party messages from broadcasts, which
// are visible in every conversation.
type Kind string

const (
	KindUser      Kind = "user"
	KindBroadcast Kind = "broadcast"
)

// Quote is an immutable copy of a quoted message captured when the quote
// was resolved. It is never refreshed, even if the original is later
// deleted or edited.
type Quote struct {
	ID        string
	From      string
	Text      string
	Timestamp string
	Deleted   bool
}

// Message is the canonical record for one chat message.
type Message struct {
	ID        string
	From      string
	To        string
	Text      string
	Timestamp string // ISO-8601
	Kind      Kind
	QuotedID  string
	Quoted    *Quote
	Reaction  Reaction
	ReadBy    []string
	Deleted   bool
	UpdatedAt string
}

// ComposeID builds the deterministic message id used when the server omits
// one: timestamp, sender and text joined by '|'. Two identical texts sent
// by the same sender in the same instant collide; the wire protocol has no
// better identity to offer yet.
func ComposeID(timestamp, from, text string) string {
	return timestamp + "|" + from + "|" + text
}

// InConversation reports whether the message belongs to the two-party
// thread between self and peer. Broadcast messages belong to every thread.
func (m *Message) InConversation(self, peer string) bool {
	if m.Kind == KindBroadcast {
		return true
	}
	return (m.From == self && m.To == peer) || (m.From == peer && m.To == self)
}

func (m *Message) clone() Message {
	c := *m
	if m.Quoted != nil {
		q := *m.Quoted
		c.Quoted = &q
	}
	if m.ReadBy != nil {
		c.ReadBy = append([]string(nil), m.ReadBy...)
	}
	return c
}
