// Package wire defines the JSON frames exchanged with the chat service over
// the websocket, and the decoder that turns raw socket payloads into typed
// frames.
//
// The protocol has no envelope beyond a "type" discriminator, and the
// "message" key is overloaded: it carries the text body on "message" frames
// and a nested object on "message_updated" frames. Decoding is therefore
// done per type rather than into one union struct.
package wire

import (
	"encoding/json"
	"fmt"
)

// Frame type discriminators, server to client.
const (
	TypeHistory        = "history"
	TypeMessage        = "message"
	TypeReact          = "react"
	TypeUnread         = "unread"
	TypeMessageUpdated = "message_updated"
	TypeTyping         = "typing"
	TypeSent           = "sent"
	TypeError          = "error"
)

// Client to server (TypeMessage, TypeReact are shared).
const (
	TypeSelect = "select"
	TypeRead   = "read"
	TypeDelete = "delete"
)

// QuotedMessage is the embedded snapshot of a quoted message as the server
// knew it when the reply was stored.
type QuotedMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Deleted   bool   `json:"deleted"`
}

// HistoryMessage is one row of a history frame. Old rows may lack id,
// timestamp or to; the engine derives them.
type HistoryMessage struct {
	ID            string         `json:"id"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Message       string         `json:"message"`
	Timestamp     string         `json:"timestamp"`
	Kind          string         `json:"type"` // "user" | "bot"
	ReadBy        []string       `json:"read_by"`
	MyReaction    *string        `json:"my_reaction"`
	QuotedMessage *QuotedMessage `json:"quoted_message"`
	QuotedID      string         `json:"quotedId"`
	QuotedIDAlt   string         `json:"quoted_id"`
	Deleted       bool           `json:"deleted"`
	UpdatedAt     string         `json:"updated_at"`
}

// QuotedRef returns the quoted message id regardless of which key the
// server used.
func (m *HistoryMessage) QuotedRef() string {
	if m.QuotedID != "" {
		return m.QuotedID
	}
	return m.QuotedIDAlt
}

// HistoryFrame is a full replacement of the conversation history for the
// currently selected peer.
type HistoryFrame struct {
	With     string           `json:"with"`
	Messages []HistoryMessage `json:"messages"`
}

// MessageFrame is a live broadcast of a stored message to both parties.
type MessageFrame struct {
	ID            string         `json:"id"`
	Sender        string         `json:"sender"`
	To            string         `json:"to"`
	Message       string         `json:"message"`
	Timestamp     string         `json:"timestamp"`
	IsBot         bool           `json:"isBot"`
	QuotedMessage *QuotedMessage `json:"quoted_message"`
	QuotedID      string         `json:"quotedId"`
	QuotedIDAlt   string         `json:"quoted_id"`
	Deleted       bool           `json:"deleted"`
	UpdatedAt     string         `json:"updated_at"`
}

func (m *MessageFrame) QuotedRef() string {
	if m.QuotedID != "" {
		return m.QuotedID
	}
	return m.QuotedIDAlt
}

// ReactAckFrame acknowledges the viewer's own reaction. MyReaction is nil
// when the reaction was cleared.
type ReactAckFrame struct {
	MessageID  string  `json:"messageId"`
	MyReaction *string `json:"my_reaction"`
}

// UnreadFrame carries the authoritative unread count for one peer thread.
type UnreadFrame struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// UpdatedMessage is the nested payload of a message_updated frame. Deleted
// is a pointer because an absent flag historically meant "deleted": the
// only update the server emits today is a soft delete.
type UpdatedMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Deleted   *bool  `json:"deleted"`
	Text      string `json:"text"`
	UpdatedAt string `json:"updated_at"`
}

// MessageUpdatedFrame announces a soft delete (or future edit) of a stored
// message. Some server builds send "updated_message" instead of "message".
type MessageUpdatedFrame struct {
	Message *UpdatedMessage
}

// TypingFrame and SentFrame are informational; the engine ignores them.
type TypingFrame struct {
	Typing []string `json:"typing"`
}

type SentFrame struct {
	To        string `json:"to"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ErrorFrame is a server-side rejection of a prior client frame.
type ErrorFrame struct {
	Message string `json:"message"`
}

// UnknownFrame preserves frames with an unrecognized type so callers can
// log them.
type UnknownFrame struct {
	Type string
	Raw  json.RawMessage
}

// Decode parses one inbound frame into its typed representation. It
// returns a pointer to one of the *Frame structs above, or an error when
// the payload is not valid JSON or lacks a type.
func Decode(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("wire: decode frame: %w", err)
	}

	switch head.Type {
	case TypeHistory:
		f := &HistoryFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode history: %w", err)
		}
		return f, nil
	case TypeMessage:
		f := &MessageFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode message: %w", err)
		}
		return f, nil
	case TypeReact:
		f := &ReactAckFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode react: %w", err)
		}
		return f, nil
	case TypeUnread:
		f := &UnreadFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode unread: %w", err)
		}
		return f, nil
	case TypeMessageUpdated:
		var body struct {
			Message *UpdatedMessage `json:"message"`
			Updated *UpdatedMessage `json:"updated_message"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("wire: decode message_updated: %w", err)
		}
		f := &MessageUpdatedFrame{Message: body.Message}
		if f.Message == nil {
			f.Message = body.Updated
		}
		return f, nil
	case TypeTyping:
		f := &TypingFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode typing: %w", err)
		}
		return f, nil
	case TypeSent:
		f := &SentFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode sent: %w", err)
		}
		return f, nil
	case TypeError:
		f := &ErrorFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("wire: decode error: %w", err)
		}
		return f, nil
	default:
		return &UnknownFrame{Type: head.Type, Raw: json.RawMessage(data)}, nil
	}
}
