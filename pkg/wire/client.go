package wire

// Client-originated frames. Fields mirror what the chat service expects;
// optional fields are omitted when empty so older server builds keep
// working.

// IdentifyFrame is the first frame sent after the socket opens. It is the
// only frame without a "type" key.
type IdentifyFrame struct {
	PlayerID string `json:"player_id"`
	ClientID string `json:"client_id,omitempty"`
}

// SelectFrame declares the active conversation to the server, which
// answers with a history frame.
type SelectFrame struct {
	Type           string `json:"type"`
	SelectedPlayer string `json:"selectedPlayer"`
}

func NewSelect(peer string) SelectFrame {
	return SelectFrame{Type: TypeSelect, SelectedPlayer: peer}
}

// SendFrame carries an outgoing chat message.
type SendFrame struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	SelectedPlayer string `json:"selectedPlayer"`
	Timestamp      string `json:"timestamp"`
	QuotedID       string `json:"quotedId,omitempty"`
}

func NewSend(text, peer, timestamp, quotedID string) SendFrame {
	return SendFrame{
		Type:           TypeMessage,
		Message:        text,
		SelectedPlayer: peer,
		Timestamp:      timestamp,
		QuotedID:       quotedID,
	}
}

// ReactFrame sets or clears the viewer's private reaction. A nil Reaction
// clears it.
type ReactFrame struct {
	Type      string  `json:"type"`
	MessageID string  `json:"messageId"`
	Reaction  *string `json:"reaction"`
}

func NewReact(messageID string, reaction *string) ReactFrame {
	return ReactFrame{Type: TypeReact, MessageID: messageID, Reaction: reaction}
}

// ReadFrame marks a peer's thread as read.
type ReadFrame struct {
	Type string `json:"type"`
	With string `json:"with"`
}

func NewRead(peer string) ReadFrame {
	return ReadFrame{Type: TypeRead, With: peer}
}

// DeleteFrame requests a soft delete of one of the viewer's own messages.
type DeleteFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

func NewDelete(messageID string) DeleteFrame {
	return DeleteFrame{Type: TypeDelete, MessageID: messageID}
}

// TypingSignal tells the server the viewer is typing. Informational.
type TypingSignal struct {
	Type string `json:"type"`
}

func NewTyping() TypingSignal {
	return TypingSignal{Type: TypeTyping}
}
