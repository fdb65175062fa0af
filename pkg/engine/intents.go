package engine

import (
	"strings"

	"github.com/tinyland-inc/gridchat/pkg/chat"
	"github.com/tinyland-inc/gridchat/pkg/logger"
	"github.com/tinyland-inc/gridchat/pkg/wire"
)

// UI-originated intents. Each produces one optimistic store mutation plus
// one outbound frame. Disallowed intents are silently rejected: no
// mutation, no frame, matching the historical client behavior.

// SendMessage sends text to the selected peer. It requires a selected
// peer, a known self identity and non-empty trimmed text. The message is
// inserted immediately under a deterministic id; the later server echo
// with the same id is absorbed as a no-op.
func (e *Engine) SendMessage(text, quotedID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	me := e.selfLocked()
	sel := e.selected
	if me == "" || sel == "" || strings.TrimSpace(text) == "" {
		logger.DebugC("engine", "Send rejected: no peer, no identity or empty text")
		return
	}

	ts := e.nowISO()
	id := chat.ComposeID(ts, me, text)

	optimistic := chat.Message{
		ID:        id,
		From:      me,
		To:        sel,
		Text:      text,
		Timestamp: ts,
		Kind:      chat.KindUser,
		QuotedID:  quotedID,
	}
	e.index.ResolveQuote(&optimistic)
	e.index.Upsert(optimistic)

	e.sendFrame(wire.NewSend(text, sel, ts, quotedID))
}

// React toggles the viewer's private reaction on a message: selecting the
// value already set clears it. Reacting to one's own message is
// disallowed and rejected without a frame.
func (e *Engine) React(messageID string, r chat.Reaction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, known := e.index.Get(messageID)
	if known && target.From == e.selfLocked() {
		logger.DebugCF("engine", "Self-reaction rejected", map[string]any{"id": messageID})
		return
	}

	effective := r
	if known && target.Reaction == r {
		effective = chat.ReactionNone
	}
	e.index.ApplyReaction(messageID, effective)

	var v *string
	if effective != chat.ReactionNone {
		s := string(effective)
		v = &s
	}
	e.sendFrame(wire.NewReact(messageID, v))
}

// Delete soft-deletes one of the viewer's own messages: marks it deleted
// and empties its text locally, then asks the server to confirm via
// message_updated. Messages from others, unknown ids and already-deleted
// messages are rejected.
func (e *Engine) Delete(messageID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.index.Get(messageID)
	if !ok || m.From != e.selfLocked() || m.Deleted {
		logger.DebugCF("engine", "Delete rejected", map[string]any{"id": messageID})
		return
	}

	e.index.ApplySoftDelete(messageID, true, "", "")
	e.sendFrame(wire.NewDelete(messageID))
}

// SelectPeer makes peer the active conversation: zeroes its unread
// counter optimistically, declares the selection to the server (which
// answers with history) and acknowledges the thread as read. The choice
// is persisted for the next session.
func (e *Engine) SelectPeer(peer string) {
	if peer == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selected = peer
	e.store.ResetUnread(peer)
	if e.recorder != nil {
		e.recorder.SetLastPeer(peer)
	}

	e.sendFrame(wire.NewSelect(peer))
	e.sendFrame(wire.NewRead(peer))
}

// MarkRead acknowledges a peer's thread as read and zeroes its counter,
// independent of the current selection.
func (e *Engine) MarkRead(peer string) {
	if peer == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.ResetUnread(peer)
	e.sendFrame(wire.NewRead(peer))
}

// Typing signals the server that the viewer is typing. Fire-and-forget.
func (e *Engine) Typing() {
	e.sendFrame(wire.NewTyping())
}

// BootstrapUnread seeds the counters from the unread-summary endpoint.
func (e *Engine) BootstrapUnread(counts map[string]int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.SetAllUnread(counts)
}
