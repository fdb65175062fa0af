// Package engine implements the protocol state machine that reconciles
// inbound server frames with locally-originated optimistic actions into
// one consistent, deduplicated, ordered view of all conversations.
//
// The engine is the sole owner of the MessageIndex and ConversationStore.
// Every mutation, whether from an inbound frame or a UI intent, funnels
// through methods guarded by one mutex, so tasks never overlap and no
// further locking discipline is needed downstream. Ordering between a
// locally-sent frame and its server echo is never assumed; correctness
// rests on idempotent upsert-by-id.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/gridchat/pkg/bus"
	"github.com/tinyland-inc/gridchat/pkg/chat"
	"github.com/tinyland-inc/gridchat/pkg/logger"
	"github.com/tinyland-inc/gridchat/pkg/wire"
)

// isoFormat matches the ISO-8601 timestamps the service stores.
const isoFormat = "2006-01-02T15:04:05.000Z"

// SelectionRecorder persists the last-selected peer so the next session
// can fall back to it before identity is known.
type SelectionRecorder interface {
	SetLastPeer(id string)
}

// Engine is the reconciler plus selection context. Selection and self
// identity are explicit fields threaded into every handler, never
// captured closures.
type Engine struct {
	mu sync.Mutex

	fb    *bus.FrameBus
	index *chat.MessageIndex
	store *chat.ConversationStore

	self         string
	fallbackSelf string // last-selected peer from persisted state
	selected     string

	recorder SelectionRecorder
	now      func() time.Time
}

func New(fb *bus.FrameBus) *Engine {
	ix := chat.NewMessageIndex()
	return &Engine{
		fb:    fb,
		index: ix,
		store: chat.NewConversationStore(ix),
		now:   time.Now,
	}
}

// SetSelf records the local identity, normally from the whoami endpoint
// or the persisted user record.
func (e *Engine) SetSelf(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.self = id
}

// SetFallbackSelf sets the identity fallback used to attribute inbound
// recipients before the real identity is known.
func (e *Engine) SetFallbackSelf(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallbackSelf = id
}

// SetSelectionRecorder registers persistence for the selected peer.
func (e *Engine) SetSelectionRecorder(r SelectionRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = r
}

// SetClock overrides the timestamp source. Used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Run consumes inbound frames from the bus until ctx is done or the bus
// closes. Frame handling and intents share one mutex, so they execute as
// non-overlapping discrete tasks.
func (e *Engine) Run(ctx context.Context) {
	for {
		frame, ok := e.fb.ConsumeInbound(ctx)
		if !ok {
			return
		}
		e.HandleFrame(frame)
	}
}

// HandleFrame reconciles one decoded inbound frame. Every step is total:
// missing or unknown data is a safe no-op, never an error.
func (e *Engine) HandleFrame(frame any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch f := frame.(type) {
	case *wire.HistoryFrame:
		e.handleHistory(f)
	case *wire.MessageFrame:
		e.handleMessage(f)
	case *wire.ReactAckFrame:
		e.index.ApplyReaction(f.MessageID, chat.ParseReaction(f.MyReaction))
	case *wire.UnreadFrame:
		// Server value always overrides the local counter, but only when
		// the frame is addressed to us.
		if me := e.selfLocked(); me != "" && f.To == me {
			e.store.SetUnread(f.From, f.Count)
		}
	case *wire.MessageUpdatedFrame:
		e.handleMessageUpdated(f)
	case *wire.TypingFrame, *wire.SentFrame:
		// Informational only.
	case *wire.ErrorFrame:
		logger.WarnCF("engine", "Server error frame", map[string]any{"message": f.Message})
	case *wire.UnknownFrame:
		logger.WarnCF("engine", "Unhandled frame type", map[string]any{"type": f.Type})
	default:
		logger.WarnC("engine", "Unhandled frame")
	}
}

// handleHistory replaces the known message set atomically: ids are
// derived where absent, quotes resolved with embedded snapshots taking
// priority and index lookups built incrementally as the list is processed.
func (e *Engine) handleHistory(f *wire.HistoryFrame) {
	me := e.selfLocked()
	sel := e.selected

	e.index.ReplaceAll(nil)
	for i := range f.Messages {
		m := e.fromHistory(&f.Messages[i], me, sel)
		e.index.ResolveQuote(&m)
		e.index.Upsert(m)
	}
	logger.DebugCF("engine", "History applied", map[string]any{"with": f.With, "count": len(f.Messages)})
}

// handleMessage inserts a live message unless its id is already seen,
// which absorbs the echo of our own optimistic send.
func (e *Engine) handleMessage(f *wire.MessageFrame) {
	ts := f.Timestamp
	if ts == "" {
		ts = e.nowISO()
	}
	sender := f.Sender
	if sender == "" {
		sender = "unknown"
	}
	id := f.ID
	if id == "" {
		id = chat.ComposeID(ts, sender, f.Message)
	}
	if e.index.Has(id) {
		return
	}

	me := e.selfLocked()
	to := f.To
	if to == "" {
		if sender == me {
			to = e.selected
		} else {
			to = me
		}
	}

	kind := chat.KindUser
	if f.IsBot {
		kind = chat.KindBroadcast
	}
	m := chat.Message{
		ID:        id,
		From:      sender,
		To:        to,
		Text:      f.Message,
		Timestamp: ts,
		Kind:      kind,
		QuotedID:  f.QuotedRef(),
		Deleted:   f.Deleted,
		UpdatedAt: f.UpdatedAt,
	}
	if f.QuotedMessage != nil {
		m.Quoted = quoteFromWire(f.QuotedMessage)
	}
	e.index.ResolveQuote(&m)
	e.index.Upsert(m)

	if to == me && (e.selected == "" || e.selected != sender) {
		e.store.IncrementUnread(sender)
	}
}

func (e *Engine) handleMessageUpdated(f *wire.MessageUpdatedFrame) {
	u := f.Message
	if u == nil || u.ID == "" {
		return
	}
	deleted := true
	if u.Deleted != nil {
		deleted = *u.Deleted
	}
	e.index.ApplySoftDelete(u.ID, deleted, u.Text, u.UpdatedAt)
}

// fromHistory builds the canonical record for one history row, deriving
// id and recipient when the stored row predates those fields.
func (e *Engine) fromHistory(row *wire.HistoryMessage, me, sel string) chat.Message {
	ts := row.Timestamp
	if ts == "" {
		ts = e.nowISO()
	}
	id := row.ID
	if id == "" {
		id = chat.ComposeID(ts, row.From, row.Message)
	}
	to := row.To
	if to == "" {
		if row.From == me {
			to = sel
		} else {
			to = me
		}
	}
	kind := chat.KindUser
	if row.Kind == "bot" {
		kind = chat.KindBroadcast
	}
	m := chat.Message{
		ID:        id,
		From:      row.From,
		To:        to,
		Text:      row.Message,
		Timestamp: ts,
		Kind:      kind,
		QuotedID:  row.QuotedRef(),
		Reaction:  chat.ParseReaction(row.MyReaction),
		ReadBy:    row.ReadBy,
		Deleted:   row.Deleted,
		UpdatedAt: row.UpdatedAt,
	}
	if row.QuotedMessage != nil {
		m.Quoted = quoteFromWire(row.QuotedMessage)
	}
	return m
}

func quoteFromWire(q *wire.QuotedMessage) *chat.Quote {
	return &chat.Quote{
		ID:        q.ID,
		From:      q.From,
		Text:      q.Message,
		Timestamp: q.Timestamp,
		Deleted:   q.Deleted,
	}
}

func (e *Engine) selfLocked() string {
	if e.self != "" {
		return e.self
	}
	return e.fallbackSelf
}

func (e *Engine) nowISO() string {
	return e.now().UTC().Format(isoFormat)
}

func (e *Engine) sendFrame(frame any) {
	if err := e.fb.PublishOutbound(context.Background(), frame); err != nil {
		logger.ErrorCF("engine", "Outbound publish failed", map[string]any{"error": err.Error()})
	}
}
