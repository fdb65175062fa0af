package chat

import "testing"

func msg(id, from, to, text, ts string) Message {
	return Message{ID: id, From: from, To: to, Text: text, Timestamp: ts, Kind: KindUser}
}

func TestIndex_UpsertIdempotent(t *testing.T) {
	ix := NewMessageIndex()
	m := msg("m1", "alice", "bob", "hi", "2026-01-01T10:00:00.000Z")

	ix.Upsert(m)
	ix.Upsert(m)

	if ix.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", ix.Len())
	}
	got, ok := ix.Get("m1")
	if !ok {
		t.Fatal("expected m1 indexed")
	}
	if got.Text != "hi" {
		t.Errorf("text: got %q, want %q", got.Text, "hi")
	}
}

func TestIndex_MergeInboundWinsOverPlaceholder(t *testing.T) {
	ix := NewMessageIndex()
	// Optimistic placeholder lacks the recipient.
	ix.Upsert(Message{ID: "m1", From: "alice", Text: "hi", Timestamp: "t1", Kind: KindUser})
	// Echo fills it in.
	ix.Upsert(msg("m1", "alice", "bob", "hi", "t1"))

	got, _ := ix.Get("m1")
	if got.To != "bob" {
		t.Errorf("to: got %q, want bob", got.To)
	}
}

func TestIndex_MergeNeverRevertsDeleted(t *testing.T) {
	ix := NewMessageIndex()
	ix.Upsert(msg("m1", "alice", "bob", "hi", "t1"))
	ix.ApplySoftDelete("m1", true, "", "t2")

	// A stale upsert with the original text must not resurrect it.
	ix.Upsert(msg("m1", "alice", "bob", "hi", "t1"))

	got, _ := ix.Get("m1")
	if !got.Deleted {
		t.Error("deleted flag was reverted")
	}
	if got.Text != "" {
		t.Errorf("text: got %q, want empty", got.Text)
	}
}

func TestIndex_MergeKeepsQuoteSnapshot(t *testing.T) {
	ix := NewMessageIndex()
	withQuote := msg("m2", "bob", "alice", "re: hi", "t2")
	withQuote.QuotedID = "m1"
	withQuote.Quoted = &Quote{ID: "m1", From: "alice", Text: "hi", Timestamp: "t1"}
	ix.Upsert(withQuote)

	// Echo carries a different snapshot; the original must survive.
	echo := withQuote
	echo.Quoted = &Quote{ID: "m1", From: "alice", Text: "EDITED", Timestamp: "t1"}
	ix.Upsert(echo)

	got, _ := ix.Get("m2")
	if got.Quoted == nil || got.Quoted.Text != "hi" {
		t.Errorf("quote snapshot was replaced: %+v", got.Quoted)
	}
}

func TestIndex_ApplyReactionUnknownIDIsNoop(t *testing.T) {
	ix := NewMessageIndex()
	ix.ApplyReaction("ghost", ReactionUp)
	ix.ApplySoftDelete("ghost", true, "", "")
	if ix.Len() != 0 {
		t.Fatalf("no-ops created entries: %d", ix.Len())
	}
}

func TestIndex_SoftDeleteIrreversible(t *testing.T) {
	ix := NewMessageIndex()
	ix.Upsert(msg("m1", "alice", "bob", "hi", "t1"))
	ix.ApplySoftDelete("m1", true, "", "t2")
	ix.ApplySoftDelete("m1", false, "hi again", "t3")

	got, _ := ix.Get("m1")
	if !got.Deleted || got.Text != "" {
		t.Errorf("soft delete was reverted: deleted=%v text=%q", got.Deleted, got.Text)
	}
}

func TestIndex_ResolveQuote(t *testing.T) {
	ix := NewMessageIndex()
	ix.Upsert(msg("a1", "alice", "bob", "original", "t1"))

	reply := msg("b1", "bob", "alice", "reply", "t2")
	reply.QuotedID = "a1"
	ix.ResolveQuote(&reply)

	if reply.Quoted == nil {
		t.Fatal("quote not resolved")
	}
	if reply.Quoted.Text != "original" || reply.Quoted.From != "alice" {
		t.Errorf("snapshot mismatch: %+v", reply.Quoted)
	}

	// Unseen quoted id stays unresolved.
	orphan := msg("c1", "bob", "alice", "reply", "t3")
	orphan.QuotedID = "nope"
	ix.ResolveQuote(&orphan)
	if orphan.Quoted != nil {
		t.Errorf("expected unresolved quote, got %+v", orphan.Quoted)
	}
}

func TestIndex_ResolveQuoteDoesNotRefresh(t *testing.T) {
	ix := NewMessageIndex()
	ix.Upsert(msg("a1", "alice", "bob", "original", "t1"))

	reply := msg("b1", "bob", "alice", "reply", "t2")
	reply.QuotedID = "a1"
	ix.ResolveQuote(&reply)
	ix.Upsert(reply)

	// Quoted original is deleted afterwards; the snapshot keeps the old
	// text by design.
	ix.ApplySoftDelete("a1", true, "", "t3")
	got, _ := ix.Get("b1")
	if got.Quoted == nil || got.Quoted.Text != "original" || got.Quoted.Deleted {
		t.Errorf("snapshot should be immutable: %+v", got.Quoted)
	}
}

func TestIndex_ReplaceAll(t *testing.T) {
	ix := NewMessageIndex()
	ix.Upsert(msg("old", "alice", "bob", "gone", "t0"))

	ix.ReplaceAll([]Message{
		msg("m1", "alice", "bob", "one", "t1"),
		msg("m2", "bob", "alice", "two", "t2"),
	})

	if ix.Has("old") {
		t.Error("replaced set still contains old id")
	}
	if ix.Len() != 2 {
		t.Errorf("len: got %d, want 2", ix.Len())
	}
}
