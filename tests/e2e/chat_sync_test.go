package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/gridchat/pkg/bus"
	"github.com/tinyland-inc/gridchat/pkg/conn"
	"github.com/tinyland-inc/gridchat/pkg/engine"
)

// scriptServer is a minimal in-process stand-in for the chat service: it
// accepts websocket connections, exposes every client frame it reads and
// lets the test push server frames back.
type scriptServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	frames   chan map[string]any

	mu   sync.Mutex
	sock *websocket.Conn
}

func newScriptServer(t *testing.T) (*scriptServer, string) {
	s := &scriptServer{t: t, frames: make(chan map[string]any, 32)}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func (s *scriptServer) handle(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.sock = sock
	s.mu.Unlock()

	for {
		var frame map[string]any
		if err := sock.ReadJSON(&frame); err != nil {
			return
		}
		s.frames <- frame
	}
}

// recv pops the next client frame, failing the test on timeout.
func (s *scriptServer) recv() map[string]any {
	s.t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		s.t.Fatal("timed out waiting for a client frame")
		return nil
	}
}

// push writes one raw JSON frame to the connected client.
func (s *scriptServer) push(raw string) {
	s.t.Helper()
	s.mu.Lock()
	sock := s.sock
	s.mu.Unlock()
	if sock == nil {
		s.t.Fatal("no client connected")
	}
	if err := sock.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		s.t.Fatalf("server write: %v", err)
	}
}

// drop closes the server side of the socket.
func (s *scriptServer) drop() {
	s.mu.Lock()
	sock := s.sock
	s.sock = nil
	s.mu.Unlock()
	if sock != nil {
		sock.Close()
	}
}

func newStack(t *testing.T, url string) (*engine.Engine, *conn.Manager) {
	t.Helper()
	fb := bus.NewFrameBus()
	t.Cleanup(fb.Close)

	eng := engine.New(fb)
	eng.SetSelf("me")

	mgr := conn.NewManager(conn.Config{
		URL:            url,
		Token:          "tok",
		PlayerID:       "me",
		ClientID:       "test-client",
		ReconnectDelay: 50 * time.Millisecond,
	}, fb)
	t.Cleanup(mgr.Teardown)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go eng.Run(ctx)
	go mgr.RunOutbound(ctx)

	mgr.Connect(ctx)
	return eng, mgr
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFullSession(t *testing.T) {
	srv, url := newScriptServer(t)
	eng, _ := newStack(t, url)

	// Identify arrives first.
	identify := srv.recv()
	if identify["player_id"] != "me" {
		t.Fatalf("identify: %v", identify)
	}
	if identify["client_id"] != "test-client" {
		t.Errorf("client id: %v", identify)
	}

	// Selecting a peer declares the selection and acknowledges the thread.
	eng.SelectPeer("bob")
	sel := srv.recv()
	if sel["type"] != "select" || sel["selectedPlayer"] != "bob" {
		t.Fatalf("select: %v", sel)
	}
	read := srv.recv()
	if read["type"] != "read" || read["with"] != "bob" {
		t.Fatalf("read: %v", read)
	}

	// Server answers with history.
	srv.push(`{
		"type": "history",
		"with": "bob",
		"messages": [
			{"id": "h1", "from": "bob", "to": "me", "message": "hey", "timestamp": "2026-01-01T10:00:00.000Z", "type": "user"},
			{"id": "h2", "from": "me", "to": "bob", "message": "reply", "timestamp": "2026-01-01T10:00:01.000Z", "type": "user", "quotedId": "h1"}
		]
	}`)
	waitFor(t, "history", func() bool { return len(eng.Messages()) == 2 })

	reply, ok := eng.Message("h2")
	if !ok || reply.Quoted == nil || reply.Quoted.Text != "hey" {
		t.Errorf("quote resolution through the stack: %+v", reply)
	}

	// Optimistic send, server echo absorbed.
	eng.SendMessage("hello bob", "")
	sent := srv.recv()
	if sent["type"] != "message" || sent["message"] != "hello bob" {
		t.Fatalf("send: %v", sent)
	}
	ts, _ := sent["timestamp"].(string)
	echo, _ := json.Marshal(map[string]any{
		"type": "message", "sender": "me", "message": "hello bob", "timestamp": ts,
	})
	srv.push(string(echo))

	// Give the echo time to arrive; the count must not grow past 3.
	time.Sleep(50 * time.Millisecond)
	if got := len(eng.Messages()); got != 3 {
		t.Errorf("echo handling: %d messages, want 3", got)
	}

	// Unread from a non-selected peer accumulates, then the server's
	// authoritative count overrides.
	srv.push(`{"type": "message", "sender": "carol", "message": "psst", "timestamp": "2026-01-01T10:01:00.000Z"}`)
	waitFor(t, "carol unread", func() bool { return eng.Unread("carol") == 1 })
	srv.push(`{"type": "unread", "from": "carol", "to": "me", "count": 4}`)
	waitFor(t, "authoritative unread", func() bool { return eng.Unread("carol") == 4 })

	// Soft delete propagates.
	srv.push(`{"type": "message_updated", "message": {"id": "h1", "updated_at": "2026-01-01T10:02:00.000Z"}}`)
	waitFor(t, "soft delete", func() bool {
		m, ok := eng.Message("h1")
		return ok && m.Deleted
	})
	// The quote snapshot on h2 keeps the original text.
	reply, _ = eng.Message("h2")
	if reply.Quoted == nil || reply.Quoted.Text != "hey" || reply.Quoted.Deleted {
		t.Errorf("quote snapshot after delete: %+v", reply.Quoted)
	}
}

func TestReconnectReidentifiesAndFlushes(t *testing.T) {
	srv, url := newScriptServer(t)
	eng, mgr := newStack(t, url)

	first := srv.recv()
	if first["player_id"] != "me" {
		t.Fatalf("identify: %v", first)
	}

	srv.drop()
	waitFor(t, "closed state", func() bool { return mgr.State() == conn.StateClosed })

	// Intents issued while down are queued.
	eng.SelectPeer("bob")

	// The manager reconnects on its own, identifies again, then flushes
	// the queued select and read in order.
	second := srv.recv()
	if second["player_id"] != "me" {
		t.Fatalf("re-identify: %v", second)
	}
	sel := srv.recv()
	if sel["type"] != "select" || sel["selectedPlayer"] != "bob" {
		t.Fatalf("queued select not flushed: %v", sel)
	}
	read := srv.recv()
	if read["type"] != "read" {
		t.Fatalf("queued read not flushed: %v", read)
	}
	waitFor(t, "open state", func() bool { return mgr.State() == conn.StateOpen })
}

func TestMalformedServerFrameDoesNotKillSession(t *testing.T) {
	srv, url := newScriptServer(t)
	eng, _ := newStack(t, url)
	srv.recv() // identify

	srv.push(`this is not json`)
	srv.push(`{"type": "message", "sender": "bob", "message": "still alive", "timestamp": "t1"}`)

	waitFor(t, "frame after garbage", func() bool { return len(eng.Messages()) == 1 })
}
