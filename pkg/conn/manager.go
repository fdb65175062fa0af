// Package conn owns the single live websocket to the chat service: dialing,
// the identify handshake, the outbound retry queue, and the fixed-delay
// reconnect loop.
package conn

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/gridchat/pkg/bus"
	"github.com/tinyland-inc/gridchat/pkg/logger"
	"github.com/tinyland-inc/gridchat/pkg/wire"
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// DefaultReconnectDelay matches the client's historical fixed backoff.
const DefaultReconnectDelay = 3 * time.Second

// Config holds everything the Manager needs to dial and identify.
type Config struct {
	URL            string // ws:// or wss:// endpoint
	Token          string // auth token; connect is abandoned without one
	PlayerID       string // local identity sent in the identify frame
	ClientID       string // per-install id, optional
	ReconnectDelay time.Duration
	Dialer         Dialer // defaults to a gorilla/websocket dialer
}

// Manager owns exactly one socket. It is constructed explicitly and passed
// by reference to whatever composes the chat feature; there is no ambient
// global handle.
type Manager struct {
	mu  sync.Mutex
	cfg Config
	fb  *bus.FrameBus

	state        State
	sock         Socket
	queue        []any // frames waiting for an open socket, FIFO
	reconnecting bool
	reconnect    *time.Timer
	tornDown     bool
	baseCtx      context.Context

	onDisconnect func()
}

// NewManager creates a Manager publishing decoded inbound frames to fb.
func NewManager(cfg Config, fb *bus.FrameBus) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &WebsocketDialer{}
	}
	return &Manager{cfg: cfg, fb: fb, state: StateIdle, baseCtx: context.Background()}
}

// SetOnDisconnect registers a hook invoked after the socket drops, before
// any reconnect is scheduled. Collaborators use it to clear state that is
// meaningless without a live connection (e.g. a remote snapshot).
func (m *Manager) SetOnDisconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnect = fn
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens the socket if none is open or opening; a concurrent call
// while CONNECTING or OPEN is a no-op. A missing auth token abandons the
// attempt without scheduling a retry.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.tornDown || m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	if m.cfg.Token == "" {
		// Known gap: no retry and no user-visible error on a missing
		// token. Logged so the abandonment is at least observable.
		logger.WarnC("conn", "connect abandoned: no auth token")
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.baseCtx = ctx
	url := m.cfg.URL
	dialer := m.cfg.Dialer
	m.mu.Unlock()

	logger.InfoCF("conn", "Dialing", map[string]any{"url": url})
	sock, err := dialer.DialContext(ctx, url)

	m.mu.Lock()
	if m.tornDown {
		m.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
		return
	}
	if err != nil {
		logger.ErrorCF("conn", "Dial failed", map[string]any{"error": err.Error()})
		m.state = StateClosed
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	m.sock = sock
	m.state = StateOpen

	// Identify first, then flush anything queued while disconnected.
	identify := wire.IdentifyFrame{PlayerID: m.cfg.PlayerID, ClientID: m.cfg.ClientID}
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	if err := sock.WriteJSON(identify); err != nil {
		logger.ErrorCF("conn", "Identify failed", map[string]any{"error": err.Error()})
		m.handleClose(sock)
		return
	}
	for _, frame := range pending {
		if err := sock.WriteJSON(frame); err != nil {
			logger.ErrorCF("conn", "Queued send failed", map[string]any{"error": err.Error()})
			m.requeue(frame)
			m.handleClose(sock)
			return
		}
	}

	logger.InfoCF("conn", "Connected", map[string]any{"player_id": m.cfg.PlayerID, "flushed": len(pending)})
	go m.readLoop(sock)
}

// Send writes the frame immediately when the socket is open, otherwise
// appends it to the unbounded FIFO retry queue flushed on the next open.
func (m *Manager) Send(frame any) {
	m.mu.Lock()
	if m.state != StateOpen || m.sock == nil {
		m.queue = append(m.queue, frame)
		m.mu.Unlock()
		return
	}
	sock := m.sock
	m.mu.Unlock()

	if err := sock.WriteJSON(frame); err != nil {
		logger.ErrorCF("conn", "Send failed", map[string]any{"error": err.Error()})
		m.requeue(frame)
		m.handleClose(sock)
	}
}

// QueueLen reports how many frames await an open socket.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunOutbound drains the bus's outbound side into Send until ctx is done
// or the bus closes.
func (m *Manager) RunOutbound(ctx context.Context) {
	for {
		frame, ok := m.fb.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		m.Send(frame)
	}
}

// Teardown cancels any pending reconnect and closes the socket. Idempotent
// and terminal: a torn-down Manager never reconnects.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown {
		return
	}
	m.tornDown = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.reconnecting = false
	if m.sock != nil {
		m.sock.Close()
		m.sock = nil
	}
	m.state = StateClosed
	logger.InfoC("conn", "Torn down")
}

func (m *Manager) requeue(frame any) {
	m.mu.Lock()
	m.queue = append([]any{frame}, m.queue...)
	m.mu.Unlock()
}

// readLoop pumps inbound socket payloads through the wire decoder onto the
// bus. It exits on the first read error, which triggers close handling.
func (m *Manager) readLoop(sock Socket) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			m.handleClose(sock)
			return
		}
		frame, derr := wire.Decode(data)
		if derr != nil {
			// Malformed frame: dropped, never fatal.
			logger.WarnCF("wire", "Dropping malformed frame", map[string]any{"error": derr.Error()})
			continue
		}
		if err := m.fb.PublishInbound(m.baseCtx, frame); err != nil {
			return
		}
	}
}

// handleClose transitions to CLOSED and schedules exactly one reconnect.
// Stale socket references (a later Connect already replaced the socket)
// are ignored so overlapping close events never race.
func (m *Manager) handleClose(sock Socket) {
	m.mu.Lock()
	if m.sock != sock && m.sock != nil {
		m.mu.Unlock()
		return
	}
	if m.sock != nil {
		m.sock.Close()
		m.sock = nil
	}
	wasOpen := m.state == StateOpen || m.state == StateConnecting
	m.state = StateClosed
	hook := m.onDisconnect
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	if wasOpen && hook != nil {
		hook()
	}
}

// scheduleReconnectLocked arms the single reconnect timer. The
// reconnecting flag guards against overlapping close events producing
// parallel timers. Callers hold m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.tornDown || m.reconnecting {
		return
	}
	m.reconnecting = true
	logger.InfoCF("conn", "Reconnect scheduled", map[string]any{"delay": m.cfg.ReconnectDelay.String()})
	m.reconnect = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		m.reconnecting = false
		m.reconnect = nil
		ctx := m.baseCtx
		m.mu.Unlock()
		m.Connect(ctx)
	})
}
