// Package state persists the small pieces of local client state the chat
// engine consumes across sessions: the auth token, the current user
// record, the last-selected peer and a per-install client id.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/tinyland-inc/gridchat/pkg/logger"
)

// User is the locally cached account record.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type data struct {
	Token    string `json:"auth_token,omitempty"`
	User     *User  `json:"auth_user,omitempty"`
	LastPeer string `json:"player_id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// Manager reads and writes the state file under the workspace. Writes are
// atomic (temp file + rename).
type Manager struct {
	mu   sync.Mutex
	path string
	d    data
}

// NewManager loads (or initializes) state under the workspace directory.
// A client id is generated on first load and kept forever.
func NewManager(workspace string) *Manager {
	m := &Manager{path: filepath.Join(workspace, "state.json")}
	m.load()
	if m.d.ClientID == "" {
		m.d.ClientID = uuid.New().String()
		m.saveLocked()
	}
	return m
}

func (m *Manager) load() {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return // first run
	}
	if err := json.Unmarshal(raw, &m.d); err != nil {
		logger.WarnCF("state", "Corrupt state file, starting fresh", map[string]any{"error": err.Error()})
		m.d = data{}
	}
}

func (m *Manager) saveLocked() {
	raw, err := json.MarshalIndent(m.d, "", "  ")
	if err != nil {
		logger.ErrorCF("state", "Marshal failed", map[string]any{"error": err.Error()})
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		logger.ErrorCF("state", "Workspace create failed", map[string]any{"error": err.Error()})
		return
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		logger.ErrorCF("state", "Write failed", map[string]any{"error": err.Error()})
		return
	}
	if err := os.Rename(tmp, m.path); err != nil {
		logger.ErrorCF("state", "Rename failed", map[string]any{"error": fmt.Sprintf("%v", err)})
	}
}

func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.Token
}

func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.Token = token
	m.saveLocked()
}

func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.d.User == nil {
		return nil
	}
	u := *m.d.User
	return &u
}

func (m *Manager) SetUser(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u == nil {
		m.d.User = nil
	} else {
		c := *u
		m.d.User = &c
	}
	m.saveLocked()
}

// LastPeer is the most recently selected conversation peer. The engine
// also uses it as the identity fallback when attributing an inbound
// recipient before whoami resolves.
func (m *Manager) LastPeer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.LastPeer
}

// SetLastPeer satisfies engine.SelectionRecorder.
func (m *Manager) SetLastPeer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.LastPeer = id
	m.saveLocked()
}

func (m *Manager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.ClientID
}
