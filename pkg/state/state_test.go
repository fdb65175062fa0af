package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManager_GeneratesClientIDOnce(t *testing.T) {
	dir := t.TempDir()

	m1 := NewManager(dir)
	id := m1.ClientID()
	if id == "" {
		t.Fatal("no client id generated")
	}

	m2 := NewManager(dir)
	if m2.ClientID() != id {
		t.Errorf("client id changed across loads: %s vs %s", id, m2.ClientID())
	}
}

func TestManager_PersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()

	m := NewManager(dir)
	m.SetToken("tok-1")
	m.SetUser(&User{ID: "me", Username: "Me"})
	m.SetLastPeer("bob")

	reloaded := NewManager(dir)
	if reloaded.Token() != "tok-1" {
		t.Errorf("token: %q", reloaded.Token())
	}
	u := reloaded.User()
	if u == nil || u.ID != "me" || u.Username != "Me" {
		t.Errorf("user: %+v", u)
	}
	if reloaded.LastPeer() != "bob" {
		t.Errorf("last peer: %q", reloaded.LastPeer())
	}
}

func TestManager_UserReturnsCopy(t *testing.T) {
	m := NewManager(t.TempDir())
	m.SetUser(&User{ID: "me"})

	u := m.User()
	u.ID = "tampered"

	if got := m.User().ID; got != "me" {
		t.Errorf("internal user mutated through copy: %q", got)
	}
}

func TestManager_CorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir)
	if m.Token() != "" {
		t.Errorf("token from corrupt file: %q", m.Token())
	}
	if m.ClientID() == "" {
		t.Error("fresh client id not generated")
	}
}

func TestManager_ClearUser(t *testing.T) {
	m := NewManager(t.TempDir())
	m.SetUser(&User{ID: "me"})
	m.SetUser(nil)
	if m.User() != nil {
		t.Error("user not cleared")
	}
}
