package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edulive/classpulse/core/session"
)

func TestStore_missingSlot(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nope.json"))

	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on a missing slot failed: %v", err)
	}
	if ok {
		t.Error("missing slot must report ok=false")
	}
}

func TestStore_roundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "session.json"))

	state := session.NewState()
	state.UserRole = session.RoleTeacher
	state.StudentName = "Ana"
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !ok {
		t.Fatal("saved slot must report ok=true")
	}
	if loaded.SessionID != state.SessionID || loaded.UserRole != state.UserRole || loaded.StudentName != state.StudentName {
		t.Errorf("loaded state mismatch: %+v", loaded)
	}
}

func TestStore_corruptSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seeding corrupt slot: %v", err)
	}

	_, _, err := New(path).Load()
	if err == nil {
		t.Error("corrupt slot must surface a decode error")
	}
}

func TestStore_overwrite(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "session.json"))

	first := session.NewState()
	if err := store.Save(first); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	second := session.NewState()
	second.StudentName = "Bo"
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	loaded, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.SessionID != second.SessionID || loaded.StudentName != "Bo" {
		t.Errorf("slot must hold the last write, got %+v", loaded)
	}
}
