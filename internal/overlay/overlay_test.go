package overlay

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	set, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Load() of missing file should be empty, got %d entries", set.Len())
	}
}

func TestAddRemovePersists(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	set, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if err := set.Add("b1"); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := set.Add("b2"); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := set.Remove("b2"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	// A fresh load sees exactly the surviving membership.
	reloaded, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load() after writes failed: %v", err)
	}
	if !reloaded.Contains("b1") {
		t.Error("reloaded set should contain b1")
	}
	if reloaded.Contains("b2") {
		t.Error("reloaded set should not contain removed b2")
	}
}

func TestOverlaysAreOwnerScoped(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	a, _ := store.Load("alice")
	if err := a.Add("b1"); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	b, _ := store.Load("bob")
	if b.Contains("b1") {
		t.Error("overlay entries must not leak across owners")
	}
}

func TestCorruptFileIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "u1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to seed corrupt file: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	set, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load() of corrupt file should not fail: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("corrupt overlay should load empty, got %d entries", set.Len())
	}
}
