package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/feed/feedtest"
	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/overlay"
	"github.com/markitapp/markit/internal/store/storetest"
)

func newTestManager(t *testing.T, fs *storetest.Store) *Manager {
	t.Helper()

	overlays, err := overlay.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("overlay.NewStore() failed: %v", err)
	}

	m := NewManager(fs, feedtest.New(), overlays, logger.New("error", false))
	t.Cleanup(m.Close)
	return m
}

func TestSessionIsReused(t *testing.T) {
	m := newTestManager(t, seeded("b1"))

	a, err := m.Session(context.Background(), owner)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	b, err := m.Session(context.Background(), owner)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}

	if a != b {
		t.Error("second Session() call should return the cached engine")
	}
	if got := m.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestSessionOpenDoesNotBlockOtherOwners(t *testing.T) {
	fs := storetest.Seed("slow", "b1")
	block := make(chan struct{})
	fs.OnList = func(ownerID string) {
		if ownerID == "slow" {
			<-block
		}
	}
	m := newTestManager(t, fs)

	slowDone := make(chan error, 1)
	go func() {
		_, err := m.Session(context.Background(), domain.User{ID: "slow"})
		slowDone <- err
	}()

	fastDone := make(chan error, 1)
	go func() {
		_, err := m.Session(context.Background(), domain.User{ID: "fast"})
		fastDone <- err
	}()

	// The fast owner's session must resolve while the slow owner's
	// seeding read is still stuck in the store.
	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("Session(fast) failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session resolution blocked behind another owner's open")
	}

	close(block)
	if err := <-slowDone; err != nil {
		t.Fatalf("Session(slow) failed: %v", err)
	}
	if got := m.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestFailedOpenIsNotCached(t *testing.T) {
	fs := seeded("b1")
	fs.FailList = errors.New("store down")
	m := newTestManager(t, fs)

	if _, err := m.Session(context.Background(), owner); err == nil {
		t.Fatal("Session() should surface the seeding failure")
	}
	if got := m.Count(); got != 0 {
		t.Fatalf("Count() after failed open = %d, want 0", got)
	}

	// The store recovers: the next request opens a fresh session.
	fs.FailList = nil
	if _, err := m.Session(context.Background(), owner); err != nil {
		t.Fatalf("Session() after recovery failed: %v", err)
	}
	if got := m.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestReapClosesIdleSessions(t *testing.T) {
	m := newTestManager(t, seeded("b1"))

	if _, err := m.Session(context.Background(), owner); err != nil {
		t.Fatalf("Session() failed: %v", err)
	}

	// Nothing is idle yet.
	if got := m.Reap(time.Hour); got != 0 {
		t.Errorf("Reap(1h) = %d, want 0", got)
	}

	time.Sleep(5 * time.Millisecond)
	if got := m.Reap(time.Millisecond); got != 1 {
		t.Errorf("Reap(1ms) = %d, want 1", got)
	}
	if got := m.Count(); got != 0 {
		t.Errorf("Count() after reap = %d, want 0", got)
	}

	// A reaped owner gets a fresh engine on next access.
	if _, err := m.Session(context.Background(), owner); err != nil {
		t.Fatalf("Session() after reap failed: %v", err)
	}
}
