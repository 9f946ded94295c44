package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/feed"
	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/overlay"
	"github.com/markitapp/markit/internal/store"
)

// Manager creates and caches one engine per signed-in owner. Engines
// are opened lazily on first request and torn down when idle (see the
// scheduler reaper) or at shutdown. There are no process-wide
// singletons: everything a session owns hangs off its engine.
type Manager struct {
	store    store.RecordStore
	feed     feed.Feed
	overlays *overlay.Store
	logger   logger.Logger

	mu       sync.Mutex
	sessions map[string]*managedSession
}

// managedSession is published into the map before its engine is
// opened, so the map lock is never held across the seeding reads and
// feed subscribes. ready is closed once opening finished (either way);
// engine and err must only be read after that.
type managedSession struct {
	ready    chan struct{}
	engine   *Engine
	err      error
	lastSeen time.Time
}

// NewManager creates a session manager.
func NewManager(
	recordStore store.RecordStore,
	changeFeed feed.Feed,
	overlays *overlay.Store,
	log logger.Logger,
) *Manager {
	return &Manager{
		store:    recordStore,
		feed:     changeFeed,
		overlays: overlays,
		logger:   log,
		sessions: make(map[string]*managedSession),
	}
}

// Session returns the owner's engine, opening one on first access.
// Concurrent first requests for the same owner share one open; a slow
// open for one owner never blocks session resolution for another.
func (m *Manager) Session(ctx context.Context, owner domain.User) (*Engine, error) {
	m.mu.Lock()
	s, ok := m.sessions[owner.ID]
	if !ok {
		s = &managedSession{ready: make(chan struct{})}
		m.sessions[owner.ID] = s
		m.mu.Unlock()
		return m.open(ctx, owner, s)
	}
	m.mu.Unlock()

	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}

	m.mu.Lock()
	s.lastSeen = time.Now()
	m.mu.Unlock()
	return s.engine, nil
}

// open builds and seeds the engine for a freshly published entry. A
// failed open removes the entry so the next request retries.
func (m *Manager) open(ctx context.Context, owner domain.User, s *managedSession) (*Engine, error) {
	engine, err := m.openEngine(ctx, owner)

	m.mu.Lock()
	if err != nil {
		delete(m.sessions, owner.ID)
	} else {
		s.engine = engine
		s.lastSeen = time.Now()
	}
	s.err = err
	m.mu.Unlock()
	close(s.ready)

	return engine, err
}

func (m *Manager) openEngine(ctx context.Context, owner domain.User) (*Engine, error) {
	overlaySet, err := m.overlays.Load(owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorite overlay: %w", err)
	}

	engine := NewEngine(owner, m.store, m.feed, overlaySet, m.logger)
	if err := engine.Open(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reap closes sessions idle for longer than ttl and returns how many
// were closed. A reaped owner simply gets a fresh seed on next access.
// Entries still opening are left alone.
func (m *Manager) Reap(ttl time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	var idle []*managedSession
	for id, s := range m.sessions {
		select {
		case <-s.ready:
		default:
			continue
		}
		if s.engine != nil && now.Sub(s.lastSeen) > ttl {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.logger.Info("reaping idle session",
			logger.String("owner_id", s.engine.Owner().ID),
			logger.String("idle_for", now.Sub(s.lastSeen).String()))
		s.engine.Close()
	}
	return len(idle)
}

// Close tears down every live session. Used at shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*managedSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*managedSession)
	m.mu.Unlock()

	for _, s := range sessions {
		<-s.ready
		if s.engine != nil {
			s.engine.Close()
		}
	}
}
