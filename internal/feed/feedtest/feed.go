// Package feedtest provides an in-process change feed for tests.
package feedtest

import (
	"context"
	"sync"

	"github.com/markitapp/markit/internal/feed"
)

// Feed hands out channel-backed subscriptions and lets tests publish
// events to them directly.
type Feed struct {
	mu   sync.Mutex
	subs map[string][]*Sub // key: ownerID + "/" + record type
}

func New() *Feed {
	return &Feed{subs: make(map[string][]*Sub)}
}

func key(ownerID string, t feed.RecordType) string {
	return ownerID + "/" + string(t)
}

func (f *Feed) Subscribe(_ context.Context, ownerID string, t feed.RecordType) (feed.Subscription, error) {
	sub := &Sub{events: make(chan feed.Event, 16)}
	f.mu.Lock()
	f.subs[key(ownerID, t)] = append(f.subs[key(ownerID, t)], sub)
	f.mu.Unlock()
	return sub, nil
}

// Publish delivers an event to every live subscription for the owner
// and record type.
func (f *Feed) Publish(ownerID string, t feed.RecordType, ev feed.Event) {
	f.mu.Lock()
	subs := f.subs[key(ownerID, t)]
	f.mu.Unlock()

	for _, sub := range subs {
		sub.send(ev)
	}
}

// Sub is a channel-backed feed subscription.
type Sub struct {
	mu     sync.Mutex
	events chan feed.Event
	closed bool
}

func (s *Sub) Events() <-chan feed.Event { return s.events }

func (s *Sub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

func (s *Sub) send(ev feed.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}
