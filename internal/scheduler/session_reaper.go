package scheduler

import (
	"context"
	"time"

	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/session"
)

const (
	// DefaultSessionTTL is the idle duration after which a session is torn down
	DefaultSessionTTL = 30 * time.Minute
)

// SessionReaper periodically closes idle session engines so abandoned
// logins do not hold feed subscriptions open forever.
type SessionReaper struct {
	sessions *session.Manager
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
}

// NewSessionReaper creates a new session reaper
func NewSessionReaper(
	sessions *session.Manager,
	log logger.Logger,
	interval time.Duration,
	ttl time.Duration,
) *SessionReaper {
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionReaper{
		sessions: sessions,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reaping process
func (sr *SessionReaper) Start(ctx context.Context) error {
	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sr.Sweep()
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reaper
func (sr *SessionReaper) Stop() {
	close(sr.stopCh)
}

// Sweep closes every session idle for longer than the ttl. A reaped
// owner gets a fresh snapshot seed on their next request.
func (sr *SessionReaper) Sweep() {
	reaped := sr.sessions.Reap(sr.ttl)
	if reaped > 0 {
		sr.logger.Info("session sweep completed",
			logger.Int("reaped", reaped),
			logger.Int("remaining", sr.sessions.Count()))
	} else {
		sr.logger.Debug("no idle sessions to reap")
	}
}
