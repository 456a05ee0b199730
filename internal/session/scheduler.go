package session

import (
	"context"
	"sync"
	"time"

	"github.com/wallandteen/leetsession/internal/notify"
)

const (
	DefaultInitialDelay = time.Second
	DefaultInterval     = time.Hour
)

// Scheduler runs Sync shortly after start and then on every interval. The
// cursor keeps the expensive part to once a day; ticks in between are cheap.
type Scheduler struct {
	manager      *Manager
	initialDelay time.Duration
	interval     time.Duration

	// OnSync, if set, observes every pass.
	OnSync func(*SyncResult, error)

	trigger  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler for m. A zero initialDelay syncs as soon as
// Run starts; negative durations and a zero interval use the defaults.
func NewScheduler(m *Manager, initialDelay, interval time.Duration) *Scheduler {
	if initialDelay < 0 {
		initialDelay = DefaultInitialDelay
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		manager:      m,
		initialDelay: initialDelay,
		interval:     interval,
		trigger:      make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
}

// Run blocks until ctx is done or Stop is called. Passes never overlap; a
// failed pass is logged and reported and the next one starts from scratch.
func (s *Scheduler) Run(ctx context.Context) error {
	if busy, err := s.manager.HasIncompleteSessions(ctx); err != nil {
		log.Warn("could not check for incomplete sessions: %v", err)
	} else if busy {
		notify.Warnf(s.manager.opts.Notifier, 0, MsgFoundIncomplete)
	}

	first := time.NewTimer(s.initialDelay)
	defer first.Stop()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Debug("scheduler started (delay %s, interval %s)", s.initialDelay, s.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			log.Debug("scheduler stopped")
			return nil
		case <-first.C:
		case <-ticker.C:
		case <-s.trigger:
		}
		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	res, err := s.manager.Sync(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error("sync failed: %v", err)
		notify.Errorf(s.manager.opts.Notifier, 0, MsgSyncFailed, err)
	}
	if s.OnSync != nil {
		s.OnSync(res, err)
	}
}

// TriggerSync asks for a pass as soon as the current one, if any, ends.
// Calls while one is already pending are merged.
func (s *Scheduler) TriggerSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop ends Run. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
