package service

import (
	"context"
	"log/slog"
	"time"
)

// Purger drops expired in-memory state. The memory session and nonce
// stores implement it.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// TokenPurger deletes action tokens that expired or were used before a
// cutoff. identity.Store implements it.
type TokenPurger interface {
	DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error)
}

// HousekeepingService periodically removes used or expired action tokens
// and purges expired in-memory sessions and nonces.
type HousekeepingService struct {
	Tokens   TokenPurger
	Purgers  map[string]Purger
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. If interval is 0
// or negative, it defaults to 1 hour. purgers are keyed by the name used in
// logs and metrics.
func NewHousekeepingService(tokens TokenPurger, logger *slog.Logger, interval time.Duration, purgers map[string]Purger) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Tokens:   tokens,
		Purgers:  purgers,
		Logger:   logger,
		Interval: interval,
		Now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure is logged and
// the remaining steps still run.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.Now()
	var total int64

	if s.Tokens != nil {
		n, err := s.Tokens.DeleteExpiredActionTokens(ctx, now)
		if err != nil {
			s.Logger.Error("failed to delete expired action tokens", "error", err)
		} else {
			HousekeepingDeleted.WithLabelValues("action_tokens").Add(float64(n))
			total += n
		}
	}

	for name, p := range s.Purgers {
		purged, err := p.PurgeExpired(ctx, now)
		if err != nil {
			s.Logger.Error("failed to purge expired entries", "kind", name, "error", err)
			continue
		}
		HousekeepingDeleted.WithLabelValues(name).Add(float64(purged))
		total += int64(purged)
	}

	s.Logger.Debug("housekeeping cleanup completed", "deleted", total)
}
