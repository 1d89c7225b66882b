package worker

import (
	"context"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"
)

// DefaultSweepLockKey is the Redis key guarding the sweep.
const DefaultSweepLockKey = "student-auth:refresh-token-sweep"

// ExpiredTokenCleaner deletes refresh tokens past their expiry.
type ExpiredTokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// SweepRecorder is notified after each completed sweep.
type SweepRecorder interface {
	RecordSweep(removed int64)
}

// TokenSweeper periodically purges expired refresh tokens.
type TokenSweeper struct {
	cleaner  ExpiredTokenCleaner
	lock     SweepLock
	clock    clock.Clock
	interval time.Duration
	recorder SweepRecorder
	logger   *zap.Logger
}

// SweeperConfig bundles the sweeper's collaborators.
type SweeperConfig struct {
	Cleaner  ExpiredTokenCleaner
	Lock     SweepLock
	Clock    clock.Clock
	Interval time.Duration
	Recorder SweepRecorder
	Logger   *zap.Logger
}

// NewTokenSweeper builds a sweeper. A nil lock sweeps on every tick.
func NewTokenSweeper(cfg SweeperConfig) *TokenSweeper {
	s := &TokenSweeper{
		cleaner:  cfg.Cleaner,
		lock:     cfg.Lock,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
	if s.lock == nil {
		s.lock = LocalSweepLock{}
	}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	if s.interval <= 0 {
		s.interval = time.Hour
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Run sweeps once per interval until ctx is done.
func (s *TokenSweeper) Run(ctx context.Context) error {
	s.logger.Info("token sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("token sweeper stopped")
			return nil
		case <-s.clock.After(s.interval):
			if _, _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("token sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce runs a single sweep if the lease is granted. It reports whether
// this instance swept and how many tokens it removed.
func (s *TokenSweeper) SweepOnce(ctx context.Context) (bool, int64, error) {
	// Half the interval so a crashed holder never blocks the next tick.
	acquired, err := s.lock.Acquire(ctx, s.interval/2)
	if err != nil {
		return false, 0, err
	}
	if !acquired {
		s.logger.Debug("token sweep skipped; lease held elsewhere")
		return false, 0, nil
	}

	removed, err := s.cleaner.CleanupExpiredTokens(ctx)
	if err != nil {
		return true, 0, err
	}
	if s.recorder != nil {
		s.recorder.RecordSweep(removed)
	}
	return true, removed, nil
}
