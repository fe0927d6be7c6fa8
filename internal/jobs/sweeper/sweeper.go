package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

const (
	DefaultInterval = time.Minute
	DefaultStaleAge = 5 * time.Minute
)

// Expirer is the slice of the transfer service the sweeper drives.
type Expirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper periodically times out transfers stuck in PENDING or PROCESSING.
type Sweeper struct {
	log      *logger.Logger
	expirer  Expirer
	metrics  *observability.Metrics
	interval time.Duration
	staleAge time.Duration
}

func New(baseLog *logger.Logger, expirer Expirer, metrics *observability.Metrics, interval, staleAge time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if staleAge <= 0 {
		staleAge = DefaultStaleAge
	}
	return &Sweeper{
		log:      baseLog.With("component", "StaleTransferSweeper"),
		expirer:  expirer,
		metrics:  metrics,
		interval: interval,
		staleAge: staleAge,
	}
}

// Run blocks until ctx is cancelled. It always returns nil so an errgroup keeps the server alive.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("Stale transfer sweeper started", "interval", s.interval.String(), "stale_after", s.staleAge.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stale transfer sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass and returns how many transfers were expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (n int64) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Sweeper panic", "panic", r)
			err = fmt.Errorf("panic: %v", r)
			n = 0
		}
		s.metrics.ObserveSweep(n, err)
	}()

	n, err = s.expirer.ExpireStale(ctx, s.staleAge)
	if err != nil {
		s.log.Warn("ExpireStale failed", "error", err)
		return 0
	}
	if n > 0 {
		s.log.Info("Timed out stale transfers", "count", n)
	}
	return n
}
