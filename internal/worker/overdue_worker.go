package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	sweepLockKey  = "lock:overdue_sweep"
	sweepTimeout  = 2 * time.Minute
	unlockTimeout = 5 * time.Second
)

// Sweeper flips lapsed invoices to overdue.
type Sweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// Locker keeps replicas from sweeping at the same time. The lock is held
// for one sweep and released when it finishes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// OverdueWorker runs the overdue sweep on a cron schedule.
type OverdueWorker struct {
	sweeper  Sweeper
	locker   Locker
	schedule string
	cron     *cron.Cron
}

// NewOverdueWorker constructs an OverdueWorker. locker may be nil when a
// single instance is running.
func NewOverdueWorker(sweeper Sweeper, locker Locker, schedule string) *OverdueWorker {
	return &OverdueWorker{
		sweeper:  sweeper,
		locker:   locker,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start schedules the sweep, kicks off a first sweep in the background and
// stops the scheduler when ctx is cancelled. It does not block on the sweep.
func (w *OverdueWorker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, func() { w.run(ctx) }); err != nil {
		return fmt.Errorf("invalid overdue sweep schedule %q: %w", w.schedule, err)
	}
	log.Info().Str("schedule", w.schedule).Msg("Starting overdue worker")

	go w.run(ctx)
	w.cron.Start()

	go func() {
		<-ctx.Done()
		<-w.cron.Stop().Done()
		log.Info().Msg("Overdue worker stopped")
	}()
	return nil
}

func (w *OverdueWorker) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	if w.locker != nil {
		token, ok, err := w.locker.TryLock(ctx, sweepLockKey, sweepTimeout)
		if err != nil {
			log.Error().Err(err).Msg("Failed to acquire overdue sweep lock")
			return
		}
		if !ok {
			log.Debug().Msg("Overdue sweep already running elsewhere")
			return
		}
		defer w.unlock(ctx, token)
	}

	start := time.Now()
	n, err := w.sweeper.SweepOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Overdue sweep failed")
		return
	}
	log.Info().Int("invoices", n).Dur("duration", time.Since(start)).Msg("Overdue sweep completed")
}

// unlock releases the sweep lock even when the sweep ran out of time.
func (w *OverdueWorker) unlock(ctx context.Context, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
	defer cancel()
	if err := w.locker.Unlock(ctx, sweepLockKey, token); err != nil {
		log.Warn().Err(err).Msg("Failed to release overdue sweep lock")
	}
}
