package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NovaRamp/internal/chain"

	"github.com/go-co-op/gocron/v2"
)

// Expirer moves stale open orders to expired.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// HealthChecker probes the configured chain RPC endpoints.
type HealthChecker interface {
	Check(ctx context.Context) []chain.Health
}

// Worker runs the periodic background jobs. A nil Orders or Health disables
// the matching job.
type Worker struct {
	Orders         Expirer
	Health         HealthChecker
	SweepInterval  time.Duration
	HealthInterval time.Duration
	Logger         *slog.Logger
}

// Run schedules the jobs and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	if w.Orders != nil {
		if err := w.schedule(sched, "order-expiry", w.SweepInterval, func() {
			if err := w.SweepOnce(ctx); err != nil {
				w.Logger.Error("order expiry sweep failed", "err", err)
			}
		}); err != nil {
			return err
		}
	}
	if w.Health != nil {
		if err := w.schedule(sched, "chain-health", w.HealthInterval, func() {
			w.ProbeOnce(ctx)
		}); err != nil {
			return err
		}
	}

	w.Logger.Info("worker started", "jobs", len(sched.Jobs()), "sweep_interval", w.SweepInterval, "health_interval", w.HealthInterval)
	sched.Start()
	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	w.Logger.Info("worker stopped")
	return nil
}

func (w *Worker) schedule(sched gocron.Scheduler, name string, every time.Duration, fn func()) error {
	_, err := sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	return nil
}

func (w *Worker) SweepOnce(ctx context.Context) error {
	n, err := w.Orders.ExpireStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.Logger.Info("order expiry sweep", "expired", n)
	}
	return nil
}

// ProbeOnce checks every chain and logs the ones that are not healthy.
func (w *Worker) ProbeOnce(ctx context.Context) []chain.Health {
	results := w.Health.Check(ctx)
	for _, h := range results {
		switch h.Status {
		case chain.HealthOK:
			w.Logger.Debug("chain rpc healthy", "chain_id", h.ChainID, "latency_ms", h.LatencyMs, "block", h.BlockNumber)
		case chain.HealthWarn:
			w.Logger.Warn("chain rpc slow", "chain_id", h.ChainID, "name", h.Name, "latency_ms", h.LatencyMs)
		default:
			w.Logger.Error("chain rpc down", "chain_id", h.ChainID, "name", h.Name, "err", h.Error)
		}
	}
	return results
}
