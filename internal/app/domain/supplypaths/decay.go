package supplypaths

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DecayWorker periodically ages every live supply path by one health point.
// Paths reaching zero stop contributing to visibility; the rows stay until
// the next touch revives them.
type DecayWorker struct {
	logger   *zap.Logger
	repo     Repository
	interval time.Duration
}

func NewDecayWorker(repo Repository, interval time.Duration, logger *zap.Logger) *DecayWorker {
	return &DecayWorker{
		logger:   logger,
		repo:     repo,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled, decaying once per interval.
func (w *DecayWorker) Run(ctx context.Context) {
	l := w.logger.With(zap.String("worker", "supply_path_decay"))
	l.Info("Decay worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("Decay worker stopping")
			return
		case <-ticker.C:
			affected, err := w.repo.DecayAll(ctx)
			if err != nil {
				l.Error("Decay pass failed", zap.Error(err))
				continue
			}
			l.Info("Decay pass complete", zap.Int64("paths_aged", affected))
		}
	}
}
