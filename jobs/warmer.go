// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pistainteligente/pista/patterns"
)

// Refresher recomputes a report and stores it in the cache.
type Refresher interface {
	Refresh(ctx context.Context, opts patterns.Options) (patterns.Report, error)
}

// Runner wraps a seconds-enabled cron scheduler.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func NewRunner(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { job(r.baseCtx) })
}

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("entries", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// WarmPatterns returns a job that refreshes the cached report for each
// option set, so the common requests never wait on the database.
func WarmPatterns(ref Refresher, logger *zap.Logger, sets ...patterns.Options) func(context.Context) {
	return func(ctx context.Context) {
		for _, opts := range sets {
			start := time.Now()
			report, err := ref.Refresh(ctx, opts)
			if err != nil {
				logger.Warn("pattern warm failed", zap.String("key", opts.WithDefaults().CacheKey()), zap.Error(err))
				continue
			}
			logger.Debug("pattern cache warmed",
				zap.String("key", opts.WithDefaults().CacheKey()),
				zap.Int("patterns", len(report.Patterns)),
				zap.Duration("took", time.Since(start)),
			)
		}
	}
}
