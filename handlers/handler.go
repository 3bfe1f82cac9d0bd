package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/pistainteligente/pista/cache"
	"github.com/pistainteligente/pista/patterns"
	"github.com/pistainteligente/pista/store"
)

// Reporter produces pattern reports.
type Reporter interface {
	Report(ctx context.Context, opts patterns.Options) (patterns.Report, error)
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store    store.RaceResultStore
	reports  Reporter
	cache    cache.Store
	defaults patterns.Options
	log      *zap.Logger
}

// New creates a Handler. c may be nil when caching is disabled.
func New(st store.RaceResultStore, reports Reporter, c cache.Store, defaults patterns.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: st, reports: reports, cache: c, defaults: defaults, log: log}
}
