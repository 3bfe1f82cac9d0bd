package patterns

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Source supplies finish records and upcoming fields. Implementations own
// any retry policy.
type Source interface {
	FinishRecords(ctx context.Context, since time.Time) ([]FinishRecord, error)
	UpcomingFields(ctx context.Context, from time.Time) ([]UpcomingField, error)
}

// Cache stores encoded reports. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Service fetches one window of results and runs Compute over it.
type Service struct {
	src     Source
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	loc     *time.Location
	log     *zap.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables result caching for ttl.
func WithCache(c Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithTimeout bounds each store fetch.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithLocation sets the timezone used to decide what "today" is.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service reading from src.
func NewService(src Source, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		src:     src,
		timeout: 10 * time.Second,
		loc:     time.UTC,
		log:     log,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Report returns the patterns for opts, served from cache when fresh.
func (s *Service) Report(ctx context.Context, opts Options) (Report, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}

	key := opts.CacheKey()
	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("pattern cache get failed", zap.String("key", key), zap.Error(err))
		case ok:
			var cached Report
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
			s.log.Warn("pattern cache entry undecodable", zap.String("key", key))
		}
	}

	return s.Refresh(ctx, opts)
}

// Refresh recomputes the report for opts and overwrites any cached copy.
func (s *Service) Refresh(ctx context.Context, opts Options) (Report, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}

	today := s.today()
	since := today.AddDate(0, 0, -opts.WindowDays)

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.src.FinishRecords(fetchCtx, since)
	if err != nil {
		return Report{}, err
	}
	var fields []UpcomingField
	if opts.RequireFutureMatch {
		if fields, err = s.src.UpcomingFields(fetchCtx, today); err != nil {
			return Report{}, err
		}
	}

	report, err := Compute(records, fields, opts)
	if err != nil {
		return Report{}, err
	}
	for _, a := range report.Skipped {
		s.log.Warn("race skipped", zap.Int64("race_id", a.RaceID), zap.String("reason", a.Reason))
	}
	s.log.Debug("patterns computed",
		zap.Int("records", len(records)),
		zap.Int("races", report.Races),
		zap.Int("patterns", len(report.Patterns)),
		zap.Time("since", since),
	)

	if s.cache != nil {
		key := opts.CacheKey()
		if b, err := json.Marshal(report); err != nil {
			s.log.Warn("pattern report encode failed", zap.Error(err))
		} else if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.log.Warn("pattern cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}

// today is midnight of the current date in the service location.
func (s *Service) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}
