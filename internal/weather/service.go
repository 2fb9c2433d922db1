package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/skisignal/internal/observability"
	"github.com/i474232898/skisignal/internal/resort"
)

const (
	forecastDays           = 2
	defaultUpstreamTimeout = 8 * time.Second
)

// Options configures a Service.
type Options struct {
	Registry *resort.Registry
	Provider ForecastProvider
	Scorer   Scorer

	// Cache is optional; without it every call goes upstream.
	Cache Cache

	SnowRatio       float64
	UpstreamTimeout time.Duration

	Logger  *zap.SugaredLogger
	Metrics *observability.Metrics
}

// Service fetches, normalizes, scores and ranks resort forecasts.
type Service struct {
	registry   *resort.Registry
	provider   ForecastProvider
	scorer     Scorer
	cache      Cache
	normalizer Normalizer
	timeout    time.Duration
	logger     *zap.SugaredLogger
	metrics    *observability.Metrics
}

// NewService creates a new Service.
func NewService(opts Options) *Service {
	s := &Service{
		registry:   opts.Registry,
		provider:   opts.Provider,
		scorer:     opts.Scorer,
		cache:      opts.Cache,
		normalizer: NewNormalizer(opts.SnowRatio),
		timeout:    opts.UpstreamTimeout,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.timeout <= 0 {
		s.timeout = defaultUpstreamTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.metrics == nil {
		// Unregistered collectors keep the call sites nil-free.
		s.metrics = observability.NewMetricsForTesting()
	}
	return s
}

// Resorts lists the registry in declaration order.
func (s *Service) Resorts() []resort.Resort {
	return s.registry.All()
}

// Lookup resolves a resort identifier or returns ErrUnknownResort.
func (s *Service) Lookup(id string) (resort.Resort, error) {
	r, ok := s.registry.Lookup(id)
	if !ok {
		return resort.Resort{}, fmt.Errorf("%w: %q", ErrUnknownResort, id)
	}
	return r, nil
}

// Score scores a single day with the configured engine.
func (s *Service) Score(day NormalizedDay) ScoreResult {
	return s.scorer.Score(day)
}

// Fetch performs one upstream call for the resort and returns today's and
// tomorrow's scored reports. It bypasses the cache.
func (s *Service) Fetch(ctx context.Context, resortID string) (ResortForecast, error) {
	r, err := s.Lookup(resortID)
	if err != nil {
		return ResortForecast{}, err
	}
	return s.fetch(ctx, r)
}

// GetOrFetch returns the forecast for the current hour bucket, calling upstream
// only on a cache miss.
func (s *Service) GetOrFetch(ctx context.Context, resortID string) (ResortForecast, error) {
	r, err := s.Lookup(resortID)
	if err != nil {
		return ResortForecast{}, err
	}
	return s.getOrFetch(ctx, r)
}

func (s *Service) getOrFetch(ctx context.Context, r resort.Resort) (ResortForecast, error) {
	if s.cache == nil {
		return s.fetch(ctx, r)
	}
	return s.cache.GetOrFetch(ctx, r.ID, func(ctx context.Context) (ResortForecast, error) {
		return s.fetch(ctx, r)
	})
}

func (s *Service) fetch(ctx context.Context, r resort.Resort) (ResortForecast, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name := s.provider.Name()
	start := time.Now()
	samples, err := s.provider.FetchDays(ctx, r, forecastDays)
	s.metrics.UpstreamDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.UpstreamRequests.WithLabelValues(name, "error").Inc()
		return ResortForecast{}, fmt.Errorf("%w: %s: %w", ErrUpstream, r.ID, err)
	}
	if len(samples) < forecastDays {
		s.metrics.UpstreamRequests.WithLabelValues(name, "error").Inc()
		return ResortForecast{}, fmt.Errorf("%w: %s: expected %d forecast days, got %d", ErrUpstream, r.ID, forecastDays, len(samples))
	}
	s.metrics.UpstreamRequests.WithLabelValues(name, "success").Inc()

	days := s.normalizer.NormalizeDays(samples[:forecastDays])
	for i, d := range days {
		if len(d.Missing) > 0 {
			s.logger.Infow("upstream fields missing, defaulted to 0",
				"resort", r.ID, "day", i, "date", d.Date, "fields", d.Missing)
		}
	}

	return ResortForecast{
		Resort:    r,
		Today:     DayReport{NormalizedDay: days[0], ScoreResult: s.scorer.Score(days[0])},
		Tomorrow:  DayReport{NormalizedDay: days[1], ScoreResult: s.scorer.Score(days[1])},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// RankAll scores every registry resort concurrently and returns them best first
// for day, together with the resorts that failed.
func (s *Service) RankAll(ctx context.Context, day Day) ([]RankedResult, []ResortFailure) {
	results, failures := s.collect(ctx)
	return RankResults(results, day), failures
}

// PickBest returns the head of the ranking for day.
func (s *Service) PickBest(ctx context.Context, day Day) (RankedResult, error) {
	ranked, _ := s.RankAll(ctx, day)
	if len(ranked) == 0 {
		return RankedResult{}, ErrNoResults
	}
	return ranked[0], nil
}

// BestDay runs one ranking pass and selects the best resort for today and tomorrow.
// All is ordered by today's ranking.
func (s *Service) BestDay(ctx context.Context) (BestDayReport, error) {
	results, failures := s.collect(ctx)
	if len(results) == 0 {
		return BestDayReport{Failures: failures}, ErrNoResults
	}

	byToday := RankResults(results, Today)
	byTomorrow := RankResults(results, Tomorrow)
	return BestDayReport{
		BestToday:    &byToday[0],
		BestTomorrow: &byTomorrow[0],
		All:          byToday,
		Failures:     failures,
	}, nil
}

// Warm runs a ranking pass purely to populate the cache.
func (s *Service) Warm(ctx context.Context) error {
	results, failures := s.collect(ctx)
	if len(results) == 0 && len(failures) > 0 {
		return fmt.Errorf("cache warm: %w", ErrNoResults)
	}
	return nil
}

// collect fans out one fetch per resort and joins them. Results are keyed by
// resort ID and returned in registry order.
func (s *Service) collect(ctx context.Context) ([]RankedResult, []ResortFailure) {
	passID := uuid.NewString()
	resorts := s.registry.All()
	start := time.Now()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		byID     = make(map[string]ResortForecast, len(resorts))
		errsByID = make(map[string]error)
	)

	s.logger.Debugw("ranking pass started", "pass", passID, "resorts", len(resorts))

	for _, r := range resorts {
		wg.Add(1)
		go func() {
			defer wg.Done()

			f, err := s.getOrFetch(ctx, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errsByID[r.ID] = err
				return
			}
			byID[r.ID] = f
		}()
	}
	wg.Wait()

	results := make([]RankedResult, 0, len(byID))
	var failures []ResortFailure
	for _, r := range resorts {
		if err, failed := errsByID[r.ID]; failed {
			// Log and continue; one resort must not sink the whole pass.
			s.logger.Warnw("resort excluded from ranking", "pass", passID, "resort", r.ID, "error", err)
			s.metrics.RankingFailures.Inc()
			failures = append(failures, ResortFailure{Resort: r.ID, Error: true, Reason: publicReason(err)})
			continue
		}
		f := byID[r.ID]
		results = append(results, RankedResult{Resort: f.Resort, Today: f.Today, Tomorrow: f.Tomorrow})
	}

	s.metrics.RankingDuration.Observe(time.Since(start).Seconds())
	s.logger.Infow("ranking pass completed",
		"pass", passID, "scored", len(results), "failed", len(failures), "duration", time.Since(start))
	return results, failures
}

// publicReason keeps upstream details out of client responses.
func publicReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "weather source timed out"
	default:
		return ErrUpstream.Error()
	}
}
