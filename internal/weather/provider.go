package weather

import (
	"context"

	"github.com/i474232898/skisignal/internal/resort"
)

// ForecastProvider abstracts an upstream forecast source (e.g. Open-Meteo).
// FetchDays returns consecutive daily samples starting with today.
type ForecastProvider interface {
	Name() string
	FetchDays(ctx context.Context, r resort.Resort, days int) ([]RawForecastSample, error)
}

// Scorer turns a normalized day into a score. Implementations must be pure.
type Scorer interface {
	Score(day NormalizedDay) ScoreResult
}

// FetchFunc produces a fresh forecast for a cache miss.
type FetchFunc func(ctx context.Context) (ResortForecast, error)

// Cache memoizes resort forecasts per hour bucket.
type Cache interface {
	GetOrFetch(ctx context.Context, resortID string, fetch FetchFunc) (ResortForecast, error)
}
