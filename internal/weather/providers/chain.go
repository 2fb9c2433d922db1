package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/i474232898/skisignal/internal/resort"
	"github.com/i474232898/skisignal/internal/weather"
)

// Chain tries each provider in order and returns the first successful forecast.
type Chain struct {
	providers []weather.ForecastProvider
	logger    *zap.SugaredLogger
}

// NewChain creates a Chain. The first provider is the primary source.
func NewChain(logger *zap.SugaredLogger, providers ...weather.ForecastProvider) *Chain {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// FetchDays returns the first provider's answer that succeeds. A cancelled or
// expired ctx stops the chain immediately.
func (c *Chain) FetchDays(ctx context.Context, r resort.Resort, days int) ([]weather.RawForecastSample, error) {
	if len(c.providers) == 0 {
		return nil, errors.New("no forecast provider configured")
	}

	var errs []error
	for i, p := range c.providers {
		samples, err := p.FetchDays(ctx, r, days)
		if err == nil {
			if i > 0 {
				c.logger.Infow("served by fallback provider", "resort", r.ID, "provider", p.Name())
			}
			return samples, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
		c.logger.Debugw("provider failed", "resort", r.ID, "provider", p.Name(), "error", err)
	}
	return nil, errors.Join(errs...)
}
