package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Warmer runs a ranking pass so the current hour bucket is filled before the
// first dashboard request.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Pruner drops expired cache entries.
type Pruner interface {
	Prune() int
}

// Scheduler periodically warms the forecast cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	pruner    Pruner
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// New creates a Scheduler. pruner may be nil. A non-positive interval disables the job.
func New(warmer Warmer, pruner Pruner, interval, timeout time.Duration, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		warmer:    warmer,
		pruner:    pruner,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the warm job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Infow("cache warming disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Infow("cache warmer started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.warmer.Warm(ctx); err != nil {
		s.logger.Warnw("cache warm failed", "error", err)
	}
	removed := 0
	if s.pruner != nil {
		removed = s.pruner.Prune()
	}
	s.logger.Debugw("cache warm completed", "duration", time.Since(start), "pruned", removed)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
