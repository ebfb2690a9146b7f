package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Refresher reloads the station catalog of a set of parameters.
type Refresher interface {
	RefreshStations(ctx context.Context, parameters []int) error
}

// Pruner drops expired catalog entries.
type Pruner interface {
	Prune() int
}

// Config configures a Scheduler.
type Config struct {
	Refresher  Refresher
	Pruner     Pruner
	Parameters []int

	// Interval between refreshes. Default: 6h
	Interval time.Duration

	// Timeout bounds one refresh run. Default: 2m
	Timeout time.Duration

	Logger zerolog.Logger
}

// Scheduler periodically refreshes the station catalog for the configured
// parameters.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refresher  Refresher
	pruner     Pruner
	parameters []int
	interval   time.Duration
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		refresher:  cfg.Refresher,
		pruner:     cfg.Pruner,
		parameters: cfg.Parameters,
		interval:   cfg.Interval,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.parameters) == 0 || s.refresher == nil {
		s.logger.Info().Msg("no catalog parameters configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Ints("parameters", s.parameters).Msg("catalog refresh scheduled")
	return nil
}

// RunOnce prunes expired entries and refreshes the catalog. Failures are
// logged; the next run retries.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	s.logger.Debug().Msg("running catalog refresh job")

	if s.pruner != nil {
		if n := s.pruner.Prune(); n > 0 {
			s.logger.Debug().Int("pruned", n).Msg("expired catalog entries dropped")
		}
	}

	if err := s.refresher.RefreshStations(ctx, s.parameters); err != nil {
		s.logger.Warn().Err(err).Msg("catalog refresh incomplete")
		return
	}
	s.logger.Info().Dur("took", time.Since(start)).Msg("catalog refresh completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
