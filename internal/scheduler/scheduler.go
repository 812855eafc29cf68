// Package scheduler runs the batch on a cron schedule inside a long-lived process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
)

// Job is one scheduled unit of work.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
func (j JobFunc) Name() string                  { return j.JobName }

// Scheduler wraps robfig/cron. Overlapping runs of the same job are skipped.
// Specs use the standard five fields or descriptors such as "@every 15m" and
// are evaluated in the given location.
type Scheduler struct {
	cron   *cron.Cron
	logger *common.Logger
	ctx    context.Context
}

// New creates a scheduler evaluating specs in loc.
func New(loc *time.Location, logger *common.Logger) *Scheduler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    context.Background(),
	}
}

// AddJob registers job under the cron expression spec.
func (s *Scheduler) AddJob(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(s.ctx); err != nil {
			s.logger.Error().Str("job", job.Name()).Err(err).Msg("Job failed")
			return
		}
		s.logger.Info().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("Job completed")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.logger.Info().Str("schedule", spec).Str("job", job.Name()).Msg("Job registered")
	return nil
}

// Next returns the next activation time of all registered jobs, or zero when none.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info().Str("next", s.Next().Format(time.RFC3339)).Msg("Scheduler started")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// ValidateSpec reports whether spec parses.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// cronLogger routes cron's internal logging to the application logger.
type cronLogger struct {
	logger *common.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Str("fields", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Str("fields", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}
