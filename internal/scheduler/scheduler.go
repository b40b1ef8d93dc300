package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler fires pipelines in serve mode. Each pipeline runs at most once at a time;
// a tick that arrives while the previous run is still going is rescheduled.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]gocron.Job
	ctx  context.Context
}

// New creates a Scheduler whose cron expressions are evaluated in loc.
func New(loc *time.Location, logger *zap.Logger, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	opts = append([]gocron.SchedulerOption{
		gocron.WithLocation(loc),
		gocron.WithGlobalJobOptions(gocron.WithSingletonMode(gocron.LimitModeReschedule)),
	}, opts...)

	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
		ctx:       context.Background(),
	}, nil
}

// ScheduleCron runs pipeline on a standard five-field cron expression.
func (s *Scheduler) ScheduleCron(pipeline, crontab string, run RunFunc) error {
	return s.add(pipeline, gocron.CronJob(crontab, false), run)
}

// ScheduleEvery runs pipeline every interval.
func (s *Scheduler) ScheduleEvery(pipeline string, interval time.Duration, run RunFunc) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", pipeline)
	}
	return s.add(pipeline, gocron.DurationJob(interval), run)
}

func (s *Scheduler) add(pipeline string, def gocron.JobDefinition, run RunFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[pipeline]; ok {
		return fmt.Errorf("schedule %s: already scheduled", pipeline)
	}

	job, err := s.scheduler.NewJob(def,
		gocron.NewTask(s.execute, pipeline, run),
		gocron.WithName(pipeline),
		gocron.WithTags(pipeline),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", pipeline, err)
	}
	s.jobs[pipeline] = job
	return nil
}

func (s *Scheduler) execute(pipeline string, run RunFunc) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled run failed",
			zap.String("pipeline", pipeline),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("scheduled run finished", zap.String("pipeline", pipeline), zap.Duration("elapsed", time.Since(start)))
}

// Start begins firing jobs. Runs receive ctx, so cancelling it stops new work.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("scheduler stopping")
	return s.scheduler.Shutdown()
}

// NextRun reports when pipeline fires next. ok is false for unscheduled pipelines
// and before Start.
func (s *Scheduler) NextRun(pipeline string) (time.Time, bool) {
	s.mu.RLock()
	job, ok := s.jobs[pipeline]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	next, err := job.NextRun()
	if err != nil || next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
