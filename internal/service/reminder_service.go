package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// ReminderService one scan-and-dispatch pass of the deadline reminder pipeline
type ReminderService interface {
	Run(ctx context.Context) (*dto.RunResultResponse, error)
}

type reminderService struct {
	repo       *repository.Repository
	clock      clockwork.Clock
	scanner    DeadlineScanner
	dispatcher *reminderDispatcher
	reporter   RunReporter
	lease      *LeaseGuard
	logger     *zap.Logger
}

// ReminderOptions tunes the reminder pipeline. Scanner and Notifier default to the
// database scanner and the in-app notifier.
type ReminderOptions struct {
	Lookahead    time.Duration
	EmailTimeout time.Duration
	Location     *time.Location // zone deadlines are shown in
	Scanner      DeadlineScanner
	Notifier     Notifier
	Mailer       Mailer
}

// NewReminderService creates a ReminderService.
func NewReminderService(repo *repository.Repository, clock clockwork.Clock, opts ReminderOptions, reporter RunReporter, lease *LeaseGuard, logger *zap.Logger) ReminderService {
	if opts.Lookahead <= 0 {
		opts.Lookahead = time.Hour
	}
	if opts.EmailTimeout <= 0 {
		opts.EmailTimeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	scanner := opts.Scanner
	if scanner == nil {
		scanner = NewDeadlineScanner(repo, opts.Lookahead, logger)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewInAppNotifier(opts.Location)
	}
	return &reminderService{
		repo:    repo,
		clock:   clock,
		scanner: scanner,
		dispatcher: &reminderDispatcher{
			repo:         repo,
			notifier:     notifier,
			mailer:       opts.Mailer,
			clock:        clock,
			loc:          opts.Location,
			emailTimeout: opts.EmailTimeout,
			logger:       logger,
		},
		reporter: reporter,
		lease:    lease,
		logger:   logger,
	}
}

func (s *reminderService) Run(ctx context.Context) (*dto.RunResultResponse, error) {
	run := newRunState(s.clock, model.PipelineReminders)

	release, ok := s.lease.Acquire(ctx, model.PipelineReminders)
	if !ok {
		run.skipped = true
		return s.finish(ctx, run), nil
	}
	defer release()

	if err := s.repo.Ping(ctx); err != nil {
		run.abort(err)
		return s.finish(ctx, run), err
	}

	scan, err := s.scanner.Scan(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("deadline scan failed", zap.Error(err))
		run.abort(err)
		return s.finish(ctx, run), err
	}
	run.counts.RemindersSkippedCompliant = scan.SkippedCompliant
	run.errors = append(run.errors, scan.Errors...)

	s.dispatcher.Dispatch(ctx, scan.Pending, run)
	return s.finish(ctx, run), nil
}

func (s *reminderService) finish(ctx context.Context, run *runState) *dto.RunResultResponse {
	report := run.finish(s.clock)
	s.reporter.Report(ctx, report)
	return toRunResultResponse(report, nil)
}
