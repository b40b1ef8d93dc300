package service

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// Service aggregates every service
type Service struct {
	Calendar     CalendarService
	Cleanup      NotificationCleanupService
	Reminder     ReminderService
	Statistics   StatisticsService
	Runs         RunReporter
	Export       ExportService
	DeadlineFeed DeadlineFeedService
}

// Deps collaborators chosen by the caller. Lease may be nil; Notifier defaults to
// the in-app notifier.
type Deps struct {
	Clock    clockwork.Clock
	Mailer   Mailer
	Notifier Notifier
	Lease    *LeaseGuard
	Sinks    []RunSink
}

// NewService builds the aggregate.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loc := cfg.Calendar.Location()
	reporter := NewRunReporter(logger, deps.Sinks...)

	return &Service{
		Calendar: NewCalendarService(repo, clock, loc, reporter, deps.Lease, logger),
		Cleanup:  NewNotificationCleanupService(repo, clock, reporter, deps.Lease, logger),
		Reminder: NewReminderService(repo, clock, ReminderOptions{
			Lookahead:    cfg.Reminder.Lookahead,
			EmailTimeout: cfg.Reminder.EmailTimeout,
			Location:     loc,
			Notifier:     deps.Notifier,
			Mailer:       deps.Mailer,
		}, reporter, deps.Lease, logger),
		Statistics:   NewStatisticsService(repo, clock, loc, cfg.Calendar.Cron, cfg.Reminder.Interval, logger),
		Runs:         reporter,
		Export:       NewExportService(reporter, clock, logger),
		DeadlineFeed: NewDeadlineFeedService(repo, clock, cfg.Mail.PortalURL, logger),
	}
}
