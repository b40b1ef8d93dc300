package service

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// NotificationCleanupService on-demand removal of notifications owned by archived entities
type NotificationCleanupService interface {
	// Clean runs the cleanup in its own transaction. Finding nothing is a success.
	Clean(ctx context.Context) (*dto.RunResultResponse, error)
}

type notificationCleanupService struct {
	repo     *repository.Repository
	clock    clockwork.Clock
	reporter RunReporter
	lease    *LeaseGuard
	logger   *zap.Logger
}

// NewNotificationCleanupService creates a NotificationCleanupService.
func NewNotificationCleanupService(repo *repository.Repository, clock clockwork.Clock, reporter RunReporter, lease *LeaseGuard, logger *zap.Logger) NotificationCleanupService {
	return &notificationCleanupService{repo: repo, clock: clock, reporter: reporter, lease: lease, logger: logger}
}

func (s *notificationCleanupService) Clean(ctx context.Context) (*dto.RunResultResponse, error) {
	run := newRunState(s.clock, model.PipelineCleanup)

	release, ok := s.lease.Acquire(ctx, model.PipelineCleanup)
	if !ok {
		run.skipped = true
		return s.finish(ctx, run), nil
	}
	defer release()

	if err := s.repo.Ping(ctx); err != nil {
		run.abort(err)
		return s.finish(ctx, run), err
	}

	var cleaned int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := cleanArchivedNotifications(ctx, tx)
		cleaned = n
		return err
	})
	if err != nil {
		s.logger.Error("notification cleanup failed", zap.Error(err))
		run.abort(err)
		return s.finish(ctx, run), err
	}

	run.counts.NotificationsCleaned = int(cleaned)
	return s.finish(ctx, run), nil
}

func (s *notificationCleanupService) finish(ctx context.Context, run *runState) *dto.RunResultResponse {
	report := run.finish(s.clock)
	s.reporter.Report(ctx, report)
	return toRunResultResponse(report, nil)
}

// cleanArchivedNotifications is shared by the calendar transaction and Clean.
func cleanArchivedNotifications(ctx context.Context, repo *repository.Repository) (int64, error) {
	return repo.Notification.DeleteOwnedByArchived(ctx)
}
