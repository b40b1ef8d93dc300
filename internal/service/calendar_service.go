package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// ── calendar module errors ──

var (
	ErrCalendarRolledBack = errors.New("calendar run rolled back")
)

// CalendarService recomputes academic year and semester statuses and applies the
// archival cascade and notification cleanup in one transaction.
type CalendarService interface {
	Run(ctx context.Context) (*dto.RunResultResponse, error)
}

type calendarService struct {
	repo     *repository.Repository
	clock    clockwork.Clock
	loc      *time.Location
	cascade  *cascadeEffector
	reporter RunReporter
	lease    *LeaseGuard
	logger   *zap.Logger
}

// NewCalendarService creates a CalendarService. loc decides which calendar date "today" is.
func NewCalendarService(repo *repository.Repository, clock clockwork.Clock, loc *time.Location, reporter RunReporter, lease *LeaseGuard, logger *zap.Logger) CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &calendarService{
		repo:     repo,
		clock:    clock,
		loc:      loc,
		cascade:  newCascadeEffector(logger),
		reporter: reporter,
		lease:    lease,
		logger:   logger,
	}
}

// ────────────────────── Run ──────────────────────

func (s *calendarService) Run(ctx context.Context) (*dto.RunResultResponse, error) {
	run := newRunState(s.clock, model.PipelineCalendar)

	release, ok := s.lease.Acquire(ctx, model.PipelineCalendar)
	if !ok {
		run.skipped = true
		return s.finish(ctx, run, nil), nil
	}
	defer release()

	// fail before any write when storage is gone
	if err := s.repo.Ping(ctx); err != nil {
		run.abort(err)
		return s.finish(ctx, run, nil), err
	}

	today := s.clock.Now().In(s.loc)

	var (
		transitions []Transition
		counts      model.RunCounts
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		transitions, counts = nil, model.RunCounts{}

		years, err := tx.AcademicYear.ListForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("list academic years: %w", err)
		}
		semesters, err := tx.AcademicSemester.ListForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("list academic semesters: %w", err)
		}

		for i := range years {
			t := yearTransition(&years[i], today)
			if !t.Changed() {
				continue
			}
			if err := tx.AcademicYear.UpdateStatus(ctx, t.ID, t.From, t.To); err != nil {
				return fmt.Errorf("update academic year %s: %w", t.ID, err)
			}
			if t.Archives() {
				counts.YearsArchived++
			} else if t.Activates() {
				counts.YearsActivated++
			}
			transitions = append(transitions, t)
		}

		for i := range semesters {
			t := semesterTransition(&semesters[i], today)
			if !t.Changed() {
				continue
			}
			if err := tx.AcademicSemester.UpdateStatus(ctx, t.ID, t.From, t.To); err != nil {
				return fmt.Errorf("update academic semester %s: %w", t.ID, err)
			}
			if t.Archives() {
				counts.SemestersArchived++
			} else if t.Activates() {
				counts.SemestersActivated++
			}
			transitions = append(transitions, t)
		}

		if err := s.cascade.Apply(ctx, tx, transitions, &counts); err != nil {
			return err
		}

		cleaned, err := cleanArchivedNotifications(ctx, tx)
		if err != nil {
			return fmt.Errorf("clean notifications: %w", err)
		}
		counts.NotificationsCleaned = int(cleaned)
		return nil
	})
	if err != nil {
		s.logger.Error("calendar run rolled back", zap.Time("today", today), zap.Error(err))
		run.abort(err)
		return s.finish(ctx, run, nil), fmt.Errorf("%w: %w", ErrCalendarRolledBack, err)
	}

	for _, t := range transitions {
		s.logger.Info("calendar status changed",
			zap.String("entity_type", t.EntityType),
			zap.String("id", t.ID),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)),
		)
	}

	run.counts = counts
	return s.finish(ctx, run, transitions), nil
}

func (s *calendarService) finish(ctx context.Context, run *runState, transitions []Transition) *dto.RunResultResponse {
	report := run.finish(s.clock)
	s.reporter.Report(ctx, report)
	return toRunResultResponse(report, transitions)
}
