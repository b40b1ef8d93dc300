package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// ScheduleInfo reports when the in-process scheduler fires a pipeline next.
type ScheduleInfo interface {
	NextRun(pipeline string) (time.Time, bool)
}

// StatisticsService dashboard counters for resubmission deadlines
type StatisticsService interface {
	Get(ctx context.Context) (*dto.StatisticsResponse, error)
	// SetSchedule attaches the serve-mode scheduler.
	SetSchedule(info ScheduleInfo)
}

type statisticsService struct {
	repo             *repository.Repository
	clock            clockwork.Clock
	loc              *time.Location
	calendarSchedule cron.Schedule
	reminderInterval time.Duration
	schedule         ScheduleInfo
	logger           *zap.Logger
}

// NewStatisticsService creates a StatisticsService. calendarCron and reminderInterval
// estimate the next runs when no in-process scheduler is attached.
func NewStatisticsService(repo *repository.Repository, clock clockwork.Clock, loc *time.Location, calendarCron string, reminderInterval time.Duration, logger *zap.Logger) StatisticsService {
	if loc == nil {
		loc = time.UTC
	}
	s := &statisticsService{
		repo:             repo,
		clock:            clock,
		loc:              loc,
		reminderInterval: reminderInterval,
		logger:           logger,
	}
	if sched, err := cron.ParseStandard(calendarCron); err == nil {
		s.calendarSchedule = sched
	} else if calendarCron != "" {
		logger.Warn("invalid calendar cron, next run unknown", zap.String("cron", calendarCron), zap.Error(err))
	}
	return s
}

func (s *statisticsService) SetSchedule(info ScheduleInfo) { s.schedule = info }

func (s *statisticsService) Get(ctx context.Context) (*dto.StatisticsResponse, error) {
	now := s.clock.Now().In(s.loc)
	y, m, d := now.Date()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)
	startOfDayAfter := startOfToday.AddDate(0, 0, 2)

	pending, err := s.repo.Document.CountAwaiting(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	dueToday, err := s.repo.Document.CountAwaitingBetween(ctx, now, startOfTomorrow)
	if err != nil {
		return nil, fmt.Errorf("count due today: %w", err)
	}
	dueTomorrow, err := s.repo.Document.CountAwaitingBetween(ctx, startOfTomorrow, startOfDayAfter)
	if err != nil {
		return nil, fmt.Errorf("count due tomorrow: %w", err)
	}
	overdue, err := s.repo.Document.CountOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("count overdue: %w", err)
	}

	resp := &dto.StatisticsResponse{
		PendingWithDeadline: pending,
		DueToday:            dueToday,
		DueTomorrow:         dueTomorrow,
		Overdue:             overdue,
		GeneratedAt:         now.Format(time.RFC3339),
		Timezone:            s.loc.String(),
	}
	if next, ok := s.nextRun(model.PipelineCalendar, now); ok {
		resp.NextCalendarRun = next.In(s.loc).Format(time.RFC3339)
	}
	if next, ok := s.nextRun(model.PipelineReminders, now); ok {
		resp.NextReminderRun = next.In(s.loc).Format(time.RFC3339)
	}
	return resp, nil
}

func (s *statisticsService) nextRun(pipeline string, now time.Time) (time.Time, bool) {
	if s.schedule != nil {
		if next, ok := s.schedule.NextRun(pipeline); ok {
			return next, true
		}
	}
	switch pipeline {
	case model.PipelineCalendar:
		if s.calendarSchedule != nil {
			return s.calendarSchedule.Next(now), true
		}
	case model.PipelineReminders:
		// interval timers fire on wall-clock multiples of the interval
		if s.reminderInterval > 0 {
			return now.Truncate(s.reminderInterval).Add(s.reminderInterval), true
		}
	}
	return time.Time{}, false
}
