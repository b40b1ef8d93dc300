package service

import (
	"time"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
)

// Entity types carried by a Transition
const (
	EntityAcademicYear     = model.OwnerAcademicYear
	EntityAcademicSemester = model.OwnerAcademicSemester
)

// StatusOn is the lifecycle rule for a dated calendar entity. Only the calendar dates
// of today, start and end are compared; start and end are inclusive.
func StatusOn(today, start, end time.Time) model.CalendarStatus {
	d, s, e := civilDate(today), civilDate(start), civilDate(end)
	switch {
	case d.Before(s):
		return model.CalendarInactive
	case d.After(e):
		return model.CalendarArchived
	default:
		return model.CalendarActive
	}
}

// civilDate drops the clock and zone, keeping the date as written in t's own location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Transition the computed status of one entity against its stored status.
type Transition struct {
	EntityType string
	ID         string
	Name       string
	From       model.CalendarStatus
	To         model.CalendarStatus
}

// Changed reports whether the stored status must be rewritten.
func (t Transition) Changed() bool { return t.From != t.To }

// Archives reports whether this run moves the entity into archived.
func (t Transition) Archives() bool { return t.Changed() && t.To == model.CalendarArchived }

// Activates reports whether this run moves the entity into active.
func (t Transition) Activates() bool { return t.Changed() && t.To == model.CalendarActive }

func yearTransition(y *model.AcademicYear, today time.Time) Transition {
	return Transition{
		EntityType: EntityAcademicYear,
		ID:         y.AcademicYearID,
		Name:       y.Name,
		From:       y.Status,
		To:         StatusOn(today, y.StartDate, y.EndDate),
	}
}

func semesterTransition(s *model.AcademicSemester, today time.Time) Transition {
	return Transition{
		EntityType: EntityAcademicSemester,
		ID:         s.AcademicSemesterID,
		Name:       s.Name,
		From:       s.Status,
		To:         StatusOn(today, s.StartDate, s.EndDate),
	}
}

func toTransitionResponse(t Transition) dto.TransitionResponse {
	return dto.TransitionResponse{
		EntityType: t.EntityType,
		ID:         t.ID,
		Name:       t.Name,
		From:       string(t.From),
		To:         string(t.To),
	}
}
