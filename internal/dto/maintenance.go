package dto

import "github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"

// ── Maintenance runs ──

// TransitionResponse one calendar entity whose stored status changed
type TransitionResponse struct {
	EntityType string `json:"entity_type"` // academic_year | academic_semester
	ID         string `json:"id"`
	Name       string `json:"name"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// RunResultResponse summary of one pipeline run
type RunResultResponse struct {
	RunID       string               `json:"run_id"`
	Pipeline    string               `json:"pipeline"`
	Status      string               `json:"status"`
	StartedAt   string               `json:"started_at"`
	FinishedAt  string               `json:"finished_at"`
	Counts      model.RunCounts      `json:"counts"`
	Errors      []string             `json:"errors"`
	Transitions []TransitionResponse `json:"transitions,omitempty"`
}

// RunListQuery recent runs filter
type RunListQuery struct {
	Pipeline string `form:"pipeline" binding:"omitempty,oneof=calendar reminders cleanup"`
	Limit    int    `form:"limit"    binding:"omitempty,min=1,max=200"`
}

// ── Statistics ──

// StatisticsResponse dashboard counters for resubmission deadlines
type StatisticsResponse struct {
	PendingWithDeadline int64  `json:"pending_with_deadline"`
	DueToday            int64  `json:"due_today"`
	DueTomorrow         int64  `json:"due_tomorrow"`
	Overdue             int64  `json:"overdue"`
	GeneratedAt         string `json:"generated_at"`
	Timezone            string `json:"timezone"`
	NextCalendarRun     string `json:"next_calendar_run,omitempty"`
	NextReminderRun     string `json:"next_reminder_run,omitempty"`
}
