package model

import (
	"time"

	"gorm.io/datatypes"
)

// Pipeline names
const (
	PipelineCalendar  = "calendar"
	PipelineReminders = "reminders"
	PipelineCleanup   = "cleanup"
)

// RunStatus outcome of one pipeline run
type RunStatus string

const (
	RunSuccess RunStatus = "success" // completed, no recorded errors
	RunPartial RunStatus = "partial" // completed, some items failed
	RunFailed  RunStatus = "failed"  // aborted or rolled back
	RunSkipped RunStatus = "skipped" // another runner held the lease
)

// RunCounts aggregated counters of a run. Calendar and reminder runs fill disjoint subsets.
type RunCounts struct {
	YearsArchived        int `json:"years_archived"`
	YearsActivated       int `json:"years_activated"`
	SemestersArchived    int `json:"semesters_archived"`
	SemestersActivated   int `json:"semesters_activated"`
	OrgsReset            int `json:"orgs_reset"`
	CouncilsReset        int `json:"councils_reset"`
	SnapshotsPurged      int `json:"snapshots_purged"`
	NotificationsCleaned int `json:"notifications_cleaned"`

	RemindersChecked          int `json:"reminders_checked"`
	RemindersSent             int `json:"reminders_sent"`
	RemindersSkippedDuplicate int `json:"reminders_skipped_duplicate"`
	RemindersSkippedCompliant int `json:"reminders_skipped_compliant"`
	RemindersFailed           int `json:"reminders_failed"`
	EmailsSent                int `json:"emails_sent"`
	EmailsFailed              int `json:"emails_failed"`
}

// RunReport table run_reports, the durable log of pipeline runs
type RunReport struct {
	RunID      string                        `gorm:"type:uuid;primaryKey"       json:"run_id"`
	Pipeline   string                        `gorm:"type:varchar(20);not null"  json:"pipeline"`
	Status     RunStatus                     `gorm:"type:varchar(20);not null"  json:"status"`
	StartedAt  time.Time                     `gorm:"not null"                   json:"started_at"`
	FinishedAt time.Time                     `gorm:"not null"                   json:"finished_at"`
	Counts     datatypes.JSONType[RunCounts] `gorm:"type:jsonb;not null"        json:"counts"`
	Errors     datatypes.JSONType[[]string]  `gorm:"type:jsonb;not null"        json:"errors"`
}

func (RunReport) TableName() string { return "run_reports" }
