package model

import (
	"time"

	"gorm.io/datatypes"
)

// SemesterSnapshot table semester_snapshots
// Ephemeral per-semester data (dashboard tallies, cached rosters); purged when the
// semester is archived.
type SemesterSnapshot struct {
	SnapshotID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"snapshot_id"`
	AcademicSemesterID string         `gorm:"type:uuid;not null"                             json:"academic_semester_id"`
	Kind               string         `gorm:"type:varchar(50);not null"                      json:"kind"`
	Payload            datatypes.JSON `gorm:"type:jsonb;not null"                            json:"payload"`
	CapturedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"captured_at"`
}

func (SemesterSnapshot) TableName() string { return "semester_snapshots" }
