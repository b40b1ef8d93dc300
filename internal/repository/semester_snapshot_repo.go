package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
)

// SemesterSnapshotRepository ephemeral per-semester data
type SemesterSnapshotRepository interface {
	// PurgeBySemester hard-deletes every snapshot of the semester.
	PurgeBySemester(ctx context.Context, academicSemesterID string) (int64, error)
}

type semesterSnapshotRepo struct {
	db *gorm.DB
}

// NewSemesterSnapshotRepo creates a SemesterSnapshotRepository.
func NewSemesterSnapshotRepo(db *gorm.DB) SemesterSnapshotRepository {
	return &semesterSnapshotRepo{db: db}
}

func (r *semesterSnapshotRepo) PurgeBySemester(ctx context.Context, academicSemesterID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("academic_semester_id = ?", academicSemesterID).
		Delete(&model.SemesterSnapshot{})
	return result.RowsAffected, result.Error
}
