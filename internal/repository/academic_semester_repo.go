package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
)

// AcademicSemesterRepository academic semester access
type AcademicSemesterRepository interface {
	ListForUpdate(ctx context.Context) ([]model.AcademicSemester, error)
	UpdateStatus(ctx context.Context, id string, from, to model.CalendarStatus) error
}

type academicSemesterRepo struct {
	db *gorm.DB
}

// NewAcademicSemesterRepo creates an AcademicSemesterRepository.
func NewAcademicSemesterRepo(db *gorm.DB) AcademicSemesterRepository {
	return &academicSemesterRepo{db: db}
}

func (r *academicSemesterRepo) ListForUpdate(ctx context.Context) ([]model.AcademicSemester, error) {
	var semesters []model.AcademicSemester
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("start_date ASC").
		Find(&semesters).Error
	return semesters, err
}

func (r *academicSemesterRepo) UpdateStatus(ctx context.Context, id string, from, to model.CalendarStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.AcademicSemester{}).
		Where("academic_semester_id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
