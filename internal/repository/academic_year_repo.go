package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
)

// AcademicYearRepository academic year access
type AcademicYearRepository interface {
	// ListForUpdate returns every year, row-locked when called inside a transaction.
	ListForUpdate(ctx context.Context) ([]model.AcademicYear, error)
	// UpdateStatus moves a year from one status to another; ErrOptimisticLock when the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to model.CalendarStatus) error
}

type academicYearRepo struct {
	db *gorm.DB
}

// NewAcademicYearRepo creates an AcademicYearRepository.
func NewAcademicYearRepo(db *gorm.DB) AcademicYearRepository {
	return &academicYearRepo{db: db}
}

func (r *academicYearRepo) ListForUpdate(ctx context.Context) ([]model.AcademicYear, error) {
	var years []model.AcademicYear
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("start_date ASC").
		Find(&years).Error
	return years, err
}

func (r *academicYearRepo) UpdateStatus(ctx context.Context, id string, from, to model.CalendarStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.AcademicYear{}).
		Where("academic_year_id = ? AND status = ?", id, from).
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
