package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/database"
)

// RunReportRepository durable run history
type RunReportRepository interface {
	// Create stores a report. Recording the same run id twice is not an error.
	Create(ctx context.Context, report *model.RunReport) error
	// ListRecent returns the newest reports first. An empty pipeline matches all.
	ListRecent(ctx context.Context, pipeline string, limit int) ([]model.RunReport, error)
}

type runReportRepo struct {
	db *gorm.DB
}

// NewRunReportRepo creates a RunReportRepository.
func NewRunReportRepo(db *gorm.DB) RunReportRepository {
	return &runReportRepo{db: db}
}

func (r *runReportRepo) Create(ctx context.Context, report *model.RunReport) error {
	err := r.db.WithContext(ctx).Create(report).Error
	if database.IsUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *runReportRepo) ListRecent(ctx context.Context, pipeline string, limit int) ([]model.RunReport, error) {
	var reports []model.RunReport
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if pipeline != "" {
		q = q.Where("pipeline = ?", pipeline)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&reports).Error
	return reports, err
}
