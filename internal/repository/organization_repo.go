package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
)

// OrganizationRepository organization access
type OrganizationRepository interface {
	// ResetRecognitionByYear marks every organization of the year that is not already
	// unrecognized as unrecognized and returns the affected row count.
	ResetRecognitionByYear(ctx context.Context, academicYearID string) (int64, error)
}

// CouncilRepository council access
type CouncilRepository interface {
	ResetRecognitionByYear(ctx context.Context, academicYearID string) (int64, error)
}

type organizationRepo struct {
	db *gorm.DB
}

// NewOrganizationRepo creates an OrganizationRepository.
func NewOrganizationRepo(db *gorm.DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) ResetRecognitionByYear(ctx context.Context, academicYearID string) (int64, error) {
	return resetRecognition(ctx, r.db, &model.Organization{}, academicYearID)
}

type councilRepo struct {
	db *gorm.DB
}

// NewCouncilRepo creates a CouncilRepository.
func NewCouncilRepo(db *gorm.DB) CouncilRepository {
	return &councilRepo{db: db}
}

func (r *councilRepo) ResetRecognitionByYear(ctx context.Context, academicYearID string) (int64, error) {
	return resetRecognition(ctx, r.db, &model.Council{}, academicYearID)
}

func resetRecognition(ctx context.Context, db *gorm.DB, table interface{}, academicYearID string) (int64, error) {
	result := db.WithContext(ctx).
		Model(table).
		Where("academic_year_id = ? AND recognition_status <> ?", academicYearID, model.RecognitionUnrecognized).
		Updates(map[string]interface{}{
			"recognition_status": model.RecognitionUnrecognized,
			"updated_at":         gorm.Expr("NOW()"),
		})
	return result.RowsAffected, result.Error
}
