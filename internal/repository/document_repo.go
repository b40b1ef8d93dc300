package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
)

// DocumentRepository compliance document reads
type DocumentRepository interface {
	// ListDeadlinesBetween returns documents of any status whose resubmission deadline
	// lies in (from, to].
	ListDeadlinesBetween(ctx context.Context, from, to time.Time) ([]model.Document, error)
	// ListAwaiting returns documents awaiting resubmission ordered by deadline.
	ListAwaiting(ctx context.Context, limit int) ([]model.Document, error)
	// CountAwaiting counts documents awaiting resubmission.
	CountAwaiting(ctx context.Context) (int64, error)
	// CountAwaitingBetween counts awaiting documents with a deadline in [from, to).
	CountAwaitingBetween(ctx context.Context, from, to time.Time) (int64, error)
	// CountOverdue counts awaiting documents whose deadline is before now.
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo creates a DocumentRepository.
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) awaiting(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("compliance_status = ? AND resubmission_deadline IS NOT NULL", model.ComplianceRejectedWithDeadline)
}

func (r *documentRepo) ListDeadlinesBetween(ctx context.Context, from, to time.Time) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("resubmission_deadline > ? AND resubmission_deadline <= ?", from, to).
		Order("resubmission_deadline ASC, document_id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepo) ListAwaiting(ctx context.Context, limit int) ([]model.Document, error) {
	var docs []model.Document
	q := r.awaiting(ctx).Order("resubmission_deadline ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&docs).Error
	return docs, err
}

func (r *documentRepo) CountAwaiting(ctx context.Context) (int64, error) {
	var n int64
	err := r.awaiting(ctx).Count(&n).Error
	return n, err
}

func (r *documentRepo) CountAwaitingBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.awaiting(ctx).
		Where("resubmission_deadline >= ? AND resubmission_deadline < ?", from, to).
		Count(&n).Error
	return n, err
}

func (r *documentRepo) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.awaiting(ctx).
		Where("resubmission_deadline < ?", now).
		Count(&n).Error
	return n, err
}
