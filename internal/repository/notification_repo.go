package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
)

// NotificationRepository in-app notification access
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// DeleteOwnedByArchived removes notifications whose owning entity is archived, or
	// belongs to an archived academic year.
	DeleteOwnedByArchived(ctx context.Context) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo creates a NotificationRepository.
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// archived-owner predicates, one per owner type
const (
	archivedYears = `SELECT academic_year_id FROM academic_years WHERE status = 'archived'`

	ownedByArchivedYear = `related_type = 'academic_year' AND related_id IN (` + archivedYears + `)`

	ownedByArchivedSemester = `related_type = 'academic_semester' AND related_id IN (
		SELECT academic_semester_id FROM academic_semesters WHERE status = 'archived')`

	ownedByArchivedOrganization = `related_type = 'organization' AND related_id IN (
		SELECT organization_id FROM organizations WHERE academic_year_id IN (` + archivedYears + `))`

	ownedByArchivedCouncil = `related_type = 'council' AND related_id IN (
		SELECT council_id FROM councils WHERE academic_year_id IN (` + archivedYears + `))`

	ownedByArchivedDocument = `related_type = 'document' AND related_id IN (
		SELECT document_id FROM documents WHERE academic_year_id IN (` + archivedYears + `))`
)

func (r *notificationRepo) DeleteOwnedByArchived(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where(ownedByArchivedYear).
		Or(ownedByArchivedSemester).
		Or(ownedByArchivedOrganization).
		Or(ownedByArchivedCouncil).
		Or(ownedByArchivedDocument).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
