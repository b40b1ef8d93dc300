package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
)

// Repository aggregates every repository over one *gorm.DB (pool or transaction).
type Repository struct {
	db *gorm.DB

	AcademicYear     AcademicYearRepository
	AcademicSemester AcademicSemesterRepository
	Organization     OrganizationRepository
	Council          CouncilRepository
	SemesterSnapshot SemesterSnapshotRepository
	Document         DocumentRepository
	ReminderLedger   ReminderLedgerRepository
	Notification     NotificationRepository
	User             UserRepository
	RunReport        RunReportRepository
	Health           HealthRepository
}

// NewRepository builds the aggregate.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		AcademicYear:     NewAcademicYearRepo(db),
		AcademicSemester: NewAcademicSemesterRepo(db),
		Organization:     NewOrganizationRepo(db),
		Council:          NewCouncilRepo(db),
		SemesterSnapshot: NewSemesterSnapshotRepo(db),
		Document:         NewDocumentRepo(db),
		ReminderLedger:   NewReminderLedgerRepo(db),
		Notification:     NewNotificationRepo(db),
		User:             NewUserRepo(db),
		RunReport:        NewRunReportRepo(db),
		Health:           NewHealthRepo(db),
	}
}

// Ping checks that storage answers. Failures are reported as ErrStorageUnavailable.
func (r *Repository) Ping(ctx context.Context) error {
	if r.Health == nil {
		return nil
	}
	if err := r.Health.Ping(ctx); err != nil {
		if errors.Is(err, pkgerrors.ErrStorageUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	return nil
}

// BeginTx starts a transaction. Returns a nil tx when the aggregate has no connection.
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx returns an aggregate bound to tx. A nil tx returns r itself.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction runs fn with a transaction-bound aggregate; any error or panic rolls
// back every write made through it.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
