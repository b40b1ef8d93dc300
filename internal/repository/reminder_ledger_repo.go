package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
)

// ReminderLedgerRepository at-most-once record of sent reminders
type ReminderLedgerRepository interface {
	Exists(ctx context.Context, key model.LedgerKey) (bool, error)
	// InsertIfAbsent writes the entry unless its key is already present. inserted is
	// false when another run recorded the same key first.
	InsertIfAbsent(ctx context.Context, entry *model.ReminderLedgerEntry) (inserted bool, err error)
}

type reminderLedgerRepo struct {
	db *gorm.DB
}

// NewReminderLedgerRepo creates a ReminderLedgerRepository.
func NewReminderLedgerRepo(db *gorm.DB) ReminderLedgerRepository {
	return &reminderLedgerRepo{db: db}
}

func (r *reminderLedgerRepo) Exists(ctx context.Context, key model.LedgerKey) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ReminderLedgerEntry{}).
		Where("document_id = ? AND recipient_id = ? AND deadline_occurrence = ?",
			key.DocumentID, key.RecipientID, model.DeadlineOccurrence(key.DeadlineOccurrence)).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *reminderLedgerRepo) InsertIfAbsent(ctx context.Context, entry *model.ReminderLedgerEntry) (bool, error) {
	entry.DeadlineOccurrence = model.DeadlineOccurrence(entry.DeadlineOccurrence)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "recipient_id"}, {Name: "deadline_occurrence"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
