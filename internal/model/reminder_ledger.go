package model

import "time"

// ReminderLedgerEntry table reminder_ledger
// At most one row per (document_id, recipient_id, deadline_occurrence), enforced by
// uq_reminder_ledger_occurrence.
type ReminderLedgerEntry struct {
	LedgerID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"ledger_id"`
	DocumentID         string    `gorm:"type:uuid;not null"                             json:"document_id"`
	RecipientID        string    `gorm:"type:uuid;not null"                             json:"recipient_id"`
	DeadlineOccurrence time.Time `gorm:"not null"                                       json:"deadline_occurrence"`
	SentAt             time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"sent_at"`
}

func (ReminderLedgerEntry) TableName() string { return "reminder_ledger" }

// LedgerKey identifies one reminder: a recipient for a deadline occurrence.
type LedgerKey struct {
	DocumentID         string
	RecipientID        string
	DeadlineOccurrence time.Time
}

// DeadlineOccurrence normalizes a deadline so that equal instants produce equal keys.
func DeadlineOccurrence(deadline time.Time) time.Time {
	return deadline.UTC().Truncate(time.Second)
}
