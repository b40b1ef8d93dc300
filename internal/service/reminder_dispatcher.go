package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/mailer"
)

// errLedgerTaken rolls back a dispatch whose ledger key another run wrote first.
var errLedgerTaken = errors.New("reminder already recorded")

// Notifier creates the in-app side of a reminder inside the dispatch transaction.
type Notifier interface {
	NotifyDeadline(ctx context.Context, tx *repository.Repository, doc *PendingDocument, to Recipient) error
}

// Mailer renders and sends a templated email (pkg/mailer.Mailer).
type Mailer interface {
	Send(ctx context.Context, template string, to mailer.Recipient, data map[string]any) error
}

// reminderDispatcher sends one reminder per (document, recipient, deadline occurrence).
//
// Per pair: a ledger hit is a duplicate. Otherwise the in-app notification and the
// ledger row are written in one small transaction, so the ledger exists exactly when
// the notification does. Email goes out after commit; its failure is counted but never
// undoes the ledger, so the in-app side is not re-sent.
type reminderDispatcher struct {
	repo         *repository.Repository
	notifier     Notifier
	mailer       Mailer
	clock        clockwork.Clock
	loc          *time.Location
	emailTimeout time.Duration
	logger       *zap.Logger
}

func (d *reminderDispatcher) Dispatch(ctx context.Context, pending []PendingDocument, run *runState) {
	for i := range pending {
		doc := &pending[i]
		for _, r := range doc.Recipients {
			d.dispatchOne(ctx, doc, r, run)
		}
	}
}

func (d *reminderDispatcher) dispatchOne(ctx context.Context, doc *PendingDocument, r Recipient, run *runState) {
	run.counts.RemindersChecked++
	docID := doc.Document.DocumentID
	log := d.logger.With(
		zap.String("document_id", docID),
		zap.String("recipient_id", r.UserID),
		zap.String("role", r.Role),
		zap.Time("deadline", doc.Deadline),
	)

	key := model.LedgerKey{DocumentID: docID, RecipientID: r.UserID, DeadlineOccurrence: doc.Deadline}
	exists, err := d.repo.ReminderLedger.Exists(ctx, key)
	if err != nil {
		log.Error("ledger lookup failed", zap.Error(err))
		run.counts.RemindersFailed++
		run.addError("%s/%s: ledger lookup: %v", docID, r.UserID, err)
		return
	}
	if exists {
		run.counts.RemindersSkippedDuplicate++
		return
	}

	err = d.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := d.notifier.NotifyDeadline(ctx, tx, doc, r); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		inserted, err := tx.ReminderLedger.InsertIfAbsent(ctx, &model.ReminderLedgerEntry{
			DocumentID:         docID,
			RecipientID:        r.UserID,
			DeadlineOccurrence: doc.Deadline,
			SentAt:             d.clock.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("ledger insert: %w", err)
		}
		if !inserted {
			return errLedgerTaken
		}
		return nil
	})
	switch {
	case errors.Is(err, errLedgerTaken):
		log.Info("reminder recorded by a concurrent run")
		run.counts.RemindersSkippedDuplicate++
		return
	case err != nil:
		log.Error("reminder dispatch failed", zap.Error(err))
		run.counts.RemindersFailed++
		run.addError("%s/%s: %v", docID, r.UserID, err)
		return
	}
	run.counts.RemindersSent++

	if d.mailer == nil {
		return
	}
	emailCtx, cancel := context.WithTimeout(ctx, d.emailTimeout)
	err = d.mailer.Send(emailCtx, mailer.TemplateDeadlineReminder,
		mailer.Recipient{Name: r.Name, Email: r.Email}, d.emailData(doc, r))
	cancel()
	if err != nil {
		log.Warn("reminder email failed", zap.Error(err))
		run.counts.EmailsFailed++
		run.addError("%s/%s: email: %v", docID, r.UserID, err)
		return
	}
	run.counts.EmailsSent++
	log.Info("reminder sent")
}

func (d *reminderDispatcher) emailData(doc *PendingDocument, r Recipient) map[string]any {
	local := doc.Deadline.In(d.loc)
	return map[string]any{
		"DocumentTitle": doc.Document.Title,
		"KindLabel":     mailer.Label(string(doc.Document.Kind)),
		"RoleLabel":     mailer.Label(r.Role),
		"StatusLabel":   mailer.Label(string(doc.Document.ComplianceStatus)),
		"DeadlineShort": local.Format("Jan 2, 3:04 PM"),
		"DeadlineLong":  local.Format("Monday, January 2, 2006 3:04 PM MST"),
	}
}

// ── in-app notifier ──

type inAppNotifier struct {
	loc *time.Location
}

// NewInAppNotifier creates a Notifier that writes to the notifications table.
func NewInAppNotifier(loc *time.Location) Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &inAppNotifier{loc: loc}
}

func (n *inAppNotifier) NotifyDeadline(ctx context.Context, tx *repository.Repository, doc *PendingDocument, to Recipient) error {
	relatedType := model.OwnerDocument
	relatedID := doc.Document.DocumentID
	return tx.Notification.Create(ctx, &model.Notification{
		UserID: to.UserID,
		Type:   model.NotificationTypeDeadlineReminder,
		Title:  "Resubmission due soon: " + doc.Document.Title,
		Content: fmt.Sprintf("The %s document %q must be resubmitted by %s.",
			mailer.Label(string(doc.Document.Kind)), doc.Document.Title,
			doc.Deadline.In(n.loc).Format("Jan 2, 2006 3:04 PM MST")),
		RelatedType: &relatedType,
		RelatedID:   &relatedID,
	})
}
