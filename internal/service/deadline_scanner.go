package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// Recipient roles
const (
	RolePresident = "president"
	RoleAdviser   = "adviser"
)

// Recipient one person to remind about a document.
type Recipient struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// PendingDocument a document of any kind awaiting resubmission inside the lookahead window.
type PendingDocument struct {
	Document   model.Document
	Deadline   time.Time // deadline occurrence, UTC second precision
	Recipients []Recipient
}

// ScanResult documents to remind plus what was filtered out on the way.
type ScanResult struct {
	Pending          []PendingDocument
	SkippedCompliant int
	Errors           []string
}

// DeadlineScanner finds documents whose resubmission deadline is near. Pure read.
type DeadlineScanner interface {
	// Scan returns awaiting documents with now < deadline <= now+lookahead.
	Scan(ctx context.Context, now time.Time) (*ScanResult, error)
}

type deadlineScanner struct {
	repo      *repository.Repository
	lookahead time.Duration
	logger    *zap.Logger
}

// NewDeadlineScanner creates a DeadlineScanner.
func NewDeadlineScanner(repo *repository.Repository, lookahead time.Duration, logger *zap.Logger) DeadlineScanner {
	if lookahead <= 0 {
		lookahead = time.Hour
	}
	return &deadlineScanner{repo: repo, lookahead: lookahead, logger: logger}
}

func (s *deadlineScanner) Scan(ctx context.Context, now time.Time) (*ScanResult, error) {
	docs, err := s.repo.Document.ListDeadlinesBetween(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return nil, fmt.Errorf("list upcoming deadlines: %w", err)
	}

	result := &ScanResult{}
	awaiting := make([]model.Document, 0, len(docs))
	var userIDs []string
	for _, d := range docs {
		if !d.AwaitingResubmission() {
			result.SkippedCompliant++
			continue
		}
		awaiting = append(awaiting, d)
		for _, id := range []*string{d.PresidentID, d.AdviserID} {
			if id != nil {
				userIDs = append(userIDs, *id)
			}
		}
	}
	if len(awaiting) == 0 {
		return result, nil
	}

	users, err := s.repo.User.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	byID := make(map[string]*model.User, len(users))
	for i := range users {
		byID[users[i].UserID] = &users[i]
	}

	for _, d := range awaiting {
		pd := PendingDocument{Document: d, Deadline: model.DeadlineOccurrence(*d.ResubmissionDeadline)}
		seen := make(map[string]bool, 2)
		for _, ref := range []struct {
			role string
			id   *string
		}{{RolePresident, d.PresidentID}, {RoleAdviser, d.AdviserID}} {
			if ref.id == nil || seen[*ref.id] {
				continue
			}
			seen[*ref.id] = true
			u, ok := byID[*ref.id]
			if !ok {
				result.Errors = append(result.Errors,
					fmt.Sprintf("document %s: %s %s not found", d.DocumentID, ref.role, *ref.id))
				continue
			}
			pd.Recipients = append(pd.Recipients, Recipient{UserID: u.UserID, Name: u.Name, Email: u.Email, Role: ref.role})
		}

		if len(pd.Recipients) == 0 {
			if d.PresidentID == nil && d.AdviserID == nil {
				result.Errors = append(result.Errors, fmt.Sprintf("document %s: no recipients", d.DocumentID))
			}
			continue
		}
		result.Pending = append(result.Pending, pd)
	}

	s.logger.Debug("deadline scan",
		zap.Int("in_window", len(docs)),
		zap.Int("pending", len(result.Pending)),
		zap.Int("skipped_compliant", result.SkippedCompliant),
	)
	return result, nil
}
