package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/mailer"
)

const feedLimit = 500

// DeadlineFeedService iCalendar feed of outstanding resubmission deadlines
type DeadlineFeedService interface {
	Feed(ctx context.Context) ([]byte, error)
}

type deadlineFeedService struct {
	repo      *repository.Repository
	clock     clockwork.Clock
	portalURL string
	logger    *zap.Logger
}

// NewDeadlineFeedService creates a DeadlineFeedService.
func NewDeadlineFeedService(repo *repository.Repository, clock clockwork.Clock, portalURL string, logger *zap.Logger) DeadlineFeedService {
	return &deadlineFeedService{repo: repo, clock: clock, portalURL: portalURL, logger: logger}
}

func (s *deadlineFeedService) Feed(ctx context.Context) ([]byte, error) {
	docs, err := s.repo.Document.ListAwaiting(ctx, feedLimit)
	if err != nil {
		return nil, fmt.Errorf("list awaiting documents: %w", err)
	}

	now := s.clock.Now().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//CvSU SAOMS//Resubmission Deadlines//EN")
	cal.SetXWRCalName("SAOMS resubmission deadlines")

	for _, d := range docs {
		if d.ResubmissionDeadline == nil {
			continue
		}
		deadline := d.ResubmissionDeadline.UTC()

		ev := cal.AddEvent(d.DocumentID + "@saoms.cvsu.edu.ph")
		ev.SetDtStampTime(now)
		ev.SetStartAt(deadline.Add(-30 * time.Minute))
		ev.SetEndAt(deadline)
		ev.SetSummary("Resubmission due: " + d.Title)
		ev.SetDescription(fmt.Sprintf("%s document, status %s.",
			mailer.Label(string(d.Kind)), mailer.Label(string(d.ComplianceStatus))))
		if s.portalURL != "" {
			ev.SetURL(s.portalURL)
		}
	}

	s.logger.Debug("deadline feed built", zap.Int("events", len(docs)))
	return []byte(cal.Serialize()), nil
}
