package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
)

// cascadeEffector applies the side effects of entities archived in this run. It only
// writes through the repository it is handed, which is the calendar transaction.
type cascadeEffector struct {
	logger *zap.Logger
}

func newCascadeEffector(logger *zap.Logger) *cascadeEffector {
	return &cascadeEffector{logger: logger}
}

// Apply resets recognition for archived years and purges snapshots of archived semesters.
func (c *cascadeEffector) Apply(ctx context.Context, tx *repository.Repository, transitions []Transition, counts *model.RunCounts) error {
	for _, t := range transitions {
		if !t.Archives() {
			continue
		}

		switch t.EntityType {
		case EntityAcademicYear:
			orgs, err := tx.Organization.ResetRecognitionByYear(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("reset organizations of year %s: %w", t.ID, err)
			}
			councils, err := tx.Council.ResetRecognitionByYear(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("reset councils of year %s: %w", t.ID, err)
			}
			counts.OrgsReset += int(orgs)
			counts.CouncilsReset += int(councils)
			c.logger.Info("academic year archived",
				zap.String("academic_year_id", t.ID),
				zap.String("name", t.Name),
				zap.Int64("orgs_reset", orgs),
				zap.Int64("councils_reset", councils),
			)

		case EntityAcademicSemester:
			purged, err := tx.SemesterSnapshot.PurgeBySemester(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("purge snapshots of semester %s: %w", t.ID, err)
			}
			counts.SnapshotsPurged += int(purged)
			c.logger.Info("academic semester archived",
				zap.String("academic_semester_id", t.ID),
				zap.String("name", t.Name),
				zap.Int64("snapshots_purged", purged),
			)
		}
	}
	return nil
}
