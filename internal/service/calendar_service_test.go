package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
)

// ── test helpers ──

var manila = time.FixedZone("PHT", 8*3600)

func setupTestCalendarService(now time.Time) (CalendarService, *memStore, *clockwork.FakeClock) {
	store := newMemStore()
	repo := store.repository()
	clock := clockwork.NewFakeClockAt(now)
	logger := zap.NewNop()
	reporter := NewRunReporter(logger, NewRepositorySink(repo))
	svc := NewCalendarService(repo, clock, manila, reporter, nil, logger)
	return svc, store, clock
}

// 2025-04-01 08:00 in Manila
var aprilFirst = time.Date(2025, 4, 1, 8, 0, 0, 0, manila)

// ── archival ──

func TestCalendarService_Run_ArchivesEndedYearAndResetsOrgs(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)
	store.addYear("ay-2025", day(2025, 6, 1), day(2026, 3, 31), model.CalendarInactive)
	store.addOrg("org-1", "ay-2024", model.RecognitionRecognized)
	store.addOrg("org-2", "ay-2024", model.RecognitionRecognized)
	store.addOrg("org-3", "ay-2024", model.RecognitionPending)
	store.addOrg("org-4", "ay-2024", model.RecognitionUnrecognized)
	store.addOrg("org-next", "ay-2025", model.RecognitionRecognized)
	store.addCouncil("csg", "ay-2024", model.RecognitionRecognized)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.years["ay-2024"].Status != model.CalendarArchived {
		t.Errorf("ay-2024 status = %s, want archived", store.years["ay-2024"].Status)
	}
	if store.years["ay-2025"].Status != model.CalendarInactive {
		t.Errorf("ay-2025 status = %s, want inactive", store.years["ay-2025"].Status)
	}
	if result.Counts.YearsArchived != 1 {
		t.Errorf("YearsArchived = %d, want 1", result.Counts.YearsArchived)
	}
	if result.Counts.OrgsReset != 3 {
		t.Errorf("OrgsReset = %d, want 3", result.Counts.OrgsReset)
	}
	if result.Counts.CouncilsReset != 1 {
		t.Errorf("CouncilsReset = %d, want 1", result.Counts.CouncilsReset)
	}
	for _, id := range []string{"org-1", "org-2", "org-3", "org-4"} {
		if store.orgs[id].RecognitionStatus != model.RecognitionUnrecognized {
			t.Errorf("%s = %s, want unrecognized", id, store.orgs[id].RecognitionStatus)
		}
	}
	if store.orgs["org-next"].RecognitionStatus != model.RecognitionRecognized {
		t.Error("organization of another year must not be reset")
	}

	if len(result.Transitions) != 1 {
		t.Fatalf("Transitions = %+v, want only ay-2024", result.Transitions)
	}
	tr := result.Transitions[0]
	if tr.ID != "ay-2024" || tr.From != "active" || tr.To != "archived" {
		t.Errorf("transition = %+v", tr)
	}
	if result.Status != string(model.RunSuccess) {
		t.Errorf("Status = %s, want success", result.Status)
	}
}

func TestCalendarService_Run_SecondRunChangesNothing(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)
	store.addSemester("sem-2", "ay-2024", day(2024, 11, 1), day(2025, 3, 31), model.CalendarActive)
	store.addOrg("org-1", "ay-2024", model.RecognitionRecognized)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if len(second.Transitions) != 0 {
		t.Errorf("second run transitions = %+v, want none", second.Transitions)
	}
	if second.Counts != (model.RunCounts{}) {
		t.Errorf("second run counts = %+v, want zero", second.Counts)
	}
	if len(store.runs) != 2 {
		t.Errorf("recorded %d run reports, want 2", len(store.runs))
	}
}

func TestCalendarService_Run_ReactivatesArchivedYear(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	// end date was extended after archival
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 5, 31), model.CalendarArchived)
	store.addOrg("org-1", "ay-2024", model.RecognitionUnrecognized)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.years["ay-2024"].Status != model.CalendarActive {
		t.Errorf("status = %s, want active", store.years["ay-2024"].Status)
	}
	if result.Counts.YearsActivated != 1 || result.Counts.OrgsReset != 0 {
		t.Errorf("counts = %+v", result.Counts)
	}
}

func TestCalendarService_Run_ActivatesStartedSemester(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 5, 31), model.CalendarActive)
	store.addSemester("summer", "ay-2024", day(2025, 4, 1), day(2025, 5, 31), model.CalendarInactive)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.semesters["summer"].Status != model.CalendarActive {
		t.Errorf("semester status = %s, want active", store.semesters["summer"].Status)
	}
	if result.Counts.SemestersActivated != 1 {
		t.Errorf("SemestersActivated = %d, want 1", result.Counts.SemestersActivated)
	}
}

func TestCalendarService_Run_UsesCalendarTimezone(t *testing.T) {
	// 2025-03-31 17:00 UTC is 2025-04-01 01:00 in Manila
	svc, store, _ := setupTestCalendarService(time.Date(2025, 3, 31, 17, 0, 0, 0, time.UTC))
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.years["ay-2024"].Status != model.CalendarArchived {
		t.Errorf("status = %s, want archived on the Manila date", store.years["ay-2024"].Status)
	}
}

// ── semester cascade ──

func TestCalendarService_Run_PurgesSnapshotsOfArchivedSemester(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 5, 31), model.CalendarActive)
	store.addSemester("sem-1", "ay-2024", day(2024, 6, 1), day(2024, 10, 31), model.CalendarActive)
	store.addSemester("sem-2", "ay-2024", day(2024, 11, 1), day(2025, 5, 31), model.CalendarActive)
	store.snapshots["s1"] = &model.SemesterSnapshot{SnapshotID: "s1", AcademicSemesterID: "sem-1", Kind: "tally"}
	store.snapshots["s2"] = &model.SemesterSnapshot{SnapshotID: "s2", AcademicSemesterID: "sem-1", Kind: "roster"}
	store.snapshots["s3"] = &model.SemesterSnapshot{SnapshotID: "s3", AcademicSemesterID: "sem-2", Kind: "tally"}
	store.addOrg("org-1", "ay-2024", model.RecognitionRecognized)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Counts.SemestersArchived != 1 || result.Counts.SnapshotsPurged != 2 {
		t.Errorf("counts = %+v", result.Counts)
	}
	if _, ok := store.snapshots["s3"]; !ok {
		t.Error("snapshot of the active semester was purged")
	}
	if store.orgs["org-1"].RecognitionStatus != model.RecognitionRecognized {
		t.Error("semester archival must not reset organizations")
	}
}

// ── notification cleanup inside the run ──

func TestCalendarService_Run_CleansNotificationsOfArchivedOwners(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)
	store.addYear("ay-2025", day(2025, 1, 1), day(2025, 12, 31), model.CalendarActive)
	store.addOrg("org-old", "ay-2024", model.RecognitionRecognized)
	store.addOrg("org-new", "ay-2025", model.RecognitionRecognized)
	store.documents["doc-old"] = &model.Document{DocumentID: "doc-old", AcademicYearID: "ay-2024"}

	store.addNotification(model.OwnerAcademicYear, "ay-2024")
	store.addNotification(model.OwnerOrganization, "org-old")
	store.addNotification(model.OwnerDocument, "doc-old")
	keep := store.addNotification(model.OwnerOrganization, "org-new")

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Counts.NotificationsCleaned != 3 {
		t.Errorf("NotificationsCleaned = %d, want 3", result.Counts.NotificationsCleaned)
	}
	if _, ok := store.notifications[keep.NotificationID]; !ok || len(store.notifications) != 1 {
		t.Errorf("remaining notifications = %d, want only the active-year one", len(store.notifications))
	}
}

// ── failures ──

func TestCalendarService_Run_CascadeFailureReportsRollback(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)
	store.addCouncil("csg", "ay-2024", model.RecognitionRecognized)
	store.resetCouncilsErr = errors.New("deadlock detected")

	result, err := svc.Run(context.Background())
	if !errors.Is(err, ErrCalendarRolledBack) {
		t.Fatalf("want ErrCalendarRolledBack, got %v", err)
	}
	if result.Status != string(model.RunFailed) {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	if result.Counts != (model.RunCounts{}) {
		t.Errorf("rolled back run reported counts %+v", result.Counts)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want one", result.Errors)
	}
	if len(store.runs) != 1 || store.runs[0].Status != model.RunFailed {
		t.Errorf("failed run not recorded: %+v", store.runs)
	}
}

func TestCalendarService_Run_StorageUnavailableAbortsBeforeWrites(t *testing.T) {
	svc, store, _ := setupTestCalendarService(aprilFirst)
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)
	store.pingErr = errors.New("connection refused")

	result, err := svc.Run(context.Background())
	if !errors.Is(err, pkgerrors.ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
	if result.Status != string(model.RunFailed) {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	if store.years["ay-2024"].Status != model.CalendarActive {
		t.Error("status written although storage was unavailable")
	}
}

func TestCalendarService_Run_SkipsWhenLeaseHeld(t *testing.T) {
	store := newMemStore()
	repo := store.repository()
	store.addYear("ay-2024", day(2024, 6, 1), day(2025, 3, 31), model.CalendarActive)

	locker := newFakeLocker()
	locker.held[model.PipelineCalendar] = "other-host"
	lease := NewLeaseGuard(locker, time.Minute, zap.NewNop())

	svc := NewCalendarService(repo, clockwork.NewFakeClockAt(aprilFirst), manila,
		NewRunReporter(zap.NewNop(), NewRepositorySink(repo)), lease, zap.NewNop())

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != string(model.RunSkipped) {
		t.Errorf("Status = %s, want skipped", result.Status)
	}
	if store.years["ay-2024"].Status != model.CalendarActive {
		t.Error("skipped run wrote a status")
	}
}
