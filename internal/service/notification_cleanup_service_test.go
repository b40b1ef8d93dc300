package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
)

func setupTestCleanupService() (NotificationCleanupService, *memStore) {
	store := newMemStore()
	repo := store.repository()
	logger := zap.NewNop()
	svc := NewNotificationCleanupService(repo, clockwork.NewFakeClockAt(aprilFirst),
		NewRunReporter(logger, NewRepositorySink(repo)), nil, logger)
	return svc, store
}

func TestNotificationCleanupService_Clean(t *testing.T) {
	svc, store := setupTestCleanupService()
	store.addYear("ay-old", day(2023, 6, 1), day(2024, 3, 31), model.CalendarArchived)
	store.addYear("ay-cur", day(2024, 6, 1), day(2025, 5, 31), model.CalendarActive)
	store.addSemester("sem-old", "ay-cur", day(2024, 6, 1), day(2024, 10, 31), model.CalendarArchived)
	store.addCouncil("csg-old", "ay-old", model.RecognitionUnrecognized)
	store.addNotification(model.OwnerCouncil, "csg-old")
	store.addNotification(model.OwnerAcademicSemester, "sem-old")
	store.addNotification(model.OwnerAcademicYear, "ay-cur")
	store.notifications["plain"] = &model.Notification{NotificationID: "plain", UserID: "u-1"}

	result, err := svc.Clean(context.Background())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.Counts.NotificationsCleaned != 2 {
		t.Errorf("NotificationsCleaned = %d, want 2", result.Counts.NotificationsCleaned)
	}
	if len(store.notifications) != 2 {
		t.Errorf("remaining = %d, want 2", len(store.notifications))
	}
	if result.Pipeline != model.PipelineCleanup {
		t.Errorf("Pipeline = %s", result.Pipeline)
	}
}

func TestNotificationCleanupService_Clean_NothingToDo(t *testing.T) {
	svc, store := setupTestCleanupService()
	store.addYear("ay-cur", day(2024, 6, 1), day(2025, 5, 31), model.CalendarActive)
	store.addNotification(model.OwnerAcademicYear, "ay-cur")

	result, err := svc.Clean(context.Background())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.Counts.NotificationsCleaned != 0 || result.Status != string(model.RunSuccess) {
		t.Errorf("result = %+v", result)
	}
}

func TestNotificationCleanupService_Clean_StorageUnavailable(t *testing.T) {
	svc, store := setupTestCleanupService()
	store.pingErr = errors.New("too many connections")

	result, err := svc.Clean(context.Background())
	if !errors.Is(err, pkgerrors.ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
	if result.Status != string(model.RunFailed) {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	if len(store.runs) != 1 {
		t.Errorf("failed run not recorded")
	}
}
