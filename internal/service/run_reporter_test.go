package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/journal"
	applogger "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/logger"
)

// failingSink records nothing and fails both operations.
type failingSink struct{ recorded int }

func (f *failingSink) Name() string { return "broken" }

func (f *failingSink) Record(_ context.Context, _ *model.RunReport) error {
	f.recorded++
	return errors.New("sink down")
}

func (f *failingSink) Recent(_ context.Context, _ string, _ int) ([]model.RunReport, error) {
	return nil, errors.New("sink down")
}

func TestRunReporter_SinkFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	broken := &failingSink{}
	reporter := NewRunReporter(zap.NewNop(), broken, NewRepositorySink(store.repository()))

	reporter.Report(context.Background(), testReport("run-1", model.PipelineCleanup, model.RunSuccess, model.RunCounts{}))

	if broken.recorded != 1 {
		t.Errorf("broken sink called %d times, want 1", broken.recorded)
	}
	if len(store.runs) != 1 {
		t.Error("a failing sink must not stop later sinks")
	}
}

func TestRunReporter_RecentFallsBack(t *testing.T) {
	store := newMemStore()
	reporter := NewRunReporter(zap.NewNop(), &failingSink{}, NewRepositorySink(store.repository()))
	reporter.Report(context.Background(), testReport("run-1", model.PipelineCalendar, model.RunSuccess, model.RunCounts{YearsArchived: 1}))

	runs, err := reporter.Recent(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" || runs[0].Counts.YearsArchived != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRunReporter_RecentWithoutHistory(t *testing.T) {
	reporter := NewRunReporter(zap.NewNop())
	if _, err := reporter.Recent(context.Background(), "", 5); !errors.Is(err, ErrNoRunHistory) {
		t.Errorf("want ErrNoRunHistory, got %v", err)
	}
}

func TestJournalSink_RoundTrip(t *testing.T) {
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	reporter := NewRunReporter(zap.NewNop(), NewJournalSink(j))
	reporter.Report(context.Background(), testReport("run-1", model.PipelineReminders, model.RunPartial,
		model.RunCounts{RemindersSent: 2, EmailsFailed: 1}, "doc-1/u-2: email: refused"))

	runs, err := reporter.Recent(context.Background(), model.PipelineReminders, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != "partial" || got.Counts.RemindersSent != 2 || got.Counts.EmailsFailed != 1 {
		t.Errorf("run = %+v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "doc-1/u-2: email: refused" {
		t.Errorf("Errors = %v", got.Errors)
	}
}

func TestRunState_Status(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*runState)
		want  model.RunStatus
	}{
		{"clean", func(*runState) {}, model.RunSuccess},
		{"item errors", func(s *runState) { s.addError("x") }, model.RunPartial},
		{"aborted", func(s *runState) { s.abort(errors.New("boom")) }, model.RunFailed},
		{"skipped wins", func(s *runState) { s.abort(errors.New("boom")); s.skipped = true }, model.RunSkipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &runState{}
			tt.setup(s)
			if got := s.status(); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunReporter_LogsTriggeringRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reporter := NewRunReporter(zap.New(core))

	ctx := applogger.WithRequestID(context.Background(), "req-42")
	reporter.Report(ctx, testReport("run-7", model.PipelineReminders, model.RunSuccess, model.RunCounts{}))
	reporter.Report(context.Background(), testReport("run-8", model.PipelineReminders, model.RunSuccess, model.RunCounts{}))

	entries := logs.FilterMessage("pipeline run finished").All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-42" {
		t.Errorf("request_id = %v, want req-42", got)
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Error("scheduled runs carry no request_id")
	}
}
