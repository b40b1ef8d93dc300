package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/events"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/journal"
	applogger "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/logger"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/metrics"
)

var ErrNoRunHistory = errors.New("no run history source available")

const sinkTimeout = 5 * time.Second

// RunSink receives every finished run report.
type RunSink interface {
	Name() string
	Record(ctx context.Context, report *model.RunReport) error
}

// RunHistory is a sink that can also list past runs.
type RunHistory interface {
	RunSink
	Recent(ctx context.Context, pipeline string, limit int) ([]model.RunReport, error)
}

// RunReporter logs finished runs, appends them to every sink and serves recent runs.
type RunReporter interface {
	Report(ctx context.Context, report *model.RunReport)
	Recent(ctx context.Context, pipeline string, limit int) ([]dto.RunResultResponse, error)
}

type runReporter struct {
	sinks  []RunSink
	logger *zap.Logger
}

// NewRunReporter creates a RunReporter. Sinks implementing RunHistory serve Recent in
// the order given, so later ones act as fallbacks.
func NewRunReporter(logger *zap.Logger, sinks ...RunSink) RunReporter {
	return &runReporter{sinks: sinks, logger: logger}
}

func (r *runReporter) Report(ctx context.Context, report *model.RunReport) {
	counts := report.Counts.Data()
	errs := report.Errors.Data()
	fields := []zap.Field{
		zap.String("run_id", report.RunID),
		zap.String("pipeline", report.Pipeline),
		zap.String("status", string(report.Status)),
		zap.Time("started_at", report.StartedAt),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
		zap.Any("counts", counts),
		zap.Strings("errors", errs),
	}
	if rid := applogger.RequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	switch report.Status {
	case model.RunFailed:
		r.logger.Error("pipeline run finished", fields...)
	case model.RunPartial:
		r.logger.Warn("pipeline run finished", fields...)
	default:
		r.logger.Info("pipeline run finished", fields...)
	}

	// recording must survive a cancelled run context
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, sink := range r.sinks {
		if err := sink.Record(sinkCtx, report); err != nil {
			r.logger.Warn("run report sink failed",
				zap.String("sink", sink.Name()),
				zap.String("run_id", report.RunID),
				zap.Error(err),
			)
		}
	}
}

func (r *runReporter) Recent(ctx context.Context, pipeline string, limit int) ([]dto.RunResultResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	var lastErr error = ErrNoRunHistory
	for _, sink := range r.sinks {
		h, ok := sink.(RunHistory)
		if !ok {
			continue
		}
		reports, err := h.Recent(ctx, pipeline, limit)
		if err != nil {
			r.logger.Warn("run history source failed", zap.String("sink", sink.Name()), zap.Error(err))
			lastErr = err
			continue
		}
		out := make([]dto.RunResultResponse, 0, len(reports))
		for i := range reports {
			out = append(out, *toRunResultResponse(&reports[i], nil))
		}
		return out, nil
	}
	return nil, lastErr
}

// ── run bookkeeping ──

// runState accumulates one run's counters and errors.
type runState struct {
	id       string
	pipeline string
	started  time.Time
	counts   model.RunCounts
	errors   []string
	failed   bool
	skipped  bool
}

func newRunState(clock clockwork.Clock, pipeline string) *runState {
	return &runState{id: uuid.NewString(), pipeline: pipeline, started: clock.Now().UTC()}
}

func (s *runState) addError(format string, args ...any) {
	s.errors = append(s.errors, fmt.Sprintf(format, args...))
}

// abort marks the run failed with err as its last recorded error.
func (s *runState) abort(err error) {
	s.failed = true
	s.errors = append(s.errors, err.Error())
}

func (s *runState) status() model.RunStatus {
	switch {
	case s.skipped:
		return model.RunSkipped
	case s.failed:
		return model.RunFailed
	case len(s.errors) > 0:
		return model.RunPartial
	default:
		return model.RunSuccess
	}
}

func (s *runState) finish(clock clockwork.Clock) *model.RunReport {
	errs := s.errors
	if errs == nil {
		errs = []string{}
	}
	return &model.RunReport{
		RunID:      s.id,
		Pipeline:   s.pipeline,
		Status:     s.status(),
		StartedAt:  s.started,
		FinishedAt: clock.Now().UTC(),
		Counts:     datatypes.NewJSONType(s.counts),
		Errors:     datatypes.NewJSONType(errs),
	}
}

func toRunResultResponse(r *model.RunReport, transitions []Transition) *dto.RunResultResponse {
	resp := &dto.RunResultResponse{
		RunID:      r.RunID,
		Pipeline:   r.Pipeline,
		Status:     string(r.Status),
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Counts:     r.Counts.Data(),
		Errors:     r.Errors.Data(),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for _, t := range transitions {
		resp.Transitions = append(resp.Transitions, toTransitionResponse(t))
	}
	return resp
}

// countsMap flattens counters to their JSON names.
func countsMap(c model.RunCounts) map[string]int {
	raw, _ := json.Marshal(c)
	m := make(map[string]int)
	_ = json.Unmarshal(raw, &m)
	return m
}

// ── sinks ──

type repositorySink struct {
	repo *repository.Repository
}

// NewRepositorySink records runs in the run_reports table.
func NewRepositorySink(repo *repository.Repository) RunHistory {
	return &repositorySink{repo: repo}
}

func (s *repositorySink) Name() string { return "postgres" }

func (s *repositorySink) Record(ctx context.Context, report *model.RunReport) error {
	return s.repo.RunReport.Create(ctx, report)
}

func (s *repositorySink) Recent(ctx context.Context, pipeline string, limit int) ([]model.RunReport, error) {
	return s.repo.RunReport.ListRecent(ctx, pipeline, limit)
}

type journalSink struct {
	j *journal.Journal
}

// NewJournalSink records runs in the local SQLite journal.
func NewJournalSink(j *journal.Journal) RunHistory {
	return &journalSink{j: j}
}

func (s *journalSink) Name() string { return "journal" }

func (s *journalSink) Record(ctx context.Context, report *model.RunReport) error {
	counts, err := json.Marshal(report.Counts.Data())
	if err != nil {
		return err
	}
	return s.j.Append(ctx, &journal.Entry{
		RunID:      report.RunID,
		Pipeline:   report.Pipeline,
		Status:     string(report.Status),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Counts:     counts,
		Errors:     report.Errors.Data(),
	})
}

func (s *journalSink) Recent(ctx context.Context, pipeline string, limit int) ([]model.RunReport, error) {
	entries, err := s.j.Recent(ctx, pipeline, limit)
	if err != nil {
		return nil, err
	}
	reports := make([]model.RunReport, 0, len(entries))
	for _, e := range entries {
		var counts model.RunCounts
		if err := json.Unmarshal(e.Counts, &counts); err != nil {
			return nil, fmt.Errorf("journal run %s: %w", e.RunID, err)
		}
		reports = append(reports, model.RunReport{
			RunID:      e.RunID,
			Pipeline:   e.Pipeline,
			Status:     model.RunStatus(e.Status),
			StartedAt:  e.StartedAt,
			FinishedAt: e.FinishedAt,
			Counts:     datatypes.NewJSONType(counts),
			Errors:     datatypes.NewJSONType(e.Errors),
		})
	}
	return reports, nil
}

type metricsSink struct {
	rec *metrics.Recorder
}

// NewMetricsSink exports runs as Prometheus metrics.
func NewMetricsSink(rec *metrics.Recorder) RunSink {
	return &metricsSink{rec: rec}
}

func (s *metricsSink) Name() string { return "metrics" }

func (s *metricsSink) Record(_ context.Context, report *model.RunReport) error {
	s.rec.ObserveRun(report.Pipeline, string(report.Status), report.StartedAt, report.FinishedAt, countsMap(report.Counts.Data()))
	return nil
}

type eventSink struct {
	pub *events.Publisher
}

// NewEventSink publishes runs to NATS.
func NewEventSink(pub *events.Publisher) RunSink {
	return &eventSink{pub: pub}
}

func (s *eventSink) Name() string { return "nats" }

func (s *eventSink) Record(_ context.Context, report *model.RunReport) error {
	counts, err := json.Marshal(report.Counts.Data())
	if err != nil {
		return err
	}
	return s.pub.Publish(&events.RunFinished{
		RunID:      report.RunID,
		Pipeline:   report.Pipeline,
		Status:     string(report.Status),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Counts:     counts,
		Errors:     report.Errors.Data(),
	})
}
