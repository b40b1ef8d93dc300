package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes pipeline run metrics to Prometheus. Methods are nil-safe so callers
// can pass a nil *Recorder when metrics are off.
type Recorder struct {
	runs        *prom.CounterVec
	runDuration *prom.HistogramVec
	items       *prom.CounterVec
	lastRun     *prom.GaugeVec
}

// NewRecorder creates and registers the run metrics on reg.
func NewRecorder(reg prom.Registerer) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "saoms",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"pipeline", "status"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "saoms",
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall time of one pipeline run",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline"}),
		items: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "saoms",
			Name:      "pipeline_items_total",
			Help:      "Counted outcomes of pipeline runs (transitions, resets, reminders, emails)",
		}, []string{"pipeline", "counter"}),
		lastRun: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "saoms",
			Name:      "pipeline_last_run_timestamp_seconds",
			Help:      "Unix time the pipeline last finished",
		}, []string{"pipeline"}),
	}
	reg.MustRegister(r.runs, r.runDuration, r.items, r.lastRun)
	return r
}

// ObserveRun records one finished run. counters maps counter names to the amounts the
// run produced; zero amounts are skipped.
func (r *Recorder) ObserveRun(pipeline, status string, started, finished time.Time, counters map[string]int) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(pipeline, status).Inc()
	r.runDuration.WithLabelValues(pipeline).Observe(finished.Sub(started).Seconds())
	r.lastRun.WithLabelValues(pipeline).Set(float64(finished.Unix()))
	for name, n := range counters {
		if n > 0 {
			r.items.WithLabelValues(pipeline, name).Add(float64(n))
		}
	}
}
