package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "repairdesk"

// Outcomes recorded under the result label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultRetry   = "retry"
)

// JobMetrics tracks queued reminder jobs and cron runs by name. The zero
// value and a nil pointer record nothing.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Job executions by outcome.",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Wall time of job executions.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration)
	return m
}

func (m *JobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(jobLabel(job)).Observe(d.Seconds())
}

func (m *JobMetrics) IncSuccess(job string) { m.count(job, ResultSuccess) }
func (m *JobMetrics) IncFailure(job string) { m.count(job, ResultFailure) }
func (m *JobMetrics) IncRetry(job string)   { m.count(job, ResultRetry) }

func (m *JobMetrics) count(job, result string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(jobLabel(job), result).Inc()
}

func jobLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
