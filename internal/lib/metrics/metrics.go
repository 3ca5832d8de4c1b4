// Package metrics метрики Prometheus для задач генерации уведомлений.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки кандидата в уведомление.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Результаты запуска задачи.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultLocked  = "locked"
	ResultTimeout = "timeout"
)

// Metrics набор счётчиков планировщика.
type Metrics struct {
	notifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	runs          *prometheus.CounterVec
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_notifications_total",
			Help: "Notification candidates processed by reminder jobs, by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reminder_job_duration_seconds",
			Help:    "Duration of reminder job runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_job_runs_total",
			Help: "Reminder job runs, by result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.notifications, m.duration, m.runs)
	return m
}

// Summary счётчики одного запуска задачи.
type Summary struct {
	Created    int
	Duplicates int
	Skipped    int
	Failed     int
}

// ObserveRun записывает итог запуска задачи job.
func (m *Metrics) ObserveRun(job, result string, elapsed time.Duration, s Summary) {
	m.runs.WithLabelValues(job, result).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	m.notifications.WithLabelValues(job, OutcomeCreated).Add(float64(s.Created))
	m.notifications.WithLabelValues(job, OutcomeDuplicate).Add(float64(s.Duplicates))
	m.notifications.WithLabelValues(job, OutcomeSkipped).Add(float64(s.Skipped))
	m.notifications.WithLabelValues(job, OutcomeFailed).Add(float64(s.Failed))
}

// ObserveSkippedRun записывает запуск, который не выполнялся (например, блокировка занята).
func (m *Metrics) ObserveSkippedRun(job, result string) {
	m.runs.WithLabelValues(job, result).Inc()
}
