package worker

import (
	"context"
	"errors"

	"link-tracker/internal/pkg/config"
	"link-tracker/internal/usecase/update"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics contains Prometheus metrics for the poll loop and its configuration.
//
// Metrics:
//   - scrapper_poll_cycle_runs_total{status}: cycles by success, failure or canceled
//   - scrapper_poll_cycle_duration_seconds: cycle duration histogram
//   - scrapper_poll_cycle_links_processed_total: links checked across all cycles
//   - scrapper_poll_cycle_notifications_total: updates handed to the sender
//   - scrapper_poll_cycle_last_success_timestamp: unix time of the last successful cycle
//   - scrapper_config_*: see config.ConfigMetrics
type WorkerMetrics struct {
	*config.ConfigMetrics

	PollCycleRunsTotal          *prometheus.CounterVec
	PollCycleDurationSeconds    prometheus.Histogram
	LinksProcessedTotal         prometheus.Counter
	NotificationsTotal          prometheus.Counter
	PollCycleLastSuccessSeconds prometheus.Gauge
}

// NewWorkerMetrics registers the metrics with the default registry.
// It must be called once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return newWorkerMetrics(prometheus.DefaultRegisterer)
}

func newWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "scrapper"),

		PollCycleRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scrapper_poll_cycle_runs_total",
			Help: "Total number of poll cycles by status (success/failure/canceled)",
		}, []string{"status"}),

		PollCycleDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scrapper_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),

		LinksProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapper_poll_cycle_links_processed_total",
			Help: "Total number of links checked across all poll cycles",
		}),

		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrapper_poll_cycle_notifications_total",
			Help: "Total number of link updates handed to the sender",
		}),

		PollCycleLastSuccessSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scrapper_poll_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful poll cycle",
		}),
	}
}

// RecordCycle implements update.Observer.
func (m *WorkerMetrics) RecordCycle(stats *update.CycleStats, err error) {
	status := "success"
	switch {
	case errors.Is(err, context.Canceled):
		status = "canceled"
	case err != nil:
		status = "failure"
	}
	m.PollCycleRunsTotal.WithLabelValues(status).Inc()

	if stats != nil {
		m.PollCycleDurationSeconds.Observe(stats.Duration.Seconds())
		m.LinksProcessedTotal.Add(float64(stats.Checked))
		m.NotificationsTotal.Add(float64(stats.Notified))
	}
	if err == nil {
		m.PollCycleLastSuccessSeconds.SetToCurrentTime()
	}
}
