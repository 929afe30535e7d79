// Package metrics exposes Prometheus instrumentation for snapshot refreshes
// and termination requests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Termination outcomes used as the "result" label.
const (
	ResultOK               = "ok"
	ResultNotFound         = "not_found"
	ResultPermissionDenied = "permission_denied"
	ResultPlatformError    = "platform_error"
)

// Recorder holds the procmon metrics on a private registry. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Refreshes       prometheus.Counter
	RefreshFailures prometheus.Counter
	RefreshDuration prometheus.Histogram
	Processes       prometheus.Gauge
	HistorySize     prometheus.Gauge
	Terminations    *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		Refreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "procmon_refreshes_total",
			Help: "Snapshot refreshes that produced a new snapshot",
		}),
		RefreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "procmon_refresh_failures_total",
			Help: "Snapshot refreshes that failed and kept the previous snapshot",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "procmon_refresh_duration_seconds",
			Help:    "Time spent collecting one snapshot",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		Processes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "procmon_processes",
			Help: "Processes in the current snapshot",
		}),
		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "procmon_cpu_history_entries",
			Help: "PIDs tracked for CPU usage deltas",
		}),
		Terminations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "procmon_terminations_total",
			Help: "Termination requests by result",
		}, []string{"result"}),
	}
}

// ObserveRefresh records one refresh attempt.
func (r *Recorder) ObserveRefresh(d time.Duration, processes, history int, err error) {
	if r == nil {
		return
	}
	r.RefreshDuration.Observe(d.Seconds())
	if err != nil {
		r.RefreshFailures.Inc()
		return
	}
	r.Refreshes.Inc()
	r.Processes.Set(float64(processes))
	r.HistorySize.Set(float64(history))
}

// ObserveTermination records one termination request outcome.
func (r *Recorder) ObserveTermination(result string) {
	if r == nil {
		return
	}
	r.Terminations.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
