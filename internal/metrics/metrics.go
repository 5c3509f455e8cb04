// Package metrics exposes sync progress to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalogsync"

type Metrics struct {
	Registry *prometheus.Registry

	ProductsReconciled  *prometheus.CounterVec // outcome
	VariantsWritten     *prometheus.CounterVec // operation
	VariantsDeactivated prometheus.Counter
	DriftUpdates        *prometheus.CounterVec // pass
	DriftErrors         *prometheus.CounterVec // pass
	RemoteRetries       *prometheus.CounterVec // pass
	ImagesUpdated       prometheus.Counter
	Cycles              *prometheus.CounterVec // result
	CycleDuration       prometheus.Histogram
	CheckpointTime      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ProductsReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_reconciled_total",
			Help:      "Products reconciled by the full sync, by outcome.",
		}, []string{"outcome"}), // inserted | updated | aborted | failed
		VariantsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_written_total",
			Help:      "Variant reconciliations, by operation.",
		}, []string{"operation"}), // inserted | updated | skipped | failed
		VariantsDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_deactivated_total",
			Help:      "Variants set inactive because the remote no longer lists them.",
		}),
		DriftUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_updates_total",
			Help:      "Verified product quantity updates, by pass.",
		}, []string{"pass"}),
		DriftErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_errors_total",
			Help:      "Drift candidates that could not be updated, by pass.",
		}, []string{"pass"}),
		RemoteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_read_retries_total",
			Help:      "Remote reads retried after a transient failure, by pass.",
		}, []string{"pass"}),
		ImagesUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_updated_total",
			Help:      "Product thumbnails replaced by the image check.",
		}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Sync cycles, by result.",
		}, []string{"result"}), // ok | skipped | aborted
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a sync cycle, sleep excluded.",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		CheckpointTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_timestamp_seconds",
			Help:      "Unix time of the last written checkpoint.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProductsReconciled,
		m.VariantsWritten,
		m.VariantsDeactivated,
		m.DriftUpdates,
		m.DriftErrors,
		m.RemoteRetries,
		m.ImagesUpdated,
		m.Cycles,
		m.CycleDuration,
		m.CheckpointTime,
	)
	return m
}

func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) SetCheckpoint(t time.Time) {
	m.CheckpointTime.Set(float64(t.Unix()))
}

// NewRouter serves /metrics and /healthz. healthy reports the last cycle's
// state.
func NewRouter(m *Metrics, healthy func() bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !healthy() {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
