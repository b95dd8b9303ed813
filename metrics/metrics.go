// Package metrics exports dispatch-core observability as Prometheus
// series: updates processed, handler latency and failures, long-poll
// retries, and FSM backend operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the Recorder.
type Config struct {
	// Registry to register series on. A fresh one is created if nil.
	Registry *prometheus.Registry

	// LatencyBuckets for the handler-duration histogram, in seconds.
	LatencyBuckets []float64
}

// DefaultConfig returns sane handler-latency buckets for a chat bot's
// typically sub-second handlers.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
}

// Recorder implements dispatcher.Metrics and exposes the underlying
// Prometheus registry for scraping.
type Recorder struct {
	registry *prometheus.Registry

	updatesProcessed *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	handlerFailures  *prometheus.CounterVec
	longpollRetries  *prometheus.CounterVec
	fsmOps           *prometheus.CounterVec
}

// New builds a Recorder and registers its series on cfg.Registry (or a
// fresh prometheus.Registry when unset).
func New(cfg Config) *Recorder {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Recorder{registry: registry}

	r.updatesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maxbot",
			Name:      "updates_processed_total",
			Help:      "Total number of updates decoded and routed to Handle.",
		},
		[]string{"update_type"},
	)

	r.handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "maxbot",
			Name:      "handler_duration_seconds",
			Help:      "Time spent inside a matched handler and its middleware chain.",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"router_id"},
	)

	r.handlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maxbot",
			Name:      "handler_failures_total",
			Help:      "Total number of handler invocations that returned an error.",
		},
		[]string{"router_id"},
	)

	r.longpollRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maxbot",
			Name:      "longpoll_retries_total",
			Help:      "Total number of long-poll retry-table entries taken, by kind.",
		},
		[]string{"kind"},
	)

	r.fsmOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maxbot",
			Name:      "fsm_ops_total",
			Help:      "Total number of FSM storage operations, by backend and op.",
		},
		[]string{"backend", "op"},
	)

	registry.MustRegister(
		r.updatesProcessed,
		r.handlerDuration,
		r.handlerFailures,
		r.longpollRetries,
		r.fsmOps,
	)

	return r
}

// Registry returns the underlying registry for Handler() or a custom
// scrape setup.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler returns an http.Handler serving this Recorder's series in the
// Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncUpdateProcessed(updateType string) {
	r.updatesProcessed.WithLabelValues(updateType).Inc()
}

func (r *Recorder) ObserveHandlerDuration(routerID string, d time.Duration) {
	r.handlerDuration.WithLabelValues(routerID).Observe(d.Seconds())
}

func (r *Recorder) IncHandlerFailure(routerID string) {
	r.handlerFailures.WithLabelValues(routerID).Inc()
}

// IncLongpollRetry records one retry-table entry taken by the long-poll
// driver, e.g. kind="connection", "platform_error", "unexpected".
func (r *Recorder) IncLongpollRetry(kind string) {
	r.longpollRetries.WithLabelValues(kind).Inc()
}

// IncFSMOp records one storage operation, e.g. op="get_state",
// "update_data".
func (r *Recorder) IncFSMOp(backend, op string) {
	r.fsmOps.WithLabelValues(backend, op).Inc()
}
