package relay

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	inflight       prometheus.Gauge
	streamedBytes  prometheus.Counter
	rejected       prometheus.Counter
	streamFailures prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expert_relay",
			Name:      "requests_total",
			Help:      "Bridge requests by action and response status.",
		}, []string{"action", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "expert_relay",
			Name:      "request_duration_seconds",
			Help:      "Bridge request latency, including streamed bodies.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"action"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "expert_relay",
			Name:      "upstream_inflight",
			Help:      "Calls to model servers currently open.",
		}),
		streamedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "expert_relay",
			Name:      "streamed_bytes_total",
			Help:      "Bytes piped from model servers to clients.",
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "expert_relay",
			Name:      "rate_limited_total",
			Help:      "Bridge requests rejected by the rate limiter.",
		}),
		streamFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "expert_relay",
			Name:      "stream_failures_total",
			Help:      "Streams cut off by a stalled or failing model server.",
		}),
	}
}

// observe records one finished request. A zero start skips the latency.
func (m *metrics) observe(action string, status int, start time.Time) {
	m.requests.WithLabelValues(action, strconv.Itoa(status)).Inc()
	if !start.IsZero() {
		m.duration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	}
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
