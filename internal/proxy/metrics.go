package proxy

import (
	"strconv"
	"sync"

	gopher "github.com/knowfox/gopher"
	"github.com/prometheus/client_golang/prometheus"
)

// Upstream outcomes used as the "outcome" label.
const (
	outcomeOK      = "ok"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gopher",
			Subsystem: "proxy_http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the proxy.",
		},
		[]string{"method", "path", "status"},
	)
	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gopher",
			Subsystem: "proxy_upstream",
			Name:      "requests_total",
			Help:      "Gopher requests sent upstream.",
		},
		[]string{"tls", "outcome"},
	)
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gopher",
			Subsystem: "proxy_upstream",
			Name:      "duration_seconds",
			Help:      "Time from dialing to the server closing the stream.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tls"},
	)
	upstreamFirstByte = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gopher",
			Subsystem: "proxy_upstream",
			Name:      "first_byte_seconds",
			Help:      "Time from sending the selector to the first response bytes.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tls"},
	)
	upstreamBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gopher",
			Subsystem: "proxy_upstream",
			Name:      "response_bytes",
			Help:      "Size of upstream responses.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"tls"},
	)
)

// RegisterMetrics adds the proxy collectors to the default registry. Recording
// does not register.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, upstreamRequests, upstreamDuration, upstreamFirstByte, upstreamBytes)
	})
}

func RecordHTTPRequest(method, path string, status int) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RecordUpstream counts one upstream exchange. resp is nil when the exchange
// itself failed.
func RecordUpstream(resp *gopher.Response, outcome string) {
	if resp == nil {
		upstreamRequests.WithLabelValues("false", outcome).Inc()
		return
	}
	tlsLabel := strconv.FormatBool(resp.TLSUsed())
	upstreamRequests.WithLabelValues(tlsLabel, outcome).Inc()
	upstreamDuration.WithLabelValues(tlsLabel).Observe(resp.Timing.Total().Seconds())
	upstreamFirstByte.WithLabelValues(tlsLabel).Observe(resp.Timing.FirstByteWait().Seconds())
	upstreamBytes.WithLabelValues(tlsLabel).Observe(float64(len(resp.Raw)))
}
