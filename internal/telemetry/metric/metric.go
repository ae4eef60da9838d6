package metric

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

const namespace = "cepip"

// Recorder is what the transport and the session gateway report to.
type Recorder interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
	ObserveVerify(ok bool)
	IncRedirect()
	IncSessionCleared(reason string)
}

// Registry owns a private Prometheus registry and the console metrics.
type Registry struct {
	reg *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	verifications   *prometheus.CounterVec
	redirects       prometheus.Counter
	sessionCleared  *prometheus.CounterVec
}

// NewRegistry creates the metrics and registers them, together with the
// Go runtime collector, on a fresh registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests sent, by method and status class.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Round trip time of API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "verifications_total",
			Help:      "Session verifications against the backend, by result.",
		}, []string{"result"}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "login_redirects_total",
			Help:      "Times the console was sent back to the login view.",
		}),
		sessionCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "cleared_total",
			Help:      "Times the stored session was discarded, by reason.",
		}, []string{"reason"}),
	}

	r.reg.MustRegister(
		r.requests,
		r.requestDuration,
		r.verifications,
		r.redirects,
		r.sessionCleared,
		collectors.NewGoCollector(),
	)
	return r
}

// Register adds an extra collector, such as the state store size.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.reg.Register(c)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveRequest(method string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, StatusClass(status)).Inc()
	r.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (r *Registry) ObserveVerify(ok bool) {
	result := "rejected"
	if ok {
		result = "ok"
	}
	r.verifications.WithLabelValues(result).Inc()
}

func (r *Registry) IncRedirect() { r.redirects.Inc() }

func (r *Registry) IncSessionCleared(reason string) {
	r.sessionCleared.WithLabelValues(reason).Inc()
}

// WriteText writes every metric in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("metric: gather: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metric: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// StatusClass maps a status code to its class label ("2xx", ...).
// Transport failures have status 0 and map to "error".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Nop is a Recorder that drops everything.
type Nop struct{}

func (Nop) ObserveRequest(string, int, time.Duration) {}
func (Nop) ObserveVerify(bool)                        {}
func (Nop) IncRedirect()                              {}
func (Nop) IncSessionCleared(string)                  {}
