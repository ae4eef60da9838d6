package connection

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/yndnr/cepip-console/internal/infra/buildinfo"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
	"github.com/yndnr/cepip-console/internal/telemetry/metric"
	"github.com/yndnr/cepip-console/internal/telemetry/tracer"
)

// HeaderRequestID carries the per-call request id.
const HeaderRequestID = "X-Request-ID"

// TransportConfig configures NewTransport.
type TransportConfig struct {
	// Base carries the request; defaults to a clone of
	// http.DefaultTransport using TLS.
	Base http.RoundTripper
	// TLS is applied to the default base only.
	TLS *tls.Config
	// RateLimit is in requests per second; 0 disables throttling.
	RateLimit float64
	// Burst defaults to 1 when RateLimit is set.
	Burst int
	// UserAgent defaults to buildinfo.UserAgent().
	UserAgent string

	Logger  logger.Logger
	Metrics metric.Recorder
}

type instrumentedTransport struct {
	base      http.RoundTripper
	limiter   *rate.Limiter
	userAgent string
	log       logger.Logger
	metrics   metric.Recorder
}

// NewTransport returns the RoundTripper used for every backend call.
func NewTransport(cfg TransportConfig) http.RoundTripper {
	base := cfg.Base
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLS != nil {
			t.TLSClientConfig = cfg.TLS
		}
		base = t
	}

	t := &instrumentedTransport{
		base:      base,
		userAgent: cfg.UserAgent,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if t.userAgent == "" {
		t.userAgent = buildinfo.UserAgent()
	}
	if t.log == nil {
		t.log = logger.Default()
	}
	if t.metrics == nil {
		t.metrics = metric.Nop{}
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	id := req.Header.Get(HeaderRequestID)
	if id == "" {
		id = logger.RequestIDFromContext(ctx)
	}
	if id == "" {
		id = ulid.Make().String()
	}

	ctx, span := tracer.StartSpan(ctx, req.Method+" "+req.URL.Path)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
		attribute.String("cepip.request_id", id),
	)

	out := req.Clone(ctx)
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}
	out.Header.Set(HeaderRequestID, id)
	tracer.Inject(ctx, out.Header)

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	elapsed := time.Since(start)

	log := t.log.WithContext(ctx).With("request_id", id, "method", req.Method, "path", req.URL.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.metrics.ObserveRequest(req.Method, 0, elapsed)
		log.Debug("request failed", "error", err, "elapsed", elapsed)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, resp.Status)
	}
	t.metrics.ObserveRequest(req.Method, resp.StatusCode, elapsed)
	log.Debug("request done", "status", resp.StatusCode, "elapsed", elapsed)
	return resp, nil
}
