package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestMetrics receives one observation per instrumented request.
// Implemented by monitoring.Metrics; nil disables metric collection.
type RequestMetrics interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// MiddlewareConfig tunes the request instrumentation middleware.
type MiddlewareConfig struct {
	// ExcludedPaths skip instrumentation entirely (health probes etc.).
	ExcludedPaths []string
	// Redaction is applied to headers and bodies before logging.
	Redaction RedactionPolicy
	// SlowThreshold escalates the completion entry to warn.
	SlowThreshold time.Duration
	// EscalationThreshold escalates the completion entry to error.
	EscalationThreshold time.Duration
	// Metrics, when set, receives one observation per request.
	Metrics RequestMetrics
}

// DefaultMiddlewareConfig returns the stock instrumentation settings.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		ExcludedPaths:       []string{"/health", "/metrics", "/favicon.ico"},
		Redaction:           DefaultRedactionPolicy(),
		SlowThreshold:       2 * time.Second,
		EscalationThreshold: 5 * time.Second,
	}
}

// ipHeaders are consulted in order before falling back to the socket peer.
var ipHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Client-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
}

// requestMeta is the redacted request material included in the
// completion entry.
type requestMeta struct {
	query     map[string]string
	headers   map[string]string
	clientIP  string
	userAgent string
	body      string
	hasBody   bool
}

// RequestMiddleware wraps every request with instrumentation: it assigns a
// request id, attaches the request context for downstream logging, times
// the handler, and emits one structured completion entry with redacted
// request/response metadata. X-Request-ID and X-Response-Time are set on
// the response. The instrumentation itself never fails a request: capture
// errors are swallowed and logged at debug.
func (l *Logger) RequestMiddleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			for _, p := range cfg.ExcludedPaths {
				if path == p {
					return next(c)
				}
			}

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := l.WithRequestContext(req.Context(), RequestContext{RequestID: requestID})
			c.SetRequest(req.WithContext(ctx))
			// Guaranteed release: whatever the handler does, the original
			// request without the request context is restored on exit.
			defer c.SetRequest(req)

			meta := l.captureRequest(c, cfg.Redaction)

			start := time.Now()
			c.Response().Before(func() {
				elapsed := time.Since(start)
				c.Response().Header().Set(echo.HeaderXRequestID, requestID)
				c.Response().Header().Set("X-Response-Time",
					fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000))
			})

			err := next(c)
			duration := time.Since(start)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			if cfg.Metrics != nil {
				cfg.Metrics.ObserveRequest(req.Method, c.Path(), status, duration)
			}

			l.logCompletion(ctx, c, cfg, meta, status, duration, err)
			return err
		}
	}
}

// captureRequest gathers redacted request metadata. Any panic during
// capture is swallowed; instrumentation must never mask the handler.
func (l *Logger) captureRequest(c echo.Context, policy RedactionPolicy) (meta requestMeta) {
	defer func() {
		if r := recover(); r != nil {
			l.base.Debug().Interface("panic", r).Msg("request metadata capture failed")
		}
	}()

	req := c.Request()
	meta.headers = policy.Headers(req.Header)
	meta.clientIP = clientIP(req)
	meta.userAgent = req.UserAgent()

	meta.query = make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			meta.query[k] = v[0]
		}
	}

	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if req.Body != nil {
			body, err := io.ReadAll(req.Body)
			if err == nil {
				// The handler still needs the body.
				req.Body = io.NopCloser(bytes.NewReader(body))
				meta.body, meta.hasBody = policy.Body(req.Method, body)
			}
		}
	}
	return meta
}

// logCompletion emits the single structured entry for a finished request.
// Severity escalates with duration, and again on handler error. Failures
// while serializing metadata are swallowed.
func (l *Logger) logCompletion(ctx context.Context, c echo.Context, cfg MiddlewareConfig,
	meta requestMeta, status int, duration time.Duration, handlerErr error) {
	defer func() {
		if r := recover(); r != nil {
			l.base.Debug().Interface("panic", r).Msg("request completion logging failed")
		}
	}()

	lg := l.Ctx(ctx)
	req := c.Request()

	var evt *zerolog.Event
	msg := "request completed"
	switch {
	case handlerErr != nil:
		evt = lg.Error().Err(handlerErr)
		msg = "request failed"
	case duration > cfg.EscalationThreshold:
		evt = lg.Error().Str("threshold_exceeded", cfg.EscalationThreshold.String())
		msg = "very slow request"
	case duration > cfg.SlowThreshold:
		evt = lg.Warn().Str("threshold_exceeded", cfg.SlowThreshold.String())
		msg = "slow request"
	default:
		evt = lg.Info()
	}

	extra := zerolog.Dict().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("client_ip", meta.clientIP).
		Str("user_agent", meta.userAgent).
		Int("status_code", status).
		Float64("duration_ms", float64(duration.Microseconds())/1000).
		Str("content_length", c.Response().Header().Get(echo.HeaderContentLength)).
		Interface("query_params", meta.query).
		Interface("headers", meta.headers).
		Interface("response_headers", cfg.Redaction.Headers(c.Response().Header()))
	if meta.hasBody {
		extra = extra.Str("request_body", meta.body)
	}

	evt.Dict("extra", extra).Msg(msg)
}

// clientIP returns the caller's address, preferring the usual proxy
// headers over the socket peer.
func clientIP(req *http.Request) string {
	for _, h := range ipHeaders {
		v := req.Header.Get(h)
		if v == "" {
			continue
		}
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		if ip := strings.TrimSpace(v); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	if req.RemoteAddr != "" {
		return req.RemoteAddr
	}
	return "unknown"
}
