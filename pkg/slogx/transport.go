package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/merbau/myinvois/pkg/idx"
)

// redactedHeaders are never written to the log stream. Bearer tokens and
// taxpayer identifiers count as credentials here.
var redactedHeaders = []string{"Authorization", "Onbehalfof"}

// LogTransport is an http.RoundTripper that logs every outbound request and
// attaches a contextual logger carrying the request ID to the request context.
type LogTransport struct {
	next http.RoundTripper
	base *slog.Logger
}

// NewLogTransport wraps next with outbound request logging. A nil next uses
// http.DefaultTransport; a nil logger disables logging entirely.
func NewLogTransport(next http.RoundTripper, base *slog.Logger) *LogTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if base == nil {
		base = Nop()
	}
	return &LogTransport{next: next, base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *LogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = idx.New().String()
	}

	logger := t.base.With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
		"host", req.URL.Host,
	)
	if t.base.Enabled(req.Context(), slog.LevelDebug) {
		// Header dumps are debug-only and never carry credentials.
		logger = logger.With("headers", Redact(req.Header))
	}

	// Downstream code reading the context gets the same request-scoped logger.
	req = req.WithContext(WithContext(req.Context(), logger))

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error("api_request_failed",
			"duration_ms", duration,
			"error", err,
		)
		return resp, err
	}

	logger.Debug("api_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}

// Redact replaces credential-bearing header values with a placeholder so
// debug-level request dumps never leak tokens into logs.
func Redact(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range redactedHeaders {
		if out.Get(name) != "" {
			out.Set(name, "[REDACTED]")
		}
	}
	return out
}
