package log

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDMiddleware tags each request with an id, reusing the caller's
// X-Request-ID when present.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the id assigned by RequestIDMiddleware, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// HTTPLogEntry represents an HTTP request/response log entry
type HTTPLogEntry struct {
	Timestamp  time.Time     `json:"timestamp"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	Size       int           `json:"size"`
	RemoteAddr string        `json:"remote_addr"`
	UserAgent  string        `json:"user_agent"`
	RequestID  string        `json:"request_id,omitempty"`
}

// AccessLogMiddleware writes one structured log line per completed request
func AccessLogMiddleware(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		LogHTTPRequest(HTTPLogEntry{
			Timestamp:  p.TimeStamp,
			Method:     p.Request.Method,
			Path:       p.URL.Path,
			Status:     p.StatusCode,
			Duration:   time.Since(p.TimeStamp),
			Size:       p.Size,
			RemoteAddr: p.Request.RemoteAddr,
			UserAgent:  p.Request.UserAgent(),
			RequestID:  RequestID(p.Request.Context()),
		})
	})
}

// LogHTTPRequest logs an HTTP request entry
func LogHTTPRequest(e HTTPLogEntry) {
	fields := []interface{}{
		"method", e.Method,
		"path", e.Path,
		"status", e.Status,
		"duration_ms", e.Duration.Milliseconds(),
		"size", e.Size,
		"remote_addr", e.RemoteAddr,
		"user_agent", e.UserAgent,
	}
	if e.RequestID != "" {
		fields = append(fields, "request_id", e.RequestID)
	}

	if e.Status >= http.StatusInternalServerError {
		Warnw("http request", fields...)
		return
	}
	Infow("http request", fields...)
}
