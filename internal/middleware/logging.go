package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/expense-tracker-be/internal/log"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id assigned to the request by Logging.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logging assigns a request id, stores a request-scoped logger in the context
// and logs one line per request. 4xx responses log at warn, 5xx at error.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = log.Component(logger, log.ComponentHTTP)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLogger := logger.With(log.FieldRequestID, requestID)
			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			ctx = log.WithContext(ctx, reqLogger)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			reqLogger.LogAttrs(ctx, level, "http request",
				slog.String(log.FieldMethod, r.Method),
				slog.String(log.FieldPath, r.URL.Path),
				slog.String(log.FieldQuery, r.URL.RawQuery),
				slog.Int(log.FieldStatusCode, rec.status),
				slog.Int64(log.FieldDuration, time.Since(start).Milliseconds()),
				slog.String(log.FieldClientIP, ClientIP(r)),
			)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop and falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
