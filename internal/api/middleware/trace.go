// Package middleware provides HTTP middleware for the API layer.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/venue-scraper/internal/api/shared"
	"github.com/phrazzld/venue-scraper/internal/platform/logger"
)

// NewTraceMiddleware returns middleware that assigns a trace ID to every
// request and stores a request-scoped logger (with the trace ID attached)
// in the context. Downstream handlers, services, and stores retrieve it via
// logger.FromContext so log lines for one request correlate.
func NewTraceMiddleware(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())

			requestLogger := baseLogger.With(
				"trace_id", shared.GetTraceID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = logger.WithLogger(ctx, requestLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
