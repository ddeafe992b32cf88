// internal/transport/httpapi/middleware.go
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/observability"
)

// requestLogger logs one line per request and feeds the otel counters.
func requestLogger(log logger.Logger, obs *observability.Observability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := r.Method + " " + r.URL.Path
			if obs != nil {
				obs.RecordRequest(r.Context(), route, strconv.Itoa(ww.Status()))
				obs.RecordRequestDuration(r.Context(), route, duration)
			}
			log.Info("request handled", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": duration.String(),
				"bytes":    ww.BytesWritten(),
			})
		})
	}
}
