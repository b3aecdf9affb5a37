package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/telemetry"
)

// RequestMetrics records a counter and duration histogram per request, plus
// an in-flight gauge. Attached early in the chain so denied and failed
// requests are measured too.
func RequestMetrics(m *telemetry.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			m.ActiveConnections.Add(ctx, 1)
			defer m.ActiveConnections.Add(ctx, -1)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			m.RecordRequest(ctx,
				r.Method,
				r.URL.Path,
				strconv.Itoa(ww.Status()),
				float64(time.Since(start).Milliseconds()),
			)
		})
	}
}
