package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Davincible/ecoswitch-go/internal/metrics"
)

// NewMetricsMiddleware records request counts and latency. The endpoint
// label is the matched mux pattern so path ids do not explode cardinality.
func NewMetricsMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			endpoint := r.Pattern
			if endpoint == "" {
				endpoint = "unmatched"
			}
			metrics.RecordRequest(r.Method, endpoint, strconv.Itoa(wrapped.status), time.Since(start).Seconds())
		})
	}
}
