package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

// Metrics records request counts and latency labelled by the matched chi route,
// so ids in wildcard paths do not explode label cardinality.
func Metrics(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := wrap(w)

			next.ServeHTTP(rec, r)

			m.ObserveHTTP(r.Method, routePattern(r), strconv.Itoa(rec.Status()), time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
