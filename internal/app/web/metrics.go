package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yellowbridge/lamentwall/internal/platform/htmx"
	"github.com/yellowbridge/lamentwall/internal/platform/metrics"
)

var (
	httpRequests = metrics.NewCounterVec(metrics.Opts{
		Name: "http_requests_total",
		Help: "Requests served by route pattern, method and status.",
	}, "route", "method", "status", "htmx")
	httpInflight = metrics.NewGauge(metrics.Opts{
		Name: "http_inflight_requests",
		Help: "Requests currently being served.",
	})
)

func init() {
	metrics.Default.MustRegister(httpRequests, httpInflight)
}

// instrument counts requests by chi route pattern so path parameters do not
// explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status), strconv.FormatBool(htmx.IsRequest(r))).Inc()
	})
}
