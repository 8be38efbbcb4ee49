package middleware

import (
	"net/http"
	"time"

	"lodge/config"
	"lodge/infras/metrics"
	"lodge/infras/otel"
	"lodge/shared/cache"
	"lodge/shared/constant"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	otelHTTPScopeName = "http"
	unmatchedRoute    = "unmatched"
)

type AppMiddleware interface {
	Tracing(next http.Handler) http.Handler
	Metrics(next http.Handler) http.Handler
	RateLimit() func(http.Handler) http.Handler
}

type appMiddleware struct {
	otel    otel.Otel
	metrics metrics.Metrics
	config  *config.Config
	cache   cache.RedisCache
}

func NewAppMiddleware(otel otel.Otel, metrics metrics.Metrics, config *config.Config, cache cache.RedisCache) AppMiddleware {
	return &appMiddleware{
		otel:    otel,
		metrics: metrics,
		config:  config,
		cache:   cache,
	}
}

// Tracing opens the root span of a request and records the status code once the handler returns.
func (a *appMiddleware) Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, scope := a.otel.NewScope(r.Context(), otelHTTPScopeName, r.Method+" "+r.URL.Path)
		defer scope.End()

		scope.SetAttributes(map[string]any{
			"app.name":        a.config.App.Name,
			"http.path":       r.URL.Path,
			"http.method":     r.Method,
			"http.user_agent": r.Header.Get(constant.RequestHeaderUserAgent),
			"http.host":       r.Host,
			"http.source":     a.getClientIP(r),
			"http.request_id": chiMiddleware.GetReqID(ctx),
		})

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		scope.SetAttributes(map[string]any{
			"http.route":       routePattern(r),
			"http.status_code": ww.Status(),
		})
	})
}

// Metrics observes request latency labelled by the matched route pattern, never the raw path.
func (a *appMiddleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		a.metrics.ObserveHTTP(r.Method, routePattern(r), status, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}

	if pattern := rctx.RoutePattern(); pattern != constant.Empty {
		return pattern
	}

	return unmatchedRoute
}
