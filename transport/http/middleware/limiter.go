package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"lodge/shared"
	"lodge/shared/constant"
	"lodge/transport/http/response"

	"github.com/rs/zerolog/log"
)

const (
	cacheKeyRateLimit = "limiter"
)

// RateLimit counts requests per client IP and user agent in fixed redis windows.
// The window starts on the first request; a failing cache lets the request through.
func (a *appMiddleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.config.App.RateLimiter.Enable {
				next.ServeHTTP(w, r)

				return
			}

			maxReqs := a.config.App.RateLimiter.MaxRequests
			windowSecs := a.config.App.RateLimiter.WindowSeconds

			cacheKey := shared.BuildCacheKey(cacheKeyRateLimit, a.getClientIP(r), a.getUA(r))

			count, err := a.cache.Incr(r.Context(), cacheKey, windowSecs)
			if err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("rate limiter cache unavailable")
				next.ServeHTTP(w, r)

				return
			}

			if count > int64(maxReqs) {
				w.Header().Set(constant.RequestHeaderRateLimitWindow, strconv.Itoa(windowSecs))
				response.WithRequestLimitExceeded(w)

				return
			}

			w.Header().Set(constant.RequestHeaderRateLimit, strconv.Itoa(maxReqs))
			w.Header().Set(constant.RequestHeaderRateLimitRemaining, strconv.FormatInt(max(0, int64(maxReqs)-count), 10))
			w.Header().Set(constant.RequestHeaderRateLimitWindow, strconv.Itoa(windowSecs))

			next.ServeHTTP(w, r)
		})
	}
}

func (a *appMiddleware) getUA(r *http.Request) string {
	ua := r.Header.Get(constant.RequestHeaderUserAgent)
	if ua == constant.Empty {
		ua = "unknown"
	}

	return ua
}

func (a *appMiddleware) getClientIP(r *http.Request) string {
	// first hop of X-Forwarded-For wins
	if xff := r.Header.Get(constant.RequestHeaderForwardedFor); xff != constant.Empty {
		if commaIdx := strings.Index(xff, ","); commaIdx > 0 {
			return strings.TrimSpace(xff[:commaIdx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get(constant.RequestHeaderRealIP); xri != constant.Empty {
		return strings.TrimSpace(xri)
	}

	return r.RemoteAddr
}
