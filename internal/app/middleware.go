package app

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"inigma/internal/domain"
	"inigma/internal/ratelimit"
	"inigma/internal/utility"
)

// ContentLengthValidator validates Content-Length for requests with bodies:
// absent lengths and oversized bodies are rejected before any work happens.
func ContentLengthValidator(maxSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut ||
				r.Method == http.MethodPatch {
				// r.ContentLength is -1 if unspecified or chunked
				if r.ContentLength < 0 {
					utility.HttpError(w, http.StatusLengthRequired,
						"Content-Length header is required")
					return
				}
				if r.ContentLength > maxSize {
					utility.HttpError(w, http.StatusRequestEntityTooLarge,
						"Content-Length exceeds maximum allowed size")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request through the injected zap logger.
func RequestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// RateLimitGate gates routes through the fixed-window limiter, keyed by
// client IP and operation. Every gated response carries the window state in
// X-RateLimit headers; rejections add a Retry-After hint.
type RateLimitGate struct {
	limiter *ratelimit.Limiter
}

func NewRateLimitGate(limiter *ratelimit.Limiter) *RateLimitGate {
	return &RateLimitGate{limiter: limiter}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP already replaced RemoteAddr with a bare IP
		return r.RemoteAddr
	}
	return host
}

func (g *RateLimitGate) Gate(op string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// chi's RealIP middleware has already resolved proxy headers
			res := g.limiter.Allow(r.Context(), clientIP(r), op)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := res.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				utility.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       domain.ErrRateLimited.Error(),
					"message":     fmt.Sprintf("too many %s requests, please try again later", op),
					"retry_after": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
