package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wonny/kantei/pkg/logger"
	"github.com/wonny/kantei/pkg/redis"
)

// RateLimiter 프로세스 토큰 버킷 + (Redis 활성 시) 클라이언트별 분산 윈도우
type RateLimiter struct {
	local     *rate.Limiter
	shared    *redis.RateLimiter
	perSecond float64
	burst     int
	logger    *logger.Logger
}

// NewRateLimiter creates the API limiter. shared may be nil
func NewRateLimiter(perSecond float64, burst int, shared *redis.RateLimiter, log *logger.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		local:     rate.NewLimiter(rate.Limit(perSecond), burst),
		shared:    shared,
		perSecond: perSecond,
		burst:     burst,
		logger:    log,
	}
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.local.Allow() {
			tooManyRequests(w, 0)
			return
		}

		if l.shared != nil && l.shared.Enabled() {
			cfg := redis.APIRateLimit(clientKey(r), l.perSecond, l.burst)
			allowed, remaining, err := l.shared.Allow(r.Context(), cfg)
			if err != nil {
				// Redis 장애 시 로컬 버킷만으로 통과
				l.logger.WithError(err).Warn("shared rate limit unavailable")
			} else {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				if !allowed {
					tooManyRequests(w, remaining)
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, remaining int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
}

// clientKey X-Forwarded-For 첫 항목, 없으면 RemoteAddr 호스트
func clientKey(r *http.Request) string {
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
