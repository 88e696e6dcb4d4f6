package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-manager/internal/config"
)

var (
	rateLimitRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"scope"},
	)
	rateLimitBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"scope"},
	)
)

// RateLimiter is a fixed-window limiter for the credential endpoints backed
// by Redis INCR and EXPIRE NX (Redis 7+) in one transaction. Without Redis, or when Redis errors, it lets every
// request through.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *logrus.Entry
}

// NewRateLimiter connects to cfg.Addr. An empty address or a failed ping
// yields a limiter that never blocks.
func NewRateLimiter(cfg config.RedisConfig, limit int, window time.Duration, log *logrus.Entry) *RateLimiter {
	l := &RateLimiter{limit: limit, window: window, log: log.WithField("component", "rate_limiter")}
	if cfg.Addr == "" {
		l.log.Info("REDIS_ADDR not set, rate limiting disabled")
		return l
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		l.log.WithError(err).Warn("redis unreachable, rate limiting disabled")
		_ = client.Close()
		return l
	}

	l.client = client
	return l
}

func (l *RateLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

// key buckets by the connection address; see Server.clientIP for when proxy
// headers are allowed to change it.
func (l *RateLimiter) key(scope string, r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return "rl:" + scope + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + ip
}

// Limit returns middleware counting requests per client IP under scope.
func (l *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || l.client == nil || l.limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			// Detached from the request so a cancelled client cannot leave a
			// counter without an expiry.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Second)
			defer cancel()
			key := l.key(scope, r)
			var incr *redis.IntCmd
			_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				pipe.ExpireNX(ctx, key, l.window)
				return nil
			})
			if err != nil {
				l.log.WithError(err).WithField("key", key).Warn("rate limiter redis error, allowing request")
				w.Header().Set("X-RateLimit-Error", "redis-error")
				next.ServeHTTP(w, r)
				return
			}
			val := incr.Val()

			remaining := int64(l.limit) - val
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if val > int64(l.limit) {
				rateLimitBlocked.WithLabelValues(scope).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
				respondWithError(w, http.StatusTooManyRequests, "Too many attempts, please try again later")
				return
			}

			rateLimitRequests.WithLabelValues(scope).Inc()
			next.ServeHTTP(w, r)
		})
	}
}
