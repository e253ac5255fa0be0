package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/iwvelando/financing-simulator/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 30 * time.Minute

	rateLimitKeyPrefix = "financing:ratelimit:"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// MemoryLimiter keeps one token bucket per client in process memory. The
// bucket refills completely once the window has elapsed since the last
// refill.
type MemoryLimiter struct {
	mu          sync.Mutex
	capacity    int
	window      time.Duration
	clients     map[string]*clientBucket
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemoryLimiter starts a limiter and its background cleanup. Call Stop
// when done.
func NewMemoryLimiter(capacity int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		capacity:    capacity,
		window:      window,
		clients:     make(map[string]*clientBucket),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *MemoryLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for client, bucket := range l.clients {
		if now.Sub(bucket.lastRefill) > bucketCleanupThreshold {
			delete(l.clients, client)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Allow consumes one token for client.
func (l *MemoryLimiter) Allow(_ context.Context, client string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, exists := l.clients[client]

	if !exists {
		l.clients[client] = &clientBucket{
			tokens:     l.capacity - 1,
			lastRefill: now,
		}
		return true, nil
	}

	if now.Sub(bucket.lastRefill) >= l.window {
		bucket.tokens = l.capacity
		bucket.lastRefill = now
	}

	if bucket.tokens <= 0 {
		return false, nil
	}

	bucket.tokens--
	return true, nil
}

// RedisLimiter counts requests per client in fixed windows shared by every
// server instance using the same Redis.
type RedisLimiter struct {
	client   *redis.Client
	capacity int
	window   time.Duration
}

// NewRedisLimiter wraps an existing client.
func NewRedisLimiter(client *redis.Client, capacity int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, capacity: capacity, window: window}
}

// Allow increments the client's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	key := rateLimitKeyPrefix + client

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter for %s: %w", client, err)
	}

	return incr.Val() <= int64(l.capacity), nil
}

// RateLimitMiddleware rejects clients over their budget with 429. A limiter
// error lets the request through.
func RateLimitMiddleware(logger *zap.Logger, limiter Limiter) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				client = r.RemoteAddr
			}

			allowed, err := limiter.Allow(r.Context(), client)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("op", "server.RateLimitMiddleware"),
					zap.String("client", client),
					zap.Error(err),
				)
				allowed = true
			}

			if !allowed {
				metrics.RateLimitRejections.Inc()
				writeError(w, logger, http.StatusTooManyRequests, "rate limit exceeded", "server.RateLimitMiddleware")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
