package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/pkg/response"
)

// RateLimiter counts generation requests per user in fixed Redis windows
type RateLimiter struct {
	redis   *redis.Client
	cfg     config.RateLimitConfig
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *log.Entry
}

func NewRateLimiter(redisClient *redis.Client, cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		logger:  log.WithField("component", "RateLimiter"),
	}
}

// window returns the bucket key suffix and the time the bucket closes
func window(now time.Time, size time.Duration) (int64, time.Time) {
	start := now.Truncate(size)
	return start.Unix(), start.Add(size)
}

// hit increments the caller's counter for the current window. The key
// carries the window start, so its expiry never needs refreshing.
func (rl *RateLimiter) hit(ctx context.Context, group, userID string, size time.Duration) (int64, time.Time, error) {
	bucket, resetAt := window(rl.now(), size)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", group, userID, bucket)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, resetAt.Add(time.Minute))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, resetAt, err
	}
	return incr.Val(), resetAt, nil
}

// Limit rejects a user's requests beyond maxRequests per window. A limit of
// zero or less disables it; Redis failures let the request through.
func (rl *RateLimiter) Limit(group string, maxRequests int, size time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if maxRequests <= 0 {
			return c.Next()
		}
		userID := GetUserID(c)
		if userID == "" {
			return c.Next()
		}

		count, resetAt, err := rl.hit(c.Context(), group, userID, size)
		if err != nil {
			rl.logger.WithError(err).Warn("Rate limit check skipped")
			return c.Next()
		}

		remaining := maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > int64(maxRequests) {
			retry := int(resetAt.Sub(rl.now()).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			if rl.metrics != nil {
				rl.metrics.RateLimitedTotal.WithLabelValues(group).Inc()
			}
			rl.logger.WithFields(log.Fields{"group": group, "userId": userID}).Info("Rate limit exceeded")
			return response.RateLimited(c)
		}

		return c.Next()
	}
}

func (rl *RateLimiter) ProjectLimit() fiber.Handler {
	return rl.Limit("projects", rl.cfg.ProjectsPerHour, time.Hour)
}

func (rl *RateLimiter) VideoLimit() fiber.Handler {
	return rl.Limit("videos", rl.cfg.VideosPerHour, time.Hour)
}

func (rl *RateLimiter) ImageLimit() fiber.Handler {
	return rl.Limit("images", rl.cfg.ImagesPerHour, time.Hour)
}

func (rl *RateLimiter) MusicLimit() fiber.Handler {
	return rl.Limit("music", rl.cfg.MusicPerHour, time.Hour)
}

func (rl *RateLimiter) UploadLimit() fiber.Handler {
	return rl.Limit("uploads", rl.cfg.UploadsPerHour, time.Hour)
}
