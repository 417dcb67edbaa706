package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis/v3"

	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// RateLimit creates a per-caller limiter. Authenticated callers are keyed by
// user id, anonymous ones by IP. A nil storage keeps counters in memory.
func RateLimit(identifier string, max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	cfg := limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			caller := UserID(c)
			if caller == "" {
				caller = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, caller)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}

	return limiter.New(cfg)
}

// NewRedisStorage opens the Redis store that lets every instance share limiter
// counters. It panics when Redis cannot be reached.
func NewRedisStorage(url string) fiber.Storage {
	return redisstorage.New(redisstorage.Config{URL: url})
}
