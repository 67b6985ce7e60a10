package middleware

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SweepFunc removes expired rows as of now.
type SweepFunc func(ctx context.Context, now time.Time)

// Sweep runs sweep before a request at most once per interval. Concurrent
// requests that lose the race skip the sweep.
func Sweep(sweep SweepFunc, interval time.Duration) fiber.Handler {
	var last atomic.Int64
	now := time.Now

	return func(c *fiber.Ctx) error {
		current := now()
		previous := last.Load()
		if current.Sub(time.Unix(0, previous)) >= interval && last.CompareAndSwap(previous, current.UnixNano()) {
			sweep(c.UserContext(), current)
		}
		return c.Next()
	}
}
