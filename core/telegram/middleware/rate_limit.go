package middleware

import (
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/geopal/core/logger"
	tghelpers "github.com/m3rciful/geopal/core/telegram/helpers"
)

// RateLimitOptions configures the per-user rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum spacing between updates of one user.
	Interval time.Duration
	// Burst is how many updates may arrive back to back; <= 0 -> 1.
	Burst int
	// Exclude lists update classes ("message", "callback") that bypass the limit.
	Exclude map[string]struct{}
	// Capacity bounds the number of tracked users; <= 0 -> 10000.
	Capacity uint64
	// OnLimited is invoked instead of the handler for a dropped update.
	OnLimited tele.HandlerFunc
}

// limiterClass folds UpdateKind into the two configurable classes.
func limiterClass(upd tele.Update) string {
	switch UpdateKind(upd) {
	case "callback":
		return "callback"
	case "other":
		return "other"
	default:
		return "message"
	}
}

// RateLimitMiddleware drops updates from users who exceed the configured
// rate. Idle users are forgotten once their bucket would be full again.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Interval <= 0 {
		return func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = 10000
	}
	idle := opts.Interval * time.Duration(burst)
	limiters := ttlcache.New(
		ttlcache.WithTTL[int64, *rate.Limiter](idle),
		ttlcache.WithCapacity[int64, *rate.Limiter](capacity),
	)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			class := limiterClass(c.Update())
			if _, skip := opts.Exclude[class]; skip {
				return next(c)
			}

			item, _ := limiters.GetOrSet(user.ID, rate.NewLimiter(rate.Every(opts.Interval), burst))
			if item.Value().Allow() {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", class),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
