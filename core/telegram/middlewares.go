package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/geopal/core/config"
	"github.com/m3rciful/geopal/core/telegram/middleware"
)

// DefaultMiddlewares returns the chain every bot runs: panic recovery, the
// update logging context and, when configured, the per-user rate limit.
// onLimited replaces the handler of a rate limited update; nil drops it.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return mws
	}

	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[kind] = struct{}{}
	}
	return append(mws, Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Burst:     cfg.RateLimit.Burst,
			Exclude:   exclude,
			OnLimited: onLimited,
		}),
	})
}
