// Package helpers carries the per-update logging context through telebot
// handlers.
package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/geopal/core/logger"
)

// ctxKey is the tele.Context store key of the update's context.Context.
const ctxKey = "geopal.ctx"

// Bind stores ctx on c so later middleware and handlers share it.
func Bind(c tele.Context, ctx context.Context) context.Context {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
	return ctx
}

// Bound returns the context previously stored with Bind.
func Bound(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// Origin returns the update, user and chat identifiers of c. Missing parts
// are zero.
func Origin(c tele.Context) (updateID int, userID, chatID int64) {
	updateID = c.Update().ID
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return updateID, userID, chatID
}

// NewUpdateContext derives the logging context of a single update: a request
// id plus update, user and chat ids, scoped to the "tg" component.
func NewUpdateContext(parent context.Context, c tele.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	updateID, userID, chatID := Origin(c)
	ctx := logger.WithRID(parent, logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	return logger.WithLogger(ctx, logger.Component("tg"))
}

// BuildContext returns the bound context of c, creating and binding one when
// the logging middleware did not run.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := Bound(c); ok {
		return ctx
	}
	return Bind(c, NewUpdateContext(context.Background(), c))
}

// WithHandler records the handling route on the bound context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	return Bind(c, logger.WithHandler(ctx, handler))
}
