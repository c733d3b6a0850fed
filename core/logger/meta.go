package logger

import (
	"context"
	"log/slog"
)

// Meta is the correlation data a context carries into every log line.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	// ActorID is the person whose event is being processed.
	ActorID int64
}

type (
	metaKey   struct{}
	loggerKey struct{}
)

// MetaFrom returns the metadata stored in ctx, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

func withMeta(ctx context.Context, fn func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// WithRID attaches a request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta attaches the Telegram update identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
	})
}

// WithHandler records which handler is serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithActor records the acting person.
func WithActor(ctx context.Context, id int64) context.Context {
	return withMeta(ctx, func(m *Meta) { m.ActorID = id })
}

// RIDFrom returns the correlation id in ctx.
func RIDFrom(ctx context.Context) string { return MetaFrom(ctx).RID }

// UpdateIDFrom returns the update id in ctx.
func UpdateIDFrom(ctx context.Context) int { return MetaFrom(ctx).UpdateID }

// UserIDFrom returns the Telegram user id in ctx.
func UserIDFrom(ctx context.Context) int64 { return MetaFrom(ctx).UserID }

// ChatIDFrom returns the chat id in ctx.
func ChatIDFrom(ctx context.Context) int64 { return MetaFrom(ctx).ChatID }

// HandlerFrom returns the handler name in ctx.
func HandlerFrom(ctx context.Context) string { return MetaFrom(ctx).Handler }

// fill copies the non-zero metadata into e without overriding explicit attrs.
func (m Meta) fill(e entry) {
	e.setDefault("rid", m.RID)
	e.setDefault("update_id", m.UpdateID)
	e.setDefault("user_id", m.UserID)
	e.setDefault("chat_id", m.ChatID)
	e.setDefault("handler", m.Handler)
	e.setDefault("actor_id", m.ActorID)
}

// WithLogger stores log in ctx for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return L
}
