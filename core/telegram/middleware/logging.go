// Package middleware holds the telebot middleware shared by every bot.
package middleware

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/geopal/core/logger"
	tghelpers "github.com/m3rciful/geopal/core/telegram/helpers"
)

// UpdateKind names the shape of an update for logs and rate limiting.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message == nil:
		return "other"
	case upd.Message.Location != nil:
		return "location"
	case upd.Message.Contact != nil:
		return "contact"
	case len(upd.Message.Text) > 0 && upd.Message.Text[0] == '/':
		return "command"
	default:
		return "text"
	}
}

// LoggerMiddleware binds the update's logging context and, subject to debug
// sampling, logs its receipt. Coordinates and phone numbers are never logged.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.Bind(c, tghelpers.NewUpdateContext(context.Background(), c))
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	upd := c.Update()
	kind := UpdateKind(upd)
	attrs := []slog.Attr{slog.String("kind", kind)}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	switch kind {
	case "callback":
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Callback.Data, 128)))
	case "command":
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 64)))
	case "text":
		attrs = append(attrs, slog.Int("count", len([]rune(upd.Message.Text))))
	}
	return attrs
}
