// Package router holds the per-update summary logging shared by bot handlers.
package router

import (
	"log/slog"
	"reflect"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/geopal/core/logger"
	tghelpers "github.com/m3rciful/geopal/core/telegram/helpers"
)

// HandleWithSummary tags the update context with handlerName, runs fn and logs
// one handler.handled line. fn may return extra attributes for the summary.
func HandleWithSummary(c tele.Context, handlerName string, fn func() ([]slog.Attr, error)) error {
	start := time.Now()
	tghelpers.WithHandler(c, NormalizeHandlerName(handlerName))
	extras, err := fn()
	LogHandlerSummary(c, handlerName, start, "", "", err, extras...)
	return err
}

// LogHandlerSummary logs the outcome of a handler. Empty overrides are
// derived from err.
func LogHandlerSummary(c tele.Context, handlerName string, start time.Time, statusOverride, outcomeOverride string, err error, extras ...slog.Attr) {
	handlerName = NormalizeHandlerName(handlerName)
	ctx := tghelpers.WithHandler(c, handlerName)

	status := statusOverride
	if status == "" {
		if err != nil {
			status = "fail"
		} else {
			status = "ok"
		}
	}
	outcome := outcomeOverride
	if outcome == "" {
		if err != nil {
			outcome = "fail"
		} else {
			outcome = "ok"
		}
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", DeriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	if len(extras) > 0 {
		attrs = append(attrs, extras...)
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

// NormalizeHandlerName lowercases name and strips a leading slash.
func NormalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// DeriveErrorCode returns an upper-case code for err, preferring a Code()
// method anywhere in the wrap chain and falling back to the type name.
func DeriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	for e := err; e != nil; e = unwrap(e) {
		if c, ok := e.(coder); ok {
			if code := strings.TrimSpace(c.Code()); code != "" {
				return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
			}
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(strings.ReplaceAll(t.Name(), " ", "_"))
	}
	return "UNKNOWN_ERROR"
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
