// Package logger provides the structured slog setup shared by every component:
// kv or JSON lines with a fixed key order, an async writer, debug sampling and
// correlation metadata carried in the context.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/geopal/core/buildinfo"
	coreconfig "github.com/m3rciful/geopal/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	writer  *asyncWriter
	closers []io.Closer

	levelVar     slog.LevelVar
	debugSampler = newRatioSampler(0, 0)
	traceAll     bool

	// L is the base logger. Prefer the helpers below.
	L *slog.Logger
)

// settings is the resolved logging configuration.
type settings struct {
	format   logFormat
	order    []string
	level    slog.Level
	num, den int
	profile  string
	file     string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:  formatJSON,
		order:   append([]string(nil), defaultKeyOrder...),
		level:   slog.LevelInfo,
		profile: "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if num, den, ok := parseRatio(lc.DebugSample); ok {
		s.num, s.den = num, den
	}

	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

// InitLogger configures the global logger. Only the first call has effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.num, s.den)
		traceAll = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if f := openLogFile(s.file); f != nil {
			outputs = append(outputs, f)
			closers = append(closers, f)
		}
		writer = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   writer,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("cfg_profile", s.profile),
		)
	})
	return nil
}

// openLogFile opens path for appending. Failures are reported on the
// standard logger and leave stdout as the only output.
func openLogFile(path string) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("logger: failed to create log dir for %s: %v", path, err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return nil
	}
	return f
}

// Shutdown flushes buffered output and closes file sinks.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		var errs []error
		if writer != nil {
			errs = append(errs, writer.Flush(), writer.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// LogEvent logs attrs with the event attribute first. A nil logg falls back to
// the context logger and then to L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to a component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func logAt(ctx context.Context, component string, level slog.Level, event string, attrs []slog.Attr) {
	if L == nil || !L.Enabled(ctx, level) {
		return
	}
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelDebug, event, attrs)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelInfo, event, attrs)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelWarn, event, attrs)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelError, event, attrs)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged. TRACE=1 lets every event through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
