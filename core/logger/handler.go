package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as one kv or JSON line with a stable key
// order and the context metadata merged in.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}

	asJSON := h.cfg.format == formatJSON
	e := make(entry, 16)
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = normalizeLevel(r.Level.String())
	if asJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		e.addAttr(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.addAttr(prefix, a)
		return true
	})
	MetaFrom(ctx).fill(e)

	e.compactRID(asJSON)
	e.setDefault("event", r.Message)
	e.setDefault("event", "unknown")
	e.setDefault("component", "app")
	e.normalize()
	e.prune()

	line, err := e.encode(h.cfg.format, h.cfg.keyOrder)
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// entry holds the flattened fields of one log line.
type entry map[string]any

// setDefault sets key unless it is present or v is a zero string or number.
func (e entry) setDefault(key string, v any) {
	if _, ok := e[key]; ok {
		return
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return
		}
	case int:
		if x == 0 {
			return
		}
	case int64:
		if x == 0 {
			return
		}
	}
	e[key] = v
}

func (e entry) str(key string) (string, bool) {
	v, ok := e[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (e entry) addAttr(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			e.addAttr(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := fieldValue(key, v); ok {
		e[k] = val
	}
}

// compactRID shortens rid; JSON lines keep the raw value in rid_full.
func (e entry) compactRID(keepFull bool) {
	rid, ok := e.str("rid")
	if !ok || rid == "" {
		return
	}
	compact := CompactRID(rid)
	if compact == rid {
		return
	}
	if keepFull {
		e.setDefault("rid_full", rid)
	}
	e["rid"] = compact
}

// normalize maps enumerated fields onto their canonical values. Unknown
// cache and outcome values are dropped; unknown statuses are kept as given.
func (e entry) normalize() {
	if s, ok := e.str("status"); ok && s != "" {
		if v, known := normalizeStatus(s); known {
			e["status"] = v
		}
	}
	e.keepKnown("cache", normalizeCache)
	e.keepKnown("outcome", normalizeOutcome)
}

func (e entry) keepKnown(key string, norm func(string) (string, bool)) {
	s, ok := e.str(key)
	if !ok || s == "" {
		return
	}
	if v, known := norm(s); known {
		e[key] = v
		return
	}
	delete(e, key)
}

func (e entry) prune() {
	for k, v := range e {
		switch x := v.(type) {
		case nil:
			delete(e, k)
		case string:
			if x == "" {
				delete(e, k)
			}
		}
	}
}

func fieldValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		k, ms := durationField(key, v.Duration())
		return k, ms, true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		k, ms := durationField(key, x)
		return k, ms, true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationField renders d in milliseconds under a key ending in _ms.
func durationField(key string, d time.Duration) (string, int64) {
	ms := RoundMS(d).Milliseconds()
	if !strings.HasSuffix(key, "_ms") {
		key += "_ms"
	}
	return key, ms
}
