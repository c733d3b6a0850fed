package logger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func (e entry) encode(format logFormat, order []string) ([]byte, error) {
	keys := e.orderedKeys(order)
	if format == formatJSON {
		return e.encodeJSON(keys)
	}
	return e.encodeKV(keys), nil
}

// orderedKeys lists the keys named in order first, then the rest sorted.
func (e entry) orderedKeys(order []string) []string {
	keys := make([]string, 0, len(e))
	seen := make(map[string]struct{}, len(e))
	for _, k := range order {
		if _, ok := e[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	rest := make([]string, 0, len(e)-len(keys))
	for k := range e {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (e entry) encodeJSON(keys []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		data, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (e entry) encodeKV(keys []string) []byte {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(e[k]))
	}
	return []byte(b.String())
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
