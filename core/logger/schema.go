package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var statusValues = set("ok", "fail", "skip", "retry", "partial", "rate_limited", "cancelled")

var cacheValues = set("hit", "miss")

// Outcomes cover handler summaries and friend request wizards.
var outcomeValues = set("ok", "fail", "cancelled", "rate_limited", "sent", "aborted", "superseded", "rejected")

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func lookup(values map[string]struct{}, raw string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return "", false
	}
	_, ok := values[v]
	return v, ok
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) { return lookup(statusValues, status) }

func normalizeCache(cache string) (string, bool) { return lookup(cacheValues, cache) }

func normalizeOutcome(outcome string) (string, bool) { return lookup(outcomeValues, outcome) }

// defaultKeyOrder leads every line; unlisted keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"route",
	"kind",
	"outcome",
	"duration_ms",
	"actor_id",
	"peer_id",
	"sender_id",
	"receiver_id",
	"initiator_id",
	"step",
	"delivered",
	"total",
	"page",
	"count",
	"cache",
	"payload",
	"action",
	"endpoint",
	"mode",
	"listen",
	"public_url",
	"host",
	"port",
	"db",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"attempt",
	"attempts",
}
