package logger

import (
	"log/slog"
	"strings"
)

// levelName maps slog levels onto the four names the log pipeline indexes.
// Levels between the named ones round down.
func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

var outcomes = map[string]bool{"ok": true, "fail": true, "cancelled": true, "rate_limited": true}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeOutcome(o string) (string, bool) {
	o = strings.ToLower(strings.TrimSpace(o))
	return o, outcomes[o]
}

// defaultKeyOrder fixes the leading columns of every line; remaining keys
// follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "trace_id", "span_id", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "operation", "op", "cb_key",
	"outcome", "duration_ms", "count", "payload", "len", "username",
	"mode", "listen", "public_url", "http_code", "db", "host", "port",
	"submission_id", "target_user_id", "content_type", "approved_count",
	"fanout_id", "purpose", "state", "from_state", "to_state",
	"err", "err_code", "cause", "retryable", "attempts", "backoff_ms", "rate_limited",
	"total", "delivered", "failed",
}
