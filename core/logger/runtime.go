package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyHandler
	keyTrace
)

// updateMeta identifies the Telegram update a log line belongs to.
type updateMeta struct {
	updateID       int
	userID, chatID int64
}

type traceMeta struct {
	traceID, spanID string
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func with(ctx context.Context, key ctxKey, v any) context.Context {
	return context.WithValue(orBackground(ctx), key, v)
}

func lookup[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}

// WithLogger binds log to ctx; a nil logger leaves ctx unchanged.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		return orBackground(ctx)
	}
	return with(ctx, keyLogger, log)
}

// FromContext returns the logger bound to ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l := lookup[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return with(ctx, keyRID, rid)
}

func RIDFrom(ctx context.Context) string { return lookup[string](ctx, keyRID) }

// WithUpdateMeta attaches the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return with(ctx, keyUpdate, updateMeta{updateID: updateID, userID: userID, chatID: chatID})
}

func UpdateIDFrom(ctx context.Context) int { return lookup[updateMeta](ctx, keyUpdate).updateID }
func UserIDFrom(ctx context.Context) int64 { return lookup[updateMeta](ctx, keyUpdate).userID }
func ChatIDFrom(ctx context.Context) int64 { return lookup[updateMeta](ctx, keyUpdate).chatID }
func HandlerFrom(ctx context.Context) string { return lookup[string](ctx, keyHandler) }

// WithHandler names the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return orBackground(ctx)
	}
	return with(ctx, keyHandler, handler)
}

// WithTrace sets trace and span ids. Empty arguments keep the current value,
// so a fan-out run can open a span under an existing trace.
func WithTrace(ctx context.Context, traceID, spanID string) context.Context {
	cur := lookup[traceMeta](ctx, keyTrace)
	if traceID != "" {
		cur.traceID = traceID
	}
	if spanID != "" {
		cur.spanID = spanID
	}
	return with(ctx, keyTrace, cur)
}

func TraceIDFrom(ctx context.Context) string { return lookup[traceMeta](ctx, keyTrace).traceID }
func SpanIDFrom(ctx context.Context) string { return lookup[traceMeta](ctx, keyTrace).spanID }

// SanitizeLimit drops control and format runes (keeping tab and newline)
// and truncates the result to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(min(len(s), max*utf8Max))
	n := 0
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

const utf8Max = 4

// BuildRID formats the correlation id as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID re-encodes each RID segment in base36 joined by dots. Input
// that is not a three-part numeric RID is returned trimmed but unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
