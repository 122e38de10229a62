package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/contentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// receipts remembers recently logged update ids so an update that passes
// through several wrapped routes is logged once.
type receipts struct {
	mu        sync.Mutex
	seen      map[int]time.Time
	ttl       time.Duration
	lastSweep time.Time
}

var updateReceipts = &receipts{seen: make(map[int]time.Time), ttl: 10 * time.Second}

// first reports whether id has not been seen within ttl and records it.
func (r *receipts) first(id int, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.lastSweep) >= r.ttl {
		for k, at := range r.seen {
			if now.Sub(at) > r.ttl {
				delete(r.seen, k)
			}
		}
		r.lastSweep = now
	}
	if at, ok := r.seen[id]; ok && now.Sub(at) <= r.ttl {
		return false
	}
	r.seen[id] = now
	return true
}

// LoggerMiddleware builds the update's logging context and emits one sampled
// update.received line per update id. Message text is never logged.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if logger.ShouldSampleDebug() && updateReceipts.first(upd.ID, time.Now()) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receiptAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.Int("update_id", upd.ID),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.Int64("chat_id", chat.ID), slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		attrs = append(attrs, slog.Int64("user_id", u.ID))
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
	}
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil && upd.Message.Photo != nil:
		attrs = append(attrs, slog.String("content_type", "photo"))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("content_type", "text"), slog.Int("len", len(upd.Message.Text)))
	}
	return attrs
}
