package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/contentbot/core/logger"
	tghelpers "github.com/m3rciful/contentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures the per-user rate limit.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds (see UpdateKind) that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	Now       func() time.Time
}

type lastSeen struct {
	mu    sync.Mutex
	seen  map[int64]time.Time
	sweep time.Time
}

// allow records now for userID and reports whether interval has passed since
// the previous accepted update. Entries older than interval are swept at most
// once per interval.
func (l *lastSeen) allow(userID int64, now time.Time, interval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.sweep) >= interval {
		for id, ts := range l.seen {
			if now.Sub(ts) >= interval {
				delete(l.seen, id)
			}
		}
		l.sweep = now
	}
	if last, ok := l.seen[userID]; ok && now.Sub(last) < interval {
		return false
	}
	l.seen[userID] = now
	return true
}

// RateLimitMiddleware drops updates arriving from the same user faster than
// opts.Interval. A dropped callback is still answered so the client stops
// waiting.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	users := &lastSeen{seen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if users.allow(user.ID, now(), opts.Interval) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.Int64("user_id", user.ID),
				slog.String("kind", kind),
			)
			if kind == "callback" {
				_ = c.Respond()
			}
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
