// Package sender runs outbound Telegram API calls with bounded retries.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/metrics"
	"github.com/m3rciful/contentbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Options controls retries of a single call.
type Options struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// MaxDuration bounds the time spent on one call including retries.
	MaxDuration time.Duration
	Metrics     *metrics.Metrics
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor runs calls synchronously so callers see the final error and
// message ordering per chat is preserved.
type Executor struct {
	opts Options
}

// NewExecutor fills zero options with defaults.
func NewExecutor(opts Options) *Executor {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 30 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Executor{opts: opts}
}

// Do executes run, retrying transient failures. action and endpoint only
// label logs and metrics.
func (e *Executor) Do(ctx context.Context, action, endpoint string, run func(ctx context.Context) error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.MaxDuration)
	defer cancel()

	attrs := sendLogAttrs(ctx, action, endpoint)
	start := time.Now()
	attempts := e.opts.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := callCtx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		lastErr = run(callCtx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info(ctx, "tg.sender", "send.retry.success",
					append(attrs, slog.Int("attempts", attempt), slog.Int("elapsed_ms", durationToMS(time.Since(start))))...,
				)
			}
			e.opts.Metrics.ObserveSend(action, "ok")
			return nil
		}
		if attempt == attempts || !Retryable(lastErr) {
			break
		}
		delay := e.backoff(attempt, lastErr)
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(attrs,
				slog.Int("attempts", attempt),
				slog.Int("backoff_ms", durationToMS(delay)),
				slog.String("err_code", classifyError(lastErr)),
			)...,
		)
		e.opts.Metrics.ObserveRetry(action)
		if err := e.opts.Sleep(callCtx, delay); err != nil {
			break
		}
	}

	logger.Warn(ctx, "tg.sender", "send.fail",
		append(attrs,
			slog.String("err", sanitizeErrorMessage(lastErr)),
			slog.String("err_code", classifyError(lastErr)),
			slog.Int("elapsed_ms", durationToMS(time.Since(start))),
		)...,
	)
	e.opts.Metrics.ObserveSend(action, "fail")
	return lastErr
}

// Retryable reports whether err is a transient transport failure, a flood
// wait or a Telegram 5xx.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if netutil.ShouldRetry(err) {
		return true
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	return httpStatus(err) >= http.StatusInternalServerError
}

func (e *Executor) backoff(attempt int, err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	d := e.opts.BaseBackoff << (attempt - 1)
	if d <= 0 || d > e.opts.MaxBackoff {
		d = e.opts.MaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func sendLogAttrs(ctx context.Context, action, endpoint string) []slog.Attr {
	attrs := []slog.Attr{slog.String("op", action)}
	if endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", endpoint))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	if userID := logger.UserIDFrom(ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	return attrs
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}
