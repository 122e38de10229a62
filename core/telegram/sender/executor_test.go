package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/contentbot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestExecutorRetriesTransient(t *testing.T) {
	var delays []time.Duration
	e := NewExecutor(Options{MaxRetries: 3, BaseBackoff: time.Second, MaxBackoff: 3 * time.Second, Sleep: noSleep(&delays)})

	calls := 0
	err := e.Do(context.Background(), "send", "sendMessage", func(context.Context) error {
		calls++
		if calls < 4 {
			return &net.OpError{Op: "dial", Err: timeoutErr{}}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, delays)
}

func TestExecutorStopsOnPermanentError(t *testing.T) {
	var delays []time.Duration
	e := NewExecutor(Options{MaxRetries: 5, Sleep: noSleep(&delays)})

	blocked := errors.New("telegram: Forbidden: bot was blocked by the user (403)")
	calls := 0
	err := e.Do(context.Background(), "send", "", func(context.Context) error {
		calls++
		return blocked
	})
	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestExecutorGivesUpAfterMaxRetries(t *testing.T) {
	var delays []time.Duration
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	e := NewExecutor(Options{MaxRetries: 2, BaseBackoff: time.Second, MaxBackoff: 10 * time.Second, Metrics: m, Sleep: noSleep(&delays)})

	calls := 0
	err = e.Do(context.Background(), "send", "", func(context.Context) error {
		calls++
		return errors.New("telegram: Bad Gateway (502)")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)

	n, err := testutil.GatherAndCount(reg, "contentbot_telegram_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExecutorHonoursCancelledContext(t *testing.T) {
	e := NewExecutor(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := e.Do(ctx, "send", "", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.True(t, Retryable(tele.FloodError{RetryAfter: 1}))
	assert.True(t, Retryable(errors.New("telegram: Internal Server Error (500)")))
	assert.False(t, Retryable(errors.New("telegram: Bad Request: chat not found (400)")))
}

func TestSanitizeAndClassify(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": dial tcp: i/o timeout`)
	assert.NotContains(t, sanitizeErrorMessage(err), "123:ABC")
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: Forbidden (403)")))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: Bad Gateway (502)")))
	assert.Equal(t, "blocked", classifyError(fmt.Errorf("send: %w", tele.ErrBlockedByUser)))
	assert.Equal(t, "chat_not_found", classifyError(tele.ErrChatNotFound))
	assert.Equal(t, "rate_limited", classifyError(tele.FloodError{RetryAfter: 3}))
	assert.Equal(t, "unknown", classifyError(errors.New("odd (x)")))
	assert.Equal(t, 0, httpStatus(errors.New("no code")))
}
