package middleware

import (
	"time"

	"github.com/m3rciful/contentbot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind names the update type for labels and rate-limit exclusions.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// UpdateMetricsMiddleware records one observation per update: kind, outcome
// and handling time.
func UpdateMetricsMiddleware(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			outcome := "ok"
			if err != nil {
				outcome = "fail"
			}
			m.ObserveUpdate(UpdateKind(c), outcome, time.Since(start))
			return err
		}
	}
}
