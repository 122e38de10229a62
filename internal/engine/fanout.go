package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/metrics"
)

// Report summarizes one fan-out run.
type Report struct {
	Total     int
	Delivered int
	Failed    int
}

// Fanout delivers one notification to many users sequentially. A failed
// recipient is logged and counted; the run always reaches the end.
type Fanout struct {
	metrics *metrics.Metrics
}

// NewFanout returns a Fanout reporting to m (nil disables metrics).
func NewFanout(m *metrics.Metrics) *Fanout {
	return &Fanout{metrics: m}
}

// Deliver calls send once per recipient.
func (f *Fanout) Deliver(ctx context.Context, purpose string, recipients []int64, send func(ctx context.Context, to int64) error) Report {
	id := uuid.NewString()
	start := time.Now()
	// Sender retry logs of this run carry the id as span_id.
	ctx = logger.WithTrace(ctx, "", id)
	rep := Report{Total: len(recipients)}

	logger.LogEvent(ctx, logger.Component("fanout"), slog.LevelInfo, "fanout.start",
		slog.String("fanout_id", id),
		slog.String("purpose", purpose),
		slog.Int("total", rep.Total),
	)
	for _, to := range recipients {
		err := send(ctx, to)
		f.metrics.ObserveDelivery(purpose, err == nil)
		if err != nil {
			rep.Failed++
			logger.LogEvent(ctx, logger.Component("fanout"), slog.LevelWarn, "fanout.failed",
				slog.String("fanout_id", id),
				slog.Int64("target_user_id", to),
				slog.String("err", err.Error()),
			)
			continue
		}
		rep.Delivered++
	}
	logger.LogEvent(ctx, logger.Component("fanout"), slog.LevelInfo, "fanout.done",
		slog.String("fanout_id", id),
		slog.String("purpose", purpose),
		slog.Int("total", rep.Total),
		slog.Int("delivered", rep.Delivered),
		slog.Int("failed", rep.Failed),
		slog.Duration("duration", logger.Took(start)),
	)
	return rep
}
