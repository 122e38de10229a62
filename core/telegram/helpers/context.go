// Package helpers carries the per-update logging context on telebot contexts.
package helpers

import (
	"context"

	"github.com/m3rciful/contentbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const storeKey = "log_ctx"

// BuildContext returns the logging context of the update: request id,
// update/user/chat ids and the tg component logger. It is built once per
// update and cached on c.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(storeKey).(context.Context); ok {
		return ctx
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	upd := c.Update()

	ctx := logger.WithRID(logger.Background(), logger.BuildRID(upd.ID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	c.Set(storeKey, ctx)
	return ctx
}

// WithHandler tags the update context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(storeKey, ctx)
	return ctx
}
