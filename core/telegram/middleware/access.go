package middleware

import (
	"log/slog"

	"github.com/m3rciful/contentbot/core/logger"
	tghelpers "github.com/m3rciful/contentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions names the single admin and what non-admins get instead.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware passes only updates sent by AdminID. With no admin
// configured nobody passes. Rejections are logged as auth.denied and routed
// to OnReject when set.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u != nil && opts.AdminID != 0 && u.ID == opts.AdminID {
				return next(c)
			}
			var uid int64
			if u != nil {
				uid = u.ID
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "auth.denied",
				slog.Int64("user_id", uid),
				slog.String("op", UpdateKind(c)),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
