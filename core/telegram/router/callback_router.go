package router

import (
	"log/slog"

	tg "github.com/m3rciful/contentbot/core/telegram"
	"github.com/m3rciful/contentbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	// AutoRespond acks every callback before dispatch. Leave it off when
	// handlers answer themselves, e.g. to attach an alert.
	AutoRespond bool
}

// CallbackRoute returns a handler that routes callbacks through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		if opts.AutoRespond {
			_ = c.Respond()
		}

		if h, ok := reg.GetCallback(key); ok && h != nil {
			return newDispatch("callback."+key, slog.String("cb_key", key)).run(c, h)
		}

		d := newDispatch("callback."+key, slog.String("cb_key", key), slog.String("reason", "not_found"))
		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		if fallback == nil {
			return d.skip(c)
		}
		return d.run(c, fallback)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}
