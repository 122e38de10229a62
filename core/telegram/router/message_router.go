package router

import (
	"strings"

	tg "github.com/m3rciful/contentbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions holds the handlers for non-command messages. A nil Text
// falls back to the registry's text handler.
type MessageOptions struct {
	Text            tele.HandlerFunc
	Photo           tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// MessageRoutes builds the text, photo and document routes. Slash-prefixed
// text naming a registered command (with or without @botname) is dispatched
// to that command.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	text := func(c tele.Context) error {
		if fields := strings.Fields(c.Text()); reg != nil && len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
			if name, cmd, ok := reg.LookupCommand(fields[0]); ok && cmd.Handler != nil {
				return newDispatch(name).run(c, cmd.Handler)
			}
		}
		h := opts.Text
		if h == nil && reg != nil {
			h = reg.TextFallback()
		}
		return dispatchOrSkip(c, "message.text", "unknown_text", h)
	}
	photo := func(c tele.Context) error {
		return dispatchOrSkip(c, "message.photo", "unexpected_photo", opts.Photo)
	}
	doc := func(c tele.Context) error {
		return dispatchOrSkip(c, "message.document", "unexpected_document", opts.UnknownDocument)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnPhoto, Handler: wrap(photo)},
		{Endpoint: tele.OnDocument, Handler: wrap(doc)},
	}
}

func dispatchOrSkip(c tele.Context, name, skipName string, h tele.HandlerFunc) error {
	if h == nil {
		return newDispatch(skipName).skip(c)
	}
	return newDispatch(name).run(c, h)
}
