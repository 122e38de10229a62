package tgbot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/contentbot/core/logger"
	tg "github.com/m3rciful/contentbot/core/telegram"
	"github.com/m3rciful/contentbot/core/telegram/callbacks"
	"github.com/m3rciful/contentbot/core/telegram/commands"
	"github.com/m3rciful/contentbot/core/telegram/helpers"
	"github.com/m3rciful/contentbot/core/telegram/router"
	"github.com/m3rciful/contentbot/internal/engine"

	tele "gopkg.in/telebot.v4"
)

// Engine is the inbound side the handlers feed.
type Engine interface {
	HandleStart(ctx context.Context, msg engine.Message)
	HandleAdmin(ctx context.Context, msg engine.Message)
	HandleMessage(ctx context.Context, msg engine.Message)
	HandleCallback(ctx context.Context, cb engine.Callback)
	CallbackKeys() []string
}

// Handlers adapts telebot contexts to engine events.
type Handlers struct {
	engine  Engine
	adminID int64
}

// NewHandlers binds eng.
func NewHandlers(eng Engine, adminID int64) *Handlers {
	return &Handlers{engine: eng, adminID: adminID}
}

// Register adds the commands and every engine callback key to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	if err := reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onStart,
		Description: "Start the bot",
	}); err != nil {
		return err
	}
	if err := reg.RegisterCommand("/admin", commands.Command{
		Handler:     h.onAdmin,
		Description: "Admin panel",
		AdminOnly:   true,
	}); err != nil {
		return err
	}
	for _, key := range h.engine.CallbackKeys() {
		if err := reg.RegisterCallback(key, h.onCallback); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.onCallback)
	reg.SetTextFallback(h.onMessage)
	return nil
}

// Routes returns the telebot routes for commands, callbacks and messages.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       h.adminID,
		OnAdminReject: h.onAdminReject,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Photo: h.onMessage,
	})...)
	return routes
}

func private(c tele.Context) bool {
	chat := c.Chat()
	return c.Sender() != nil && (chat == nil || chat.Type == tele.ChatPrivate)
}

func messageFrom(c tele.Context) engine.Message {
	msg := engine.Message{UserID: c.Sender().ID, FirstName: c.Sender().FirstName}
	if m := c.Message(); m != nil {
		msg.Text = m.Text
		if m.Photo != nil {
			msg.PhotoID = m.Photo.FileID
		}
	}
	return msg
}

func (h *Handlers) onStart(c tele.Context) error {
	if !private(c) {
		return nil
	}
	h.engine.HandleStart(helpers.WithHandler(c, "start"), messageFrom(c))
	return nil
}

func (h *Handlers) onAdmin(c tele.Context) error {
	if !private(c) {
		return nil
	}
	h.engine.HandleAdmin(helpers.WithHandler(c, "admin"), messageFrom(c))
	return nil
}

func (h *Handlers) onAdminReject(c tele.Context) error {
	var userID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	logger.Warn(helpers.BuildContext(c), "engine", "auth.denied",
		slog.Int64("user_id", userID),
		slog.String("op", "admin_command"),
	)
	return nil
}

func (h *Handlers) onMessage(c tele.Context) error {
	if !private(c) {
		return nil
	}
	h.engine.HandleMessage(helpers.WithHandler(c, "message"), messageFrom(c))
	return nil
}

func (h *Handlers) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}
	key, payload := callbacks.ParseCallbackData(cb)
	ev := engine.Callback{
		ID:      cb.ID,
		UserID:  cb.Sender.ID,
		Key:     key,
		Payload: payload,
		Message: refOf(cb.Message),
	}
	h.engine.HandleCallback(helpers.WithHandler(c, "callback."+key), ev)
	return nil
}
