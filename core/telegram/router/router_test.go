package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/contentbot/core/telegram"
	"github.com/m3rciful/contentbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func textFrom(bot *tele.Bot, userID int64, text string) tele.Context {
	return bot.NewContext(tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}})
}

func byEndpoint(routes []tg.Route) map[any]tele.HandlerFunc {
	out := make(map[any]tele.HandlerFunc, len(routes))
	for _, r := range routes {
		out[r.Endpoint] = r.Handler
	}
	return out
}

func TestCommandRoutesOrderAndAdminGate(t *testing.T) {
	bot := newBot(t)
	reg := tg.NewRegistry()
	var started, adminRan, rejected int
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler: func(tele.Context) error { started++; return nil }, Description: "Start",
	}))
	require.NoError(t, reg.RegisterCommand("/admin", commands.Command{
		Handler: func(tele.Context) error { adminRan++; return nil }, Description: "Admin", AdminOnly: true,
	}))

	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID:       7,
		OnAdminReject: func(tele.Context) error { rejected++; return nil },
	})
	require.Len(t, routes, 2)
	assert.Equal(t, "/admin", routes[0].Endpoint)
	assert.Equal(t, "/start", routes[1].Endpoint)

	h := byEndpoint(routes)
	require.NoError(t, h["/admin"](textFrom(bot, 8, "/admin")))
	require.NoError(t, h["/admin"](textFrom(bot, 7, "/admin")))
	require.NoError(t, h["/start"](textFrom(bot, 8, "/start")))
	assert.Equal(t, 1, adminRan)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, started)

	assert.Nil(t, CommandRoutes(nil, CommandRouteOptions{}))
}

func TestMessageRoutesDispatch(t *testing.T) {
	bot := newBot(t)
	reg := tg.NewRegistry()
	var started, texts, photos int
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler: func(tele.Context) error { started++; return nil }, Description: "Start",
	}))
	reg.SetTextFallback(func(tele.Context) error { texts++; return nil })

	h := byEndpoint(MessageRoutes(reg, MessageOptions{
		Photo: func(tele.Context) error { photos++; return nil },
	}))
	require.NoError(t, h[tele.OnText](textFrom(bot, 1, "/start@ContentBot ref")))
	require.NoError(t, h[tele.OnText](textFrom(bot, 1, "hello")))
	require.NoError(t, h[tele.OnText](textFrom(bot, 1, "/unknown")))
	require.NoError(t, h[tele.OnText](textFrom(bot, 1, "")))
	require.NoError(t, h[tele.OnPhoto](textFrom(bot, 1, "")))
	require.NoError(t, h[tele.OnDocument](textFrom(bot, 1, "")))

	assert.Equal(t, 1, started)
	assert.Equal(t, 3, texts)
	assert.Equal(t, 1, photos)
}

func TestMessageRoutesPropagateErrors(t *testing.T) {
	bot := newBot(t)
	boom := errors.New("boom")
	h := byEndpoint(MessageRoutes(nil, MessageOptions{
		Text: func(tele.Context) error { return boom },
	}))
	assert.ErrorIs(t, h[tele.OnText](textFrom(bot, 1, "hi")), boom)
}

func TestCallbackRoute(t *testing.T) {
	bot := newBot(t)
	reg := tg.NewRegistry()
	var approved, missing int
	require.NoError(t, reg.RegisterCallback("approve", func(c tele.Context) error {
		approved++
		return nil
	}))
	reg.SetCallbackNotFound(func(tele.Context) error { missing++; return nil })

	route := CallbackRoute(reg, CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	cb := func(data string) tele.Context {
		return bot.NewContext(tele.Update{ID: 2, Callback: &tele.Callback{
			ID:     "cb",
			Sender: &tele.User{ID: 1},
			Data:   data,
		}})
	}
	require.NoError(t, route.Handler(cb("\fapprove|42")))
	require.NoError(t, route.Handler(cb("\fgone|1")))
	require.NoError(t, route.Handler(bot.NewContext(tele.Update{ID: 3})))
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, missing)
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "rate limited" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "RATE_LIMITED", errorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "PLAINERR", errorCode(&plainErr{}))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "start", handlerName(" /Start "))
	assert.Equal(t, "callback.set_channel", handlerName("callback.set channel"))
	assert.Equal(t, "unknown", handlerName(""))
}
