package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/contentbot/core/config"
	"github.com/m3rciful/contentbot/core/logger"
	tgsender "github.com/m3rciful/contentbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to any endpoint tele.Bot.Handle accepts.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls Build and RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Executor wraps every Bot API call; built from SenderOptions when nil.
	SenderOptions tgsender.Options
	Executor      *tgsender.Executor

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool
	// Offline skips getMe and every startup API call; used by tests.
	Offline bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Executor *tgsender.Executor
	Registry *Registry
}

// Build creates the bot, installs middlewares and routes, and in polling
// mode clears any leftover webhook before publishing the command menu.
func Build(ctx context.Context, opts RunOptions) (Runtime, error) {
	if opts.Config == nil {
		return Runtime{}, errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	rt := Runtime{Registry: opts.Registry, Executor: opts.Executor}
	if rt.Registry == nil {
		rt.Registry = NewRegistry()
	}
	if rt.Executor == nil {
		rt.Executor = tgsender.NewExecutor(opts.SenderOptions)
	}

	poller := BuildPoller(cfg)
	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(longPollTimeout(cfg)),
		Offline: opts.Offline,
		OnError: func(err error, c tele.Context) {
			var updateID int
			if c != nil {
				updateID = c.Update().ID
			}
			logger.Error(ctx, "tg", "tg.error", slog.Int("update_id", updateID), slog.String("err", err.Error()))
		},
	})
	if err != nil {
		return Runtime{}, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	rt.Bot = bot

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}

	mode := []slog.Attr{slog.Duration("duration", logger.Took(start))}
	if wh, ok := poller.(*tele.Webhook); ok {
		mode = append(mode,
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		mode = append(mode,
			slog.String("mode", "polling"),
			slog.Duration("timeout", longPollTimeout(cfg)),
		)
	}
	logger.Info(ctx, "tg", "tg.mode", mode...)

	if opts.Offline {
		return rt, nil
	}
	if _, polling := poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup {
		err := rt.Executor.Do(ctx, "delete_webhook", "deleteWebhook", func(context.Context) error {
			return bot.RemoveWebhook()
		})
		if err != nil {
			logger.Warn(ctx, "tg", "tg.delete_webhook", slog.String("err", err.Error()))
		}
	}
	InitBotCommands(ctx, bot, rt.Registry, rt.Executor)
	return rt, nil
}

// RunTelegram builds the bot and serves updates until ctx is done. OnStop
// runs with a non-cancelled context; cancellation itself is not an error.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, rt.Bot)
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}
