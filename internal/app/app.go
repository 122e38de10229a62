// Package app assembles the bot: database, state backend, metrics, the
// conversation engine and its Telegram bindings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/contentbot/core/bootstrap"
	coredatabase "github.com/m3rciful/contentbot/core/database"
	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/metrics"
	coretelegram "github.com/m3rciful/contentbot/core/telegram"
	tgsender "github.com/m3rciful/contentbot/core/telegram/sender"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/config"
	"github.com/m3rciful/contentbot/internal/engine"
	"github.com/m3rciful/contentbot/internal/ledger"
	"github.com/m3rciful/contentbot/internal/tgbot"
	"github.com/m3rciful/contentbot/migrations"
)

// App owns the running infrastructure.
type App struct {
	cfg *config.Config
	db  *sqlx.DB
	rdb *redis.Client

	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	metricsSrv *metrics.Server

	exec      *tgsender.Executor
	messenger *tgbot.Messenger
	engine    *engine.Engine
	handlers  *tgbot.Handlers
}

// Bootstrap connects the database, applies migrations, seeds the required
// channels, opens the state backend and assembles the app.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Seeders:    []bootstrap.Seeder{ChannelSeeder(cfg.RequiredChannels)},
	})
	if err != nil {
		return nil, err
	}

	states, rdb, err := openStates(ctx, cfg)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	a, err := New(cfg, res.DB, states)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = res.DB.Close()
		return nil, err
	}
	a.rdb = rdb
	return a, nil
}

// ChannelSeeder replaces the stored membership-gate channels with chans.
func ChannelSeeder(chans []config.ChannelConfig) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		rows := make([]ledger.Channel, 0, len(chans))
		for _, c := range chans {
			rows = append(rows, ledger.Channel{ID: c.ID, Title: c.Title, InviteLink: c.InviteLink})
		}
		return ledger.New(db).ReplaceRequiredChannels(ctx, rows)
	})
}

func openStates(ctx context.Context, cfg *config.Config) (state.Manager, *redis.Client, error) {
	opts := state.Options{TTL: cfg.State.TTL}
	if cfg.State.Backend != config.StateBackendRedis {
		return state.NewMemoryManager(opts), nil, nil
	}
	rdb, err := coredatabase.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("app: state backend: %w", err)
	}
	return state.NewRedisManager(rdb, opts), rdb, nil
}

// New assembles the app on an open database and state manager. The bot API
// is bound when the runtime starts.
func New(cfg *config.Config, db *sqlx.DB, states state.Manager) (*App, error) {
	if cfg == nil || db == nil || states == nil {
		return nil, errors.New("app: config, db and states are required")
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	exec := tgsender.NewExecutor(tgsender.Options{
		MaxRetries:  cfg.Sender.MaxRetries,
		BaseBackoff: cfg.Sender.BaseBackoff,
		MaxBackoff:  cfg.Sender.MaxBackoff,
		MaxDuration: cfg.Sender.MaxDuration,
		Metrics:     m,
	})
	messenger := tgbot.NewMessenger(nil, exec)

	eng, err := engine.New(engine.Options{
		Store:     ledger.New(db),
		States:    states,
		Messenger: messenger,
		AdminID:   cfg.Telegram.AdminID,
		Metrics:   m,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		db:        db,
		registry:  reg,
		metrics:   m,
		exec:      exec,
		messenger: messenger,
		engine:    eng,
		handlers:  tgbot.NewHandlers(eng, cfg.Telegram.AdminID),
	}

	if cfg.Metrics.Listen != "" {
		srv, err := metrics.Listen(cfg.Metrics.Listen, reg)
		if err != nil {
			return nil, fmt.Errorf("app: metrics listen: %w", err)
		}
		a.metricsSrv = srv
	}
	return a, nil
}

// Engine exposes the conversation engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// TelegramRunOptions registers the handlers and describes the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Executor:    a.exec,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.metrics, nil),
		Routes:      a.handlers.Routes(reg),
		OnStart:     a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if rt.Bot == nil {
		return errors.New("app: runtime without bot")
	}
	a.messenger.Bind(rt.Bot)
	if a.metricsSrv != nil {
		a.metricsSrv.Start()
	}
	logger.Info(ctx, "app", "engine.ready",
		slog.Int64("admin_id", a.cfg.Telegram.AdminID),
		slog.String("state_backend", a.cfg.State.Backend),
		slog.Int("channels", len(a.cfg.RequiredChannels)),
	)
	return nil
}

// Close releases the metrics listener, redis and the database.
func (a *App) Close() error {
	var errs []error
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db: %w", err))
		}
	}
	return errors.Join(errs...)
}
