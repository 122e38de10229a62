package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/contentbot/core/logger"
)

const (
	readinessWindow = 30 * time.Second
	dialTimeout     = 5 * time.Second
	redialEvery     = 2 * time.Second
	idleConnTTL     = 5 * time.Minute
)

// Connect opens the postgres pool, redialing until the server accepts
// connections, the readiness window closes or ctx is done.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, readinessWindow)
	defer cancel()

	target := []slog.Attr{
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
	start := time.Now()
	for attempt := 1; ; attempt++ {
		db, err := dial(ctx, cfg)
		if err == nil {
			configurePool(db, cfg)
			logger.Info(ctx, "db", "db.connect", append(target,
				slog.Int("attempts", attempt),
				slog.Int("pool_open", cfg.MaxConnections),
				slog.Duration("duration", logger.Took(start)),
			)...)
			return db, nil
		}

		select {
		case <-ctx.Done():
			logger.Error(ctx, "db", "db.connect", append(target,
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", err.Error()),
			)...)
			return nil, fmt.Errorf("db connect: %w", err)
		case <-time.After(redialEvery):
			logger.Debug(ctx, "db", "db.redial", slog.Int("attempts", attempt), slog.String("err", err.Error()))
		}
	}
}

func dial(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
}

func configurePool(db *sqlx.DB, cfg Config) {
	db.SetConnMaxIdleTime(idleConnTTL)
	if cfg.MaxConnections <= 0 {
		return
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(max(cfg.MaxConnections/2, 1))
}
