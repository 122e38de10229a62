package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/contentbot/core/config"
	coredatabase "github.com/m3rciful/contentbot/core/database"
	"github.com/m3rciful/contentbot/core/logger"
	coretelegram "github.com/m3rciful/contentbot/core/telegram"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/config"
	"github.com/m3rciful/contentbot/internal/engine"
	"github.com/m3rciful/contentbot/internal/ledger"
	"github.com/m3rciful/contentbot/internal/ledger/ledgertest"

	tele "gopkg.in/telebot.v4"
)

func init() {
	_ = logger.InitLogger(nil)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telegram = coreconfig.TelegramConfig{Token: "t", AdminID: 9000, RunMode: coreconfig.RunModeLongpoll}
	cfg.State = config.StateConfig{Backend: config.StateBackendMemory, TTL: time.Hour}
	return cfg
}

func TestChannelSeeder(t *testing.T) {
	db := ledgertest.NewDB(t)
	store := ledger.New(db)
	require.NoError(t, store.ReplaceRequiredChannels(context.Background(), []ledger.Channel{{ID: -5, Title: "old"}}))

	seed := ChannelSeeder([]config.ChannelConfig{
		{ID: -1001, Title: "News", InviteLink: "https://t.me/news"},
		{ID: -1002, Title: "Chat"},
	})
	require.NoError(t, seed.Seed(context.Background(), db))

	chans, err := store.RequiredChannels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.Channel{
		{ID: -1002, Title: "Chat"},
		{ID: -1001, Title: "News", InviteLink: "https://t.me/news"},
	}, chans)
}

func TestOpenStatesMemory(t *testing.T) {
	states, rdb, err := openStates(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Nil(t, rdb)
	assert.NotNil(t, states)
}

func TestOpenStatesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.State.Backend = config.StateBackendRedis
	cfg.Redis = coredatabase.RedisConfig{URL: "redis://" + mr.Addr() + "/0"}

	states, rdb, err := openStates(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	require.NoError(t, states.SetState(ctx, 7, engine.StateContent, nil))
	assert.True(t, mr.Exists("fsm:7"))
	st, err := states.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, engine.StateContent, st)
}

func TestOpenStatesRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.State.Backend = config.StateBackendRedis
	cfg.Redis = coredatabase.RedisConfig{URL: "redis://127.0.0.1:1/0"}

	_, _, err := openStates(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.Telegram.AdminID = 0
	_, err := New(cfg, ledgertest.NewDB(t), state.NewMemoryManager(state.Options{}))
	assert.Error(t, err)
}

func TestRunOptionsBindBotOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics = coreconfig.MetricsConfig{Listen: "127.0.0.1:0"}
	a, err := New(cfg, ledgertest.NewDB(t), state.NewMemoryManager(state.Options{}))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, &cfg.Config, opts.Config)
	assert.NotEmpty(t, opts.Routes)
	assert.NotEmpty(t, opts.Middlewares)
	assert.ElementsMatch(t, a.Engine().CallbackKeys(), opts.Registry.ListCallbacks())

	// Sends fail until the runtime binds the bot.
	_, err = a.messenger.Send(context.Background(), 1, "x", nil)
	assert.Error(t, err)

	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	require.NoError(t, opts.OnStart(context.Background(), coretelegram.Runtime{Bot: bot, Registry: opts.Registry}))
	assert.Error(t, opts.OnStart(context.Background(), coretelegram.Runtime{}))
}
