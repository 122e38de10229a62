package database

import (
	"context"
	"net/url"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/contentbot/core/logger"
)

func init() {
	_ = logger.InitLogger(nil)
}

func TestConfigURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "content", SSLMode: "disable"}

	u, err := url.Parse(cfg.URL())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/content", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	assert.Contains(t, cfg.DSN(), "dbname=content")
}

func TestMigrationFileSelection(t *testing.T) {
	src := fstest.MapFS{
		"000002_details.up.sql":  {Data: []byte("--")},
		"000001_init.up.sql":     {Data: []byte("--")},
		"000001_init.down.sql":   {Data: []byte("--")},
		"000003_channels.up.sql": {Data: []byte("--")},
		"migrations.go":          {Data: []byte("package migrations")},
	}

	files := listMigrationFiles(src)
	assert.Equal(t, []string{"000001_init.up.sql", "000002_details.up.sql", "000003_channels.up.sql"}, files)

	assert.Equal(t, []string{"000002_details.up.sql", "000003_channels.up.sql"}, selectApplied(files, 1, 3))
	assert.Empty(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(2), parseVersion("000002_details.up.sql"))
	assert.Zero(t, parseVersion("garbage"))
}

func TestConnectRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.RequireAuth("secret")

	client, err := ConnectRedis(context.Background(), RedisConfig{URL: "redis://" + srv.Addr() + "/0", Password: "secret"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectRedisFailures(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{URL: "not a url"})
	require.Error(t, err)

	srv := miniredis.RunT(t)
	srv.RequireAuth("secret")
	_, err = ConnectRedis(context.Background(), RedisConfig{URL: "redis://" + srv.Addr()})
	require.Error(t, err)
}

func TestConnectStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Connect(ctx, Config{Host: "127.0.0.1", Port: "1", User: "u", Name: "n", SSLMode: "disable"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), redialEvery)
}

func TestConfigurePool(t *testing.T) {
	db, err := sqlx.Open("postgres", Config{Host: "127.0.0.1", Port: "1", SSLMode: "disable"}.DSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	configurePool(db, Config{MaxConnections: 8})
	assert.Equal(t, 8, db.Stats().MaxOpenConnections)

	configurePool(db, Config{})
	assert.Equal(t, 8, db.Stats().MaxOpenConnections)
}
