package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
telegram:
  token: "file-token"
  admin_id: 42
logging:
  level: debug
database:
  name: contentbot
  user: bot
state:
  backend: Redis
  ttl: 30m
redis:
  url: redis://localhost:6379/0
required_channels:
  - id: -1001
    title: " News "
    invite_link: https://t.me/news
sender:
  max_retries: 5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	chdir(t, dir)
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, StateBackendRedis, cfg.State.Backend)
	assert.Equal(t, 30*time.Minute, cfg.State.TTL)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 5, cfg.Sender.MaxRetries)
	require.Len(t, cfg.RequiredChannels, 1)
	assert.Equal(t, "News", cfg.RequiredChannels[0].Title)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, sample)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("DB_HOST", "postgres")
	t.Setenv("STATE_TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "postgres", cfg.Database.Host)
	assert.Equal(t, 2*time.Hour, cfg.State.TTL)
}

func TestDotEnvIsApplied(t *testing.T) {
	path := writeConfig(t, sample)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("DB_NAME=from_dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DB_NAME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.Database.Name)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]string{
		"missing admin": `
telegram: {token: t}
database: {name: x}
`,
		"redis without url": `
telegram: {token: t, admin_id: 1}
database: {name: x}
state: {backend: redis}
`,
		"unknown backend": `
telegram: {token: t, admin_id: 1}
database: {name: x}
state: {backend: etcd}
`,
		"duplicate channel": `
telegram: {token: t, admin_id: 1}
database: {name: x}
required_channels: [{id: 5}, {id: 5}]
`,
		"missing db name": `
telegram: {token: t, admin_id: 1}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "telegram: {token: t, admin_id: 1}\ndatabase: {name: x}\n"))
	require.NoError(t, err)
	assert.Equal(t, StateBackendMemory, cfg.State.Backend)
	assert.Equal(t, time.Hour, cfg.State.TTL)
	assert.Equal(t, 3, cfg.Sender.MaxRetries)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}
