// Package config loads the contentbot configuration: the reusable core
// sections plus database, redis, state and required channels.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/contentbot/core/config"
	coredatabase "github.com/m3rciful/contentbot/core/database"
	"github.com/m3rciful/contentbot/core/telegram/state"
)

// State backends.
const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend string        `yaml:"backend" envconfig:"STATE_BACKEND"`
	TTL     time.Duration `yaml:"ttl" envconfig:"STATE_TTL"`
}

// ChannelConfig names one chat users must join.
type ChannelConfig struct {
	ID         int64  `yaml:"id"`
	Title      string `yaml:"title"`
	InviteLink string `yaml:"invite_link"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database         coredatabase.Config      `yaml:"database"`
	Redis            coredatabase.RedisConfig `yaml:"redis"`
	State            StateConfig              `yaml:"state"`
	RequiredChannels []ChannelConfig          `yaml:"required_channels" ignored:"true"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays .env and the environment, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	if backend == "" {
		backend = StateBackendMemory
	}
	switch backend {
	case StateBackendMemory:
	case StateBackendRedis:
		if strings.TrimSpace(cfg.Redis.URL) == "" {
			return fmt.Errorf("redis.url is required when state.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: memory, redis", cfg.State.Backend)
	}
	cfg.State.Backend = backend
	if cfg.State.TTL < 0 {
		return fmt.Errorf("state.ttl must be >= 0")
	}
	if cfg.State.TTL == 0 {
		cfg.State.TTL = state.DefaultTTL
	}

	seen := make(map[int64]struct{}, len(cfg.RequiredChannels))
	for i, ch := range cfg.RequiredChannels {
		if ch.ID == 0 {
			return fmt.Errorf("required_channels[%d].id is required", i)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("required_channels[%d]: duplicate id %d", i, ch.ID)
		}
		seen[ch.ID] = struct{}{}
		cfg.RequiredChannels[i].Title = strings.TrimSpace(ch.Title)
		cfg.RequiredChannels[i].InviteLink = strings.TrimSpace(ch.InviteLink)
	}
	return nil
}
