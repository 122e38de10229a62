package main

import (
	"context"
	"errors"
	"log"

	corecmd "github.com/m3rciful/contentbot/core/cmd"
	"github.com/m3rciful/contentbot/internal/app"
	"github.com/m3rciful/contentbot/internal/config"
)

var errUnexpectedConfig = errors.New("contentbot: unexpected config type")

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONTENTBOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			c, ok := cfg.(*config.Config)
			if !ok {
				return nil, errUnexpectedConfig
			}
			return app.Bootstrap(ctx, c)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
