package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type BotConfig struct {
	WSURL             string        `env:"WS_URL" envDefault:"ws://localhost:3000/ws"`
	Seed              int64         `env:"BOT_SEED" envDefault:"0"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"15s"`
	ShotDelay         time.Duration `env:"BOT_SHOT_DELAY" envDefault:"300ms"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
