package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":3000"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	GracePeriod       time.Duration `env:"GRACE_PERIOD" envDefault:"60s"`
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"120s"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	SessionTimeout    time.Duration `env:"SESSION_TIMEOUT" envDefault:"30m"`
	TurnHistoryWindow int           `env:"TURN_HISTORY_WINDOW" envDefault:"5"`
	FirstMover        string        `env:"FIRST_MOVER" envDefault:"fixed"`

	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"25s"`
	WSPongWait     time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`

	MatchPushEnabled        bool          `env:"MATCH_PUSH_ENABLED" envDefault:"false"`
	MatchPushDiscordWebhook string        `env:"MATCH_PUSH_DISCORD_WEBHOOK"`
	MatchPushRetryMax       int           `env:"MATCH_PUSH_RETRY_MAX" envDefault:"3"`
	MatchPushRetryBase      time.Duration `env:"MATCH_PUSH_RETRY_BASE" envDefault:"500ms"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// IsProduction reports whether debug-only surfaces must stay hidden.
func (c ServerConfig) IsProduction() bool {
	return c.AppEnv == "production"
}
