// Package matchpush posts match start and end notices to a Discord webhook.
package matchpush

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"broadside/internal/config"
)

type Config struct {
	Enabled        bool
	DiscordWebhook string
	Workers        int
	RetryMax       int
	RetryBase      time.Duration
	RequestTimeout time.Duration
	QueueSize      int
}

var ErrMissingWebhook = errors.New("match push enabled without MATCH_PUSH_DISCORD_WEBHOOK")

func ConfigFromServer(cfg config.ServerConfig) (Config, error) {
	out := Config{
		Enabled:        cfg.MatchPushEnabled,
		DiscordWebhook: strings.TrimSpace(cfg.MatchPushDiscordWebhook),
		Workers:        1,
		RetryMax:       cfg.MatchPushRetryMax,
		RetryBase:      cfg.MatchPushRetryBase,
		RequestTimeout: 5 * time.Second,
		QueueSize:      256,
	}
	if !out.Enabled {
		return out, nil
	}
	if out.DiscordWebhook == "" {
		return Config{}, ErrMissingWebhook
	}
	if _, err := url.ParseRequestURI(out.DiscordWebhook); err != nil {
		return Config{}, err
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}
	if out.RetryBase <= 0 {
		out.RetryBase = 500 * time.Millisecond
	}
	return out, nil
}
