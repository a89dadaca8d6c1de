package config

import "fmt"

// AppConfig is everything the relay server reads from the environment.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	var (
		cfg AppConfig
		err error
	)
	if cfg.Log, err = LoadLog(); err != nil {
		return AppConfig{}, fmt.Errorf("log config: %w", err)
	}
	if cfg.Server, err = LoadServer(); err != nil {
		return AppConfig{}, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}
