package config

import "github.com/caarlos0/env/v11"

// TestConfig drives integration tests that need a live Postgres.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	MigrationsDir   string `env:"TEST_MIGRATIONS_DIR" envDefault:"migrations"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
