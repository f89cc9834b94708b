package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	MySQLDSN  string `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/cargostorage?parseTime=true"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// Base lookup endpoints of the owning services; %s is the entity id.
	CargoLookupURL      string `env:"CARGO_LOOKUP_URL" envDefault:"http://localhost:8081/api/v1/cargo-types/%s"`
	SpacecraftLookupURL string `env:"SPACECRAFT_LOOKUP_URL" envDefault:"http://localhost:8082/api/v1/spacecraft/%s"`
	UserLookupURL       string `env:"USER_LOOKUP_URL" envDefault:"http://localhost:8083/api/v1/users/%s"`

	// ValidationTimeout bounds each remote existence check; on expiry the
	// answer is indeterminate, never "exists".
	ValidationTimeout time.Duration `env:"VALIDATION_TIMEOUT" envDefault:"3s"`

	WorkerCount   int `env:"WORKER_COUNT" envDefault:"4"`
	SyncQueueSize int `env:"SYNC_QUEUE_SIZE" envDefault:"1024"`

	LogMode      string `env:"LOG_MODE" envDefault:"dev"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
