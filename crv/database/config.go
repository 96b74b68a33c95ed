package database

import (
	"errors"

	"github.com/claimrecon/crv-app/conf"
	"github.com/claimrecon/crv-app/log"
)

type Config struct {
	MaxOpenConns       int `conf:"CRV_DB_MAX_OPEN_CONNS" conf_default:"40"`
	MaxIdleConns       int `conf:"CRV_DB_MAX_IDLE_CONNS" conf_default:"20"`
	ConnMaxLifetimeMin int `conf:"CRV_DB_CONN_MAX_LIFETIME_MIN" conf_default:"5"`
	ConnMaxIdleTime    int `conf:"CRV_DB_CONN_MAX_IDLE_TIME" conf_default:"30"`

	DatabaseURL string `conf:"DATABASE_URL"`
}

func LoadConfig() (cfg *Config, err error) {
	cfg = &Config{}
	if err := conf.Checkout(cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("invalid config, DatabaseURL must be set")
	}

	log.Validator.Info("Successfully loaded configuration for Database.")

	return cfg, nil
}
