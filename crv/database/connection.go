// Package database manages the PostgreSQL connection pool shared by the
// repositories.
package database

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/stdlib"
)

// Connection opens a pgx-backed pool configured from the environment and
// verifies it with a ping.
func Connection() (*sql.DB, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return db, nil
}
