// Package database holds the Postgres connection and the posts repository.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"hn-post-classifier/pkg/logger"
)

const (
	DefaultPort    = 54320
	DefaultSSLMode = "disable"
	pingTimeout    = 5 * time.Second
)

// Config holds connection parameters. There is no package-level default;
// callers pass it explicitly.
type Config struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Username string `yaml:"username" env:"DB_USERNAME"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
}

func (c Config) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = DefaultSSLMode
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, sslmode)
}

// Open connects and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg.DBName, err)
	}
	return db, nil
}

type connector func(context.Context, Config) (*sqlx.DB, error)

// WithConnection opens a connection, runs fn and closes the connection on
// every exit path, panics included. Connection failures are logged and
// returned.
func WithConnection(ctx context.Context, cfg Config, log *logger.Logger, fn func(*sqlx.DB) error) error {
	return withConnector(ctx, Open, cfg, log, fn)
}

func withConnector(ctx context.Context, open connector, cfg Config, log *logger.Logger, fn func(*sqlx.DB) error) error {
	if log == nil {
		log = logger.NewNop()
	}
	log.Infof("creating connection to %s...", cfg.DBName)
	db, err := open(ctx, cfg)
	if err != nil {
		log.Errorf("could not connect to database, please ensure the database container is up and running: %v", err)
		return err
	}
	log.Infof("successfully connected")
	defer func() {
		log.Infof("closing DB connection")
		if cerr := db.Close(); cerr != nil {
			log.Warnf("close database: %v", cerr)
		}
	}()
	return fn(db)
}
