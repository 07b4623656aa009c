// Package config loads the pipeline configuration from a YAML file, .env
// files and environment variables.
//
// Values are resolved in this order, later sources winning:
//
//  1. built-in defaults
//  2. the YAML file, when one is given and exists
//  3. variables named by `env` struct tags, after .env files are loaded
//
// .env loading: ENV_FILE if set, otherwise .env.local then .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/database"
	"hn-post-classifier/internal/splitter"
	"hn-post-classifier/internal/tokenize"
	"hn-post-classifier/pkg/logger"
)

// DefaultPath is used when neither a flag nor CONFIG_PATH names a file.
const DefaultPath = "config.yml"

type Config struct {
	Database  database.Config `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Logging   logger.Config   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type CacheConfig struct {
	Dir string `yaml:"dir" env:"CACHE_DIR"`
}

// PipelineConfig controls the split and the optional explicit undersample.
// When UndersampleBand is empty the largest band is reduced automatically.
type PipelineConfig struct {
	Split               splitter.Options `yaml:"split"`
	UndersampleBand     string           `yaml:"undersample_band" env:"UNDERSAMPLE_BAND"`
	UndersampleN        int              `yaml:"undersample_n" env:"UNDERSAMPLE_N"`
	UndersampleFraction float64          `yaml:"undersample_fraction" env:"UNDERSAMPLE_FRACTION"`
	SkipUndersample     bool             `yaml:"skip_undersample" env:"SKIP_UNDERSAMPLE"`
}

type TokenizerConfig struct {
	BlockSize int `yaml:"block_size" env:"TOKENIZER_BLOCK_SIZE"`
	VocabSize int `yaml:"vocab_size" env:"TOKENIZER_VOCAB_SIZE"`
}

type IngestConfig struct {
	BaseURL     string        `yaml:"base_url" env:"INGEST_BASE_URL"`
	Listing     string        `yaml:"listing" env:"INGEST_LISTING"`
	Pages       int           `yaml:"pages" env:"INGEST_PAGES"`
	Concurrency int           `yaml:"concurrency" env:"INGEST_CONCURRENCY"`
	Timeout     time.Duration `yaml:"timeout" env:"INGEST_TIMEOUT"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the batch metrics after each command.
	Textfile string `yaml:"textfile" env:"METRICS_TEXTFILE"`
}

// Default returns a config usable against the local development database.
func Default() Config {
	return Config{
		Database: database.Config{
			Host:     "localhost",
			Port:     database.DefaultPort,
			Username: "postgres",
			Password: "password",
			DBName:   "hn_db",
			SSLMode:  database.DefaultSSLMode,
		},
		Cache:    CacheConfig{Dir: cache.DefaultDir},
		Pipeline: PipelineConfig{Split: splitter.DefaultOptions()},
		Tokenizer: TokenizerConfig{
			BlockSize: tokenize.DefaultMaxLen,
			VocabSize: 30000,
		},
		Ingest: IngestConfig{
			BaseURL:     "https://news.ycombinator.com",
			Listing:     "newest",
			Pages:       5,
			Concurrency: 2,
			Timeout:     15 * time.Second,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: logger.Config{Level: "info"},
	}
}

// Path returns CONFIG_PATH when set, otherwise fallback.
func Path(fallback string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return fallback
}

// Load builds the configuration. A missing file at path is not an error;
// an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	// godotenv.Load never overrides variables already set, so .env.local
	// wins over .env by going first.
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
