package config

import (
	"fmt"

	"hn-post-classifier/internal/classifier"
	"hn-post-classifier/internal/models"
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return &ValidationError{Field: "database.port", Message: "must be between 1 and 65535"}
	}
	if c.Cache.Dir == "" {
		return &ValidationError{Field: "cache.dir", Message: "is required"}
	}
	if err := c.Pipeline.validate(); err != nil {
		return err
	}
	// two positions go to the start and end markers
	if c.Tokenizer.BlockSize < 4 {
		return &ValidationError{Field: "tokenizer.block_size", Message: "must be at least 4"}
	}
	if c.Ingest.Pages < 1 {
		return &ValidationError{Field: "ingest.pages", Message: "must be positive"}
	}
	if c.Ingest.Concurrency < 1 {
		return &ValidationError{Field: "ingest.concurrency", Message: "must be positive"}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"}
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	s := p.Split
	if s.TestFraction <= 0 || s.TestFraction >= 1 {
		return &ValidationError{Field: "pipeline.split.test_fraction", Message: "must be in (0, 1)"}
	}
	if s.ValFraction <= 0 || s.ValFraction >= 1 {
		return &ValidationError{Field: "pipeline.split.val_fraction", Message: "must be in (0, 1)"}
	}
	if p.UndersampleBand == "" {
		return nil
	}
	known := false
	for _, b := range classifier.Bands() {
		if models.Band(p.UndersampleBand) == b {
			known = true
		}
	}
	if !known {
		return &ValidationError{Field: "pipeline.undersample_band", Message: fmt.Sprintf("unknown band %q", p.UndersampleBand)}
	}
	if p.UndersampleN <= 0 && (p.UndersampleFraction <= 0 || p.UndersampleFraction > 1) {
		return &ValidationError{Field: "pipeline.undersample_n", Message: "set a positive n or a fraction in (0, 1]"}
	}
	return nil
}
