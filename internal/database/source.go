package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

// Source reads posts through a connection that lives only as long as one
// FetchAll call.
type Source struct {
	cfg Config
	log *logger.Logger
}

func NewSource(cfg Config, l *logger.Logger) *Source {
	return &Source{cfg: cfg, log: l}
}

func (s *Source) FetchAll(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := WithConnection(ctx, s.cfg, s.log, func(db *sqlx.DB) error {
		repo := NewPostRepository(db, s.log)
		var err error
		posts, err = repo.FetchAll(ctx)
		return err
	})
	return posts, err
}

// Store writes posts through a scoped connection, creating the table when
// it is missing, and returns how many were new.
func (s *Source) Store(ctx context.Context, posts []models.Post) (int, error) {
	var inserted int
	err := WithConnection(ctx, s.cfg, s.log, func(db *sqlx.DB) error {
		repo := NewPostRepository(db, s.log)
		if err := repo.EnsureTable(ctx); err != nil {
			return err
		}
		var err error
		inserted, err = repo.InsertNew(ctx, posts)
		return err
	})
	return inserted, err
}

// Count returns the number of stored posts.
func (s *Source) Count(ctx context.Context) (int, error) {
	var n int
	err := WithConnection(ctx, s.cfg, s.log, func(db *sqlx.DB) error {
		var err error
		n, err = NewPostRepository(db, s.log).Count(ctx)
		return err
	})
	return n, err
}
