package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

const insertProgressEvery = 100000

type PostRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

func NewPostRepository(db *sqlx.DB, l *logger.Logger) *PostRepository {
	if l == nil {
		l = logger.NewNop()
	}
	return &PostRepository{db: db, log: l}
}

type postRow struct {
	ID        int64          `db:"id"`
	Title     sql.NullString `db:"title"`
	URL       sql.NullString `db:"url"`
	Score     sql.NullInt64  `db:"score"`
	Timestamp sql.NullTime   `db:"timestamp"`
	Type      sql.NullString `db:"type"`
}

func (r postRow) post() models.Post {
	url := r.URL.String
	if !r.URL.Valid || url == "" || url == "None" {
		url = models.EmptyURL
	}
	return models.Post{
		ID:        r.ID,
		Title:     r.Title.String,
		URL:       url,
		Score:     int(r.Score.Int64),
		Timestamp: r.Timestamp.Time,
		Type:      r.Type.String,
	}
}

// FetchAll reads the whole posts table. Columns this package does not know
// about are ignored.
func (r *PostRepository) FetchAll(ctx context.Context) ([]models.Post, error) {
	var rows []postRow
	if err := r.db.Unsafe().SelectContext(ctx, &rows, `SELECT * FROM posts`); err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	posts := make([]models.Post, len(rows))
	for i, row := range rows {
		posts[i] = row.post()
	}
	r.log.Infof("retrieved %d posts from database", len(posts))
	return posts, nil
}

func (r *PostRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// EnsureTable creates the posts table when it does not exist yet.
func (r *PostRepository) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS posts (
		id BIGINT PRIMARY KEY,
		title TEXT,
		url TEXT,
		type TEXT,
		score INT,
		timestamp TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

// InsertNew inserts posts whose id is not stored yet, in one transaction,
// and returns how many rows were added.
func (r *PostRepository) InsertNew(ctx context.Context, posts []models.Post) (inserted int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO posts (id, title, url, type, score, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range posts {
		if i > 0 && i%insertProgressEvery == 0 {
			r.log.Infof("%d rows processed so far", i)
		}
		res, err := stmt.ExecContext(ctx, p.ID, p.Title, p.URL, p.Type, p.Score, p.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("insert post %d: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert post %d: %w", p.ID, err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}
