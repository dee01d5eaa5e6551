// Package indexer copies users and posts from the store into the search index.
package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/search"
)

const batchSize = 500

// BulkIndexer is the write side of the search index.
type BulkIndexer interface {
	BulkIndex(ctx context.Context, index string, docs []search.Document) error
}

type userDoc struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
}

type postDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Syncer indexes every user and post row, deleted ones included, so the index sees deletions.
type Syncer struct {
	db    *sql.DB
	index BulkIndexer
}

// NewSyncer creates a new Syncer.
func NewSyncer(db *sql.DB, index BulkIndexer) *Syncer {
	return &Syncer{db: db, index: index}
}

// Sync pushes the current state of users and posts to the index.
func (s *Syncer) Sync(ctx context.Context) error {
	start := time.Now()

	users, err := s.syncTable(ctx, search.UsersIndex,
		"SELECT id, username, is_deleted, created_at FROM users ORDER BY id",
		func(rows *sql.Rows) (search.Document, error) {
			var d userDoc
			err := rows.Scan(&d.ID, &d.Username, &d.IsDeleted, &d.CreatedAt)
			return search.Document{ID: d.ID, Source: d}, err
		})
	if err != nil {
		return err
	}

	posts, err := s.syncTable(ctx, search.PostsIndex,
		"SELECT id, user_id, category, is_deleted, created_at, updated_at FROM posts ORDER BY id",
		func(rows *sql.Rows) (search.Document, error) {
			var d postDoc
			err := rows.Scan(&d.ID, &d.UserID, &d.Category, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt)
			return search.Document{ID: d.ID, Source: d}, err
		})
	if err != nil {
		return err
	}

	log.Info().
		Int("users", users).
		Int("posts", posts).
		Dur("duration", time.Since(start)).
		Msg("Search index synced")
	return nil
}

func (s *Syncer) syncTable(ctx context.Context, index, query string, scan func(*sql.Rows) (search.Document, error)) (int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", index, err)
	}
	defer rows.Close()

	total := 0
	batch := make([]search.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.index.BulkIndex(ctx, index, batch); err != nil {
			return fmt.Errorf("index %s: %w", index, err)
		}
		total += len(batch)
		batch = make([]search.Document, 0, batchSize)
		return nil
	}

	for rows.Next() {
		doc, err := scan(rows)
		if err != nil {
			return total, fmt.Errorf("scan %s: %w", index, err)
		}
		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("read %s: %w", index, err)
	}
	return total, flush()
}
