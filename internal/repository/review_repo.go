package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// PostgresReviewRepo implements ReviewRepository.
type PostgresReviewRepo struct {
	db   DBTX
	node *snowflake.Node
}

var _ ReviewRepository = (*PostgresReviewRepo)(nil)

func NewPostgresReviewRepo(db DBTX, node *snowflake.Node) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db, node: node}
}

const upsertReviewSQL = `INSERT INTO reviews (id, external_id, author, content, rating, source_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (external_id) DO UPDATE SET
	author = EXCLUDED.author,
	content = EXCLUDED.content,
	rating = EXCLUDED.rating,
	source_url = EXCLUDED.source_url,
	created_at = EXCLUDED.created_at,
	synced_at = now()`

func (r *PostgresReviewRepo) UpsertMany(ctx context.Context, reviews []integration.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rv := range reviews {
		batch.Queue(upsertReviewSQL,
			r.node.Generate().Int64(),
			rv.ExternalID,
			rv.Author,
			rv.Content,
			rv.Rating,
			rv.SourceURL,
			rv.CreatedAt.UTC(),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range reviews {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert review %s: %w", reviews[i].ExternalID, err)
		}
	}
	return len(reviews), nil
}

const listReviewsSQL = `SELECT external_id, author, content, rating, source_url, created_at
FROM reviews ORDER BY created_at DESC LIMIT $1`

func (r *PostgresReviewRepo) List(ctx context.Context, limit int) ([]integration.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, listReviewsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []integration.Review
	for rows.Next() {
		var rv integration.Review
		var rating int16
		if err := rows.Scan(&rv.ExternalID, &rv.Author, &rv.Content, &rating, &rv.SourceURL, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rv.Rating = int(rating)
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}
