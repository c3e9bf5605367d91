package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlIntentSamples returns the samples DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlIntentSamples(dim int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS intent_samples (
    id          BIGSERIAL    PRIMARY KEY,
    intent      TEXT         NOT NULL,
    embedding   vector(%d)   NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_intent_samples_intent
    ON intent_samples (intent);

CREATE INDEX IF NOT EXISTS idx_intent_samples_embedding
    ON intent_samples USING hnsw (embedding vector_cosine_ops);
`, dim)
}

// Migrate creates or ensures the samples table, its indexes, and the
// pgvector extension exist. It is idempotent and safe to call on every
// application start.
//
// dim must match the embedding model configured for the deployment;
// changing it after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	if _, err := pool.Exec(ctx, ddlIntentSamples(dim)); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
