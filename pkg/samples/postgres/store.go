// Package postgres provides the PostgreSQL-backed [samples.Store]
// implementation using the pgvector extension.
//
// Cosine similarity queries run in the database through the `<=>` operator
// against an HNSW index, so the top-k query does not fetch sample vectors
// into the process. The centroid is computed by SQL AVG over the intent's
// rows at query time — it can never be stale relative to the stored samples
// because it is derived from them in the same statement.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, embedding.Dim)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
	"github.com/verbao/intentd/pkg/samples"
)

// Compile-time interface check.
var _ samples.Store = (*Store)(nil)

// Store is the pgvector-backed sample store. All operations are safe for
// concurrent use; PostgreSQL's MVCC provides the read-your-writes
// consistency the [samples.Store] contract requires.
type Store struct {
	pool *pgxpool.Pool
	dim  int
}

// NewStore connects to the PostgreSQL database at dsn, registers pgvector
// types on every connection, and runs [Migrate] to ensure the samples table
// and extension exist.
//
// dim must match the output dimension of the embedding model (768 for the
// HuBERT encoder). Changing it after the first migration requires a manual
// schema change.
func NewStore(ctx context.Context, dsn string, dim int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres samples: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns can
	// be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres samples: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres samples: ping: %w", err)
	}

	if err := Migrate(ctx, pool, dim); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres samples: migrate: %w", err)
	}

	return &Store{pool: pool, dim: dim}, nil
}

// Insert implements [samples.Store].
func (s *Store) Insert(ctx context.Context, in intent.Intent, vec embedding.Vector) error {
	_, err := s.InsertBatch(ctx, in, []embedding.Vector{vec})
	return err
}

// InsertBatch implements [samples.Store]. The whole batch is written in one
// transaction, so a failure partway through leaves no samples behind.
func (s *Store) InsertBatch(ctx context.Context, in intent.Intent, vecs []embedding.Vector) (int, error) {
	if !in.IsValid() {
		return 0, fmt.Errorf("postgres samples: insert %q: %w", in, intent.ErrInvalid)
	}
	for _, v := range vecs {
		if err := embedding.Validate(v, s.dim); err != nil {
			return 0, fmt.Errorf("postgres samples: insert %q: %w", in, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres samples: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO intent_samples (intent, embedding) VALUES ($1, $2)`
	for _, v := range vecs {
		if _, err := tx.Exec(ctx, q, string(in), pgvector.NewVector(v)); err != nil {
			return 0, fmt.Errorf("postgres samples: insert %q: %w", in, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres samples: commit: %w", err)
	}
	return len(vecs), nil
}

// Clear implements [samples.Store].
func (s *Store) Clear(ctx context.Context, in intent.Intent) error {
	if !in.IsValid() {
		return fmt.Errorf("postgres samples: clear %q: %w", in, intent.ErrInvalid)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM intent_samples WHERE intent = $1`, string(in)); err != nil {
		return fmt.Errorf("postgres samples: clear %q: %w", in, err)
	}
	return nil
}

// TopK implements [samples.Store]. Similarity is 1 − cosine distance, which
// pgvector's `<=>` operator lets the HNSW index answer without a full scan.
func (s *Store) TopK(ctx context.Context, vec embedding.Vector, in intent.Intent, k int) ([]float64, error) {
	if !in.IsValid() {
		return nil, fmt.Errorf("postgres samples: top-k %q: %w", in, intent.ErrInvalid)
	}
	if err := embedding.Validate(vec, s.dim); err != nil {
		return nil, fmt.Errorf("postgres samples: top-k %q: %w", in, err)
	}

	const q = `
		SELECT 1 - (embedding <=> $1) AS similarity
		FROM   intent_samples
		WHERE  intent = $2
		ORDER  BY embedding <=> $1
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), string(in), k)
	if err != nil {
		return nil, fmt.Errorf("postgres samples: top-k %q: %w", in, err)
	}

	sims, err := pgx.CollectRows(rows, pgx.RowTo[float64])
	if err != nil {
		return nil, fmt.Errorf("postgres samples: scan top-k %q: %w", in, err)
	}
	if sims == nil {
		sims = []float64{}
	}
	return sims, nil
}

// Centroid implements [samples.Store]. The HAVING clause makes the query
// return no rows when the intent has fewer than [samples.MinSamples]
// samples, which maps to ok=false.
func (s *Store) Centroid(ctx context.Context, in intent.Intent) (embedding.Vector, bool, error) {
	if !in.IsValid() {
		return nil, false, fmt.Errorf("postgres samples: centroid %q: %w", in, intent.ErrInvalid)
	}

	const q = `
		SELECT AVG(embedding)::vector
		FROM   intent_samples
		WHERE  intent = $1
		HAVING COUNT(*) >= $2`

	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, q, string(in), samples.MinSamples).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres samples: centroid %q: %w", in, err)
	}
	return embedding.Vector(vec.Slice()), true, nil
}

// Stats implements [samples.Store].
func (s *Store) Stats(ctx context.Context) (map[intent.Intent]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT intent, COUNT(*) FROM intent_samples GROUP BY intent`)
	if err != nil {
		return nil, fmt.Errorf("postgres samples: stats: %w", err)
	}
	defer rows.Close()

	out := make(map[intent.Intent]int, len(intent.All()))
	for _, in := range intent.All() {
		out[in] = 0
	}
	for rows.Next() {
		var (
			label string
			count int
		)
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("postgres samples: scan stats: %w", err)
		}
		if in, err := intent.Parse(label); err == nil {
			out[in] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres samples: stats: %w", err)
	}
	return out, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
