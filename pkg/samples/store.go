// Package samples defines the similarity store contract: per-intent
// collections of confirmed acoustic embeddings with a cached centroid and a
// cosine top-k query.
//
// Two interchangeable implementations exist:
//
//   - [github.com/verbao/intentd/pkg/samples/memstore] — in-memory with an
//     optional JSON snapshot file. Suitable for single-process deployments
//     and tests.
//   - [github.com/verbao/intentd/pkg/samples/postgres] — PostgreSQL with the
//     pgvector extension, using the `<=>` cosine distance operator.
//
// The backend is selected at composition time in cmd/intentd; nothing above
// this interface knows which one is in use.
//
// Consistency contract: every mutating operation leaves the persisted
// representation consistent with the in-memory state before returning, and
// the centroid for an affected intent is recomputed as part of the same
// logical operation — callers never observe a centroid that is stale
// relative to the sample set it summarises.
package samples

import (
	"context"

	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
)

// MinSamples is the minimum number of stored samples an intent needs before
// its centroid is defined and before it participates in classification.
const MinSamples = 2

// Store holds confirmed (intent, embedding) samples and answers similarity
// queries against them.
//
// Mutating operations fail with [intent.ErrInvalid] for labels outside the
// fixed set and with [embedding.ErrDimensionMismatch] for vectors of the
// wrong length; neither condition may corrupt stored state. Duplicate
// embeddings are stored as separate samples — repetition strengthens the
// model.
//
// All methods must be safe for concurrent use. Reads may proceed
// concurrently with each other but must observe the latest completed write.
type Store interface {
	// Insert appends one sample to the intent's collection and recomputes
	// that intent's centroid before returning.
	Insert(ctx context.Context, in intent.Intent, vec embedding.Vector) error

	// InsertBatch appends all embeddings to the intent's collection,
	// recomputing the centroid once after the batch. It returns the number
	// of samples added.
	InsertBatch(ctx context.Context, in intent.Intent, vecs []embedding.Vector) (int, error)

	// Clear empties the intent's sample collection and clears its centroid.
	Clear(ctx context.Context, in intent.Intent) error

	// TopK returns the k largest cosine similarities between vec and the
	// intent's stored samples, in descending order. Fewer than k values are
	// returned when the intent has fewer samples; an empty slice when it has
	// none.
	TopK(ctx context.Context, vec embedding.Vector, in intent.Intent, k int) ([]float64, error)

	// Centroid returns the mean vector of the intent's samples. ok is false
	// when the intent has fewer than [MinSamples] samples.
	Centroid(ctx context.Context, in intent.Intent) (vec embedding.Vector, ok bool, err error)

	// Stats returns the sample count per intent. Every member of the fixed
	// set appears in the result, with zero for untrained intents.
	Stats(ctx context.Context) (map[intent.Intent]int, error)

	// Close releases resources held by the store.
	Close() error
}
