// Package embedding provides the acoustic embedding vector type and the two
// operations the engine needs on it: cosine similarity and element-wise mean.
//
// Embeddings are opaque beyond their dimension — the engine never inspects
// individual components except through these operations.
package embedding

import (
	"errors"
	"fmt"
	"math"
)

// Dim is the fixed dimension of acoustic embeddings produced by the upstream
// inference service (a HuBERT-style encoder).
const Dim = 768

// ErrDimensionMismatch is returned when a vector's length does not match the
// dimension the store was created with. It is fatal to the single call that
// supplied the vector and must never corrupt stored state.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

// Vector is a fixed-dimension acoustic embedding of one utterance.
type Vector []float32

// Validate returns [ErrDimensionMismatch] if v does not have dim components.
func Validate(v Vector, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("embedding: got %d components, want %d: %w", len(v), dim, ErrDimensionMismatch)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, in [-1, 1]. It returns 0
// when either vector has zero magnitude or when the lengths differ.
//
// Accumulation is done in float64 to avoid precision loss over 768 terms.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean returns the element-wise mean of vectors. All vectors must share the
// same length; nil is returned for an empty input.
func Mean(vectors []Vector) Vector {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		for i := range v {
			sums[i] += float64(v[i])
		}
	}
	out := make(Vector, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		out[i] = float32(s / n)
	}
	return out
}

// Clone returns an independent copy of v. Stores clone on insert so callers
// cannot mutate samples after confirmation.
func Clone(v Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
