// Package classify implements embedding-space intent classification over a
// [samples.Store], and the fusion of embedding and text predictions.
//
// Scoring combines three views of the same neighbourhood, per intent:
//
//  1. Centroid similarity — cosine similarity to the intent's mean vector,
//     capturing the general cluster direction.
//  2. Weighted k-NN — a similarity-weighted average of the top-K neighbour
//     similarities where each similarity's weight is its own square, so near
//     matches dominate more than a plain average would allow. This carries
//     the highest weight because aphasic speech varies too much for the
//     centroid alone.
//  3. Max similarity — the single best matching sample.
//
// The winning raw score is then calibrated into a confidence using the
// margin over the runner-up and the winner's sample count ([Calibrate]).
// Intents with fewer than [samples.MinSamples] samples are excluded from
// scoring entirely — a cold-started system classifies everything as
// [intent.Unknown] with confidence 0 rather than guessing.
package classify

import (
	"context"
	"fmt"
	"sort"

	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
	"github.com/verbao/intentd/pkg/samples"
)

const (
	// KNeighbors is the number of nearest neighbours considered per intent.
	KNeighbors = 5

	// Score combination weights. KNN dominates; the centroid contributes the
	// cluster direction and the max similarity the best single match.
	centroidWeight = 0.3
	knnWeight      = 0.5
	maxWeight      = 0.2

	// similarityMargin is the minimum gap between the top two intents below
	// which a prediction is considered ambiguous.
	similarityMargin = 0.05

	// maxAlternatives bounds the number of runner-up intents returned.
	maxAlternatives = 3
)

// Prediction is the result of classifying one utterance.
type Prediction struct {
	// Intent is the winning label, or [intent.Unknown] when no intent has
	// enough training data to qualify.
	Intent intent.Intent

	// Confidence is the calibrated confidence in [0, 1].
	Confidence float64

	// Alternatives lists up to three runner-up intents by descending score.
	// For an Unknown result it instead suggests intents the caller might
	// train first.
	Alternatives []intent.Intent
}

// Classifier scores query embeddings against a [samples.Store].
// It is stateless apart from the store handle and safe for concurrent use.
type Classifier struct {
	store samples.Store
	k     int
}

// Option is a functional option for configuring a [Classifier].
type Option func(*Classifier)

// WithKNeighbors overrides the number of nearest neighbours considered per
// intent. Default: [KNeighbors].
func WithKNeighbors(k int) Option {
	return func(c *Classifier) { c.k = k }
}

// New returns a Classifier reading from store.
func New(store samples.Store, opts ...Option) *Classifier {
	c := &Classifier{store: store, k: KNeighbors}
	for _, o := range opts {
		o(c)
	}
	return c
}

// candidate is the transient per-intent scoring record produced during one
// classification. Not persisted.
type candidate struct {
	intent    intent.Intent
	score     float64
	sampleCnt int
}

// Classify scores vec against every trained intent and returns the
// calibrated prediction.
//
// Classification is a total function over well-formed input: absence of
// training data yields an Unknown prediction with suggested intents, never
// an error. Errors are reserved for malformed input (wrong dimensionality)
// and store failures.
func (c *Classifier) Classify(ctx context.Context, vec embedding.Vector) (Prediction, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return Prediction{}, fmt.Errorf("classify: stats: %w", err)
	}

	var candidates []candidate
	for _, in := range intent.All() {
		count := stats[in]
		if count < samples.MinSamples {
			continue
		}

		var centroidScore float64
		centroid, ok, err := c.store.Centroid(ctx, in)
		if err != nil {
			return Prediction{}, fmt.Errorf("classify: centroid %s: %w", in, err)
		}
		if ok {
			centroidScore = embedding.Cosine(vec, centroid)
		}

		topK, err := c.store.TopK(ctx, vec, in, c.k)
		if err != nil {
			return Prediction{}, fmt.Errorf("classify: top-k %s: %w", in, err)
		}

		knnScore := weightedKNNScore(topK)
		var maxScore float64
		if len(topK) > 0 {
			maxScore = topK[0]
		}

		combined := centroidWeight*centroidScore + knnWeight*knnScore + maxWeight*maxScore
		candidates = append(candidates, candidate{intent: in, score: combined, sampleCnt: count})
	}

	if len(candidates) == 0 {
		// Nothing trained yet — suggest the first intents by enumeration
		// order as training hints.
		return Prediction{
			Intent:       intent.Unknown,
			Confidence:   0,
			Alternatives: intent.All()[:maxAlternatives],
		}, nil
	}

	// Stable sort preserves enumeration order for equal scores, keeping
	// results deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := candidates[0]
	var second float64
	if len(candidates) > 1 {
		second = candidates[1].score
	}
	margin := top.score - second

	alts := make([]intent.Intent, 0, maxAlternatives)
	for _, cand := range candidates[1:] {
		if len(alts) == maxAlternatives {
			break
		}
		alts = append(alts, cand.intent)
	}

	return Prediction{
		Intent:       top.intent,
		Confidence:   Calibrate(top.score, margin, top.sampleCnt),
		Alternatives: alts,
	}, nil
}

// weightedKNNScore averages the top-k similarities with each similarity
// weighted by its own square, so that close neighbours dominate. Returns 0
// for an empty input.
func weightedKNNScore(topK []float64) float64 {
	if len(topK) == 0 {
		return 0
	}
	var weighted, total float64
	for _, s := range topK {
		w := s * s
		weighted += s * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Calibrate converts a raw similarity score into a confidence that reflects
// ambiguity and training-data sufficiency.
//
// Penalties are multiplicative and monotone: a margin below 0.05 costs 20%
// (ambiguous between intents), fewer than 5 samples costs a further 15%,
// and 5–9 samples costs 5%. The result is clamped to [0, 1].
func Calibrate(raw, margin float64, sampleCount int) float64 {
	confidence := raw

	if margin < similarityMargin {
		confidence *= 0.8
	}

	switch {
	case sampleCount < 5:
		confidence *= 0.85
	case sampleCount < 10:
		confidence *= 0.95
	}

	return min(1, max(0, confidence))
}
