package classify_test

import (
	"context"
	"math"
	"testing"

	"github.com/verbao/intentd/internal/classify"
	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
	"github.com/verbao/intentd/pkg/samples/memstore"
)

const testDim = 4

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	s, err := memstore.New(testDim)
	if err != nil {
		t.Fatalf("memstore.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func train(t *testing.T, s *memstore.Store, in intent.Intent, vecs ...embedding.Vector) {
	t.Helper()
	if _, err := s.InsertBatch(context.Background(), in, vecs); err != nil {
		t.Fatalf("InsertBatch(%s): %v", in, err)
	}
}

func TestClassify_Untrained(t *testing.T) {
	t.Parallel()

	c := classify.New(newStore(t))
	pred, err := c.Classify(context.Background(), embedding.Vector{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Intent != intent.Unknown {
		t.Errorf("Intent = %q, want %q", pred.Intent, intent.Unknown)
	}
	if pred.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", pred.Confidence)
	}
	want := intent.All()[:3]
	if len(pred.Alternatives) != len(want) {
		t.Fatalf("Alternatives = %v, want %v", pred.Alternatives, want)
	}
	for i, in := range want {
		if pred.Alternatives[i] != in {
			t.Errorf("Alternatives[%d] = %q, want %q", i, pred.Alternatives[i], in)
		}
	}
}

func TestClassify_IgnoresIntentsBelowMinimum(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	// A single sample is below the centroid minimum, so the intent must not
	// participate in scoring.
	train(t, s, intent.Help, embedding.Vector{1, 0, 0, 0})

	c := classify.New(s)
	pred, err := c.Classify(context.Background(), embedding.Vector{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Intent != intent.Unknown || pred.Confidence != 0 {
		t.Errorf("got (%q, %v), want (UNKNOWN, 0)", pred.Intent, pred.Confidence)
	}
}

func TestClassify_PicksNearestCluster(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	train(t, s, intent.Help,
		embedding.Vector{1, 0, 0, 0},
		embedding.Vector{0.9, 0.1, 0, 0},
		embedding.Vector{0.95, 0.05, 0, 0},
	)
	train(t, s, intent.Water,
		embedding.Vector{0, 1, 0, 0},
		embedding.Vector{0, 0.9, 0.1, 0},
	)

	c := classify.New(s)
	pred, err := c.Classify(context.Background(), embedding.Vector{1, 0.02, 0, 0})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Intent != intent.Help {
		t.Errorf("Intent = %q, want %q", pred.Intent, intent.Help)
	}
	if pred.Confidence <= 0 || pred.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0, 1]", pred.Confidence)
	}
	if len(pred.Alternatives) == 0 || pred.Alternatives[0] != intent.Water {
		t.Errorf("Alternatives = %v, want WATER first", pred.Alternatives)
	}
}

func TestClassify_DimensionMismatch(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	train(t, s, intent.Help,
		embedding.Vector{1, 0, 0, 0},
		embedding.Vector{0.9, 0.1, 0, 0},
	)

	c := classify.New(s)
	if _, err := c.Classify(context.Background(), embedding.Vector{1, 0}); err == nil {
		t.Fatal("Classify with short vector: want error, got nil")
	}
}

func TestCalibrate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw, margin float64
		sampleCount int
		want        float64
	}{
		{"no penalties", 0.9, 0.10, 20, 0.9},
		{"ambiguous margin", 0.9, 0.01, 20, 0.9 * 0.8},
		{"very few samples", 0.9, 0.10, 3, 0.9 * 0.85},
		{"few samples", 0.9, 0.10, 7, 0.9 * 0.95},
		{"ambiguous and very few samples", 0.9, 0.01, 3, 0.9 * 0.8 * 0.85},
		{"margin at threshold is not ambiguous", 0.9, 0.05, 20, 0.9},
		{"clamped high", 1.4, 0.10, 20, 1},
		{"clamped low", -0.2, 0.10, 20, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classify.Calibrate(tc.raw, tc.margin, tc.sampleCount)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Calibrate(%v, %v, %d) = %v, want %v", tc.raw, tc.margin, tc.sampleCount, got, tc.want)
			}
		})
	}
}
