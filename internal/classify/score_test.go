package classify

import (
	"math"
	"testing"
)

func TestWeightedKNNScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		topK []float64
		want float64
	}{
		{"empty", nil, 0},
		{"all zero", []float64{0, 0, 0}, 0},
		{"identical", []float64{0.8, 0.8, 0.8}, 0.8},
		// (1·1 + 0.5·0.25) / (1 + 0.25) = 0.9 — squared weights pull the
		// average toward the near neighbour, a plain mean would give 0.75.
		{"near match dominates", []float64{1, 0.5}, 0.9},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := weightedKNNScore(tc.topK)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("weightedKNNScore(%v) = %v, want %v", tc.topK, got, tc.want)
			}
		})
	}
}
