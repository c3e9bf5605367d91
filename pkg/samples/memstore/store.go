// Package memstore provides the in-memory [samples.Store] implementation,
// optionally backed by a JSON snapshot file.
//
// All samples and centroids are held in process memory; the snapshot (when
// configured) is rewritten inside the same critical section as every
// mutation, so a successfully returned write is durable and the on-disk
// state never diverges from what the centroids summarise. Snapshot writes go
// through a temp-file rename so a crash mid-write leaves the previous
// snapshot intact.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
	"github.com/verbao/intentd/pkg/samples"
)

// Compile-time interface check.
var _ samples.Store = (*Store)(nil)

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithSnapshotPath enables JSON snapshot persistence at path. The file is
// loaded on construction (if present) and rewritten after every mutation.
func WithSnapshotPath(path string) Option {
	return func(s *Store) { s.snapshotPath = path }
}

// Store is the in-memory sample store. A single write lock serialises
// "append + recompute + persist"; reads take the shared lock and therefore
// always observe a fully applied write.
type Store struct {
	dim          int
	snapshotPath string

	mu        sync.RWMutex
	vectors   map[intent.Intent][]embedding.Vector
	centroids map[intent.Intent]embedding.Vector
}

// New creates a Store for embeddings of the given dimension. When a snapshot
// path is configured and the file exists, its samples are loaded and all
// centroids recomputed before New returns.
func New(dim int, opts ...Option) (*Store, error) {
	s := &Store{
		dim:       dim,
		vectors:   make(map[intent.Intent][]embedding.Vector, len(intent.All())),
		centroids: make(map[intent.Intent]embedding.Vector),
	}
	for _, in := range intent.All() {
		s.vectors[in] = nil
	}
	for _, o := range opts {
		o(s)
	}
	if s.snapshotPath != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Insert implements [samples.Store].
func (s *Store) Insert(ctx context.Context, in intent.Intent, vec embedding.Vector) error {
	_, err := s.InsertBatch(ctx, in, []embedding.Vector{vec})
	return err
}

// InsertBatch implements [samples.Store]. The centroid is recomputed once
// after the whole batch, and the snapshot (if configured) is rewritten
// before the lock is released.
func (s *Store) InsertBatch(_ context.Context, in intent.Intent, vecs []embedding.Vector) (int, error) {
	if !in.IsValid() {
		return 0, fmt.Errorf("memstore: insert %q: %w", in, intent.ErrInvalid)
	}
	for _, v := range vecs {
		if err := embedding.Validate(v, s.dim); err != nil {
			return 0, fmt.Errorf("memstore: insert %q: %w", in, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range vecs {
		s.vectors[in] = append(s.vectors[in], embedding.Clone(v))
	}
	s.recomputeCentroid(in)

	if err := s.persist(); err != nil {
		// Roll back so the served state never outruns the durable state.
		s.vectors[in] = s.vectors[in][:len(s.vectors[in])-len(vecs)]
		s.recomputeCentroid(in)
		return 0, err
	}
	return len(vecs), nil
}

// Clear implements [samples.Store].
func (s *Store) Clear(_ context.Context, in intent.Intent) error {
	if !in.IsValid() {
		return fmt.Errorf("memstore: clear %q: %w", in, intent.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.vectors[in]
	s.vectors[in] = nil
	delete(s.centroids, in)

	if err := s.persist(); err != nil {
		s.vectors[in] = prev
		s.recomputeCentroid(in)
		return err
	}
	return nil
}

// TopK implements [samples.Store].
func (s *Store) TopK(_ context.Context, vec embedding.Vector, in intent.Intent, k int) ([]float64, error) {
	if !in.IsValid() {
		return nil, fmt.Errorf("memstore: top-k %q: %w", in, intent.ErrInvalid)
	}
	if err := embedding.Validate(vec, s.dim); err != nil {
		return nil, fmt.Errorf("memstore: top-k %q: %w", in, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.vectors[in]
	sims := make([]float64, 0, len(stored))
	for _, sample := range stored {
		sims = append(sims, embedding.Cosine(vec, sample))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if len(sims) > k {
		sims = sims[:k]
	}
	return sims, nil
}

// Centroid implements [samples.Store].
func (s *Store) Centroid(_ context.Context, in intent.Intent) (embedding.Vector, bool, error) {
	if !in.IsValid() {
		return nil, false, fmt.Errorf("memstore: centroid %q: %w", in, intent.ErrInvalid)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.centroids[in]
	if !ok {
		return nil, false, nil
	}
	return embedding.Clone(c), true, nil
}

// Stats implements [samples.Store].
func (s *Store) Stats(context.Context) (map[intent.Intent]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[intent.Intent]int, len(intent.All()))
	for _, in := range intent.All() {
		out[in] = len(s.vectors[in])
	}
	return out, nil
}

// Close implements [samples.Store]. The in-memory store holds no external
// resources; any configured snapshot is already up to date.
func (s *Store) Close() error { return nil }

// recomputeCentroid refreshes the cached centroid for in from the current
// sample set. Must be called with s.mu held for writing.
func (s *Store) recomputeCentroid(in intent.Intent) {
	stored := s.vectors[in]
	if len(stored) < samples.MinSamples {
		delete(s.centroids, in)
		return
	}
	s.centroids[in] = embedding.Mean(stored)
}

// ─── Snapshot persistence ─────────────────────────────────────────────────────

// snapshot is the JSON file layout: intent label → list of vectors.
type snapshot map[string][]embedding.Vector

// persist writes the snapshot file if a path is configured. Must be called
// with s.mu held for writing.
func (s *Store) persist() error {
	if s.snapshotPath == "" {
		return nil
	}

	snap := make(snapshot, len(s.vectors))
	for in, vecs := range s.vectors {
		snap[string(in)] = vecs
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("memstore: marshal snapshot: %w", err)
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("memstore: create snapshot dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memstore: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("memstore: replace snapshot: %w", err)
	}
	return nil
}

// load reads the snapshot file into memory and recomputes all centroids.
// Labels outside the fixed set are skipped (old snapshots may predate a
// vocabulary change); vectors of the wrong dimension fail the load.
func (s *Store) load() error {
	data, err := os.ReadFile(s.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("memstore: read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("memstore: parse snapshot %q: %w", s.snapshotPath, err)
	}

	for label, vecs := range snap {
		in, err := intent.Parse(label)
		if err != nil {
			continue
		}
		for _, v := range vecs {
			if err := embedding.Validate(v, s.dim); err != nil {
				return fmt.Errorf("memstore: snapshot %q intent %s: %w", s.snapshotPath, label, err)
			}
		}
		s.vectors[in] = vecs
		s.recomputeCentroid(in)
	}
	return nil
}
