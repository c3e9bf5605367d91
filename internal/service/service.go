// Package service wires the embedding classifier, the text cascade, the
// modality combiner, and the decision policy into one facade used by the
// HTTP layer. It owns the queue of embeddings awaiting confirmation and
// feeds confirmed embeddings back into the sample store as training data.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/verbao/intentd/internal/classify"
	"github.com/verbao/intentd/internal/decision"
	"github.com/verbao/intentd/internal/lexicon"
	"github.com/verbao/intentd/internal/observe"
	"github.com/verbao/intentd/internal/pending"
	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
	"github.com/verbao/intentd/pkg/samples"
)

// ErrNoInput is returned by Classify methods when the request carries
// neither an embedding nor a transcription.
var ErrNoInput = errors.New("service: classification request has no input")

// Modality labels which input produced a classification.
type Modality string

const (
	ModalityEmbedding Modality = "embedding"
	ModalityText      Modality = "text"
	ModalityHybrid    Modality = "hybrid"
)

// Classification is the full outcome of one classify call: the winning
// intent, the decision derived from it, and the handle for a later
// confirmation when one is expected.
type Classification struct {
	Intent     intent.Intent
	Confidence float64
	Modality   Modality

	Status  decision.Status
	Action  decision.Action
	Options []string

	// Alternatives lists other plausible intents, best first.
	Alternatives []intent.Intent

	// Token is non-empty when an embedding was parked for confirmation.
	// Passing it to [Service.Confirm] turns the embedding into a training
	// sample for the confirmed intent.
	Token string
}

// Option configures a [Service].
type Option func(*Service)

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPendingCapacity sets the capacity of the confirmation queue.
// Defaults to [pending.DefaultCapacity].
func WithPendingCapacity(n int) Option {
	return func(s *Service) {
		s.queue = pending.New(n)
	}
}

// WithKNeighbors sets how many nearest neighbours the embedding classifier
// considers per intent. Values below 1 keep the default.
func WithKNeighbors(k int) Option {
	return func(s *Service) {
		s.SetKNeighbors(k)
	}
}

// Service is the classification engine facade. All methods are safe for
// concurrent use.
type Service struct {
	store      samples.Store
	classifier atomic.Pointer[classify.Classifier]
	matcher    *lexicon.Matcher
	queue      *pending.Queue
	metrics    *observe.Metrics
	dim        int
	backend    string
}

// New creates a Service over the given sample store. dim is the embedding
// dimension accepted by Classify methods; backend is a short label for the
// store implementation used in metrics ("file" or "postgres").
func New(store samples.Store, dim int, backend string, opts ...Option) *Service {
	s := &Service{
		store:   store,
		matcher: lexicon.NewMatcher(),
		queue:   pending.New(pending.DefaultCapacity),
		dim:     dim,
		backend: backend,
	}
	s.classifier.Store(classify.New(store))
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// SetKNeighbors swaps in a classifier considering the k nearest neighbours
// per intent. Safe to call while classifications are in flight; values below
// 1 are ignored.
func (s *Service) SetKNeighbors(k int) {
	if k < 1 {
		return
	}
	s.classifier.Store(classify.New(s.store, classify.WithKNeighbors(k)))
}

// SetPendingCapacity resizes the confirmation queue. Shrinking below the
// current depth evicts the oldest parked embeddings, whose tokens expire.
func (s *Service) SetPendingCapacity(ctx context.Context, n int) {
	if dropped := s.queue.SetCapacity(n); dropped > 0 {
		s.metrics.PendingEvictions.Add(ctx, int64(dropped))
		s.metrics.PendingEmbeddings.Add(ctx, -int64(dropped))
	}
}

// ClassifyEmbedding classifies a speech embedding.
func (s *Service) ClassifyEmbedding(ctx context.Context, vec embedding.Vector) (Classification, error) {
	start := time.Now()
	if err := embedding.Validate(vec, s.dim); err != nil {
		return Classification{}, fmt.Errorf("service: classify embedding: %w", err)
	}

	pred, err := s.classifier.Load().Classify(ctx, vec)
	if err != nil {
		s.metrics.RecordStoreError(ctx, s.backend, "classify")
		return Classification{}, fmt.Errorf("service: classify embedding: %w", err)
	}

	c := s.finish(ctx, ModalityEmbedding, pred.Intent, pred.Confidence, pred.Alternatives, vec, start)
	return c, nil
}

// ClassifyText classifies a speech-to-text transcription.
func (s *Service) ClassifyText(ctx context.Context, transcription string) (Classification, error) {
	start := time.Now()

	res := s.matcher.Match(transcription)
	var alts []intent.Intent
	if res.Intent == intent.Unknown {
		alts = lexicon.Suggest(transcription, 3)
	}

	c := s.finish(ctx, ModalityText, res.Intent, res.Confidence, alts, nil, start)
	return c, nil
}

// ClassifyHybrid classifies using both modalities and combines the results.
// Either input may be absent; with only one present the call degrades to the
// single-modality path.
func (s *Service) ClassifyHybrid(ctx context.Context, vec embedding.Vector, transcription string) (Classification, error) {
	switch {
	case len(vec) == 0 && transcription == "":
		return Classification{}, ErrNoInput
	case len(vec) == 0:
		return s.ClassifyText(ctx, transcription)
	case transcription == "":
		return s.ClassifyEmbedding(ctx, vec)
	}

	start := time.Now()
	if err := embedding.Validate(vec, s.dim); err != nil {
		return Classification{}, fmt.Errorf("service: classify hybrid: %w", err)
	}

	pred, err := s.classifier.Load().Classify(ctx, vec)
	if err != nil {
		s.metrics.RecordStoreError(ctx, s.backend, "classify")
		return Classification{}, fmt.Errorf("service: classify hybrid: %w", err)
	}
	text := s.matcher.Match(transcription)

	fused, conf := classify.Fuse(pred.Intent, pred.Confidence, text.Intent, text.Confidence)

	alts := pred.Alternatives
	if fused == intent.Unknown && len(alts) == 0 {
		alts = lexicon.Suggest(transcription, 3)
	}

	c := s.finish(ctx, ModalityHybrid, fused, conf, alts, vec, start)
	return c, nil
}

// finish applies the decision policy, parks the embedding when a
// confirmation is expected, and records metrics.
func (s *Service) finish(ctx context.Context, mod Modality, in intent.Intent, conf float64, alts []intent.Intent, vec embedding.Vector, start time.Time) Classification {
	out := decision.Decide(in, conf)

	c := Classification{
		Intent:       in,
		Confidence:   conf,
		Modality:     mod,
		Status:       out.Status,
		Action:       out.Action,
		Options:      out.Options,
		Alternatives: alts,
	}

	// Park the embedding on every response that carries one, regardless of
	// decision band: even an auto-triggered emergency or an uncertain guess
	// can be labelled by later caregiver feedback and feed the learning
	// loop. Unredeemed tokens age out through the queue's eviction policy.
	if len(vec) > 0 {
		evictedBefore := s.queue.Evicted()
		c.Token = s.queue.Add(in, vec)
		s.metrics.PendingEmbeddings.Add(ctx, 1)
		if d := s.queue.Evicted() - evictedBefore; d > 0 {
			s.metrics.PendingEvictions.Add(ctx, int64(d))
			s.metrics.PendingEmbeddings.Add(ctx, -int64(d))
		}
	}

	s.metrics.RecordClassification(ctx, string(mod), string(in), string(out.Status), time.Since(start).Seconds())

	observe.Logger(ctx).Debug("classification",
		"modality", mod,
		"intent", in,
		"confidence", conf,
		"status", out.Status,
	)
	return c
}

// Confirm consumes a pending token and stores its embedding as a training
// sample for the confirmed intent, which may differ from the predicted one.
// Returns [pending.ErrTokenExpired] when the token is unknown, already used,
// or evicted.
func (s *Service) Confirm(ctx context.Context, token string, confirmed intent.Intent) error {
	if !confirmed.IsValid() || confirmed == intent.Unknown {
		return fmt.Errorf("service: confirm: %w: %q", intent.ErrInvalid, confirmed)
	}

	entry, err := s.queue.Consume(token)
	if err != nil {
		s.metrics.RecordConfirmation(ctx, "expired")
		return fmt.Errorf("service: confirm: %w", err)
	}
	s.metrics.PendingEmbeddings.Add(ctx, -1)

	insertStart := time.Now()
	if err := s.store.Insert(ctx, confirmed, entry.Vector); err != nil {
		s.metrics.RecordStoreError(ctx, s.backend, "insert")
		return fmt.Errorf("service: confirm: %w", err)
	}
	s.metrics.RecordStoreOp(ctx, s.backend, "insert", time.Since(insertStart).Seconds())
	s.metrics.RecordConfirmation(ctx, "trained")
	s.metrics.RecordTraining(ctx, string(confirmed), "confirmation", 1)

	observe.Logger(ctx).Info("confirmation trained",
		"predicted", entry.Predicted,
		"confirmed", confirmed,
	)
	return nil
}

// Reject consumes a pending token and discards its embedding. The sample is
// not stored anywhere.
func (s *Service) Reject(ctx context.Context, token string) error {
	if _, err := s.queue.Consume(token); err != nil {
		s.metrics.RecordConfirmation(ctx, "expired")
		return fmt.Errorf("service: reject: %w", err)
	}
	s.metrics.PendingEmbeddings.Add(ctx, -1)
	s.metrics.RecordConfirmation(ctx, "rejected")
	return nil
}

// TrainBatch stores a batch of embeddings as training samples for in.
// Returns the number of samples stored.
func (s *Service) TrainBatch(ctx context.Context, in intent.Intent, vecs []embedding.Vector) (int, error) {
	if !in.IsValid() || in == intent.Unknown {
		return 0, fmt.Errorf("service: train: %w: %q", intent.ErrInvalid, in)
	}

	start := time.Now()
	n, err := s.store.InsertBatch(ctx, in, vecs)
	if err != nil {
		s.metrics.RecordStoreError(ctx, s.backend, "insert_batch")
		return n, fmt.Errorf("service: train: %w", err)
	}
	s.metrics.RecordStoreOp(ctx, s.backend, "insert_batch", time.Since(start).Seconds())
	s.metrics.RecordTraining(ctx, string(in), "batch", int64(n))
	return n, nil
}

// ClearIntent removes all training samples for in.
func (s *Service) ClearIntent(ctx context.Context, in intent.Intent) error {
	if !in.IsValid() || in == intent.Unknown {
		return fmt.Errorf("service: clear: %w: %q", intent.ErrInvalid, in)
	}
	start := time.Now()
	if err := s.store.Clear(ctx, in); err != nil {
		s.metrics.RecordStoreError(ctx, s.backend, "clear")
		return fmt.Errorf("service: clear: %w", err)
	}
	s.metrics.RecordStoreOp(ctx, s.backend, "clear", time.Since(start).Seconds())
	return nil
}

// Stats reports per-intent sample counts and the pending queue depth.
func (s *Service) Stats(ctx context.Context) (map[intent.Intent]int, int, error) {
	counts, err := s.store.Stats(ctx)
	if err != nil {
		s.metrics.RecordStoreError(ctx, s.backend, "stats")
		return nil, 0, fmt.Errorf("service: stats: %w", err)
	}
	return counts, s.queue.Len(), nil
}

// Intents returns the supported intent labels in enumeration order.
func (s *Service) Intents() []intent.Intent {
	return intent.All()
}
