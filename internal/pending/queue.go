// Package pending holds embeddings that are waiting on a user confirmation.
// When a classification needs confirming, its embedding is parked here under
// an opaque token; once the user confirms, the embedding is consumed and
// used as a training sample for the confirmed intent.
package pending

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
)

// DefaultCapacity is the number of unconsumed embeddings retained before
// the oldest is evicted.
const DefaultCapacity = 100

// ErrTokenExpired is returned by [Queue.Consume] when the token is unknown,
// already consumed, or its entry was evicted to make room for newer ones.
var ErrTokenExpired = errors.New("pending: confirmation token expired")

// Entry is one parked embedding together with the classification that
// produced it.
type Entry struct {
	// Token is the opaque handle handed back to the client.
	Token string

	// Predicted is the intent the classifier guessed. Confirmation may
	// override it with a different intent.
	Predicted intent.Intent

	// Vector is the embedding awaiting a training decision.
	Vector embedding.Vector

	// CreatedAt records when the entry was parked.
	CreatedAt time.Time
}

// Queue is a fixed-capacity, consume-once store of pending embeddings.
// When full, adding a new entry evicts the oldest unconsumed one. All
// methods are safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	entries  []Entry
	byToken  map[string]int
	capacity int

	evicted uint64
}

// New creates a Queue retaining at most capacity unconsumed entries.
// A capacity below 1 falls back to [DefaultCapacity].
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{
		entries:  make([]Entry, 0, capacity),
		byToken:  make(map[string]int, capacity),
		capacity: capacity,
	}
}

// Add parks an embedding and returns the token under which it can later be
// consumed. The vector is cloned, so the caller may reuse its slice. If the
// queue is full the oldest unconsumed entry is evicted first.
func (q *Queue) Add(predicted intent.Intent, vec embedding.Vector) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.capacity {
		q.evictOldestLocked()
	}

	token := uuid.NewString()
	q.entries = append(q.entries, Entry{
		Token:     token,
		Predicted: predicted,
		Vector:    embedding.Clone(vec),
		CreatedAt: time.Now(),
	})
	q.byToken[token] = len(q.entries) - 1
	return token
}

// SetCapacity changes how many unconsumed entries the queue retains. When
// the new capacity is below the current depth the oldest entries are evicted
// immediately; the number of evictions is returned. A capacity below 1 falls
// back to [DefaultCapacity].
func (q *Queue) SetCapacity(capacity int) int {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.capacity = capacity
	dropped := 0
	for len(q.entries) > q.capacity {
		q.evictOldestLocked()
		dropped++
	}
	return dropped
}

// Consume removes and returns the entry for token. Each token can be
// consumed exactly once; a second call, or a call after the entry was
// evicted, returns [ErrTokenExpired].
func (q *Queue) Consume(token string) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx, ok := q.byToken[token]
	if !ok {
		return Entry{}, ErrTokenExpired
	}
	e := q.entries[idx]
	q.removeLocked(idx)
	return e, nil
}

// Len reports the number of unconsumed entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Evicted reports how many entries have been dropped to make room since the
// queue was created.
func (q *Queue) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}

// evictOldestLocked drops the entry at the head of the queue.
// Must be called with q.mu held.
func (q *Queue) evictOldestLocked() {
	if len(q.entries) == 0 {
		return
	}
	q.removeLocked(0)
	q.evicted++
}

// removeLocked deletes the entry at idx and reindexes the entries behind it.
// Entries are copied to a fresh backing array so consumed vectors do not pin
// memory. Must be called with q.mu held.
func (q *Queue) removeLocked(idx int) {
	delete(q.byToken, q.entries[idx].Token)

	fresh := make([]Entry, 0, q.capacity)
	fresh = append(fresh, q.entries[:idx]...)
	fresh = append(fresh, q.entries[idx+1:]...)
	q.entries = fresh

	for i := idx; i < len(q.entries); i++ {
		q.byToken[q.entries[i].Token] = i
	}
}
