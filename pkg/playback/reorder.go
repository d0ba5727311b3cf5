// ABOUTME: Decode reassembly queue
// ABOUTME: Releases asynchronously decoded units strictly in sequence order
package playback

import (
	"container/heap"

	"github.com/camview/liveaudio/pkg/audio"
	"github.com/pkg/errors"
)

// ErrSequenceViolation is returned when a unit arrives whose index was
// already released or is already buffered.
var ErrSequenceViolation = errors.New("sequence order violation")

// ReorderQueue buffers decoded units until every predecessor has been
// released. Not safe for concurrent use.
type ReorderQueue struct {
	items    unitHeap
	held     map[uint64]struct{}
	expected uint64
	deferred int64
}

// NewReorderQueue creates an empty queue expecting index 0.
func NewReorderQueue() *ReorderQueue {
	q := &ReorderQueue{held: make(map[uint64]struct{})}
	heap.Init(&q.items)
	return q
}

// Admit accepts a unit in any order and returns the units that became
// releasable, in sequence order. The returned slice is empty when u has to
// wait for a predecessor.
func (q *ReorderQueue) Admit(u audio.Unit) ([]audio.Unit, error) {
	if u.Seq < q.expected {
		return nil, errors.Wrapf(ErrSequenceViolation, "index %d already released, expecting %d", u.Seq, q.expected)
	}
	if _, dup := q.held[u.Seq]; dup {
		return nil, errors.Wrapf(ErrSequenceViolation, "index %d already buffered", u.Seq)
	}

	if u.Seq != q.expected {
		q.deferred++
	}
	heap.Push(&q.items, u)
	q.held[u.Seq] = struct{}{}

	var released []audio.Unit
	for q.items.Len() > 0 && q.items.Peek().Seq == q.expected {
		next := heap.Pop(&q.items).(audio.Unit)
		delete(q.held, next.Seq)
		released = append(released, next)
		q.expected++
	}
	return released, nil
}

// Expected returns the next index that will be released.
func (q *ReorderQueue) Expected() uint64 {
	return q.expected
}

// Len returns the number of units waiting for a predecessor.
func (q *ReorderQueue) Len() int {
	return q.items.Len()
}

// Deferred returns how many units arrived ahead of their turn.
func (q *ReorderQueue) Deferred() int64 {
	return q.deferred
}

// Reset drops buffered units and expects index 0 again.
func (q *ReorderQueue) Reset() {
	q.items = q.items[:0]
	q.held = make(map[uint64]struct{})
	q.expected = 0
}

// unitHeap is a min-heap of units keyed by sequence index
type unitHeap []audio.Unit

// Implement heap.Interface
func (h unitHeap) Len() int { return len(h) }

func (h unitHeap) Less(i, j int) bool { return h[i].Seq < h[j].Seq }

func (h unitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *unitHeap) Push(x interface{}) {
	*h = append(*h, x.(audio.Unit))
}

func (h *unitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h unitHeap) Peek() audio.Unit {
	return h[0]
}
