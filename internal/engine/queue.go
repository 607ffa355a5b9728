package engine

import (
	"container/heap"
	"math/big"
)

// liveFaultEntry is one LiveFault (spec.md §3): the key is
// (triggerAddress, prefault value); due is the instruction_count at which
// the fault must be undone (instruction_count_at_apply + lifespan).
//
// spec.md §9 notes the source encodes "earliest due" via a max-heap trick
// (priority = u64::MAX - due); this is the "clearer re-implementation"
// the same note explicitly sanctions: a plain min-heap keyed on due.
type liveFaultEntry struct {
	triggerAddress uint64
	prefault       *big.Int
	due            uint64
}

type liveFaultHeap []*liveFaultEntry

func (h liveFaultHeap) Len() int            { return len(h) }
func (h liveFaultHeap) Less(i, j int) bool  { return h[i].due < h[j].due }
func (h liveFaultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *liveFaultHeap) Push(x interface{}) { *h = append(*h, x.(*liveFaultEntry)) }
func (h *liveFaultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// liveFaultQueue is the live-fault priority queue: the union of all fired,
// time-bounded faults awaiting revert.
type liveFaultQueue struct {
	h liveFaultHeap
}

func newLiveFaultQueue() *liveFaultQueue {
	return &liveFaultQueue{}
}

func (q *liveFaultQueue) Push(triggerAddress uint64, prefault *big.Int, due uint64) {
	heap.Push(&q.h, &liveFaultEntry{triggerAddress: triggerAddress, prefault: prefault, due: due})
}

func (q *liveFaultQueue) Len() int {
	return q.h.Len()
}

// Peek returns the earliest-due entry without removing it.
func (q *liveFaultQueue) Peek() *liveFaultEntry {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// Pop removes and returns the earliest-due entry.
func (q *liveFaultQueue) Pop() *liveFaultEntry {
	return heap.Pop(&q.h).(*liveFaultEntry)
}
