package engine

import (
	"math/big"
	"testing"
)

func TestLiveFaultQueueOrdersByDue(t *testing.T) {
	q := newLiveFaultQueue()
	q.Push(0x100, big.NewInt(1), 50)
	q.Push(0x200, big.NewInt(2), 10)
	q.Push(0x300, big.NewInt(3), 30)

	var order []uint64
	for q.Len() > 0 {
		order = append(order, q.Pop().triggerAddress)
	}

	want := []uint64{0x200, 0x300, 0x100}
	if len(order) != len(want) {
		t.Fatalf("got %d entries, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = 0x%x, want 0x%x", i, order[i], want[i])
		}
	}
}

func TestLiveFaultQueuePeekDoesNotRemove(t *testing.T) {
	q := newLiveFaultQueue()
	q.Push(0x1, big.NewInt(0), 5)

	first := q.Peek()
	if first == nil || first.triggerAddress != 0x1 {
		t.Fatalf("Peek returned %+v, want trigger 0x1", first)
	}
	if q.Len() != 1 {
		t.Fatalf("Peek should not remove; Len() = %d, want 1", q.Len())
	}
}

func TestLiveFaultQueueEmptyPeekIsNil(t *testing.T) {
	q := newLiveFaultQueue()
	if q.Peek() != nil {
		t.Errorf("Peek on empty queue should return nil")
	}
}
