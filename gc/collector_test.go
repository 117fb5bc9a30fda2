package gc

import (
	"testing"

	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

func newTestHeap(t *testing.T) *heap.Heap {
	t.Helper()
	return heap.New(heap.Config{ReservedBytes: 1 << 16})
}

func TestCollectCompactsUnreachableGarbage(t *testing.T) {
	h := newTestHeap(t)
	c := New(h)

	// C is referenced by A; B is garbage (never rooted or referenced).
	cVal, err := h.NewObject(0, 0, object.FormatFixed, 1)
	if err != nil {
		t.Fatalf("NewObject(C): %v", err)
	}
	_, err = h.NewObject(0, 0, object.FormatFixed, 1) // B, garbage
	if err != nil {
		t.Fatalf("NewObject(B): %v", err)
	}
	aVal, err := h.NewObject(1, 0, object.FormatFixed, 2)
	if err != nil {
		t.Fatalf("NewObject(A): %v", err)
	}
	h.SetSlot(aVal, 0, cVal)

	root := aVal
	c.RegisterRoot(&root)

	before := h.Size()
	stats := c.Collect()
	if stats.Aborted {
		t.Fatalf("expected collection to run (B is garbage), got Aborted")
	}
	if stats.ObjectsFreed != 1 {
		t.Errorf("ObjectsFreed = %d, want 1", stats.ObjectsFreed)
	}
	if h.Size() >= before {
		t.Errorf("heap did not shrink: before=%d after=%d", before, h.Size())
	}

	// root was rewritten in place; A's slot 0 must still point at a live,
	// readable C (its class index survives the move).
	newA := root
	newC := h.Slot(newA, 0)
	if h.ReadHeader(newC).ClassIndex != 1 {
		t.Errorf("A's slot after compaction: ClassIndex = %d, want 1", h.ReadHeader(newC).ClassIndex)
	}
}

func TestCollectAbortsWhenNothingCollectible(t *testing.T) {
	h := newTestHeap(t)
	c := New(h)

	v, err := h.NewObject(0, 0, object.FormatFixed, 1)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	root := v
	c.RegisterRoot(&root)

	before := h.Size()
	stats := c.Collect()
	if !stats.Aborted {
		t.Errorf("expected Aborted=true, got false")
	}
	if h.Size() != before {
		t.Errorf("heap size changed on aborted collection: before=%d after=%d", before, h.Size())
	}
}

func TestDisableSkipsCollection(t *testing.T) {
	h := newTestHeap(t)
	c := New(h)

	_, err := h.NewObject(0, 0, object.FormatFixed, 1) // garbage, unrooted
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	c.Disable()
	stats := c.Collect()
	if !stats.Aborted {
		t.Errorf("expected Aborted=true while disabled")
	}

	c.Enable()
	stats = c.Collect()
	if stats.Aborted {
		t.Errorf("expected collection to run once re-enabled")
	}
	if stats.ObjectsFreed != 1 {
		t.Errorf("ObjectsFreed = %d, want 1", stats.ObjectsFreed)
	}
}

func TestWeakSlotClearedWhenTargetDies(t *testing.T) {
	h := newTestHeap(t)
	c := New(h)

	nilObj, err := h.NewObject(0, 0, object.FormatEmpty, 0)
	if err != nil {
		t.Fatalf("NewObject(nil sentinel): %v", err)
	}
	c.SetNilValue(nilObj)

	target, err := h.NewObject(0, 0, object.FormatFixed, 5) // unrooted, dies
	if err != nil {
		t.Fatalf("NewObject(target): %v", err)
	}
	weak, err := h.NewObject(1, 0, object.FormatWeakFixed, 6)
	if err != nil {
		t.Fatalf("NewObject(weak): %v", err)
	}
	h.SetSlot(weak, 0, target)

	root := weak
	c.RegisterRoot(&root)
	// Keep the nil sentinel itself alive too, since Collect would
	// otherwise reclaim it as unrooted garbage.
	nilRoot := nilObj
	c.RegisterRoot(&nilRoot)

	c.Collect()

	newWeak := root
	if got := h.Slot(newWeak, 0); got != nilRoot {
		t.Errorf("weak slot after target died = %v, want nil sentinel %v", got, nilRoot)
	}
}

func TestStackWalkerRootsAreMarkedAndRewritten(t *testing.T) {
	h := newTestHeap(t)
	c := New(h)

	keep, err := h.NewObject(0, 0, object.FormatFixed, 9)
	if err != nil {
		t.Fatalf("NewObject(keep): %v", err)
	}
	_, err = h.NewObject(0, 0, object.FormatFixed, 9) // garbage
	if err != nil {
		t.Fatalf("NewObject(garbage): %v", err)
	}

	slots := []object.Value{keep}
	walker := &sliceWalker{slots: slots}
	c.RegisterStackWalker(walker)

	stats := c.Collect()
	if stats.ObjectsFreed != 1 {
		t.Errorf("ObjectsFreed = %d, want 1", stats.ObjectsFreed)
	}
	if h.ReadHeader(walker.slots[0]).ClassIndex != 9 {
		t.Errorf("stack slot after compaction: ClassIndex = %d, want 9", h.ReadHeader(walker.slots[0]).ClassIndex)
	}
}

type sliceWalker struct{ slots []object.Value }

func (w *sliceWalker) WalkRoots(yield func(slot *object.Value)) {
	for i := range w.slots {
		yield(&w.slots[i])
	}
}
