package heap

import (
	"errors"
	"testing"

	lterrors "github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

func TestNewObjectFixedSlots(t *testing.T) {
	h := New(Config{ReservedBytes: 4096})

	v, err := h.NewObject(3, 0, object.FormatFixed, 7)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	hdr := h.ReadHeader(v)
	if hdr.SlotCount != 3 {
		t.Errorf("SlotCount = %d, want 3", hdr.SlotCount)
	}
	if hdr.Format != object.FormatFixed {
		t.Errorf("Format = %v, want Fixed", hdr.Format)
	}
	if hdr.ClassIndex != 7 {
		t.Errorf("ClassIndex = %d, want 7", hdr.ClassIndex)
	}

	for i := 0; i < 3; i++ {
		if got := h.Slot(v, i); got != object.Nil {
			t.Errorf("slot %d = %v, want Nil", i, got)
		}
	}

	h.SetSlot(v, 1, object.EncodeSmallInteger(42))
	if got := h.Slot(v, 1); got != object.EncodeSmallInteger(42) {
		t.Errorf("slot 1 after SetSlot = %v, want SmallInteger(42)", got)
	}
	// Untouched neighbors stay Nil.
	if got := h.Slot(v, 0); got != object.Nil {
		t.Errorf("slot 0 = %v, want Nil", got)
	}
}

func TestNewObjectIndexableBytes(t *testing.T) {
	h := New(Config{ReservedBytes: 4096})

	v, err := h.NewObject(0, 5, object.FormatIndexable8, 1)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	data := h.Bytes(v, 0, 5)
	if len(data) != 5 {
		t.Fatalf("Bytes length = %d, want 5", len(data))
	}
	copy(data, []byte("hello"))

	readBack := h.Bytes(v, 0, 5)
	if string(readBack) != "hello" {
		t.Errorf("readBack = %q, want %q", readBack, "hello")
	}
}

func TestNewObjectByteArrayIsWordRoundedNotSlotMultiplied(t *testing.T) {
	h := New(Config{ReservedBytes: 4096})

	before := h.Size()
	_, err := h.NewObject(0, 100, object.FormatIndexable8, 1)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	used := h.Size() - before
	// forwarding slot(8) + header(8) + ceil(100/8)*8 payload(104) = 120,
	// not 100*8=800 (which a slot-count*WordSize miscalculation would give).
	want := 8 + 8 + 104
	if used != want {
		t.Errorf("bytes committed = %d, want %d", used, want)
	}
}

func TestGetFixedSlotCountExtended(t *testing.T) {
	h := New(Config{ReservedBytes: 1 << 20})

	// 300 fixed slots forces the extended slot count word.
	v, err := h.NewObject(300, 0, object.FormatFixed, 1)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	hdr := h.ReadHeader(v)
	if hdr.SlotCount != object.ExtendedSlotCount {
		t.Fatalf("SlotCount = %d, want sentinel %d", hdr.SlotCount, object.ExtendedSlotCount)
	}
	if got := h.GetFixedSlotCount(v); got != 300 {
		t.Errorf("GetFixedSlotCount = %d, want 300", got)
	}

	h.SetSlot(v, 299, object.EncodeSmallInteger(-1))
	if got := h.Slot(v, 299); got != object.EncodeSmallInteger(-1) {
		t.Errorf("slot 299 = %v, want SmallInteger(-1)", got)
	}
}

func TestAllocateOutOfMemory(t *testing.T) {
	h := New(Config{ReservedBytes: 64})

	_, err := h.NewObject(1000, 0, object.FormatFixed, 0)
	if err == nil {
		t.Fatal("expected out-of-memory error")
	}
	var vmErr *lterrors.Error
	if !errors.As(err, &vmErr) {
		t.Fatalf("error type = %T, want *errors.Error", err)
	}
	if vmErr.Kind != lterrors.KindOutOfMemory {
		t.Errorf("Kind = %v, want KindOutOfMemory", vmErr.Kind)
	}
}

func TestClassTableRegisterAndGet(t *testing.T) {
	ct := newClassTable()

	a := object.PointerValue(0x100)
	b := object.PointerValue(0x200)

	idxA := ct.Register(a)
	idxB := ct.Register(b)
	if idxA == idxB {
		t.Fatalf("expected distinct indices, got %d and %d", idxA, idxB)
	}
	if got := ct.Get(idxA); got != a {
		t.Errorf("Get(%d) = %v, want %v", idxA, got, a)
	}
	if got := ct.Get(idxB); got != b {
		t.Errorf("Get(%d) = %v, want %v", idxB, got, b)
	}
}

func TestClassTableAddSpecialAndPaging(t *testing.T) {
	ct := newClassTable()

	special := object.PointerValue(0xABC)
	ct.AddSpecial(special, classesPerPage+5) // forces a second page to be allocated

	if got := ct.Get(classesPerPage + 5); got != special {
		t.Errorf("Get = %v, want %v", got, special)
	}
	if got := ct.Get(0); got != object.Nil {
		t.Errorf("Get(0) = %v, want Nil (unregistered gap)", got)
	}
	if ct.Len() != classesPerPage+6 {
		t.Errorf("Len() = %d, want %d", ct.Len(), classesPerPage+6)
	}
}

func TestClassTableGetOutOfRange(t *testing.T) {
	ct := newClassTable()
	if got := ct.Get(999); got != object.Nil {
		t.Errorf("Get on empty table = %v, want Nil", got)
	}
}

func TestHeapCursorTracksAllocations(t *testing.T) {
	h := New(Config{ReservedBytes: 4096})

	before := h.Size()
	_, err := h.NewObject(2, 0, object.FormatFixed, 0)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	after := h.Size()
	if after <= before {
		t.Errorf("Size did not grow: before=%d after=%d", before, after)
	}
}
