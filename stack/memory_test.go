package stack

import (
	"testing"

	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	h := heap.New(heap.Config{ReservedBytes: 1 << 20})
	registry := class.NewRegistry(h)
	return NewMemory(registry, NewPagePool())
}

func TestPushPopRoundTrip(t *testing.T) {
	m := newTestMemory(t)
	m.Push(object.EncodeSmallInteger(1))
	m.Push(object.EncodeSmallInteger(2))
	if got := m.Pop(); got != object.EncodeSmallInteger(2) {
		t.Errorf("Pop() = %v, want 2", got)
	}
	if got := m.Pop(); got != object.EncodeSmallInteger(1) {
		t.Errorf("Pop() = %v, want 1", got)
	}
}

func TestActivateFrameStoresReceiverMethodAndArguments(t *testing.T) {
	m := newTestMemory(t)

	method := object.EncodeSmallInteger(99) // stand-in oop, shape irrelevant here
	receiver := object.EncodeSmallInteger(7)
	args := []object.Value{object.EncodeSmallInteger(10), object.EncodeSmallInteger(20)}

	f, err := m.ActivateFrame(method, receiver, args, false, 0, 0)
	if err != nil {
		t.Fatalf("ActivateFrame: %v", err)
	}

	if f.Method() != method {
		t.Errorf("Method() = %v, want %v", f.Method(), method)
	}
	if f.Receiver() != receiver {
		t.Errorf("Receiver() = %v, want %v", f.Receiver(), receiver)
	}
	argCount, isBlock, hasContext := f.Metadata()
	if argCount != 2 || isBlock || hasContext {
		t.Errorf("Metadata() = (%d, %v, %v), want (2, false, false)", argCount, isBlock, hasContext)
	}
	if f.Argument(0) != args[0] || f.Argument(1) != args[1] {
		t.Errorf("arguments not preserved in order: got %v, %v", f.Argument(0), f.Argument(1))
	}
	if !m.HasFrame() {
		t.Error("HasFrame() = false after ActivateFrame")
	}
}

func TestPopFrameRestoresCallerAndPushesResult(t *testing.T) {
	m := newTestMemory(t)
	m.Push(object.EncodeSmallInteger(111)) // a value already on the caller's stack

	method := object.EncodeSmallInteger(1)
	receiver := object.EncodeSmallInteger(2)
	args := []object.Value{object.EncodeSmallInteger(3)}

	if _, err := m.ActivateFrame(method, receiver, args, false, 42, 0); err != nil {
		t.Fatalf("ActivateFrame: %v", err)
	}
	if !m.HasFrame() {
		t.Fatal("expected a frame after ActivateFrame")
	}

	info, err := m.PopFrame(object.EncodeSmallInteger(999))
	if err != nil {
		t.Fatalf("PopFrame: %v", err)
	}
	if info.ReturnPC != 42 {
		t.Errorf("ReturnPC = %d, want 42", info.ReturnPC)
	}
	if info.HasPrevFrame {
		t.Error("HasPrevFrame = true, want false (top-level caller)")
	}
	if m.HasFrame() {
		t.Error("HasFrame() = true after popping the only frame")
	}
	if got := m.Pop(); got != object.EncodeSmallInteger(999) {
		t.Errorf("result on top of stack = %v, want 999", got)
	}
	if got := m.Pop(); got != object.EncodeSmallInteger(111) {
		t.Errorf("caller's own value = %v, want 111 (preserved under the call)", got)
	}
}

func TestMarryAllocatesContextOnce(t *testing.T) {
	m := newTestMemory(t)
	if _, err := m.ActivateFrame(object.Nil, object.EncodeSmallInteger(5), nil, false, 0, 0); err != nil {
		t.Fatalf("ActivateFrame: %v", err)
	}

	ctx1, err := m.Marry(7)
	if err != nil {
		t.Fatalf("Marry: %v", err)
	}
	if ctx1 == object.Nil {
		t.Fatal("Marry returned nil context")
	}
	ctx2, err := m.Marry(7)
	if err != nil {
		t.Fatalf("Marry (second call): %v", err)
	}
	if ctx1 != ctx2 {
		t.Error("Marry allocated a second Context instead of reusing the existing one")
	}

	view := class.AsContext(m.Heap.Heap, ctx1)
	if view.Receiver() != object.EncodeSmallInteger(5) {
		t.Errorf("married Context receiver = %v, want 5", view.Receiver())
	}
}

func TestWalkRootsVisitsMethodReceiverAndOperandStack(t *testing.T) {
	m := newTestMemory(t)
	method := object.EncodeSmallInteger(1)
	receiver := object.EncodeSmallInteger(2)
	if _, err := m.ActivateFrame(method, receiver, nil, false, 0, 0); err != nil {
		t.Fatalf("ActivateFrame: %v", err)
	}
	m.Push(object.EncodeSmallInteger(3))
	m.Push(object.EncodeSmallInteger(4))

	var visited []object.Value
	m.WalkRoots(func(slot *object.Value) { visited = append(visited, *slot) })

	found := func(want object.Value) bool {
		for _, v := range visited {
			if v == want {
				return true
			}
		}
		return false
	}
	for _, want := range []object.Value{method, receiver, object.EncodeSmallInteger(3), object.EncodeSmallInteger(4)} {
		if !found(want) {
			t.Errorf("WalkRoots did not visit %v", want)
		}
	}
}
