package class

import (
	"testing"

	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

func TestBuilderDeclaresClassWithIvarsAndMethods(t *testing.T) {
	h := newTestHeap(t)
	r := NewRegistry(h)

	var calledWith object.Value
	getX := func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		calledWith = receiver
		return h.Slot(receiver, 0), nil
	}

	b, err := r.NewClass("Point", Class{})
	if err != nil {
		t.Fatalf("NewClass: %v", err)
	}
	b.AddInstanceVariables("x", "y")
	b.AddMethod("x", getX)

	point, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if point.FixedVariableCount() != 2 {
		t.Errorf("FixedVariableCount() = %d, want 2", point.FixedVariableCount())
	}
	if point.Format() != object.FormatFixed {
		t.Errorf("Format() = %v, want Fixed", point.Format())
	}

	ivars := AsArray(h, point.InstanceVariables())
	if ivars.Size() != 2 {
		t.Fatalf("instanceVariables size = %d, want 2", ivars.Size())
	}
	if got := ByteContents(h, ivars.At(0)); got != "x" {
		t.Errorf("instanceVariables[0] = %q, want %q", got, "x")
	}

	pointIndex, ok := r.IndexOf(point)
	if !ok {
		t.Fatal("IndexOf(point): not found")
	}
	instance, err := h.NewObject(point.FixedVariableCount(), 0, point.Format(), pointIndex)
	if err != nil {
		t.Fatalf("NewObject(instance): %v", err)
	}
	h.SetSlot(instance, 0, object.EncodeSmallInteger(42))

	selector, err := r.Symbols.Intern("x")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	dict := AsMethodDictionary(h, point.MethodDict())
	method := dict.At(selector)
	if method == object.Nil {
		t.Fatal("method dictionary missing selector #x")
	}
	if !IsNativeMethod(h, method) {
		t.Fatal("expected #x to resolve to a NativeMethod")
	}

	result, err := r.Primitives.Lookup(method)(h, instance, nil)
	if err != nil {
		t.Fatalf("primitive invocation: %v", err)
	}
	if result != object.EncodeSmallInteger(42) {
		t.Errorf("result = %v, want SmallInteger(42)", result)
	}
	if calledWith != instance {
		t.Errorf("primitive was called with %v, want %v", calledWith, instance)
	}
}

func TestBuilderInheritsSuperclassFormat(t *testing.T) {
	h := newTestHeap(t)
	r := NewRegistry(h)

	baseB, err := r.NewClass("Shape", Class{})
	if err != nil {
		t.Fatalf("NewClass(Shape): %v", err)
	}
	baseB.AddInstanceVariable("color")
	base, err := baseB.Finish()
	if err != nil {
		t.Fatalf("Finish(Shape): %v", err)
	}

	subB, err := r.NewClass("Circle", base)
	if err != nil {
		t.Fatalf("NewClass(Circle): %v", err)
	}
	subB.AddInstanceVariable("radius")
	sub, err := subB.Finish()
	if err != nil {
		t.Fatalf("Finish(Circle): %v", err)
	}

	if sub.FixedVariableCount() != 2 {
		t.Errorf("Circle.FixedVariableCount() = %d, want 2 (1 inherited + 1 own)", sub.FixedVariableCount())
	}
	if sub.SuperClass() != base.Value {
		t.Errorf("Circle.SuperClass() = %v, want %v", sub.SuperClass(), base.Value)
	}
}
