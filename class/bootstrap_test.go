package class

import (
	"testing"

	"github.com/lodtalk-go/vm/object"
)

func TestBootstrapBuildsSpecialClasses(t *testing.T) {
	h := newTestHeap(t)
	bs, err := NewBootstrap(h)
	if err != nil {
		t.Fatalf("NewBootstrap: %v", err)
	}

	if bs.Nil == object.Nil {
		t.Error("Nil singleton not set")
	}
	if bs.True == object.Nil {
		t.Error("True singleton not set")
	}
	if bs.False == object.Nil {
		t.Error("False singleton not set")
	}
	if h.ReadHeader(bs.Nil).ClassIndex != SpecialUndefinedObject {
		t.Errorf("Nil's class index = %d, want %d", h.ReadHeader(bs.Nil).ClassIndex, SpecialUndefinedObject)
	}

	// Behavior declares 5 slots, matching spec.md's Behavior row.
	if bs.Behavior.FixedVariableCount() != 5 {
		t.Errorf("Behavior.FixedVariableCount() = %d, want 5", bs.Behavior.FixedVariableCount())
	}
	// ClassDescription adds 2 more.
	if bs.ClassDescription.FixedVariableCount() != 7 {
		t.Errorf("ClassDescription.FixedVariableCount() = %d, want 7", bs.ClassDescription.FixedVariableCount())
	}
	// Class adds 8 more on top of ClassDescription's 7.
	if bs.ClassClass.FixedVariableCount() != 15 {
		t.Errorf("Class.FixedVariableCount() = %d, want 15", bs.ClassClass.FixedVariableCount())
	}
	// Metaclass adds 3 more on top of ClassDescription's 7.
	if bs.Metaclass.FixedVariableCount() != 10 {
		t.Errorf("Metaclass.FixedVariableCount() = %d, want 10", bs.Metaclass.FixedVariableCount())
	}

	// "The metaclass of each class occupies the slot immediately after
	// its class" (spec.md §3).
	classIndex, ok := bs.Registry.IndexOf(bs.UndefinedObject)
	if !ok {
		t.Fatal("IndexOf(UndefinedObject): not found")
	}
	if classIndex != SpecialUndefinedObject {
		t.Errorf("UndefinedObject's own index = %d, want %d", classIndex, SpecialUndefinedObject)
	}
	metaclassValue := h.Classes().Get(classIndex + 1)
	if metaclassValue == object.Nil {
		t.Fatal("no metaclass registered immediately after UndefinedObject")
	}
	meta := AsMetaclass(h, metaclassValue)
	if meta.ThisClass() != bs.UndefinedObject.Value {
		t.Errorf("metaclass.ThisClass() = %v, want UndefinedObject %v", meta.ThisClass(), bs.UndefinedObject.Value)
	}

	// ByteString is byte-indexable.
	if bs.ByteString.Format() != object.FormatIndexable8 {
		t.Errorf("ByteString.Format() = %v, want Indexable8", bs.ByteString.Format())
	}

	// The fixed-slot-counter callback the bootstrap wires must agree with
	// Behavior.FixedVariableCount for every declared class.
	if got := h.ClassFixedSlotCount(SpecialBehavior); got != bs.Behavior.FixedVariableCount() {
		t.Errorf("ClassFixedSlotCount(Behavior) = %d, want %d", got, bs.Behavior.FixedVariableCount())
	}
}

func TestBootstrapMetaclassSuperclassChain(t *testing.T) {
	h := newTestHeap(t)
	bs, err := NewBootstrap(h)
	if err != nil {
		t.Fatalf("NewBootstrap: %v", err)
	}

	// True's metaclass superclass should be Boolean's metaclass.
	trueIndex, ok := bs.Registry.IndexOf(bs.TrueClass)
	if !ok {
		t.Fatal("IndexOf(TrueClass): not found")
	}
	trueMetaclass := AsMetaclass(h, h.Classes().Get(trueIndex+1))

	boolIndex, ok := bs.Registry.IndexOf(bs.Boolean)
	if !ok {
		t.Fatal("IndexOf(Boolean): not found")
	}
	boolMetaclass := h.Classes().Get(boolIndex + 1)

	if trueMetaclass.SuperClass() != boolMetaclass {
		t.Errorf("True class's superclass = %v, want Boolean class %v", trueMetaclass.SuperClass(), boolMetaclass)
	}
}
