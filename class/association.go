package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Association instance-variable slot indices, matching the ivar order
// Bootstrap declares Association with ("key", "value").
const (
	associationKey = iota
	associationValue

	associationSlotCount
)

// Association is a typed view over a key/value binding, the indirection
// spec.md §4.3's literal-variable push/store goes through: a global or
// class-pool variable is addressed in a CompiledMethod's literal pool not
// by its value directly but by the Association holding it, so every
// compiled reference to the same variable observes later rebinds.
type Association struct {
	Heap  *heap.Heap
	Value object.Value
}

// NewAssociation allocates a fresh Association with key and an initial
// value of nil.
func NewAssociation(h *heap.Heap, key object.Value) (Association, error) {
	v, err := h.NewObject(associationSlotCount, 0, object.FormatFixed, SpecialAssociation)
	if err != nil {
		return Association{}, err
	}
	a := Association{Heap: h, Value: v}
	h.SetSlot(v, associationKey, key)
	return a, nil
}

func (a Association) Key() object.Value          { return a.Heap.Slot(a.Value, associationKey) }
func (a Association) GetValue() object.Value     { return a.Heap.Slot(a.Value, associationValue) }
func (a Association) SetValue(v object.Value)     { a.Heap.SetSlot(a.Value, associationValue, v) }

// AsAssociation views an already-allocated Association-shaped Value.
func AsAssociation(h *heap.Heap, v object.Value) Association {
	return Association{Heap: h, Value: v}
}
