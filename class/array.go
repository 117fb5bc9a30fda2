package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Array is a typed view over a variable-pointer-slot object (spec.md §3's
// "Array | variable pointer slots" row). MethodDictionary's keyArray and
// valueArray, and ClassDescription's instanceVariables, are all plain
// Arrays under this shape.
type Array struct {
	Heap  *heap.Heap
	Value object.Value
}

// NewArray allocates a new Array of size n, every slot initialized to nil.
func NewArray(h *heap.Heap, n int) (Array, error) {
	v, err := h.NewObject(0, n, object.FormatVariable, SpecialArray)
	if err != nil {
		return Array{}, err
	}
	return Array{Heap: h, Value: v}, nil
}

// Size returns the number of slots in the array.
func (a Array) Size() int { return a.Heap.GetFixedSlotCount(a.Value) }

// At returns the i-th element (0-based).
func (a Array) At(i int) object.Value { return a.Heap.Slot(a.Value, i) }

// AtPut sets the i-th element (0-based).
func (a Array) AtPut(i int, v object.Value) { a.Heap.SetSlot(a.Value, i, v) }

// AsArray views an already-allocated variable-pointer-slot Value as an
// Array.
func AsArray(h *heap.Heap, v object.Value) Array { return Array{Heap: h, Value: v} }
