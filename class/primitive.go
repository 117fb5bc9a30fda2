package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// PrimitiveFunc is a native (Go-implemented) method body: it receives the
// message receiver and argument vector and returns either a result value
// or an error the interpreter surfaces as a primitive failure (spec.md
// §4.4: "A hit yielding a primitive (native) method invokes it with the
// receiver and argument vector ... and does not create a new frame").
type PrimitiveFunc func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error)

// nativeMethodIndex is the single fixed slot of a NativeMethod object: a
// SmallInteger index into its owning PrimitiveTable. Grounded on
// original_source/vm/Method.cpp's NativeMethod, which stores a raw
// NativeMethodWrapper* the same way; a Go func value cannot be written
// into heap memory, so this implementation indirects through a table
// instead of storing the pointer in-line.
const nativeMethodIndex = 0

// PrimitiveTable owns the Go-side registry of primitive implementations
// a heap's NativeMethod objects index into. One table is created per
// Heap (via NewPrimitiveTable) and consulted by package interp's message
// dispatch when a method lookup resolves to a NativeMethod instance.
type PrimitiveTable struct {
	heap *heap.Heap
	fns  []PrimitiveFunc
}

// NewPrimitiveTable creates an empty table bound to h.
func NewPrimitiveTable(h *heap.Heap) *PrimitiveTable {
	return &PrimitiveTable{heap: h}
}

// Register allocates a new NativeMethod object wrapping fn and returns it,
// ready to be stored as a MethodDictionary value.
func (t *PrimitiveTable) Register(fn PrimitiveFunc) (object.Value, error) {
	index := len(t.fns)
	t.fns = append(t.fns, fn)

	v, err := t.heap.NewObject(1, 0, object.FormatFixed, SpecialNativeMethod)
	if err != nil {
		return 0, err
	}
	t.heap.SetSlot(v, nativeMethodIndex, object.EncodeSmallInteger(int64(index)))
	return v, nil
}

// Lookup resolves a NativeMethod Value back to its Go implementation.
func (t *PrimitiveTable) Lookup(v object.Value) PrimitiveFunc {
	index := object.DecodeSmallInteger(t.heap.Slot(v, nativeMethodIndex))
	return t.fns[index]
}

// IsNativeMethod reports whether v's class index is SpecialNativeMethod,
// i.e. it is one of this table's own wrapper objects rather than a
// CompiledMethod.
func IsNativeMethod(h *heap.Heap, v object.Value) bool {
	return v.IsPointer() && v != object.Nil && h.ReadHeader(v).ClassIndex == SpecialNativeMethod
}
