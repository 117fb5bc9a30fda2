package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// BlockClosure instance-variable slot indices, matching the ivar order
// Bootstrap declares BlockClosure with ("outerContext", "startPc",
// "numArgs"). Trailing slots past blockClosureFixedSlotCount are the
// numCopied values captured from the enclosing frame's stack at
// pushClosure time (spec.md §4.4 "Closure creation").
const (
	blockClosureOuterContext = iota
	blockClosureStartPc
	blockClosureNumArgs

	blockClosureFixedSlotCount
)

// BlockClosure is a typed view over a block literal's runtime
// representation. Grounded on original_source/vm/Method.cpp's
// BlockClosure::create and spec.md §4.4's pushClosure opcode description.
type BlockClosure struct {
	Heap  *heap.Heap
	Value object.Value
}

// NewBlockClosure allocates a closure with room for numCopied captured
// values.
func NewBlockClosure(h *heap.Heap, numCopied int) (BlockClosure, error) {
	v, err := h.NewObject(blockClosureFixedSlotCount, numCopied, object.FormatVariableWithIvars, SpecialBlockClosure)
	if err != nil {
		return BlockClosure{}, err
	}
	return BlockClosure{Heap: h, Value: v}, nil
}

func (b BlockClosure) OuterContext() object.Value { return b.Heap.Slot(b.Value, blockClosureOuterContext) }
func (b BlockClosure) SetOuterContext(v object.Value) {
	b.Heap.SetSlot(b.Value, blockClosureOuterContext, v)
}

// StartPc is stored as a SmallInteger bytecode offset into the home
// method's literal/bytecode blob.
func (b BlockClosure) StartPc() int64 {
	return object.DecodeSmallInteger(b.Heap.Slot(b.Value, blockClosureStartPc))
}
func (b BlockClosure) SetStartPc(pc int64) {
	b.Heap.SetSlot(b.Value, blockClosureStartPc, object.EncodeSmallInteger(pc))
}

func (b BlockClosure) NumArgs() int64 {
	return object.DecodeSmallInteger(b.Heap.Slot(b.Value, blockClosureNumArgs))
}
func (b BlockClosure) SetNumArgs(n int64) {
	b.Heap.SetSlot(b.Value, blockClosureNumArgs, object.EncodeSmallInteger(n))
}

// Copied returns the i-th captured value.
func (b BlockClosure) Copied(i int) object.Value {
	return b.Heap.Slot(b.Value, blockClosureFixedSlotCount+i)
}

// SetCopied sets the i-th captured value.
func (b BlockClosure) SetCopied(i int, v object.Value) {
	b.Heap.SetSlot(b.Value, blockClosureFixedSlotCount+i, v)
}

// NumCopied returns the number of captured values.
func (b BlockClosure) NumCopied() int {
	return b.Heap.GetFixedSlotCount(b.Value) - blockClosureFixedSlotCount
}

// AsBlockClosure views an already-allocated BlockClosure-shaped Value.
func AsBlockClosure(h *heap.Heap, v object.Value) BlockClosure { return BlockClosure{Heap: h, Value: v} }
