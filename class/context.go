package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Context instance-variable slot indices, matching the ivar order
// Bootstrap declares Context with ("sender", "pc", "stackp", "method",
// "closureOrNil", "receiver") -- spec.md §4.4's "frame marriage" fields.
// Slots at or past contextFixedSlotCount are the married frame's own
// temporaries and operand stack, copied verbatim at marriage time.
const (
	contextSender = iota
	contextPC
	contextStackp
	contextMethod
	contextClosureOrNil
	contextReceiver

	contextFixedSlotCount
)

// Context is a typed view over a married activation frame: a heap object
// a stack Frame's live state is copied into once it must be addressable
// (a closure escapes it, thisContext is requested, or the interpreter
// crosses a stack page boundary). Grounded on
// original_source/vm/StackMemory.hpp's StackFrame plus
// original_source/vm/Method.cpp's Context::create.
type Context struct {
	Heap  *heap.Heap
	Value object.Value
}

// NewContext allocates a married context with room for extraSlots
// trailing temporary/operand-stack slots copied from the frame it marries.
func NewContext(h *heap.Heap, extraSlots int) (Context, error) {
	v, err := h.NewObject(contextFixedSlotCount, extraSlots, object.FormatVariableWithIvars, SpecialContext)
	if err != nil {
		return Context{}, err
	}
	return Context{Heap: h, Value: v}, nil
}

func (c Context) Sender() object.Value       { return c.Heap.Slot(c.Value, contextSender) }
func (c Context) SetSender(v object.Value)   { c.Heap.SetSlot(c.Value, contextSender, v) }
func (c Context) PC() object.Value           { return c.Heap.Slot(c.Value, contextPC) }
func (c Context) SetPC(v object.Value)       { c.Heap.SetSlot(c.Value, contextPC, v) }
func (c Context) Stackp() object.Value       { return c.Heap.Slot(c.Value, contextStackp) }
func (c Context) SetStackp(v object.Value)   { c.Heap.SetSlot(c.Value, contextStackp, v) }
func (c Context) Method() object.Value       { return c.Heap.Slot(c.Value, contextMethod) }
func (c Context) SetMethod(v object.Value)   { c.Heap.SetSlot(c.Value, contextMethod, v) }
func (c Context) ClosureOrNil() object.Value { return c.Heap.Slot(c.Value, contextClosureOrNil) }
func (c Context) SetClosureOrNil(v object.Value) {
	c.Heap.SetSlot(c.Value, contextClosureOrNil, v)
}
func (c Context) Receiver() object.Value     { return c.Heap.Slot(c.Value, contextReceiver) }
func (c Context) SetReceiver(v object.Value) { c.Heap.SetSlot(c.Value, contextReceiver, v) }

// Data returns the i-th married temporary/operand-stack slot.
func (c Context) Data(i int) object.Value { return c.Heap.Slot(c.Value, contextFixedSlotCount+i) }

// SetData sets the i-th married temporary/operand-stack slot.
func (c Context) SetData(i int, v object.Value) {
	c.Heap.SetSlot(c.Value, contextFixedSlotCount+i, v)
}

// DataSize returns the number of married temporary/operand-stack slots.
func (c Context) DataSize() int {
	return c.Heap.GetFixedSlotCount(c.Value) - contextFixedSlotCount
}

// AsContext views an already-allocated Context-shaped Value.
func AsContext(h *heap.Heap, v object.Value) Context { return Context{Heap: h, Value: v} }
