package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// CompiledMethod is a typed view over spec.md §3's CompiledMethod row: a
// header word (tagged SmallInteger), then literalCount literal pointer
// words, then an indexable tail of raw bytecode bytes. Grounded on
// original_source/vm/Method.hpp's CompiledMethod layout (header +
// getFirstLiteralPointer + getFirstBCPointer).
//
// Only the header word is a class-level "fixed slot" (bootstrap declares
// CompiledMethod with a single pseudo instance variable, "header", so
// heap.ObjectSize/gc's CompiledMethod byte-length recovery -- both driven
// by the class's constant FixedVariableCount -- agree on the split); the
// literal words and the bytecode bytes that follow are both counted as
// part of the same byte-indexable variable region. Literal and bytecode
// access still go through heap.Slot/heap.Bytes at word/byte granularity
// respectively, since those only need an address, not a declared format.
type CompiledMethod struct {
	Heap         *heap.Heap
	Value        object.Value
	LiteralCount int
}

const compiledMethodHeaderSlot = 0

// NewCompiledMethod allocates a CompiledMethod with literalCount literal
// slots (nil-filled) and a bytecodeLength-byte indexable tail, its header
// word left zero until SetHeader is called once final sizes are known.
func NewCompiledMethod(h *heap.Heap, literalCount, bytecodeLength int) (CompiledMethod, error) {
	v, err := h.NewObject(1, literalCount*object.WordSize+bytecodeLength, object.FormatCompiledMethod, SpecialCompiledMethod)
	if err != nil {
		return CompiledMethod{}, err
	}
	m := CompiledMethod{Heap: h, Value: v, LiteralCount: literalCount}
	h.SetSlot(v, compiledMethodHeaderSlot, object.EncodeSmallInteger(0))
	for i := 0; i < literalCount; i++ {
		m.SetLiteral(i, object.Nil)
	}
	return m, nil
}

// Header decodes the method's own header word (distinct from the heap
// object header every value carries).
func (m CompiledMethod) Header() object.MethodHeader {
	return object.DecodeMethodHeader(object.DecodeSmallInteger(m.Heap.Slot(m.Value, compiledMethodHeaderSlot)))
}

func (m CompiledMethod) SetHeader(h object.MethodHeader) {
	raw := object.EncodeMethodHeader(h)
	m.Heap.SetSlot(m.Value, compiledMethodHeaderSlot, object.EncodeSmallInteger(raw))
}

// Literal returns the i-th literal slot (0-based).
func (m CompiledMethod) Literal(i int) object.Value { return m.Heap.Slot(m.Value, 1+i) }

// SetLiteral sets the i-th literal slot (0-based).
func (m CompiledMethod) SetLiteral(i int, v object.Value) { m.Heap.SetSlot(m.Value, 1+i, v) }

// Selector returns the method's selector symbol: spec.md §3 invariant
// "the last two literals of every CompiledMethod are respectively its
// selector ... and its class binding".
func (m CompiledMethod) Selector() object.Value { return m.Literal(m.LiteralCount - 2) }

// ClassBinding returns the class the method is installed on.
func (m CompiledMethod) ClassBinding() object.Value { return m.Literal(m.LiteralCount - 1) }

// BytecodeLength returns the number of raw bytecode bytes following the
// literal slots, recovered from the object's own combined slot count
// (spec.md §3: "exact byte length is recoverable from header alone").
func (m CompiledMethod) BytecodeLength() int {
	combined := m.Heap.GetFixedSlotCount(m.Value) // 1 (header) + literalCount*WordSize + bytecodeLength
	return combined - 1 - m.LiteralCount*object.WordSize
}

// Bytecode returns the raw bytecode bytes following the literal slots, as
// a direct slice into heap memory (do not retain across a GC cycle).
func (m CompiledMethod) Bytecode() []byte {
	return m.Heap.Bytes(m.Value, (1+m.LiteralCount)*object.WordSize, m.BytecodeLength())
}

// AsCompiledMethod views an already-allocated CompiledMethod-format Value
// whose literal count is known (typically from its header).
func AsCompiledMethod(h *heap.Heap, v object.Value) CompiledMethod {
	lc := object.DecodeMethodHeader(object.DecodeSmallInteger(h.Slot(v, compiledMethodHeaderSlot))).LiteralCount
	return CompiledMethod{Heap: h, Value: v, LiteralCount: lc}
}
