package stack

import "github.com/lodtalk-go/vm/object"

// Frame-relative slot offsets, in words, mirroring spec.md §4.4's frame
// layout table and original_source/vm/StackMemory.hpp's
// InterpreterStackFrame namespace. Unlike the C++ original (byte offsets
// from a raw frame pointer), these index a Page's words array directly:
// offset N means page.words[fp+N].
const (
	offsetLastArgument = 2  // +2w and higher: arguments, right-to-left
	offsetReturnPC     = 1  // +1w: return program counter (0 = terminal)
	offsetPrevFP       = 0  // 0: saved previous frame pointer
	offsetMethod       = -1 // -1w: current compiled method
	offsetMetadata     = -2 // -2w: argument count / isBlock / hasContext
	offsetThisContext  = -3 // -3w: married context (nil until married)
	offsetReceiver     = -4 // -4w: receiver
	offsetFirstTemp    = -5 // -5w and lower: temporaries and operand stack
)

// noPrevFP is the sentinel stored in the prevFP slot for the oldest frame
// on a page (distinct from 0, which is itself a valid in-page word index).
const noPrevFP = -1

func encodeMetadata(argCount int, isBlock, hasContext bool) object.Value {
	m := int64(argCount & 0xFF)
	if isBlock {
		m |= 1 << 8
	}
	if hasContext {
		m |= 1 << 16
	}
	return object.EncodeSmallInteger(m)
}

func decodeMetadata(v object.Value) (argCount int, isBlock, hasContext bool) {
	m := object.DecodeSmallInteger(v)
	argCount = int(m & 0xFF)
	isBlock = m&(1<<8) != 0
	hasContext = m&(1<<16) != 0
	return
}

// Frame is a view over one activation record living at index fp within
// page.words. It is a thin cursor, not an owner -- Memory is what
// allocates, activates, and pops frames.
type Frame struct {
	page *Page
	fp   int
}

func (f Frame) slot(offset int) *object.Value { return &f.page.words[f.fp+offset] }

// PrevFramePointer returns the in-page index of the previous frame, and
// false if this is the oldest frame on its page (it may still have a
// married sender on a different page, reachable only through its
// ThisContext once married).
func (f Frame) PrevFramePointer() (int, bool) {
	prev := object.DecodeSmallInteger(*f.slot(offsetPrevFP))
	if prev == noPrevFP {
		return 0, false
	}
	return int(prev), true
}

func (f Frame) setPrevFramePointer(fp int) {
	*f.slot(offsetPrevFP) = object.EncodeSmallInteger(int64(fp))
}

// ReturnPC is the bytecode offset execution resumes at in the caller's
// method once this frame returns; 0 signals a terminal frame (spec.md
// §4.4's frame layout table).
func (f Frame) ReturnPC() int64      { return object.DecodeSmallInteger(*f.slot(offsetReturnPC)) }
func (f Frame) SetReturnPC(pc int64) { *f.slot(offsetReturnPC) = object.EncodeSmallInteger(pc) }

func (f Frame) Method() object.Value     { return *f.slot(offsetMethod) }
func (f Frame) SetMethod(v object.Value) { *f.slot(offsetMethod) = v }

func (f Frame) ThisContext() object.Value     { return *f.slot(offsetThisContext) }
func (f Frame) SetThisContext(v object.Value) { *f.slot(offsetThisContext) = v }

func (f Frame) Receiver() object.Value     { return *f.slot(offsetReceiver) }
func (f Frame) SetReceiver(v object.Value) { *f.slot(offsetReceiver) = v }

func (f Frame) Metadata() (argCount int, isBlock, hasContext bool) {
	return decodeMetadata(*f.slot(offsetMetadata))
}

func (f Frame) setMetadata(argCount int, isBlock, hasContext bool) {
	*f.slot(offsetMetadata) = encodeMetadata(argCount, isBlock, hasContext)
}

// setHasContext flips only the hasContext bit, preserving argCount/isBlock.
func (f Frame) setHasContext(hasContext bool) {
	argCount, isBlock, _ := f.Metadata()
	f.setMetadata(argCount, isBlock, hasContext)
}

// Argument returns the i-th argument (0-based, left to right). Arguments
// are stored right-to-left above the frame pointer, so argument i lives
// at offsetLastArgument + (argCount-1-i).
func (f Frame) Argument(i int) object.Value {
	argCount, _, _ := f.Metadata()
	return *f.slot(offsetLastArgument + (argCount - 1 - i))
}

func (f Frame) setArgument(argCount, i int, v object.Value) {
	*f.slot(offsetLastArgument + (argCount - 1 - i)) = v
}

// SetArgument stores v into the i-th argument slot (0-based, left to
// right), resolving the frame's own argument count itself so callers
// outside this package never need to thread it through by hand.
func (f Frame) SetArgument(i int, v object.Value) {
	argCount, _, _ := f.Metadata()
	f.setArgument(argCount, i, v)
}

// temp returns the i-th temporary/operand-stack slot (0-based, growing
// downward from offsetFirstTemp).
func (f Frame) temp(i int) *object.Value {
	return f.slot(offsetFirstTemp - i)
}

// Temp reads the i-th temporary slot (0-based: 0 is the first declared
// temporary/vector slot after a frame's arguments).
func (f Frame) Temp(i int) object.Value { return *f.temp(i) }

// SetTemp stores v into the i-th temporary slot.
func (f Frame) SetTemp(i int, v object.Value) { *f.temp(i) = v }
