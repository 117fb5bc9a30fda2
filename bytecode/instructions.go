package bytecode

// This file implements the concrete instruction shapes an Assembler can
// emit: the push/store/send/jump/return families spec.md §4.3.4 and §6
// describe, each as an Instruction grounded on the corresponding
// short/long opcode pair chosen in opcode.go.

// indexedInstr covers the common "push a value identified by a small
// index" shape: a short single-byte encoding when the index fits the
// dedicated range, an ExtA-extended long form otherwise.
type indexedInstr struct {
	value int
	short rangeOf
	long  Opcode
}

func (in *indexedInstr) computeMaxSize() int {
	if in.value < in.short.Size {
		return 1
	}
	return sizeofExtA(in.value) + 2
}

func (in *indexedInstr) computeBetterSize(position int) int { return in.computeMaxSize() }

func (in *indexedInstr) encode(buf []byte, position, size int) []byte {
	if in.value < in.short.Size {
		return append(buf, byte(in.short.First)+byte(in.value))
	}
	buf, low := encodeExtA(buf, in.value)
	return append(buf, byte(in.long), low)
}

// longOnlyInstr covers instructions with no short form at all (plain,
// non-popping stores): always ExtA-extended long form.
type longOnlyInstr struct {
	value int
	long  Opcode
}

func (in *longOnlyInstr) computeMaxSize() int               { return sizeofExtA(in.value) + 2 }
func (in *longOnlyInstr) computeBetterSize(position int) int { return in.computeMaxSize() }
func (in *longOnlyInstr) encode(buf []byte, position, size int) []byte {
	buf, low := encodeExtA(buf, in.value)
	return append(buf, byte(in.long), low)
}

// plainByteInstr is a fixed single-byte instruction with no operand.
type plainByteInstr struct{ op Opcode }

func (in plainByteInstr) computeMaxSize() int                   { return 1 }
func (in plainByteInstr) computeBetterSize(position int) int    { return 1 }
func (in plainByteInstr) encode(buf []byte, position, size int) []byte { return append(buf, byte(in.op)) }

// Push instructions.

// PushReceiverVariable pushes the receiver's instance variable at index.
func (a *Assembler) PushReceiverVariable(index int) {
	a.addInstruction(&indexedInstr{value: index, short: PushReceiverVariableShort, long: PushReceiverVariable})
}

// PushLiteralVariable pushes the value of the association/binding held
// at literal pool index litIndex.
func (a *Assembler) PushLiteralVariable(litIndex int) {
	a.addInstruction(&indexedInstr{value: litIndex, short: PushLiteralVariableShort, long: PushLiteralVariable})
}

// PushLiteral pushes the literal value held at literal pool index
// litIndex directly (as opposed to PushLiteralVariable's indirection
// through a binding).
func (a *Assembler) PushLiteral(litIndex int) {
	a.addInstruction(&indexedInstr{value: litIndex, short: PushLiteralShort, long: PushLiteral})
}

// PushTemp pushes the temporary/argument slot at index.
func (a *Assembler) PushTemp(index int) {
	a.addInstruction(&indexedInstr{value: index, short: PushTempShort, long: PushTemporal})
}

func (a *Assembler) PushSelf()        { a.addInstruction(plainByteInstr{PushSelf}) }
func (a *Assembler) PushThisContext() { a.addInstruction(plainByteInstr{PushThisContext}) }
func (a *Assembler) PushNil()         { a.addInstruction(plainByteInstr{PushNil}) }
func (a *Assembler) PushTrue()        { a.addInstruction(plainByteInstr{PushTrue}) }
func (a *Assembler) PushFalse()       { a.addInstruction(plainByteInstr{PushFalse}) }
func (a *Assembler) PushSmallInteger0() { a.addInstruction(plainByteInstr{PushSmallInteger0}) }
func (a *Assembler) PushSmallInteger1() { a.addInstruction(plainByteInstr{PushSmallInteger1}) }
func (a *Assembler) DuplicateTop()    { a.addInstruction(plainByteInstr{DuplicateTop}) }
func (a *Assembler) PopStackTop()     { a.addInstruction(plainByteInstr{PopStackTop}) }

// Returns.

func (a *Assembler) ReturnReceiver() { a.addInstruction(plainByteInstr{ReturnReceiver}) }
func (a *Assembler) ReturnTrue()     { a.addInstruction(plainByteInstr{ReturnTrue}) }
func (a *Assembler) ReturnFalse()    { a.addInstruction(plainByteInstr{ReturnFalse}) }
func (a *Assembler) ReturnNil()      { a.addInstruction(plainByteInstr{ReturnNil}) }
func (a *Assembler) ReturnTop()      { a.addInstruction(plainByteInstr{ReturnTop}) }
func (a *Assembler) BlockReturnTop() { a.addInstruction(plainByteInstr{BlockReturnTop}) }
func (a *Assembler) BlockReturnNil() { a.addInstruction(plainByteInstr{BlockReturnNil}) }

// Store and pop-store.

// StoreReceiverVariable stores the top of stack (without popping it)
// into the receiver's instance variable at index.
func (a *Assembler) StoreReceiverVariable(index int) {
	a.addInstruction(&longOnlyInstr{value: index, long: StoreReceiverVariable})
}

// StoreLiteralVariable stores the top of stack (without popping it)
// into the binding held at literal pool index litIndex.
func (a *Assembler) StoreLiteralVariable(litIndex int) {
	a.addInstruction(&longOnlyInstr{value: litIndex, long: StoreLiteralVariable})
}

// StoreTemp stores the top of stack (without popping it) into the
// temporary/argument slot at index.
func (a *Assembler) StoreTemp(index int) {
	a.addInstruction(&longOnlyInstr{value: index, long: StoreTemporal})
}

// PopStoreReceiverVariable pops the top of stack and stores it into the
// receiver's instance variable at index; short form for index < 16,
// otherwise StoreReceiverVariable followed by an explicit pop (there is
// no dedicated long pop-store-receiver-variable opcode).
func (a *Assembler) PopStoreReceiverVariable(index int) {
	if index < PopStoreReceiverVariableShort.Size {
		a.addInstruction(&indexedInstr{value: index, short: PopStoreReceiverVariableShort, long: StoreReceiverVariable})
		return
	}
	a.StoreReceiverVariable(index)
	a.PopStackTop()
}

// PopStoreTemp pops the top of stack and stores it into the
// temporary/argument slot at index; short form for index < 16,
// otherwise StoreTemp followed by an explicit pop.
func (a *Assembler) PopStoreTemp(index int) {
	if index < PopStoreTemporalShort.Size {
		a.addInstruction(&indexedInstr{value: index, short: PopStoreTemporalShort, long: StoreTemporal})
		return
	}
	a.StoreTemp(index)
	a.PopStackTop()
}

// PopStoreTemporal directly emits the long-form pop-store-temporal
// opcode (PopStoreTemporal, distinct from the composite fallback
// PopStoreTemp uses above), for callers that know they need the
// always-pop semantics without the short-range check.
func (a *Assembler) PopStoreTemporal(index int) {
	a.addInstruction(&indexedInstr{value: index, short: rangeOf{0, 0}, long: PopStoreTemporal})
}

// Special selectors.

// SpecialSelectorSend emits one of the dedicated special-selector fast
// path opcodes (spec.md's inlined optimized-selector sends, e.g. +, -,
// <, =, class, isNil, value), identified by its 0-based index into the
// fixed special selector table.
func (a *Assembler) SpecialSelectorSend(index int) {
	if index < 0 || index >= SpecialSelector.Size {
		panic("bytecode: special selector index out of range")
	}
	a.addInstruction(plainByteInstr{SpecialSelector.First + Opcode(index)})
}

// Array / closure temp construction.

type pushNewArrayInstr struct {
	size int
	withElements bool
}

func (in *pushNewArrayInstr) computeMaxSize() int               { return sizeofExtA(in.size) + 2 }
func (in *pushNewArrayInstr) computeBetterSize(position int) int { return in.computeMaxSize() }
func (in *pushNewArrayInstr) encode(buf []byte, position, size int) []byte {
	op := PushNewArray
	if in.withElements {
		op = PushNewArrayWithElements
	}
	buf, low := encodeExtA(buf, in.size)
	return append(buf, byte(op), low)
}

// PushNewArray pushes a freshly allocated Array of size elements, all
// nil.
func (a *Assembler) PushNewArray(size int) {
	a.addInstruction(&pushNewArrayInstr{size: size})
}

// PushNewArrayWithElements pops size values off the stack (in order)
// and pushes a freshly allocated Array populated with them.
func (a *Assembler) PushNewArrayWithElements(size int) {
	a.addInstruction(&pushNewArrayInstr{size: size, withElements: true})
}

// PushNClosureTemps reserves count additional nil-initialized temporary
// slots for a closure being constructed, used ahead of PushClosure when
// the block declares its own locals beyond its copied/captured set.
func (a *Assembler) PushNClosureTemps(count int) {
	a.addInstruction(&longOnlyInstr{value: count, long: PushNClosureTemps})
}

// Temp-vector access, for captured locals (spec.md §4.3.2's "temp
// vector"): index addresses a slot within the current frame's capture
// vector rather than an ordinary temporal slot.

// PushTemporalInVector pushes the captured local at index within the
// current frame's capture vector.
func (a *Assembler) PushTemporalInVector(index int) {
	a.addInstruction(&longOnlyInstr{value: index, long: PushTemporalInVector})
}

// StoreTemporalInVector stores the top of stack (without popping it)
// into the captured local at index.
func (a *Assembler) StoreTemporalInVector(index int) {
	a.addInstruction(&longOnlyInstr{value: index, long: StoreTemporalInVector})
}

// PopStoreTemporalInVector pops the top of stack and stores it into the
// captured local at index.
func (a *Assembler) PopStoreTemporalInVector(index int) {
	a.addInstruction(&longOnlyInstr{value: index, long: PopStoreTemporalInVector})
}

// Jumps.

type jumpKind int

const (
	jumpAlways jumpKind = iota
	jumpOnTrue
	jumpOnFalse
)

// jumpInstr is grounded on MethodBuilder.cpp's UnconditionalJump /
// ConditionalJump: a short one-byte form for a small forward delta
// (1..8 bytes, spanning the jump instruction's own size), a fixed
// three-byte long form otherwise (opcode plus a signed 16-bit delta,
// big-endian) -- a branch delta can be negative, unlike every other
// instruction's index/count operand, so the long form carries it
// directly instead of through the Ext-prefixed unsigned-magnitude
// scheme those use.
type jumpInstr struct {
	asm    *Assembler
	kind   jumpKind
	target Label
}

func (in *jumpInstr) shortRange() rangeOf {
	switch in.kind {
	case jumpOnTrue:
		return JumpOnTrueShort
	case jumpOnFalse:
		return JumpOnFalseShort
	default:
		return JumpShort
	}
}

func (in *jumpInstr) longOpcode() Opcode {
	switch in.kind {
	case jumpOnTrue:
		return JumpOnTrue
	case jumpOnFalse:
		return JumpOnFalse
	default:
		return Jump
	}
}

// delta computes the branch distance from just past this instruction
// (at position+size) to the target label, returning it alongside
// whether it is known yet (the target may not have been placed in the
// very first sizing pass).
func (in *jumpInstr) delta(position, size int) (int, bool) {
	idx := in.asm.labelNodeIndex[in.target.id]
	if idx < 0 || idx >= len(in.asm.positions) {
		return 0, false
	}
	return in.asm.positions[idx] - (position + size), true
}

func (in *jumpInstr) computeMaxSize() int {
	// Conservative upper bound before positions are known: the fixed
	// three-byte long form.
	return 3
}

func (in *jumpInstr) computeBetterSize(position int) int {
	sr := in.shortRange()
	if d, ok := in.delta(position, 1); ok && d >= 1 && d <= sr.Size {
		return 1
	}
	return 3
}

func (in *jumpInstr) encode(buf []byte, position, size int) []byte {
	d, ok := in.delta(position, size)
	if !ok {
		panic("bytecode: jump target label was never placed with PutLabel")
	}
	if size == 1 {
		return append(buf, byte(in.shortRange().First)+byte(d-1))
	}
	return append(buf, byte(in.longOpcode()), byte(int16(d)>>8), byte(int16(d)))
}

// Jump emits an unconditional branch to target.
func (a *Assembler) Jump(target Label) {
	a.addInstruction(&jumpInstr{asm: a, kind: jumpAlways, target: target})
}

// JumpOnTrue pops the top of stack (which must be a Boolean) and
// branches to target if it is true.
func (a *Assembler) JumpOnTrue(target Label) {
	a.addInstruction(&jumpInstr{asm: a, kind: jumpOnTrue, target: target})
}

// JumpOnFalse pops the top of stack (which must be a Boolean) and
// branches to target if it is false.
func (a *Assembler) JumpOnFalse(target Label) {
	a.addInstruction(&jumpInstr{asm: a, kind: jumpOnFalse, target: target})
}

// Send / super-send.

// sendInstr is grounded on MethodBuilder.cpp's SendMessage: a short
// form for the hottest 0/1/2-argument sends whose selector's literal
// index fits the dedicated range, a long form (in the three-byte zone,
// since its two operands -- selector index and argument count -- are
// each independently extendable) otherwise.
type sendInstr struct {
	selectorIndex int
	argCount      int
	super         bool
}

func (in *sendInstr) shortRange() (rangeOf, bool) {
	if in.super {
		return rangeOf{}, false
	}
	switch in.argCount {
	case 0:
		return SendShortArgs0, true
	case 1:
		return SendShortArgs1, true
	case 2:
		return SendShortArgs2, true
	default:
		return rangeOf{}, false
	}
}

func (in *sendInstr) fitsShort() bool {
	sr, ok := in.shortRange()
	return ok && in.selectorIndex < sr.Size
}

func (in *sendInstr) longOpcode() Opcode {
	if in.super {
		return SuperSend
	}
	return Send
}

func (in *sendInstr) computeMaxSize() int {
	if in.fitsShort() {
		return 1
	}
	return sizeofExtA(in.selectorIndex) + sizeofExtB(in.argCount) + 3
}

func (in *sendInstr) computeBetterSize(position int) int { return in.computeMaxSize() }

func (in *sendInstr) encode(buf []byte, position, size int) []byte {
	if in.fitsShort() {
		sr, _ := in.shortRange()
		return append(buf, byte(sr.First)+byte(in.selectorIndex))
	}
	buf, selLow := encodeExtA(buf, in.selectorIndex)
	buf, argLow := encodeExtB(buf, in.argCount)
	return append(buf, byte(in.longOpcode()), selLow, argLow)
}

// Send emits a normal message send: selectorIndex is the literal pool
// index of the selector Symbol, argCount the number of arguments
// already pushed beneath the receiver on the stack.
func (a *Assembler) Send(selectorIndex, argCount int) {
	a.addInstruction(&sendInstr{selectorIndex: selectorIndex, argCount: argCount})
}

// SuperSend emits a super-send: the method lookup for selectorIndex
// begins above the defining class of the currently executing method
// rather than at the receiver's own class.
func (a *Assembler) SuperSend(selectorIndex, argCount int) {
	a.addInstruction(&sendInstr{selectorIndex: selectorIndex, argCount: argCount, super: true})
}

// Closure construction.

// pushClosureInstr is grounded on MethodBuilder.cpp's PushClosure: a
// packed byte combining numArgs/numCopied, followed by the closure
// body's block size (low byte, ExtB-extended for larger bodies).
type pushClosureInstr struct {
	numArgs   int
	numCopied int
	blockSize int
}

func (in *pushClosureInstr) computeMaxSize() int {
	return sizeofExtA(in.numArgs<<4|in.numCopied) + sizeofExtB(in.blockSize) + 3
}

func (in *pushClosureInstr) computeBetterSize(position int) int { return in.computeMaxSize() }

func (in *pushClosureInstr) encode(buf []byte, position, size int) []byte {
	packed := in.numArgs<<4 | in.numCopied
	buf, packedLow := encodeExtA(buf, packed)
	buf, sizeLow := encodeExtB(buf, in.blockSize)
	return append(buf, byte(PushClosure), packedLow, sizeLow)
}

// PushClosure pushes a BlockClosure literal: numArgs is the block's
// parameter count, numCopied the number of enclosing temps/arguments it
// captures by copy, blockSize the encoded length in bytes of the
// block's own bytecode body (which immediately follows this
// instruction in the enclosing method -- emitted separately by the
// caller via its own instructions between this call and the matching
// block-return).
func (a *Assembler) PushClosure(numArgs, numCopied, blockSize int) {
	a.addInstruction(&pushClosureInstr{numArgs: numArgs, numCopied: numCopied, blockSize: blockSize})
}

// pushClosureToLabelInstr is PushClosure's forward-reference form: a
// compiler emits this before it has compiled the block body, since the
// body must be known to end at bodyEnd before its size can be known.
// Sized the same way a jumpInstr's long form is, but the distance is
// always non-negative (a block body is always emitted after its own
// PushClosure) so no signed encoding is needed.
type pushClosureToLabelInstr struct {
	asm       *Assembler
	numArgs   int
	numCopied int
	bodyEnd   Label
}

func (in *pushClosureToLabelInstr) blockSize(position, size int) int {
	idx := in.asm.labelNodeIndex[in.bodyEnd.id]
	if idx < 0 {
		panic("bytecode: PushClosure body-end label was never placed with PutLabel")
	}
	return in.asm.positions[idx] - (position + size)
}

func (in *pushClosureToLabelInstr) computeMaxSize() int {
	return sizeofExtA(in.numArgs<<4|in.numCopied) + 5
}

func (in *pushClosureToLabelInstr) computeBetterSize(position int) int {
	packed := in.numArgs<<4 | in.numCopied
	// blockSize depends on this instruction's own final size, which in
	// turn depends on blockSize's ExtB prefix length -- resolve the
	// circularity with a small fixed-point search: start from the
	// smallest possible size and grow until assuming that size doesn't
	// shrink the resulting blockSize's encoding below it.
	size := sizeofExtA(packed) + 3
	for {
		bs := in.blockSize(position, size)
		if bs < 0 {
			bs = 0
		}
		want := sizeofExtA(packed) + sizeofExtB(bs) + 3
		if want == size {
			return size
		}
		size = want
	}
}

func (in *pushClosureToLabelInstr) encode(buf []byte, position, size int) []byte {
	packed := in.numArgs<<4 | in.numCopied
	bs := in.blockSize(position, size)
	if bs < 0 {
		bs = 0
	}
	buf, packedLow := encodeExtA(buf, packed)
	buf, sizeLow := encodeExtB(buf, bs)
	return append(buf, byte(PushClosure), packedLow, sizeLow)
}

// PushClosureUntil pushes a BlockClosure literal whose body immediately
// follows and ends at bodyEnd (a Label the caller places with PutLabel
// once the block body has been emitted), letting the assembler compute
// blockSize from the final layout instead of requiring the caller to
// know it up front.
func (a *Assembler) PushClosureUntil(numArgs, numCopied int, bodyEnd Label) {
	a.addInstruction(&pushClosureToLabelInstr{asm: a, numArgs: numArgs, numCopied: numCopied, bodyEnd: bodyEnd})
}
