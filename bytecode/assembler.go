package bytecode

import (
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Instruction is one node in an Assembler's instruction list. Grounded
// on original_source/vm/MethodBuilder.hpp's InstructionNode: every node
// knows its own worst-case size up front (computeMaxSize) and can be
// asked to re-measure itself once positions have settled
// (computeBetterSize), then finally to emit its bytes (encode).
type Instruction interface {
	// computeMaxSize returns the largest this instruction could ever
	// encode to, ignoring how far along other instructions have
	// shrunk -- used for the first, pessimistic layout pass.
	computeMaxSize() int

	// computeBetterSize returns this instruction's size given that
	// every earlier instruction's position is now known, allowing a
	// branch instruction to learn its jump is now short enough for a
	// smaller encoding.
	computeBetterSize(position int) int

	// encode appends this instruction's final bytes to buf and returns
	// the result. position is this instruction's final byte offset
	// within the method's bytecode; size is the value this node's own
	// last computeBetterSize call returned, passed back in rather than
	// recomputed so an instruction whose size depends on its own
	// encoded length (e.g. a forward distance to a label) stays
	// consistent with the layout pass that positioned every other node.
	encode(buf []byte, position, size int) []byte
}

// Label marks a position in an Assembler's instruction stream for
// jumps to target. A Label is created by MakeLabel before its target
// position is known (so forward jumps can reference it) and bound to
// an actual position later by PutLabel, which inserts a zero-size node
// -- mirroring MethodBuilder.hpp's Label (a subclass of InstructionNode
// whose encode/computeMaxSize/computeBetterSize are all no-ops) -- at
// the current end of the instruction stream.
type Label struct {
	asm *Assembler
	id  int
}

type labelNode struct{}

func (n *labelNode) computeMaxSize() int                          { return 0 }
func (n *labelNode) computeBetterSize(position int) int           { return 0 }
func (n *labelNode) encode(buf []byte, position, size int) []byte { return buf }

// Assembler builds one CompiledMethod's bytecode and literal pool. It
// is grounded on original_source/vm/MethodBuilder.hpp/.cpp's Assembler:
// instructions and labels are appended in program order, literals are
// deduplicated by identity as they're added, and Generate runs the
// two-pass size-settling loop before allocating and filling the final
// CompiledMethod.
type Assembler struct {
	heap     *heap.Heap
	nodes    []Instruction
	literals []object.Value

	labelNodeIndex []int // per-label id, index into nodes once placed (-1 until PutLabel)

	positions []int // per-node, parallel to nodes
	sizes     []int
}

// NewAssembler creates an Assembler that will allocate its final
// CompiledMethod on h.
func NewAssembler(h *heap.Heap) *Assembler {
	return &Assembler{heap: h}
}

func (a *Assembler) addInstruction(in Instruction) {
	a.nodes = append(a.nodes, in)
}

// MakeLabel creates a Label not yet bound to a position; call PutLabel
// once the position it should refer to has been emitted. Jump
// instructions may reference a Label before it is placed, to support
// forward branches.
func (a *Assembler) MakeLabel() Label {
	a.labelNodeIndex = append(a.labelNodeIndex, -1)
	return Label{asm: a, id: len(a.labelNodeIndex) - 1}
}

// MakeLabelHere creates a Label bound to the current end of the
// instruction stream, equivalent to MakeLabel immediately followed by
// PutLabel.
func (a *Assembler) MakeLabelHere() Label {
	l := a.MakeLabel()
	a.PutLabel(l)
	return l
}

// PutLabel binds an already-created Label to the current end of the
// instruction stream.
func (a *Assembler) PutLabel(l Label) {
	a.nodes = append(a.nodes, &labelNode{})
	a.labelNodeIndex[l.id] = len(a.nodes) - 1
}

// Heap returns the heap this Assembler allocates its CompiledMethod (and
// any literal values a caller builds ahead of adding them) on.
func (a *Assembler) Heap() *heap.Heap { return a.heap }

// AddLiteral is addLiteral exported for callers outside this package
// (compiler/'s emission pass builds literal values -- interned symbols,
// boxed strings, nested literal arrays -- and must add them to the same
// pool Generate will allocate from).
func (a *Assembler) AddLiteral(v object.Value) int { return a.addLiteral(v) }

// AddLiteralAlways is addLiteralAlways exported; see addLiteralAlways's
// doc comment.
func (a *Assembler) AddLiteralAlways(v object.Value) int { return a.addLiteralAlways(v) }

// addLiteral returns the index of v within the literal pool, adding it
// if no equal-by-identity literal is already present.
func (a *Assembler) addLiteral(v object.Value) int {
	for i, existing := range a.literals {
		if existing == v {
			return i
		}
	}
	return a.addLiteralAlways(v)
}

// addLiteralAlways appends v as a new literal pool entry regardless of
// whether an identical value is already present, returning its index.
// Used for literals whose position must be independently addressable
// (e.g. distinct association bindings that happen to hold equal
// values).
func (a *Assembler) addLiteralAlways(v object.Value) int {
	a.literals = append(a.literals, v)
	return len(a.literals) - 1
}

// computeInstructionsSize runs MethodBuilder.cpp's two-pass layout
// loop: an initial pass assigns every node its maximum possible size
// at a tentative position, then repeated passes ask each node to
// recompute its size now that positions have settled, stopping once a
// pass changes no node's size (so every position, and the returned
// total, matches the sizes encode will be given). A node that has had to
// grow back keeps its larger size from then on, so the passes cannot
// oscillate.
func (a *Assembler) computeInstructionsSize() int {
	n := len(a.nodes)
	a.positions = make([]int, n)
	a.sizes = make([]int, n)

	pos := 0
	for i, node := range a.nodes {
		a.positions[i] = pos
		a.sizes[i] = node.computeMaxSize()
		pos += a.sizes[i]
	}

	grown := make([]bool, n)
	for {
		changed := false
		pos = 0
		for i, node := range a.nodes {
			a.positions[i] = pos
			size := node.computeBetterSize(pos)
			if grown[i] && size < a.sizes[i] {
				size = a.sizes[i]
			}
			if size != a.sizes[i] {
				grown[i] = grown[i] || size > a.sizes[i]
				changed = true
			}
			a.sizes[i] = size
			pos += size
		}
		if !changed {
			break
		}
	}
	return pos
}

// Generate lays out and encodes the assembled instructions, then
// allocates a CompiledMethod on the Assembler's heap holding the
// literal pool and resulting bytecode. argumentCount and temporalCount
// become the compiled method's header fields; hasPrimitive and
// needsLargeFrame are passed through verbatim.
func (a *Assembler) Generate(argumentCount, temporalCount int, hasPrimitive, needsLargeFrame bool) (class.CompiledMethod, error) {
	if argumentCount < 0 || argumentCount > 15 {
		return class.CompiledMethod{}, errors.Invariant(errors.PhaseAssemble, "argument count %d out of range", argumentCount)
	}
	if temporalCount < 0 || temporalCount > 63 {
		return class.CompiledMethod{}, errors.Invariant(errors.PhaseAssemble, "temporal count %d out of range", temporalCount)
	}

	size := a.computeInstructionsSize()
	buf := make([]byte, 0, size)
	for i, node := range a.nodes {
		buf = node.encode(buf, a.positions[i], a.sizes[i])
	}
	if len(buf) != size {
		return class.CompiledMethod{}, errors.Invariant(errors.PhaseAssemble, "encoded size %d does not match computed size %d", len(buf), size)
	}

	m, err := class.NewCompiledMethod(a.heap, len(a.literals), len(buf))
	if err != nil {
		return class.CompiledMethod{}, err
	}
	for i, lit := range a.literals {
		m.SetLiteral(i, lit)
	}
	copy(m.Bytecode(), buf)
	m.SetHeader(object.MethodHeader{
		LiteralCount:    len(a.literals),
		HasPrimitive:    hasPrimitive,
		NeedsLargeFrame: needsLargeFrame,
		TemporalCount:   temporalCount,
		ArgumentCount:   argumentCount,
	})
	return m, nil
}
