package compiler

import (
	"github.com/lodtalk-go/vm/ast"
	"github.com/lodtalk-go/vm/bytecode"
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/heap"
)

// smallFrameTemporalLimit is the temporal-slot count above which a
// compiled method is flagged NeedsLargeFrame, mirroring the classic
// Smalltalk small-context/large-context split: most methods fit a
// small, pre-sized context object, and only unusually temp-heavy ones
// need the bigger allocation.
const smallFrameTemporalLimit = 16

// Compile analyzes and emits method, which is understood to belong to
// cls (instance-variable lookups are resolved against cls's own
// description chain), against symbols for selector/string interning and
// singletons for embedding nil/true/false literal-array elements.
// globals resolves and binds top-level/global identifier references.
func Compile(h *heap.Heap, symbols *class.SymbolTable, globals Globals, singletons Singletons, cls class.Class, method *ast.MethodNode) (class.CompiledMethod, error) {
	instanceIndex := func(name string) (int, bool) {
		return class.InstanceVariableIndex(h, cls, name)
	}

	analysis, err := Analyze(method.Selector, globals, instanceIndex, method)
	if err != nil {
		return class.CompiledMethod{}, err
	}

	asm := bytecode.NewAssembler(h)
	if err := emitMethod(asm, symbols, globals, singletons, analysis, method); err != nil {
		return class.CompiledMethod{}, err
	}

	// The last two literals are always the selector and the owning class,
	// which class.CompiledMethod's Selector/ClassBinding read back.
	selector, err := symbols.Intern(method.Selector)
	if err != nil {
		return class.CompiledMethod{}, err
	}
	asm.AddLiteralAlways(selector)
	asm.AddLiteralAlways(cls.Value)

	argCount := countArgs(analysis.MethodScope)
	temporalCount := methodTemporalCount(analysis)
	needsLargeFrame := temporalCount > smallFrameTemporalLimit

	return asm.Generate(argCount, temporalCount, false, needsLargeFrame)
}

// methodTemporalCount is the method frame's temporal slot count as the
// header records it: the vector slot (if any) plus every non-captured,
// non-argument temporary. Per spec.md §6's header layout, TemporalCount
// and ArgumentCount are reported separately even though they occupy one
// contiguous, uniformly addressed slot range at runtime (arguments
// first, as assignScopeSlots lays them out) -- non-inlined block scopes
// are activated in their own separate frames with their own
// independently numbered slots, and inlined-block locals were already
// merged into the method scope by analysis, so only the method scope
// itself is considered here.
func methodTemporalCount(a *Analysis) int {
	n := 0
	for _, li := range a.MethodScope.locals {
		if !li.isArg && !li.captured {
			n++
		}
	}
	if a.MethodScope.usesVector {
		n++
	}
	return n
}
