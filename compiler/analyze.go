package compiler

import (
	"fmt"

	"github.com/lodtalk-go/vm/ast"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

// Globals resolves a top-level identifier against the running system's
// global namespace (spec.md §4.3's "literal/global variable ... resolved
// by the top-level scope against the system dictionary"). The script
// host owns the concrete implementation: Exists is consulted during
// semantic analysis (an unresolvable name is a compile error), and
// Association is consulted during emission to fetch the binding object
// a PushLiteralVariable/StoreLiteralVariable pair addresses indirectly
// through the literal pool.
type Globals interface {
	Exists(name string) bool
	Association(name string) (object.Value, error)
}

// Binding is what an identifier or assignment node resolves to, recorded
// during the semantic analysis pass and read back during emission.
type Binding struct {
	Kind     VariableKind
	Local    *localInfo // valid for VarTemp / VarCaptured
	Instance int        // valid for VarInstance: absolute ivar index
	Global   string      // valid for VarGlobal: the name to look up/intern
}

// sendShape classifies a MessageSendNode as one of §4.3.3's inlined
// optimized-selector shapes, or shapeOrdinary if it must be compiled as
// a normal send (including when its selector matches one of the names
// below but its arguments don't have the required literal-block shape).
type sendShape int

const (
	shapeOrdinary sendShape = iota
	shapeIfTrue
	shapeIfFalse
	shapeIfNil
	shapeIfNotNil
	shapeIfTrueIfFalse
	shapeIfFalseIfTrue
	shapeWhileTrue
	shapeWhileFalse
	shapeToDo
	shapeToByDo
)

// Analysis is the semantic analysis pass's output: every piece of
// per-occurrence information the emission pass needs to generate
// bytecode without re-deriving (and possibly disagreeing with) any of
// analysis's decisions.
type Analysis struct {
	MethodScope *funcScope

	Bindings      map[ast.Node]*Binding
	BlockScopes   map[*ast.BlockNode]*funcScope
	InlinedBlocks map[*ast.BlockNode]bool
	SendShapes    map[*ast.MessageSendNode]sendShape

	CapturedTotal int // size of the method's shared capture vector
	HasVector     bool
	VectorSlot    int // method-level temporal slot index holding the vector
}

type analyzer struct {
	file    string
	globals Globals

	// instanceIndex resolves name to an absolute instance-variable
	// index on the compiling method's class, or ok=false.
	instanceIndex func(name string) (int, bool)

	bindings      map[ast.Node]*Binding
	blockScopes   map[*ast.BlockNode]*funcScope
	inlinedBlocks map[*ast.BlockNode]bool
	sendShapes    map[*ast.MessageSendNode]sendShape

	nextVecIndex int
	captureOrder []*localInfo
}

// Analyze runs the semantic analysis pass over method, resolving every
// identifier reference against instance variables (via instanceIndex),
// the method's own scope chain, and globals, and classifying every
// optimized-selector send.
func Analyze(file string, globals Globals, instanceIndex func(name string) (int, bool), method *ast.MethodNode) (*Analysis, error) {
	a := &analyzer{
		file:          file,
		globals:       globals,
		instanceIndex: instanceIndex,
		bindings:      make(map[ast.Node]*Binding),
		blockScopes:   make(map[*ast.BlockNode]*funcScope),
		inlinedBlocks: make(map[*ast.BlockNode]bool),
		sendShapes:    make(map[*ast.MessageSendNode]sendShape),
	}

	methodScope := newFuncScope(nil, true)
	for _, arg := range method.Arguments {
		if _, ok := methodScope.declare(arg, true); !ok {
			return nil, a.errf(method.Pos(), errors.KindDuplicateArgument, "duplicate argument %q", arg)
		}
	}
	for _, tmp := range method.Temporaries {
		if _, ok := methodScope.declare(tmp, false); !ok {
			return nil, a.errf(method.Pos(), errors.KindDuplicateArgument, "duplicate temporary %q", tmp)
		}
	}

	if err := a.analyzeStatements(method.Body, methodScope); err != nil {
		return nil, err
	}

	result := &Analysis{
		MethodScope:   methodScope,
		Bindings:      a.bindings,
		BlockScopes:   a.blockScopes,
		InlinedBlocks: a.inlinedBlocks,
		SendShapes:    a.sendShapes,
	}
	a.finalizeSlots(methodScope, result)
	return result, nil
}

func (a *analyzer) errf(line int, kind errors.Kind, format string, args ...any) error {
	return errors.CompileError(kind, a.file, line, format, args...)
}

func (a *analyzer) analyzeStatements(stmts []ast.Statement, scope *funcScope) error {
	for _, s := range stmts {
		if err := a.analyzeNode(s, scope); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) analyzeNode(n ast.Node, scope *funcScope) error {
	switch node := n.(type) {
	case *ast.LiteralNode:
		return nil
	case *ast.IdentifierNode:
		b, err := a.resolveIdentifier(node.Name, node.Pos(), scope)
		if err != nil {
			return err
		}
		a.bindings[node] = b
		return nil
	case *ast.AssignmentNode:
		b, err := a.resolveIdentifier(node.Name, node.Pos(), scope)
		if err != nil {
			return err
		}
		if b.Kind == VarPseudoSelf || b.Kind == VarPseudoSuper || b.Kind == VarPseudoThisContext {
			return a.errf(node.Pos(), errors.KindImmutableAssignment, "cannot assign to %q", node.Name)
		}
		a.bindings[node] = b
		return a.analyzeNode(node.Value, scope)
	case *ast.ReturnNode:
		return a.analyzeNode(node.Value, scope)
	case *ast.CascadeNode:
		if err := a.analyzeNode(node.Receiver, scope); err != nil {
			return err
		}
		for _, m := range node.Messages {
			for _, arg := range m.Arguments {
				if err := a.analyzeNode(arg, scope); err != nil {
					return err
				}
			}
		}
		return nil
	case *ast.BlockNode:
		// A block literal encountered outside of an optimized-selector
		// argument position (e.g. assigned to a variable, passed to an
		// ordinary send) is always a genuine, separately activated
		// closure.
		return a.analyzeBlockLiteral(node, scope, nil)
	case *ast.MessageSendNode:
		return a.analyzeSend(node, scope)
	default:
		return nil
	}
}

// resolveIdentifier classifies name against scope's chain, the
// compiling class's instance variables, the pseudo-variable names, and
// finally globals, in that priority order (matching how an inner
// temporary shadows an instance variable of the same name, which in
// turn shadows a global).
func (a *analyzer) resolveIdentifier(name string, line int, scope *funcScope) (*Binding, error) {
	switch name {
	case "self":
		return &Binding{Kind: VarPseudoSelf}, nil
	case "super":
		return &Binding{Kind: VarPseudoSuper}, nil
	case "thisContext":
		return &Binding{Kind: VarPseudoThisContext}, nil
	}

	if li, owner, ok := scope.lookupLocal(name); ok {
		if owner != scope {
			markCapturedFrom(scope, owner)
			markCapturedFrom(owner, nil) // owner and its ancestors reach the vector too
			li.captured = true
		}
		return &Binding{Kind: VarTemp, Local: li}, nil
	}

	if idx, ok := a.instanceIndex(name); ok {
		return &Binding{Kind: VarInstance, Instance: idx}, nil
	}

	if a.globals.Exists(name) {
		return &Binding{Kind: VarGlobal, Global: name}, nil
	}

	return nil, a.errf(line, errors.KindUndeclaredIdentifier, "undeclared identifier %q", name)
}

// analyzeBlockLiteral handles a BlockNode occurrence that is NOT being
// inlined: it gets its own funcScope, parented at scope, and its body is
// walked against that new scope.
func (a *analyzer) analyzeBlockLiteral(block *ast.BlockNode, scope *funcScope, _ *ast.MessageSendNode) error {
	blockScope := newFuncScope(scope, false)
	for _, arg := range block.Arguments {
		if _, ok := blockScope.declare(arg, true); !ok {
			return a.errf(block.Pos(), errors.KindDuplicateArgument, "duplicate argument %q", arg)
		}
	}
	for _, tmp := range block.Temporaries {
		if _, ok := blockScope.declare(tmp, false); !ok {
			return a.errf(block.Pos(), errors.KindDuplicateArgument, "duplicate temporary %q", tmp)
		}
	}
	a.blockScopes[block] = blockScope
	return a.analyzeStatements(block.Body, blockScope)
}

// analyzeInlinedBlock merges block's arguments into the CURRENT scope
// (inlining never creates a new funcScope) and walks its body there.
func (a *analyzer) analyzeInlinedBlock(block *ast.BlockNode, scope *funcScope) error {
	a.inlinedBlocks[block] = true
	for _, arg := range block.Arguments {
		if _, ok := scope.declare(arg, true); !ok {
			return a.errf(block.Pos(), errors.KindDuplicateArgument, "duplicate argument %q", arg)
		}
	}
	for _, tmp := range block.Temporaries {
		if _, ok := scope.declare(tmp, false); !ok {
			return a.errf(block.Pos(), errors.KindDuplicateArgument, "duplicate temporary %q", tmp)
		}
	}
	return a.analyzeStatements(block.Body, scope)
}

// literalBlockArg returns arg as a *ast.BlockNode with exactly wantArgs
// arguments, or nil if it isn't one (the send must then fall back to an
// ordinary, non-inlined compilation).
func literalBlockArg(arg ast.Node, wantArgs int) *ast.BlockNode {
	b, ok := arg.(*ast.BlockNode)
	if !ok || len(b.Arguments) != wantArgs {
		return nil
	}
	return b
}

func (a *analyzer) analyzeSend(send *ast.MessageSendNode, scope *funcScope) error {
	if err := a.analyzeNode(send.Receiver, scope); err != nil {
		return err
	}

	if !send.IsSuper {
		if shape, ok := a.classifyOptimized(send); ok {
			a.sendShapes[send] = shape
			return a.analyzeOptimizedArgs(send, shape, scope)
		}
	}

	a.sendShapes[send] = shapeOrdinary
	for _, arg := range send.Arguments {
		if err := a.analyzeNode(arg, scope); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) classifyOptimized(send *ast.MessageSendNode) (sendShape, bool) {
	switch send.Selector {
	case "ifTrue:":
		if literalBlockArg(send.Arguments[0], 0) != nil {
			return shapeIfTrue, true
		}
	case "ifFalse:":
		if literalBlockArg(send.Arguments[0], 0) != nil {
			return shapeIfFalse, true
		}
	case "ifNil:":
		if literalBlockArg(send.Arguments[0], 0) != nil {
			return shapeIfNil, true
		}
	case "ifNotNil:":
		if literalBlockArg(send.Arguments[0], 0) != nil {
			return shapeIfNotNil, true
		}
	case "ifTrue:ifFalse:":
		if literalBlockArg(send.Arguments[0], 0) != nil && literalBlockArg(send.Arguments[1], 0) != nil {
			return shapeIfTrueIfFalse, true
		}
	case "ifFalse:ifTrue:":
		if literalBlockArg(send.Arguments[0], 0) != nil && literalBlockArg(send.Arguments[1], 0) != nil {
			return shapeIfFalseIfTrue, true
		}
	case "whileTrue:":
		if literalBlockArg(send.Receiver, 0) != nil && literalBlockArg(send.Arguments[0], 0) != nil {
			return shapeWhileTrue, true
		}
	case "whileFalse:":
		if literalBlockArg(send.Receiver, 0) != nil && literalBlockArg(send.Arguments[0], 0) != nil {
			return shapeWhileFalse, true
		}
	case "to:do:":
		if literalBlockArg(send.Arguments[1], 1) != nil {
			return shapeToDo, true
		}
	case "to:by:do:":
		if step, isLit := send.Arguments[1].(*ast.LiteralNode); isLit && literalBlockArg(send.Arguments[2], 1) != nil {
			if _, isInt := step.Value.(int64); isInt {
				return shapeToByDo, true
			}
		}
	}
	return shapeOrdinary, false
}

// analyzeOptimizedArgs walks an optimized send's arguments, inlining
// whichever of them are the literal blocks classifyOptimized matched on
// and treating any remaining arguments (to:do:'s stop value, to:by:do:'s
// stop/step) as ordinary expressions.
func (a *analyzer) analyzeOptimizedArgs(send *ast.MessageSendNode, shape sendShape, scope *funcScope) error {
	switch shape {
	case shapeIfTrue, shapeIfFalse, shapeIfNil, shapeIfNotNil:
		return a.analyzeInlinedBlock(send.Arguments[0].(*ast.BlockNode), scope)
	case shapeIfTrueIfFalse, shapeIfFalseIfTrue:
		if err := a.analyzeInlinedBlock(send.Arguments[0].(*ast.BlockNode), scope); err != nil {
			return err
		}
		return a.analyzeInlinedBlock(send.Arguments[1].(*ast.BlockNode), scope)
	case shapeWhileTrue, shapeWhileFalse:
		if err := a.analyzeInlinedBlock(send.Receiver.(*ast.BlockNode), scope); err != nil {
			return err
		}
		return a.analyzeInlinedBlock(send.Arguments[0].(*ast.BlockNode), scope)
	case shapeToDo:
		if err := a.analyzeNode(send.Arguments[0], scope); err != nil {
			return err
		}
		return a.analyzeInlinedBlock(send.Arguments[1].(*ast.BlockNode), scope)
	case shapeToByDo:
		if err := a.analyzeNode(send.Arguments[0], scope); err != nil {
			return err
		}
		if err := a.analyzeNode(send.Arguments[1], scope); err != nil {
			return err
		}
		return a.analyzeInlinedBlock(send.Arguments[2].(*ast.BlockNode), scope)
	}
	return fmt.Errorf("compiler: unreachable send shape %d", shape)
}

// finalizeSlots assigns deterministic temporal-slot and capture-vector
// indices across the whole method, per spec.md §4.3.2's numbering:
// arguments first, then the vector slot (if any), then ordinary
// temporaries -- applied per funcScope for its own args/temps, with
// captured locals pulled out into one method-wide vector instead of
// occupying a temporal slot at all.
func (a *analyzer) finalizeSlots(methodScope *funcScope, result *Analysis) {
	a.assignVectorIndices(methodScope)
	result.CapturedTotal = a.nextVecIndex
	result.HasVector = a.nextVecIndex > 0
	if result.HasVector {
		methodScope.usesVector = true
	}
	a.assignScopeSlots(methodScope)
	result.VectorSlot = methodScope.vectorSlot
}

// assignVectorIndices walks every funcScope in the method (method scope
// first, then non-inlined blocks depth-first) assigning increasing
// vector indices to every local flagged captured, in declaration order.
func (a *analyzer) assignVectorIndices(scope *funcScope) {
	for _, li := range scope.locals {
		if li.captured {
			li.vecIndex = a.nextVecIndex
			a.nextVecIndex++
		}
	}
	for _, child := range a.childScopesOf(scope) {
		a.assignVectorIndices(child)
	}
}

// childScopesOf returns every funcScope whose parent is scope, in the
// order blockScopes recorded them (occurrence order is not preserved by
// the map, but vector index order only needs to be deterministic within
// a single compile, not insertion-stable across compiles, since each
// compile rebuilds its own map independently).
func (a *analyzer) childScopesOf(scope *funcScope) []*funcScope {
	var children []*funcScope
	for _, s := range a.blockScopes {
		if s.parent == scope {
			children = append(children, s)
		}
	}
	return children
}

// assignScopeSlots assigns ordinary temporal-slot indices within scope:
// arguments first, then -- iff scope.usesVector -- one slot for the
// capture vector reference, then ordinary non-captured temporaries.
// Every funcScope uses this same numbering whether it is the method
// scope (which allocates a fresh vector Array into that slot) or a
// block scope forwarding one (whose activation copies its sole copied
// value into that slot instead); either way the vector ends up at a
// fixed, predictable slot -- exactly its own argument count -- so
// PushTemporalInVector and friends never need to carry which slot holds
// the vector as an operand.
func (a *analyzer) assignScopeSlots(scope *funcScope) {
	slot := 0
	for _, li := range scope.locals {
		if li.isArg {
			li.slotIndex = slot
			slot++
		}
	}
	if scope.usesVector {
		scope.vectorSlot = slot
		slot++
	}
	for _, li := range scope.locals {
		if !li.isArg && !li.captured {
			li.slotIndex = slot
			slot++
		}
	}
	for _, child := range a.childScopesOf(scope) {
		a.assignScopeSlots(child)
	}
}
