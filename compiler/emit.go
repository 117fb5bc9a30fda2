package compiler

import (
	"fmt"

	"github.com/lodtalk-go/vm/ast"
	"github.com/lodtalk-go/vm/bytecode"
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/object"
)

// Singletons names the canonical nil/true/false heap objects, needed
// only for embedding one of them directly as a literal array element
// (an ordinary nil/true/false literal emits PushNil/PushTrue/PushFalse
// instead, which carries no literal-pool value at all).
type Singletons struct {
	Nil   object.Value
	True  object.Value
	False object.Value
}

// emitter drives a bytecode.Assembler through a method body, consulting
// an already-completed Analysis for every binding and send-shape
// decision rather than re-deriving them.
type emitter struct {
	asm        *bytecode.Assembler
	symbols    *class.SymbolTable
	globals    Globals
	singletons Singletons
	a          *Analysis
}

// emitMethod emits method's body against asm, leaving asm ready for
// asm.Generate; it returns only an error.
func emitMethod(asm *bytecode.Assembler, symbols *class.SymbolTable, globals Globals, singletons Singletons, a *Analysis, method *ast.MethodNode) error {
	e := &emitter{asm: asm, symbols: symbols, globals: globals, singletons: singletons, a: a}
	return e.emitMethodBody(method)
}

func (e *emitter) emitMethodBody(method *ast.MethodNode) error {
	scope := e.a.MethodScope

	if scope.usesVector {
		e.asm.PushNewArray(e.a.CapturedTotal)
		e.asm.PopStoreTemp(scope.vectorSlot)
	}
	if err := e.emitCapturedArgCopies(scope); err != nil {
		return err
	}

	returned, err := e.emitStatements(method.Body, scope)
	if err != nil {
		return err
	}
	if !returned {
		e.asm.ReturnReceiver()
	}
	return nil
}

// emitCapturedArgCopies copies every argument of scope that analysis
// flagged as captured from its ordinary argument slot into the shared
// capture vector, immediately after the vector itself becomes available
// -- an argument's value arrives in its slot via the ordinary calling
// convention, but a captured binding must live in the vector for any
// closure that was given access to it to see subsequent assignments.
func (e *emitter) emitCapturedArgCopies(scope *funcScope) error {
	for _, li := range scope.locals {
		if li.isArg && li.captured {
			e.asm.PushTemp(li.slotIndex)
			e.asm.PopStoreTemporalInVector(li.vecIndex)
		}
	}
	return nil
}

// emitStatements emits every statement in order, returning returned=true
// if one of them was an explicit ^-return (in which case it was the
// last bytecode emitted for this statement list: anything syntactically
// following a return is unreachable and is not compiled).
func (e *emitter) emitStatements(stmts []ast.Statement, scope *funcScope) (returned bool, err error) {
	for _, s := range stmts {
		if ret, ok := s.(*ast.ReturnNode); ok {
			return true, e.emitReturn(ret, scope)
		}
		if err := e.emitExpr(s.(ast.Node), scope); err != nil {
			return false, err
		}
		e.asm.PopStackTop()
	}
	return false, nil
}

// emitReturn compiles an explicit "^expr". This is always a method
// return (spec.md §4.4's non-local return protocol, which walks up to
// the home context regardless of how deeply nested the executing
// activation is) even when it lexically occurs inside a non-inlined
// block -- BlockReturnTop/BlockReturnNil are reserved for a block's own
// implicit "fell off the end, answer my last expression's value to
// whoever sent value/value:" case, which has nothing to do with ^.
func (e *emitter) emitReturn(ret *ast.ReturnNode, scope *funcScope) error {
	switch lit, ok := ret.Value.(*ast.LiteralNode); {
	case ok && lit.Value == nil:
		e.asm.ReturnNil()
		return nil
	case ok:
		if b, isBool := lit.Value.(bool); isBool {
			if b {
				e.asm.ReturnTrue()
			} else {
				e.asm.ReturnFalse()
			}
			return nil
		}
	}
	if id, ok := ret.Value.(*ast.IdentifierNode); ok && id.Name == "self" {
		e.asm.ReturnReceiver()
		return nil
	}
	if err := e.emitExpr(ret.Value, scope); err != nil {
		return err
	}
	e.asm.ReturnTop()
	return nil
}

// emitExpr pushes exactly one value for n onto the stack.
func (e *emitter) emitExpr(n ast.Node, scope *funcScope) error {
	switch node := n.(type) {
	case *ast.LiteralNode:
		return e.emitLiteral(node.Value)
	case *ast.IdentifierNode:
		return e.emitPush(e.a.Bindings[node], scope)
	case *ast.AssignmentNode:
		if err := e.emitExpr(node.Value, scope); err != nil {
			return err
		}
		return e.emitStore(e.a.Bindings[node], scope)
	case *ast.ReturnNode:
		// A ^-return used in expression position (e.g. as a cascade
		// receiver) cannot occur from a syntactically valid program;
		// treat its value as the expression's value for robustness.
		return e.emitExpr(node.Value, scope)
	case *ast.CascadeNode:
		return e.emitCascade(node, scope)
	case *ast.BlockNode:
		return e.emitBlockLiteral(node, scope)
	case *ast.MessageSendNode:
		return e.emitSend(node, scope)
	default:
		return fmt.Errorf("compiler: unhandled node type %T", n)
	}
}

func (e *emitter) emitLiteral(v any) error {
	switch val := v.(type) {
	case nil:
		e.asm.PushNil()
	case bool:
		if val {
			e.asm.PushTrue()
		} else {
			e.asm.PushFalse()
		}
	case int64:
		e.emitSmallInteger(val)
	case int:
		e.emitSmallInteger(int64(val))
	case rune:
		idx := e.asm.AddLiteral(object.EncodeCharacter(val))
		e.asm.PushLiteral(idx)
	case float64:
		if sf, ok := object.EncodeSmallFloat(val); ok {
			idx := e.asm.AddLiteral(sf)
			e.asm.PushLiteral(idx)
			return nil
		}
		// There is no boxed Float representation; a literal SmallFloat
		// cannot encode is compiled as the SmallInteger of its value
		// truncated toward zero rather than failing the whole compile.
		idx := e.asm.AddLiteral(object.EncodeSmallInteger(int64(val)))
		e.asm.PushLiteral(idx)
	case string:
		sv, err := class.NewByteString(e.asm.Heap(), val)
		if err != nil {
			return err
		}
		idx := e.asm.AddLiteralAlways(sv)
		e.asm.PushLiteral(idx)
	case SymbolLiteral:
		sym, err := e.symbols.Intern(string(val))
		if err != nil {
			return err
		}
		idx := e.asm.AddLiteral(sym)
		e.asm.PushLiteral(idx)
	case []any:
		return e.emitLiteralArray(val)
	default:
		return fmt.Errorf("compiler: unsupported literal value %T", v)
	}
	return nil
}

// SymbolLiteral aliases ast.SymbolLiteral so emitLiteral's type switch
// above reads naturally; the two types are identical in underlying kind.
type SymbolLiteral = ast.SymbolLiteral

func (e *emitter) emitSmallInteger(n int64) {
	switch n {
	case 0:
		e.asm.PushSmallInteger0()
	case 1:
		e.asm.PushSmallInteger1()
	default:
		idx := e.asm.AddLiteral(object.EncodeSmallInteger(n))
		e.asm.PushLiteral(idx)
	}
}

// emitLiteralArray builds elements bottom-up as a heap Array and adds it
// to the literal pool as one compile-time constant, rather than emitting
// code that constructs it at runtime (a literal array's elements are
// fixed at compile time, unlike PushNewArrayWithElements's runtime-value
// collection used for block-body array expressions).
func (e *emitter) emitLiteralArray(elems []any) error {
	arr, err := class.NewArray(e.asm.Heap(), len(elems))
	if err != nil {
		return err
	}
	for i, el := range elems {
		v, err := e.literalArrayElement(el)
		if err != nil {
			return err
		}
		arr.AtPut(i, v)
	}
	idx := e.asm.AddLiteralAlways(arr.Value)
	e.asm.PushLiteral(idx)
	return nil
}

func (e *emitter) literalArrayElement(v any) (object.Value, error) {
	switch val := v.(type) {
	case nil:
		return e.singletons.Nil, nil
	case bool:
		if val {
			return e.singletons.True, nil
		}
		return e.singletons.False, nil
	case int64:
		return object.EncodeSmallInteger(val), nil
	case int:
		return object.EncodeSmallInteger(int64(val)), nil
	case rune:
		return object.EncodeCharacter(val), nil
	case float64:
		if sf, ok := object.EncodeSmallFloat(val); ok {
			return sf, nil
		}
		return object.EncodeSmallInteger(int64(val)), nil
	case string:
		return class.NewByteString(e.asm.Heap(), val)
	case SymbolLiteral:
		return e.symbols.Intern(string(val))
	case []any:
		arr, err := class.NewArray(e.asm.Heap(), len(val))
		if err != nil {
			return 0, err
		}
		for i, el := range val {
			iv, err := e.literalArrayElement(el)
			if err != nil {
				return 0, err
			}
			arr.AtPut(i, iv)
		}
		return arr.Value, nil
	default:
		return 0, fmt.Errorf("compiler: unsupported literal array element %T", v)
	}
}

func (e *emitter) emitPush(b *Binding, scope *funcScope) error {
	switch b.Kind {
	case VarPseudoSelf, VarPseudoSuper:
		e.asm.PushSelf()
	case VarPseudoThisContext:
		e.asm.PushThisContext()
	case VarInstance:
		e.asm.PushReceiverVariable(b.Instance)
	case VarGlobal:
		idx, err := e.globalLiteralIndex(b.Global)
		if err != nil {
			return err
		}
		e.asm.PushLiteralVariable(idx)
	case VarTemp, VarCaptured:
		if b.Local.captured {
			e.asm.PushTemporalInVector(b.Local.vecIndex)
		} else {
			e.asm.PushTemp(b.Local.slotIndex)
		}
	default:
		return fmt.Errorf("compiler: unhandled binding kind %d", b.Kind)
	}
	return nil
}

// emitStore stores the value already on top of stack (leaving it there)
// into b, matching the *InVector/receiver-variable/temp Store family's
// shared "store without popping" convention -- callers that only want
// the side effect (an assignment used as a whole statement) follow up
// with an explicit PopStackTop, same as any other expression statement.
func (e *emitter) emitStore(b *Binding, scope *funcScope) error {
	switch b.Kind {
	case VarInstance:
		e.asm.StoreReceiverVariable(b.Instance)
	case VarGlobal:
		idx, err := e.globalLiteralIndex(b.Global)
		if err != nil {
			return err
		}
		e.asm.StoreLiteralVariable(idx)
	case VarTemp, VarCaptured:
		if b.Local.captured {
			e.asm.StoreTemporalInVector(b.Local.vecIndex)
		} else {
			e.asm.StoreTemp(b.Local.slotIndex)
		}
	default:
		return fmt.Errorf("compiler: cannot assign to binding kind %d", b.Kind)
	}
	return nil
}

// globalLiteralIndex adds (or reuses) the literal-pool entry holding the
// Association/binding object for a global variable reference, per
// spec.md §4.3's "a global is addressed in the literal pool via a
// mutable Association binding, not a bare frozen value".
func (e *emitter) globalLiteralIndex(name string) (int, error) {
	assoc, err := e.globals.Association(name)
	if err != nil {
		return 0, err
	}
	return e.asm.AddLiteral(assoc), nil
}

func (e *emitter) emitCascade(node *ast.CascadeNode, scope *funcScope) error {
	if err := e.emitExpr(node.Receiver, scope); err != nil {
		return err
	}
	last := len(node.Messages) - 1
	for i, m := range node.Messages {
		// Every message but the last sends to a duplicated receiver,
		// since the original is still needed for what follows; the
		// last message sends to the original directly, so its result
		// -- the cascade expression's own value -- is what remains on
		// the stack once it returns.
		if i < last {
			e.asm.DuplicateTop()
		}
		for _, arg := range m.Arguments {
			if err := e.emitExpr(arg, scope); err != nil {
				return err
			}
		}
		selIdx, err := e.selectorLiteralIndex(m.Selector)
		if err != nil {
			return err
		}
		e.asm.Send(selIdx, len(m.Arguments))
		if i < last {
			e.asm.PopStackTop()
		}
	}
	return nil
}

func (e *emitter) selectorLiteralIndex(selector string) (int, error) {
	sym, err := e.symbols.Intern(selector)
	if err != nil {
		return 0, err
	}
	return e.asm.AddLiteral(sym), nil
}

// emitBlockLiteral compiles a genuinely non-inlined block into its own
// closure, using PushClosureUntil so the Assembler's own layout pass
// measures the resulting block body rather than requiring the caller to
// know its size up front.
func (e *emitter) emitBlockLiteral(block *ast.BlockNode, scope *funcScope) error {
	blockScope := e.a.BlockScopes[block]

	numCopied := 0
	if blockScope.usesVector {
		numCopied = 1
		e.emitVectorReferenceFor(scope)
	}

	bodyEnd := e.asm.MakeLabel()
	e.asm.PushClosureUntil(countArgs(blockScope), numCopied, bodyEnd)
	if err := e.emitCapturedArgCopies(blockScope); err != nil {
		return err
	}
	// A block that falls off the end of its body (no explicit ^) answers
	// its last statement's value to whoever sent it value/value:...; one
	// that hits an explicit ^ along the way already emitted a full
	// non-local method return and needs no further block-return opcode.
	returned, err := e.emitBodyLastValue(block.Body, blockScope)
	if err != nil {
		return err
	}
	if !returned {
		e.asm.BlockReturnTop()
	}
	e.asm.PutLabel(bodyEnd)
	return nil
}

// countArgs returns how many of scope's own locals are arguments, the
// value PushClosureUntil needs to record in a block's packed header.
func countArgs(scope *funcScope) int {
	n := 0
	for _, li := range scope.locals {
		if li.isArg {
			n++
		}
	}
	return n
}

// emitVectorReferenceFor pushes the Array reference a nested block
// should receive as its sole copied value: the current scope's own
// vector slot if it already holds one directly (the method scope, or a
// block scope that itself received the vector as a forwarded copied
// value and was given its own vector slot by assignScopeSlots).
func (e *emitter) emitVectorReferenceFor(scope *funcScope) {
	e.asm.PushTemp(scope.vectorSlot)
}

func (e *emitter) emitSend(send *ast.MessageSendNode, scope *funcScope) error {
	shape := e.a.SendShapes[send]
	if shape != shapeOrdinary {
		return e.emitOptimizedSend(send, shape, scope)
	}

	if err := e.emitExpr(send.Receiver, scope); err != nil {
		return err
	}
	for _, arg := range send.Arguments {
		if err := e.emitExpr(arg, scope); err != nil {
			return err
		}
	}
	if idx, ok := bytecode.SpecialSelectorIndex(send.Selector, len(send.Arguments)); ok && !send.IsSuper {
		e.asm.SpecialSelectorSend(idx)
		return nil
	}
	selIdx, err := e.selectorLiteralIndex(send.Selector)
	if err != nil {
		return err
	}
	if send.IsSuper {
		e.asm.SuperSend(selIdx, len(send.Arguments))
	} else {
		e.asm.Send(selIdx, len(send.Arguments))
	}
	return nil
}
