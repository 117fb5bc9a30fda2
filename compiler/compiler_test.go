package compiler

import (
	"testing"

	"github.com/lodtalk-go/vm/ast"
	"github.com/lodtalk-go/vm/bytecode"
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

func newCompileTestHeap(t *testing.T) *heap.Heap {
	t.Helper()
	return heap.New(heap.Config{ReservedBytes: 1 << 20})
}

func testSingletons() Singletons {
	return Singletons{
		Nil:   object.EncodeSmallInteger(901),
		True:  object.EncodeSmallInteger(902),
		False: object.EncodeSmallInteger(903),
	}
}

// newTestClass declares a standalone class (no real Object superclass
// chain, matching class.Builder's own tests) carrying ivarNames as its
// instance variables, for exercising VarInstance resolution.
func newTestClass(t *testing.T, h *heap.Heap, ivarNames ...string) class.Class {
	t.Helper()
	r := class.NewRegistry(h)
	b, err := r.NewClass("Test", class.Class{})
	if err != nil {
		t.Fatalf("NewClass: %v", err)
	}
	if len(ivarNames) > 0 {
		b.AddInstanceVariables(ivarNames...)
	}
	cls, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return cls
}

// decodeOps returns each decoded instruction's leading opcode, walking the
// bytecode stream the same way Opcode.Size bands it (1/2/3-byte units,
// extension prefixes included as their own units).
func decodeOps(bc []byte) []bytecode.Opcode {
	var ops []bytecode.Opcode
	for pos := 0; pos < len(bc); {
		op := bytecode.Opcode(bc[pos])
		ops = append(ops, op)
		pos += op.Size()
	}
	return ops
}

func countOp(bc []byte, want bytecode.Opcode) int {
	n := 0
	for _, op := range decodeOps(bc) {
		if op == want {
			n++
		}
	}
	return n
}

func containsOp(bc []byte, want bytecode.Opcode) bool { return countOp(bc, want) > 0 }

// containsJumpOnFalse reports a conditional jump-on-false in either its
// long form or its one-byte short form.
func containsJumpOnFalse(bc []byte) bool {
	for _, op := range decodeOps(bc) {
		if op == bytecode.JumpOnFalse || (op >= bytecode.JumpOnFalseShort.First && op <= bytecode.JumpOnFalseShort.Last()) {
			return true
		}
	}
	return false
}

func compileMethod(t *testing.T, h *heap.Heap, cls class.Class, g Globals, method *ast.MethodNode) class.CompiledMethod {
	t.Helper()
	symbols := class.NewSymbolTable(h)
	m, err := Compile(h, symbols, g, testSingletons(), cls, method)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return m
}

func TestCompileEmptyMethodReturnsReceiverImplicitly(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	method := ast.NewMethodNode(1, "foo", nil, nil, nil)

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	bc := m.Bytecode()
	ops := decodeOps(bc)
	if len(ops) != 1 || ops[0] != bytecode.ReturnReceiver {
		t.Errorf("ops = %v, want [ReturnReceiver]", ops)
	}
	hdr := m.Header()
	if hdr.ArgumentCount != 0 || hdr.TemporalCount != 0 {
		t.Errorf("Header() = %+v, want ArgumentCount=0 TemporalCount=0", hdr)
	}
}

func TestCompileArgumentCountExcludesFromTemporalCount(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	method := ast.NewMethodNode(1, "foo:bar:", []string{"a", "b"}, []string{"t"}, []ast.Statement{
		ast.NewReturnNode(1, ast.NewIdentifierNode(1, "t")),
	})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	hdr := m.Header()
	if hdr.ArgumentCount != 2 {
		t.Errorf("ArgumentCount = %d, want 2", hdr.ArgumentCount)
	}
	if hdr.TemporalCount != 1 {
		t.Errorf("TemporalCount = %d, want 1 (t only, arguments excluded)", hdr.TemporalCount)
	}
}

func TestCompileExplicitNilReturnUsesDedicatedOpcode(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{
		ast.NewReturnNode(1, ast.NewLiteralNode(1, nil)),
	})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	ops := decodeOps(m.Bytecode())
	if len(ops) != 1 || ops[0] != bytecode.ReturnNil {
		t.Errorf("ops = %v, want [ReturnNil]", ops)
	}
}

func TestCompileExplicitReturnInsideBlockIsFullMethodReturn(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	// [ ^true ] value -- an explicit ^ inside a genuinely closed-over
	// block body must still emit ReturnTrue (a full non-local return),
	// never BlockReturnTop/BlockReturnNil.
	block := ast.NewBlockNode(1, nil, nil, []ast.Statement{
		ast.NewReturnNode(1, ast.NewLiteralNode(1, true)),
	})
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{block})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	ops := decodeOps(m.Bytecode())
	if !containsOp(m.Bytecode(), bytecode.ReturnTrue) {
		t.Errorf("ops = %v, want ReturnTrue somewhere in the block body", ops)
	}
	if containsOp(m.Bytecode(), bytecode.BlockReturnTop) || containsOp(m.Bytecode(), bytecode.BlockReturnNil) {
		t.Errorf("ops = %v, explicit ^ should never emit BlockReturnTop/BlockReturnNil", ops)
	}
}

func TestCompileIfTrueInlinesWithoutAnySend(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	send := ast.NewMessageSendNode(1, ast.NewIdentifierNode(1, "self"), "ifTrue:",
		[]ast.Node{ast.NewBlockNode(1, nil, nil, []ast.Statement{ast.NewLiteralNode(1, int64(1))})}, false)
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{
		ast.NewReturnNode(1, send),
	})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	bc := m.Bytecode()
	if containsOp(bc, bytecode.Send) {
		t.Errorf("ifTrue: should never emit a Send opcode, got ops %v", decodeOps(bc))
	}
	if !containsJumpOnFalse(bc) {
		t.Errorf("ifTrue: should emit JumpOnFalse, got ops %v", decodeOps(bc))
	}
}

func TestCompileWhileTrueLoopsBackward(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	cond := ast.NewBlockNode(1, nil, nil, []ast.Statement{ast.NewIdentifierNode(1, "self")})
	body := ast.NewBlockNode(1, nil, nil, []ast.Statement{ast.NewIdentifierNode(1, "self")})
	send := ast.NewMessageSendNode(1, cond, "whileTrue:", []ast.Node{body}, false)
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{send})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	bc := m.Bytecode()
	if containsOp(bc, bytecode.Send) {
		t.Errorf("whileTrue: should never emit a Send opcode, got ops %v", decodeOps(bc))
	}
	if !containsOp(bc, bytecode.Jump) {
		t.Errorf("whileTrue: should emit a backward Jump to retest the condition, got ops %v", decodeOps(bc))
	}
}

func TestCompileInstanceVariableAccess(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h, "x", "y")
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{
		ast.NewReturnNode(1, ast.NewIdentifierNode(1, "y")),
	})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	bc := m.Bytecode()
	// y is instance variable index 1, within PushReceiverVariableShort's
	// range -- short form encodes as a single byte, First+1.
	want := byte(bytecode.PushReceiverVariableShort.First) + 1
	if bc[0] != want {
		t.Errorf("bc[0] = %d, want %d (pushReceiverVariableShort+1)", bc[0], want)
	}
}

func TestCompileGlobalVariableAddressesAssociationLiteral(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	g := newFakeGlobals("Transcript")
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{
		ast.NewReturnNode(1, ast.NewIdentifierNode(1, "Transcript")),
	})

	m := compileMethod(t, h, cls, g, method)
	bc := m.Bytecode()
	if !containsOp(bc, bytecode.PushLiteralVariableShort.First) {
		t.Fatalf("expected a pushLiteralVariableShort opcode, got ops %v", decodeOps(bc))
	}
	assoc, err := g.Association("Transcript")
	if err != nil {
		t.Fatalf("Association: %v", err)
	}
	if m.LiteralCount < 1 || m.Literal(0) != assoc {
		t.Errorf("literal[0] = %v, want the Transcript association %v", m.Literal(0), assoc)
	}
}

func TestCompileCapturedTempAllocatesVectorAndForwardsToBlock(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	inner := ast.NewBlockNode(1, nil, nil, []ast.Statement{
		ast.NewIdentifierNode(1, "x"),
	})
	method := ast.NewMethodNode(1, "foo:", []string{"x"}, nil, []ast.Statement{
		inner,
	})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	bc := m.Bytecode()
	if !containsOp(bc, bytecode.PushNewArray) {
		t.Errorf("expected PushNewArray allocating the shared capture vector, ops %v", decodeOps(bc))
	}
	if !containsOp(bc, bytecode.PushClosure) {
		t.Errorf("expected a PushClosure for the non-inlined block, ops %v", decodeOps(bc))
	}
	if !containsOp(bc, bytecode.PushTemporalInVector) {
		t.Errorf("expected the block body to read x via PushTemporalInVector, ops %v", decodeOps(bc))
	}
	hdr := m.Header()
	// x is a captured argument: it keeps its ordinary argument slot (the
	// calling convention still delivers it there) but is excluded from
	// TemporalCount, which should be exactly 1 for the vector slot alone.
	if hdr.ArgumentCount != 1 {
		t.Errorf("ArgumentCount = %d, want 1", hdr.ArgumentCount)
	}
	if hdr.TemporalCount != 1 {
		t.Errorf("TemporalCount = %d, want 1 (vector slot only)", hdr.TemporalCount)
	}
}

func TestCompileCascadeDuplicatesReceiverExceptForLastMessage(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	cascade := ast.NewCascadeNode(1, ast.NewIdentifierNode(1, "self"),
		ast.CascadeMessage{Selector: "foo", Line: 1},
		ast.CascadeMessage{Selector: "bar", Line: 1},
		ast.CascadeMessage{Selector: "baz", Line: 1},
	)
	method := ast.NewMethodNode(1, "m", nil, nil, []ast.Statement{cascade})

	m := compileMethod(t, h, cls, newFakeGlobals(), method)
	bc := m.Bytecode()
	// 3 messages: duplicate before the first two, none before the last.
	if got := countOp(bc, bytecode.DuplicateTop); got != 2 {
		t.Errorf("DuplicateTop count = %d, want 2", got)
	}
}

func TestCompileRejectsUndeclaredIdentifier(t *testing.T) {
	h := newCompileTestHeap(t)
	cls := newTestClass(t, h)
	method := ast.NewMethodNode(1, "foo", nil, nil, []ast.Statement{
		ast.NewIdentifierNode(1, "mystery"),
	})
	if _, err := Compile(h, class.NewSymbolTable(h), newFakeGlobals(), testSingletons(), cls, method); err == nil {
		t.Fatal("Compile should have failed on an undeclared identifier")
	}
}
