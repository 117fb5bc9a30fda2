package compiler

import "testing"

func TestDeclareRejectsDuplicateName(t *testing.T) {
	s := newFuncScope(nil, true)
	if _, ok := s.declare("x", true); !ok {
		t.Fatalf("first declare of %q failed", "x")
	}
	if _, ok := s.declare("x", false); ok {
		t.Errorf("second declare of %q should have failed", "x")
	}
}

func TestLookupLocalSearchesAncestorsInnermostFirst(t *testing.T) {
	outer := newFuncScope(nil, true)
	outerX, _ := outer.declare("x", true)
	inner := newFuncScope(outer, false)
	innerX, _ := inner.declare("x", true)

	li, owner, ok := inner.lookupLocal("x")
	if !ok || li != innerX || owner != inner {
		t.Errorf("lookupLocal(x) from inner = %v, %v, %v; want innermost declaration", li, owner, ok)
	}

	li, owner, ok = outer.lookupLocal("x")
	if !ok || li != outerX || owner != outer {
		t.Errorf("lookupLocal(x) from outer = %v, %v, %v; want outer's own declaration", li, owner, ok)
	}

	if _, _, ok := inner.lookupLocal("y"); ok {
		t.Errorf("lookupLocal(y) should not have found anything")
	}
}

func TestMarkCapturedFromFlagsEveryScopeBetweenUseAndOwner(t *testing.T) {
	method := newFuncScope(nil, true)
	outerBlock := newFuncScope(method, false)
	innerBlock := newFuncScope(outerBlock, false)

	markCapturedFrom(innerBlock, method)

	if !innerBlock.usesVector {
		t.Errorf("innerBlock.usesVector = false, want true")
	}
	if !outerBlock.usesVector {
		t.Errorf("outerBlock.usesVector = false, want true")
	}
	if method.usesVector {
		t.Errorf("method.usesVector = true, want false (markCapturedFrom stops before owning)")
	}
}
