package compiler

import (
	"fmt"

	"github.com/lodtalk-go/vm/ast"
	"github.com/lodtalk-go/vm/bytecode"
)

// emitOptimizedSend compiles one of spec.md §4.3.3's optimized-selector
// shapes inline: no Send opcode at all, just the conditional jumps and
// merged-scope block bodies that reproduce the selector's behavior
// directly in the surrounding method's own instruction stream.
func (e *emitter) emitOptimizedSend(send *ast.MessageSendNode, shape sendShape, scope *funcScope) error {
	switch shape {
	case shapeIfTrue:
		return e.emitIf(send.Receiver, send.Arguments[0].(*ast.BlockNode), nil, scope)
	case shapeIfFalse:
		return e.emitIf(send.Receiver, nil, send.Arguments[0].(*ast.BlockNode), scope)
	case shapeIfTrueIfFalse:
		t := send.Arguments[0].(*ast.BlockNode)
		f := send.Arguments[1].(*ast.BlockNode)
		return e.emitIf(send.Receiver, t, f, scope)
	case shapeIfFalseIfTrue:
		f := send.Arguments[0].(*ast.BlockNode)
		t := send.Arguments[1].(*ast.BlockNode)
		return e.emitIf(send.Receiver, t, f, scope)
	case shapeIfNil:
		return e.emitIfNil(send.Receiver, send.Arguments[0].(*ast.BlockNode), scope)
	case shapeIfNotNil:
		return e.emitIfNotNil(send.Receiver, send.Arguments[0].(*ast.BlockNode), scope)
	case shapeWhileTrue:
		return e.emitWhile(send.Receiver.(*ast.BlockNode), send.Arguments[0].(*ast.BlockNode), true, scope)
	case shapeWhileFalse:
		return e.emitWhile(send.Receiver.(*ast.BlockNode), send.Arguments[0].(*ast.BlockNode), false, scope)
	case shapeToDo:
		return e.emitToDo(send.Receiver, send.Arguments[0], send.Arguments[1].(*ast.BlockNode), scope)
	case shapeToByDo:
		return e.emitToByDo(send.Receiver, send.Arguments[0], send.Arguments[1], send.Arguments[2].(*ast.BlockNode), scope)
	default:
		return fmt.Errorf("compiler: unreachable optimized shape %d", shape)
	}
}

// emitInlinedBody emits an inlined block's statements as a value-bearing
// expression: every statement but the last is popped as usual, and the
// last statement's value is left on the stack (or nil is pushed if the
// block has no statements at all) since ifTrue:/ifFalse:/whileTrue:'s
// etc. inlined forms still answer a value like an ordinary send would.
// An explicit ^-return anywhere in the body emits a genuine method
// return and abandons the rest of the body; since an inlined block
// shares its enclosing method's own frame, that's already the correct
// non-local-return behavior and needs no special unwinding of its own.
func (e *emitter) emitInlinedBody(block *ast.BlockNode, scope *funcScope) error {
	_, err := e.emitBodyLastValue(block.Body, scope)
	return err
}

// emitBodyLastValue emits stmts so that, barring an explicit ^-return,
// the last statement's value (or nil, if stmts is empty) is left on top
// of stack; returned reports whether an explicit return fired instead,
// for callers that need to skip their own implicit trailing return.
func (e *emitter) emitBodyLastValue(stmts []ast.Statement, scope *funcScope) (returned bool, err error) {
	if len(stmts) == 0 {
		e.asm.PushNil()
		return false, nil
	}
	for _, s := range stmts[:len(stmts)-1] {
		if ret, ok := s.(*ast.ReturnNode); ok {
			return true, e.emitReturn(ret, scope)
		}
		if err := e.emitExpr(s.(ast.Node), scope); err != nil {
			return false, err
		}
		e.asm.PopStackTop()
	}
	last := stmts[len(stmts)-1]
	if ret, ok := last.(*ast.ReturnNode); ok {
		return true, e.emitReturn(ret, scope)
	}
	return false, e.emitExpr(last.(ast.Node), scope)
}

// emitIf compiles receiver ifTrue:/ifFalse:/ifTrue:ifFalse:-shaped sends.
// Either trueBlock or falseBlock may be nil (a bare ifTrue:/ifFalse:),
// in which case the missing arm answers nil.
func (e *emitter) emitIf(receiver ast.Node, trueBlock, falseBlock *ast.BlockNode, scope *funcScope) error {
	if err := e.emitExpr(receiver, scope); err != nil {
		return err
	}
	elseLabel := e.asm.MakeLabel()
	doneLabel := e.asm.MakeLabel()
	e.asm.JumpOnFalse(elseLabel)
	if err := e.emitArmOrNil(trueBlock, scope); err != nil {
		return err
	}
	e.asm.Jump(doneLabel)
	e.asm.PutLabel(elseLabel)
	if err := e.emitArmOrNil(falseBlock, scope); err != nil {
		return err
	}
	e.asm.PutLabel(doneLabel)
	return nil
}

func (e *emitter) emitArmOrNil(block *ast.BlockNode, scope *funcScope) error {
	if block == nil {
		e.asm.PushNil()
		return nil
	}
	return e.emitInlinedBody(block, scope)
}

func (e *emitter) emitIfNil(receiver ast.Node, nilBlock *ast.BlockNode, scope *funcScope) error {
	if err := e.emitExpr(receiver, scope); err != nil {
		return err
	}
	e.asm.DuplicateTop()
	// isNil is itself a special selector; reuse it via SpecialSelectorSend.
	nilIdx, found := specialSelectorIsNil()
	if !found {
		return fmt.Errorf("compiler: isNil is not in the special selector table")
	}
	e.asm.SpecialSelectorSend(nilIdx)
	elseLabel := e.asm.MakeLabel()
	doneLabel := e.asm.MakeLabel()
	e.asm.JumpOnFalse(elseLabel)
	e.asm.PopStackTop()
	if err := e.emitInlinedBody(nilBlock, scope); err != nil {
		return err
	}
	e.asm.Jump(doneLabel)
	e.asm.PutLabel(elseLabel)
	// receiver is still on the stack (isNil's own receiver was a
	// duplicate); it becomes ifNil:'s answer when the receiver is not
	// nil.
	e.asm.PutLabel(doneLabel)
	return nil
}

// emitIfNotNil only supports the zero-argument block form (the
// alternative one-argument form, which would receive the non-nil
// receiver as its block argument, is not implemented).
func (e *emitter) emitIfNotNil(receiver ast.Node, notNilBlock *ast.BlockNode, scope *funcScope) error {
	if err := e.emitExpr(receiver, scope); err != nil {
		return err
	}
	e.asm.DuplicateTop()
	nilIdx, found := specialSelectorIsNil()
	if !found {
		return fmt.Errorf("compiler: isNil is not in the special selector table")
	}
	e.asm.SpecialSelectorSend(nilIdx)
	elseLabel := e.asm.MakeLabel()
	doneLabel := e.asm.MakeLabel()
	e.asm.JumpOnFalse(elseLabel)
	e.asm.Jump(doneLabel)
	e.asm.PutLabel(elseLabel)
	e.asm.PopStackTop()
	if err := e.emitInlinedBody(notNilBlock, scope); err != nil {
		return err
	}
	e.asm.PutLabel(doneLabel)
	return nil
}

func specialSelectorIsNil() (int, bool) {
	return bytecode.SpecialSelectorIndex("isNil", 0)
}

func (e *emitter) emitWhile(condBlock, bodyBlock *ast.BlockNode, continueOn bool, scope *funcScope) error {
	top := e.asm.MakeLabelHere()
	done := e.asm.MakeLabel()
	if err := e.emitInlinedBody(condBlock, scope); err != nil {
		return err
	}
	if continueOn {
		e.asm.JumpOnFalse(done)
	} else {
		e.asm.JumpOnTrue(done)
	}
	if err := e.emitInlinedBody(bodyBlock, scope); err != nil {
		return err
	}
	e.asm.PopStackTop()
	e.asm.Jump(top)
	e.asm.PutLabel(done)
	e.asm.PushNil()
	return nil
}

// emitToDo compiles start to: stop do: [:i | ...] inline: start and stop
// are evaluated once (stop stays on the stack and each loop test sends
// stop >= i), the loop variable is an ordinary (possibly captured) temp
// bound by the inlined block's single argument.
func (e *emitter) emitToDo(startExpr, stopExpr ast.Node, body *ast.BlockNode, scope *funcScope) error {
	return e.emitCountedLoop(startExpr, stopExpr, nil, body, scope)
}

// emitToByDo is emitToDo with an explicit step, which analysis only
// inlines when it is an integer literal: a negative step flips the loop
// test to stop <= i.
func (e *emitter) emitToByDo(startExpr, stopExpr, stepExpr ast.Node, body *ast.BlockNode, scope *funcScope) error {
	return e.emitCountedLoop(startExpr, stopExpr, stepExpr, body, scope)
}

func (e *emitter) emitCountedLoop(startExpr, stopExpr, stepExpr ast.Node, body *ast.BlockNode, scope *funcScope) error {
	loopVar := body.Arguments[0]
	li, _, ok := scope.lookupLocal(loopVar)
	if !ok {
		return fmt.Errorf("compiler: counted-loop variable %q not declared in its own scope", loopVar)
	}

	if err := e.emitExpr(startExpr, scope); err != nil {
		return err
	}
	if err := e.storeLocal(li); err != nil {
		return err
	}
	e.asm.PopStackTop()
	if err := e.emitExpr(stopExpr, scope); err != nil {
		return err
	}

	top := e.asm.MakeLabelHere()
	done := e.asm.MakeLabel()

	e.asm.DuplicateTop()
	if err := e.pushLocal(li); err != nil {
		return err
	}
	cmp := ">="
	if lit, ok := stepExpr.(*ast.LiteralNode); ok {
		if n, isInt := lit.Value.(int64); isInt && n < 0 {
			cmp = "<="
		}
	}
	cmpIdx, found := bytecode.SpecialSelectorIndex(cmp, 1)
	if !found {
		return fmt.Errorf("compiler: %s is not in the special selector table", cmp)
	}
	e.asm.SpecialSelectorSend(cmpIdx)
	e.asm.JumpOnFalse(done)

	if err := e.emitInlinedBody(body, scope); err != nil {
		return err
	}
	e.asm.PopStackTop()

	if err := e.pushLocal(li); err != nil {
		return err
	}
	if stepExpr != nil {
		if err := e.emitExpr(stepExpr, scope); err != nil {
			return err
		}
	} else {
		e.asm.PushSmallInteger1()
	}
	plusIdx, found := bytecode.SpecialSelectorIndex("+", 1)
	if !found {
		return fmt.Errorf("compiler: + is not in the special selector table")
	}
	e.asm.SpecialSelectorSend(plusIdx)
	if err := e.storeLocal(li); err != nil {
		return err
	}
	e.asm.PopStackTop()
	e.asm.Jump(top)

	e.asm.PutLabel(done)
	e.asm.PopStackTop()
	e.asm.PushNil()
	return nil
}

func (e *emitter) pushLocal(li *localInfo) error {
	if li.captured {
		e.asm.PushTemporalInVector(li.vecIndex)
	} else {
		e.asm.PushTemp(li.slotIndex)
	}
	return nil
}

func (e *emitter) storeLocal(li *localInfo) error {
	if li.captured {
		e.asm.StoreTemporalInVector(li.vecIndex)
	} else {
		e.asm.StoreTemp(li.slotIndex)
	}
	return nil
}
