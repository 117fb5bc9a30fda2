package interp

import (
	"github.com/lodtalk-go/vm/bytecode"
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

// run drives the fetch-decode-execute loop starting at pc in whatever
// frame is current, until a return unwinds back down to baseDepth (the
// shadow frame-depth the triggering send observed before activating).
// Every activation pushed along the way -- by an ordinary send, a super
// send, a special selector, or a block value -- keeps running inline:
// this is one loop, not one recursive call per activation, matching
// spec.md §4.4's description of the interpreter as a single iterative
// loop rather than a tree of native call frames.
func (i *Interpreter) run(baseDepth int, pc int64) error {
	h := i.registry.Heap
	var extA, extB int

	for {
		frame := i.mem.CurrentFrame()
		cm := class.AsCompiledMethod(h, frame.Method())
		code := cm.Bytecode()
		op := bytecode.Opcode(code[pc])

		if op == bytecode.ExtA {
			extA = extA<<8 | int(code[pc+1])
			pc += 2
			continue
		}
		if op == bytecode.ExtB {
			extB = extB<<8 | int(code[pc+1])
			pc += 2
			continue
		}

		a, b := extA, extB
		extA, extB = 0, 0

		size := int64(op.Size())
		nextPC := pc + size
		newPC := nextPC
		done := false

		argCount, isBlock, _ := frame.Metadata()
		receiver := frame.Receiver()

		readSlot := func(index int) object.Value {
			if index < argCount {
				return frame.Argument(index)
			}
			return frame.Temp(index - argCount)
		}
		writeSlot := func(index int, v object.Value) {
			if index < argCount {
				frame.SetArgument(index, v)
			} else {
				frame.SetTemp(index-argCount, v)
			}
		}
		doSend := func(selSym object.Value, selName string, n int, super bool) (sendOutcome, error) {
			recv := i.mem.At(n)
			sendArgs := make([]object.Value, n)
			for k := 0; k < n; k++ {
				sendArgs[k] = i.mem.At(n - 1 - k)
			}
			i.mem.PopN(n + 1)
			lookupStart := i.classOf(recv)
			if super {
				lookupStart = class.AsClass(h, cm.ClassBinding()).SuperClass()
			}
			return i.performSend(recv, selSym, selName, sendArgs, super, lookupStart, nextPC)
		}
		doReturn := func(result object.Value, blockStyle bool) error {
			var rdone bool
			var rpc int64
			var rerr error
			if blockStyle || !isBlock {
				rdone, rpc, rerr = i.popOrdinary(result, baseDepth)
			} else {
				rdone, rpc, rerr = i.nonLocalReturn(result, baseDepth)
			}
			if rerr != nil {
				return rerr
			}
			done = rdone
			newPC = rpc
			return nil
		}

		var err error

		switch {
		// --- single-byte short-form ranges ---
		case op >= bytecode.PushReceiverVariableShort.First && op <= bytecode.PushReceiverVariableShort.Last():
			i.mem.Push(h.Slot(receiver, int(op-bytecode.PushReceiverVariableShort.First)))

		case op >= bytecode.PushLiteralVariableShort.First && op <= bytecode.PushLiteralVariableShort.Last():
			idx := int(op - bytecode.PushLiteralVariableShort.First)
			i.mem.Push(class.AsAssociation(h, cm.Literal(idx)).GetValue())

		case op >= bytecode.PushLiteralShort.First && op <= bytecode.PushLiteralShort.Last():
			i.mem.Push(cm.Literal(int(op - bytecode.PushLiteralShort.First)))

		case op >= bytecode.PushTempShort.First && op <= bytecode.PushTempShort.Last():
			i.mem.Push(readSlot(int(op - bytecode.PushTempShort.First)))

		case op >= bytecode.SendShortArgs0.First && op <= bytecode.SendShortArgs0.Last():
			selSym := cm.Literal(int(op - bytecode.SendShortArgs0.First))
			outcome, serr := doSend(selSym, class.ByteContents(h, selSym), 0, false)
			newPC, err = i.afterSend(outcome, serr, nextPC)

		case op >= bytecode.SendShortArgs1.First && op <= bytecode.SendShortArgs1.Last():
			selSym := cm.Literal(int(op - bytecode.SendShortArgs1.First))
			outcome, serr := doSend(selSym, class.ByteContents(h, selSym), 1, false)
			newPC, err = i.afterSend(outcome, serr, nextPC)

		case op >= bytecode.SendShortArgs2.First && op <= bytecode.SendShortArgs2.Last():
			selSym := cm.Literal(int(op - bytecode.SendShortArgs2.First))
			outcome, serr := doSend(selSym, class.ByteContents(h, selSym), 2, false)
			newPC, err = i.afterSend(outcome, serr, nextPC)

		case op >= bytecode.JumpShort.First && op <= bytecode.JumpShort.Last():
			newPC = nextPC + int64(op-bytecode.JumpShort.First) + 1

		case op >= bytecode.JumpOnTrueShort.First && op <= bytecode.JumpOnTrueShort.Last():
			delta := int64(op-bytecode.JumpOnTrueShort.First) + 1
			var take bool
			take, err = i.branchTaken(i.mem.Pop(), true)
			if err == nil && take {
				newPC = nextPC + delta
			}

		case op >= bytecode.JumpOnFalseShort.First && op <= bytecode.JumpOnFalseShort.Last():
			delta := int64(op-bytecode.JumpOnFalseShort.First) + 1
			var take bool
			take, err = i.branchTaken(i.mem.Pop(), false)
			if err == nil && take {
				newPC = nextPC + delta
			}

		case op >= bytecode.PopStoreReceiverVariableShort.First && op <= bytecode.PopStoreReceiverVariableShort.Last():
			idx := int(op - bytecode.PopStoreReceiverVariableShort.First)
			h.SetSlot(receiver, idx, i.mem.Pop())

		case op >= bytecode.PopStoreTemporalShort.First && op <= bytecode.PopStoreTemporalShort.Last():
			writeSlot(int(op-bytecode.PopStoreTemporalShort.First), i.mem.Pop())

		case op >= bytecode.SpecialSelector.First && op <= bytecode.SpecialSelector.Last():
			sel := bytecode.SpecialSelectors[int(op-bytecode.SpecialSelector.First)]
			var selSym object.Value
			selSym, err = i.registry.Symbols.Intern(sel.Selector)
			if err == nil {
				outcome, serr := doSend(selSym, sel.Selector, sel.ArgCount, false)
				newPC, err = i.afterSend(outcome, serr, nextPC)
			}

		// --- plain single-byte opcodes ---
		case op == bytecode.PushSelf:
			i.mem.Push(receiver)
		case op == bytecode.PushThisContext:
			var ctx object.Value
			ctx, err = i.mem.Marry(nextPC)
			if err == nil {
				i.mem.Push(ctx)
			}
		case op == bytecode.PushNil:
			i.mem.Push(i.bootstrap.Nil)
		case op == bytecode.PushTrue:
			i.mem.Push(i.bootstrap.True)
		case op == bytecode.PushFalse:
			i.mem.Push(i.bootstrap.False)
		case op == bytecode.PushSmallInteger0:
			i.mem.Push(object.EncodeSmallInteger(0))
		case op == bytecode.PushSmallInteger1:
			i.mem.Push(object.EncodeSmallInteger(1))
		case op == bytecode.DuplicateTop:
			i.mem.Push(i.mem.Top())
		case op == bytecode.PopStackTop:
			i.mem.Pop()
		case op == bytecode.ReturnReceiver:
			err = doReturn(receiver, false)
		case op == bytecode.ReturnTrue:
			err = doReturn(i.bootstrap.True, false)
		case op == bytecode.ReturnFalse:
			err = doReturn(i.bootstrap.False, false)
		case op == bytecode.ReturnNil:
			err = doReturn(i.bootstrap.Nil, false)
		case op == bytecode.ReturnTop:
			err = doReturn(i.mem.Pop(), false)
		case op == bytecode.BlockReturnTop:
			err = doReturn(i.mem.Pop(), true)
		case op == bytecode.BlockReturnNil:
			err = doReturn(i.bootstrap.Nil, true)

		// --- two-byte zone (ExtA-extended single operand) ---
		case op == bytecode.PushReceiverVariable:
			idx := a<<8 | int(code[pc+1])
			i.mem.Push(h.Slot(receiver, idx))
		case op == bytecode.PushLiteralVariable:
			idx := a<<8 | int(code[pc+1])
			i.mem.Push(class.AsAssociation(h, cm.Literal(idx)).GetValue())
		case op == bytecode.PushLiteral:
			idx := a<<8 | int(code[pc+1])
			i.mem.Push(cm.Literal(idx))
		case op == bytecode.StoreReceiverVariable:
			idx := a<<8 | int(code[pc+1])
			h.SetSlot(receiver, idx, i.mem.Top())
		case op == bytecode.StoreLiteralVariable:
			idx := a<<8 | int(code[pc+1])
			class.AsAssociation(h, cm.Literal(idx)).SetValue(i.mem.Top())
		case op == bytecode.PushTemporal:
			idx := a<<8 | int(code[pc+1])
			i.mem.Push(readSlot(idx))
		case op == bytecode.StoreTemporal:
			idx := a<<8 | int(code[pc+1])
			writeSlot(idx, i.mem.Top())
		case op == bytecode.PopStoreTemporal:
			idx := a<<8 | int(code[pc+1])
			writeSlot(idx, i.mem.Pop())
		case op == bytecode.PushNewArray:
			size := a<<8 | int(code[pc+1])
			var arr class.Array
			arr, err = class.NewArray(h, size)
			if err == nil {
				for n := 0; n < size; n++ {
					arr.AtPut(n, i.bootstrap.Nil)
				}
				i.mem.Push(arr.Value)
			}
		case op == bytecode.PushNewArrayWithElements:
			size := a<<8 | int(code[pc+1])
			var arr class.Array
			arr, err = class.NewArray(h, size)
			if err == nil {
				for n := size - 1; n >= 0; n-- {
					arr.AtPut(n, i.mem.Pop())
				}
				i.mem.Push(arr.Value)
			}
		case op == bytecode.PushNClosureTemps:
			count := a<<8 | int(code[pc+1])
			for n := 0; n < count; n++ {
				i.mem.Push(i.bootstrap.Nil)
			}
		case op == bytecode.PushTemporalInVector:
			idx := a<<8 | int(code[pc+1])
			i.mem.Push(class.AsArray(h, frame.Temp(0)).At(idx))
		case op == bytecode.StoreTemporalInVector:
			idx := a<<8 | int(code[pc+1])
			class.AsArray(h, frame.Temp(0)).AtPut(idx, i.mem.Top())
		case op == bytecode.PopStoreTemporalInVector:
			idx := a<<8 | int(code[pc+1])
			class.AsArray(h, frame.Temp(0)).AtPut(idx, i.mem.Pop())

		// --- three-byte zone ---
		case op == bytecode.PushClosure:
			packed := a<<8 | int(code[pc+1])
			blockSize := b<<8 | int(code[pc+2])
			numArgs := packed >> 4
			numCopied := packed & 0xF

			var copied object.Value
			if numCopied == 1 {
				copied = i.mem.Pop()
			}
			var ctx object.Value
			ctx, err = i.mem.Marry(nextPC)
			if err == nil {
				var bc class.BlockClosure
				bc, err = class.NewBlockClosure(h, numCopied)
				if err == nil {
					bc.SetOuterContext(ctx)
					bc.SetStartPc(nextPC)
					bc.SetNumArgs(int64(numArgs))
					if numCopied == 1 {
						bc.SetCopied(0, copied)
					}
					i.mem.Push(bc.Value)
					newPC = nextPC + int64(blockSize)
				}
			}

		case op == bytecode.Send:
			selIdx := a<<8 | int(code[pc+1])
			argc := b<<8 | int(code[pc+2])
			selSym := cm.Literal(selIdx)
			outcome, serr := doSend(selSym, class.ByteContents(h, selSym), argc, false)
			newPC, err = i.afterSend(outcome, serr, nextPC)

		case op == bytecode.SuperSend:
			selIdx := a<<8 | int(code[pc+1])
			argc := b<<8 | int(code[pc+2])
			selSym := cm.Literal(selIdx)
			outcome, serr := doSend(selSym, class.ByteContents(h, selSym), argc, true)
			newPC, err = i.afterSend(outcome, serr, nextPC)

		case op == bytecode.Jump:
			newPC = nextPC + rawJumpDelta(code, pc)
		case op == bytecode.JumpOnTrue:
			var take bool
			take, err = i.branchTaken(i.mem.Pop(), true)
			if err == nil && take {
				newPC = nextPC + rawJumpDelta(code, pc)
			}
		case op == bytecode.JumpOnFalse:
			var take bool
			take, err = i.branchTaken(i.mem.Pop(), false)
			if err == nil && take {
				newPC = nextPC + rawJumpDelta(code, pc)
			}

		default:
			err = errors.Invariant(errors.PhaseDispatch, "unsupported opcode %d (%s)", op, op.Name())
		}

		if err != nil {
			return err
		}
		if done {
			return nil
		}
		pc = newPC
	}
}

// rawJumpDelta reads the long jump family's raw signed 16-bit delta from
// the two bytes immediately following op's own leading byte at pc (not
// ExtA/ExtB-prefixed, unlike every other two-operand long-form
// instruction -- a branch delta can be negative, which the Ext
// accumulator's unsigned digit scheme cannot represent).
func rawJumpDelta(code []byte, pc int64) int64 {
	return int64(int16(uint16(code[pc+1])<<8 | uint16(code[pc+2])))
}

// afterSend folds a send's outcome into the loop's own pc bookkeeping:
// an activated send hands control to the new frame at its entry point,
// while a synchronous result (a primitive, or an unhandled
// doesNotUnderstand: already turned into err) either gets pushed back
// for the current frame to keep using, or aborts the whole run.
func (i *Interpreter) afterSend(outcome sendOutcome, err error, fallthroughPC int64) (int64, error) {
	if err != nil {
		return 0, err
	}
	if outcome.activated {
		return outcome.entryPC, nil
	}
	i.mem.Push(outcome.result)
	return fallthroughPC, nil
}

// branchTaken evaluates a JumpOnTrue/JumpOnFalse-family condition,
// raising mustBeBoolean when cond is neither singleton (spec.md §4.4
// edge case: "the popped value is neither true nor false").
func (i *Interpreter) branchTaken(cond object.Value, wantTrue bool) (bool, error) {
	switch cond {
	case i.bootstrap.True:
		return wantTrue, nil
	case i.bootstrap.False:
		return !wantTrue, nil
	default:
		h := i.registry.Heap
		name := class.ByteContents(h, class.AsClass(h, i.classOf(cond)).Name())
		return false, errors.MustBeBoolean(name)
	}
}

// popOrdinary pops the current frame unconditionally, with no home-
// context search: the ordinary case for a non-block frame's Return*, and
// always the case for BlockReturnTop/BlockReturnNil regardless of frame
// kind (a block falling off the end of its own body returns to its
// direct caller, not to its home method).
func (i *Interpreter) popOrdinary(result object.Value, baseDepth int) (done bool, nextPC int64, err error) {
	info, err := i.mem.PopFrame(result)
	if err != nil {
		return false, 0, err
	}
	i.frames = i.frames[:len(i.frames)-1]
	if len(i.frames) == baseDepth {
		return true, 0, nil
	}
	return false, info.ReturnPC, nil
}

// nonLocalReturn implements a `^expr` executing inside a block body: pop
// frames one at a time, discarding each one's own result, until the
// frame whose married context is the block's home is itself popped --
// spec.md §4.4 "Non-local return". A home context no longer reachable on
// the stack (its method already returned) is the "dead home context"
// edge case.
func (i *Interpreter) nonLocalReturn(result object.Value, baseDepth int) (done bool, nextPC int64, err error) {
	target := i.frames[len(i.frames)-1].blockHome
	for {
		info, perr := i.mem.PopFrame(result)
		if perr != nil {
			return false, 0, perr
		}
		i.frames = i.frames[:len(i.frames)-1]

		reachedBase := len(i.frames) == baseDepth
		foundHome := info.WasMarried && info.Context == target
		if reachedBase || foundHome {
			return reachedBase, info.ReturnPC, nil
		}
		if !info.HasPrevFrame {
			return false, 0, errors.NonLocalReturn("home context is no longer live on the stack")
		}
		result = i.mem.Pop()
	}
}
