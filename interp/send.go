package interp

import (
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

// sendOutcome is what a completed send leaves for its caller (either
// Interpreter.Send or the dispatch loop) to act on: either a result
// ready to use immediately (a primitive ran, or doesNotUnderstand: had
// no handler and the caller already turned that into an error instead),
// or a freshly activated frame the caller must resume bytecode
// execution in at entryPC.
type sendOutcome struct {
	activated bool
	result    object.Value
	entryPC   int64
}

// performSend resolves and invokes selector against receiver: a
// BlockClosure value receiving one of value/value:/value:value:/... is
// fast-pathed straight to activateBlock without a method lookup at all
// (spec.md §4.4 "BlockClosure value family"). That fast path never
// applies to super sends, since those always want a real method in the
// class hierarchy above the sender. A lookup miss falls through to
// doesNotUnderstand:.
func (i *Interpreter) performSend(receiver, selectorSym object.Value, selectorName string, args []object.Value, super bool, lookupStart object.Value, resumePC int64) (sendOutcome, error) {
	h := i.registry.Heap
	if !super && receiver.IsPointer() && receiver != object.Nil &&
		h.ReadHeader(receiver).ClassIndex == class.SpecialBlockClosure &&
		isValueSelector(selectorName, len(args)) {
		return i.activateBlock(receiver, args, resumePC)
	}

	method, _, ok := i.lookup(lookupStart, selectorSym)
	if !ok {
		return i.sendDoesNotUnderstand(receiver, selectorName, args, resumePC)
	}
	return i.dispatchMethod(method, receiver, args, resumePC)
}

// dispatchMethod invokes method, which may be either a CompiledMethod
// (activates a new frame, returning control to the caller via
// sendOutcome.entryPC) or a NativeMethod (runs synchronously in Go and
// returns its result directly, per spec.md §4.4: "does not create a new
// frame").
func (i *Interpreter) dispatchMethod(method, receiver object.Value, args []object.Value, callerPC int64) (sendOutcome, error) {
	h := i.registry.Heap
	if class.IsNativeMethod(h, method) {
		result, err := i.registry.Primitives.Lookup(method)(h, receiver, args)
		if err != nil {
			return sendOutcome{}, err
		}
		return sendOutcome{result: result}, nil
	}

	cm := class.AsCompiledMethod(h, method)
	hdr := cm.Header()
	if len(args) != hdr.ArgumentCount {
		return sendOutcome{}, badArity(cm, len(args))
	}

	if _, err := i.mem.ActivateFrame(method, receiver, args, false, callerPC, callerPC); err != nil {
		return sendOutcome{}, err
	}
	for n := 0; n < hdr.TemporalCount; n++ {
		i.mem.Push(i.bootstrap.Nil)
	}
	i.frames = append(i.frames, activation{})
	return sendOutcome{activated: true, entryPC: 0}, nil
}

// activateBlock activates closure's home method bytecode at its
// StartPc, in a block-flagged frame whose "receiver" and capture vector
// are carried over from the closure's married home context (spec.md
// §4.4 "Closure creation"/"BlockClosure value family"). A block's own
// bytecode lives inside its home CompiledMethod's blob -- pushClosure
// never allocates a separate one -- so the activated frame's Method
// slot is the home method, same as the frame that created the closure.
func (i *Interpreter) activateBlock(closure object.Value, args []object.Value, callerPC int64) (sendOutcome, error) {
	h := i.registry.Heap
	bc := class.AsBlockClosure(h, closure)
	if int64(len(args)) != bc.NumArgs() {
		return sendOutcome{}, errors.New(errors.PhaseDispatch, errors.KindBadArity).
			Detail("block expects %d arguments, got %d", bc.NumArgs(), len(args)).Build()
	}

	home := bc.OuterContext()
	homeCtx := class.AsContext(h, home)

	if _, err := i.mem.ActivateFrame(homeCtx.Method(), homeCtx.Receiver(), args, true, callerPC, callerPC); err != nil {
		return sendOutcome{}, err
	}
	for n := 0; n < bc.NumCopied(); n++ {
		i.mem.Push(bc.Copied(n))
	}
	i.frames = append(i.frames, activation{isBlock: true, blockHome: home})
	return sendOutcome{activated: true, entryPC: bc.StartPc()}, nil
}

// sendDoesNotUnderstand reifies the failed send as a 2-element Array
// (selector symbol, argument Array) and dispatches doesNotUnderstand:
// against receiver's own class, independent of whatever lookupStart the
// original (possibly super) send used -- a class always gets a chance to
// handle every selector it doesn't implement, not just the ones some
// ancestor above a super send's start point was missing. With no
// doesNotUnderstand: handler anywhere in the chain, the send is a hard
// error (spec.md §4.4 edge case: "no handler exists anywhere in the
// hierarchy").
func (i *Interpreter) sendDoesNotUnderstand(receiver object.Value, selectorName string, args []object.Value, resumePC int64) (sendOutcome, error) {
	h := i.registry.Heap
	dnuSym, err := i.registry.Symbols.Intern("doesNotUnderstand:")
	if err != nil {
		return sendOutcome{}, err
	}

	method, _, ok := i.lookup(i.classOf(receiver), dnuSym)
	if !ok {
		return sendOutcome{}, errors.DoesNotUnderstand(selectorName, len(args))
	}

	selSym, err := i.registry.Symbols.Intern(selectorName)
	if err != nil {
		return sendOutcome{}, err
	}
	argsArray, err := class.NewArray(h, len(args))
	if err != nil {
		return sendOutcome{}, err
	}
	for n, a := range args {
		argsArray.AtPut(n, a)
	}
	message, err := class.NewArray(h, 2)
	if err != nil {
		return sendOutcome{}, err
	}
	message.AtPut(0, selSym)
	message.AtPut(1, argsArray.Value)

	return i.dispatchMethod(method, receiver, []object.Value{message.Value}, resumePC)
}

func badArity(cm class.CompiledMethod, got int) error {
	hdr := cm.Header()
	sel := class.ByteContents(cm.Heap, cm.Selector())
	return errors.New(errors.PhaseDispatch, errors.KindBadArity).
		Detail("#%s expects %d arguments, got %d", sel, hdr.ArgumentCount, got).
		Build()
}

// isValueSelector reports whether selector/argCount is one of
// BlockClosure's value/value:/value:value:/value:value:value:/
// value:value:value:value: family, the only sends the block-activation
// fast path recognizes. Anything else sent to a BlockClosure
// (valueWithArguments:, numArgs, ==, ...) falls through to an ordinary
// method lookup on class BlockClosure itself.
func isValueSelector(selector string, argCount int) bool {
	switch selector {
	case "value":
		return argCount == 0
	case "value:", "value:value:", "value:value:value:", "value:value:value:value:":
		return len(selector)/len("value:") == argCount
	default:
		return false
	}
}
