// Package interp implements spec.md §4.4's SistaV1-style stack
// interpreter: the fetch-decode-execute loop over a CompiledMethod's
// bytecode, the message send protocol (ordinary sends, super sends, the
// 32 special-selector fast paths, and block value activation), and frame
// activation/return/non-local-return against a stack.Memory. Grounded on
// original_source/vm/Interpreter.cpp's bytecode loop and
// original_source/vm/Method.cpp's send/activate/return machinery, cast
// into the shape the rest of this module already gives dispatch:
// class.Registry for lookup, stack.Memory for frames, gc.Collector for
// root registration.
package interp

import (
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/gc"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/stack"
)

// activation shadows one live stack.Memory frame with the bit of state
// the frame layout itself has no room for: whether it is a block
// activation and, if so, the married home Context a non-local return
// inside it must search for (spec.md §4.4 "Non-local return"). Kept as a
// parallel slice rather than packed into the frame because blockHome is
// an object.Value the frame's own metadata word (a tagged SmallInteger)
// cannot carry.
type activation struct {
	isBlock   bool
	blockHome object.Value
}

// Interpreter runs CompiledMethod bytecode against one stack.Memory and
// one class.Registry. It is not safe for concurrent use by more than one
// goroutine, matching stack.Memory's own single-thread contract.
type Interpreter struct {
	registry  *class.Registry
	mem       *stack.Memory
	bootstrap *class.Bootstrap
	frames    []activation
}

// New builds an interpreter over mem, registering mem's own frames and
// the registry's interned selectors as GC roots. Bootstrap's singleton
// and class-table roots are the script host's responsibility (it owns
// the VM's whole lifetime and may run many interpreters over the same
// heap); an Interpreter only ever adds the roots it alone knows about.
func New(bootstrap *class.Bootstrap, mem *stack.Memory, collector *gc.Collector) *Interpreter {
	collector.RegisterStackWalker(mem)
	collector.RegisterStackWalker(bootstrap.Registry.Symbols)
	return &Interpreter{
		registry:  bootstrap.Registry,
		mem:       mem,
		bootstrap: bootstrap,
	}
}

// classOf resolves v's class, covering both tagged immediates
// (SmallInteger, Character, SmallFloat, nil/true/false are heap objects
// already handled by the pointer branch) and ordinary heap objects via
// their own header.
func (i *Interpreter) classOf(v object.Value) object.Value {
	h := i.registry.Heap
	if !v.IsPointer() {
		return h.Classes().Get(class.ClassIndexOfValue(v))
	}
	return h.Classes().Get(h.ReadHeader(v).ClassIndex)
}

// lookup walks start's superclass chain for selector, stopping at the
// root (whose SuperClass slot holds the raw nil sentinel, not
// Bootstrap.Nil -- spec.md §3's class table has no circular or dangling
// superclass links).
func (i *Interpreter) lookup(start, selector object.Value) (method, definingClass object.Value, ok bool) {
	h := i.registry.Heap
	for cur := start; cur != object.Nil; cur = class.AsClass(h, cur).SuperClass() {
		dict := class.AsClass(h, cur).MethodDict()
		if dict == object.Nil {
			continue
		}
		if m := class.AsMethodDictionary(h, dict).At(selector); m != object.Nil {
			return m, cur, true
		}
	}
	return object.Nil, object.Nil, false
}

// Send performs a top-level message send, driving the bytecode loop
// until the activation it creates (directly, or indirectly through
// further sends) returns. It is the entry point script.Activation.Send
// uses.
func (i *Interpreter) Send(receiver object.Value, selector string, args ...object.Value) (object.Value, error) {
	selSym, err := i.registry.Symbols.Intern(selector)
	if err != nil {
		return object.Nil, err
	}

	baseDepth := len(i.frames)
	outcome, err := i.performSend(receiver, selSym, selector, args, false, i.classOf(receiver), 0)
	if err != nil {
		return object.Nil, err
	}
	if !outcome.activated {
		return outcome.result, nil
	}
	if err := i.run(baseDepth, outcome.entryPC); err != nil {
		return object.Nil, err
	}
	return i.mem.Pop(), nil
}
