package script

import (
	"github.com/lodtalk-go/vm/interp"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/stack"
)

// Activation is one thread's worth of Smalltalk execution state: a
// private stack.Memory and the interp.Interpreter driving it. spec.md §5
// has each OS thread entering the VM register its own stack memory and
// run its own interpreter loop over a shared heap; Activation is that
// pairing, created fresh per goroutine via Runtime.NewActivation.
type Activation struct {
	mem    *stack.Memory
	interp *interp.Interpreter
}

// Send performs a top-level message send, returning once it (and every
// send it makes in turn) has completed.
func (a *Activation) Send(receiver object.Value, selector string, args ...object.Value) (object.Value, error) {
	return a.interp.Send(receiver, selector, args...)
}

// RunMain sends the unary selector main to receiver, per spec.md §6:
// "After executing the script it sends the unary selector main to the
// global-context singleton."
func (a *Activation) RunMain(receiver object.Value) (object.Value, error) {
	return a.Send(receiver, "main")
}
