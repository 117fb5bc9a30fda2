package script

import (
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

// runtimeGlobals adapts Runtime's global namespace to compiler.Globals,
// so every method compiled through a Script resolves top-level
// identifiers (class names, "Smalltalk", and anything script.Runtime.
// RegisterGlobal has added on top, such as the ioprim "Transcript"
// singleton) against the same table script.Runtime itself uses.
type runtimeGlobals struct {
	rt *Runtime
}

func (g runtimeGlobals) Exists(name string) bool {
	g.rt.mu.RLock()
	defer g.rt.mu.RUnlock()
	_, ok := g.rt.globals[name]
	return ok
}

func (g runtimeGlobals) Association(name string) (object.Value, error) {
	g.rt.mu.RLock()
	assoc, ok := g.rt.globals[name]
	g.rt.mu.RUnlock()
	if !ok {
		return object.Nil, errors.New(errors.PhaseScript, errors.KindClassNotFound).
			Detail("no such global: %s", name).Build()
	}
	return assoc, nil
}
