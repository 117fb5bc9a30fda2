// Package script implements spec.md §4.5's Script Host: a Runtime owns
// one heap's worth of bootstrapped classes and GC roots, a Script binds a
// parsed ast.Program against that Runtime by walking its top-level
// class/method DSL forms, and an Activation pairs a fresh stack.Memory
// with an interp.Interpreter so each OS thread entering the VM gets its
// own (spec.md §5's "each OS thread entering the VM registers its own
// stack memory and executes its own interpreter loop"). Grounded on
// runtime/runtime.go's Runtime/Module/Instance lifecycle: construct once,
// load/compile many programs against it, instantiate one Activation per
// caller that wants to run one.
package script

import (
	"strings"
	"sync"

	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/gc"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/interp"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/stack"
)

// systemDictionaryClassName names the class of Runtime's GlobalContext
// singleton, matching real Smalltalk's "Smalltalk" global (an instance of
// SystemDictionary, not a bare namespace).
const systemDictionaryClassName = "SystemDictionary"

// Runtime owns one heap's worth of bootstrapped special classes, the GC
// roots that keep them and every later user-defined class alive, and the
// global namespace (spec.md §4.3's "system dictionary") top-level
// identifiers resolve against. One Runtime may load many Scripts and
// drive many concurrent Activations.
type Runtime struct {
	Heap      *heap.Heap
	Bootstrap *class.Bootstrap
	Collector *gc.Collector

	pool *stack.PagePool

	mu            sync.RWMutex
	classesByName map[string]class.Class
	globals       map[string]object.Value // name -> Association

	globalContext object.Value
}

// New builds a Runtime: a fresh heap, the special class hierarchy
// bootstrap installs over it, and the class-table/singleton GC roots
// interp.New itself deliberately leaves to "the script host" (see
// interp.New's doc comment -- an Interpreter only registers the roots it
// alone knows about, since a Runtime may outlive many of them). It then
// declares the SystemDictionary class and allocates its one instance,
// bound to the global name "Smalltalk".
func New(cfg heap.Config) (*Runtime, error) {
	h := heap.New(cfg)
	bs, err := class.NewBootstrap(h)
	if err != nil {
		return nil, err
	}
	collector := gc.New(h)
	collector.RegisterStackWalker(h.Classes())
	collector.RegisterStackWalker(bs.Registry.Symbols)
	collector.RegisterRoot(&bs.Nil)
	collector.RegisterRoot(&bs.True)
	collector.RegisterRoot(&bs.False)
	collector.SetNilValue(bs.Nil)

	rt := &Runtime{
		Heap:          h,
		Bootstrap:     bs,
		Collector:     collector,
		pool:          stack.NewPagePool(),
		classesByName: make(map[string]class.Class),
		globals:       make(map[string]object.Value),
	}
	rt.registerBootstrapClasses()

	sysDict, err := rt.DefineClass(systemDictionaryClassName, "Object", nil, "Kernel")
	if err != nil {
		return nil, err
	}
	classIndex, _ := rt.Bootstrap.Registry.IndexOf(sysDict)
	instance, err := h.NewObject(0, 0, object.FormatEmpty, classIndex)
	if err != nil {
		return nil, err
	}
	rt.globalContext = instance
	collector.RegisterRoot(&rt.globalContext)
	if err := rt.RegisterGlobal("Smalltalk", instance); err != nil {
		return nil, err
	}
	return rt, nil
}

// registerBootstrapClasses binds every special class Bootstrap declared
// to its Smalltalk name, so script-level source can reference
// "SmallInteger", "Object", "True" and so on as both a superclass in a
// subclass: form and an ordinary global variable.
func (rt *Runtime) registerBootstrapClasses() {
	bs := rt.Bootstrap
	named := map[string]class.Class{
		"Object":           bs.Object,
		"Behavior":         bs.Behavior,
		"ClassDescription": bs.ClassDescription,
		"Class":            bs.ClassClass,
		"Metaclass":        bs.Metaclass,
		"Boolean":          bs.Boolean,
		"True":             bs.TrueClass,
		"False":            bs.FalseClass,
		"SmallInteger":     bs.SmallInteger,
		"Character":        bs.Character,
		"SmallFloat":       bs.SmallFloat,
		"UndefinedObject":  bs.UndefinedObject,
		"Array":            bs.ArrayClass,
		"ByteString":       bs.ByteString,
		"ByteSymbol":       bs.ByteSymbol,
		"CompiledMethod":   bs.CompiledMethod,
		"BlockClosure":     bs.BlockClosure,
		"Context":          bs.Context,
		"MethodDictionary": bs.MethodDictionary,
		"Association":      bs.Association,
	}
	for name, cls := range named {
		rt.bindClass(name, cls)
	}
}

// bindClass records cls under name in both the DSL's class-name table and
// the global namespace method bodies resolve identifiers against.
func (rt *Runtime) bindClass(name string, cls class.Class) {
	rt.mu.Lock()
	rt.classesByName[name] = cls
	rt.mu.Unlock()
	// A bootstrap class's Association is only ever read, never
	// reassigned, so registration failure here would mean the heap
	// itself is out of memory -- not worth surfacing through every
	// caller of New.
	_ = rt.RegisterGlobal(name, cls.Value)
}

// RegisterClass binds an already-built Class under name, the same way
// DefineClass does for a DSL-declared one. Meant for host-side packages
// (ioprim's OSIO/TextCollector, the CLI's own bootstrapping) that build a
// class directly against rt.Bootstrap.Registry -- to add primitive
// methods a Builder needs, which the subclass:/compile: DSL form has no
// way to express -- and then want it visible to both later DSL scripts
// and the Runtime's own global namespace.
func (rt *Runtime) RegisterClass(name string, cls class.Class) {
	rt.bindClass(name, cls)
}

// LookupClass resolves name (as bound by a prior DefineClass or one of
// Bootstrap's own special classes) against the Runtime's class table.
func (rt *Runtime) LookupClass(name string) (class.Class, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	cls, ok := rt.classesByName[name]
	return cls, ok
}

// GlobalNames returns every name currently bound in the global namespace,
// in no particular order. Meant for a host-side picker (the CLI's
// interactive REPL) that wants to list what a script made available,
// without exposing the Association-backed storage itself.
func (rt *Runtime) GlobalNames() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	names := make([]string, 0, len(rt.globals))
	for name := range rt.globals {
		names = append(names, name)
	}
	return names
}

// RegisterGlobal binds name to v in the global namespace, creating or
// overwriting the Association (real Smalltalk's Smalltalk at:put:
// permits rebinding an existing global, so this does too).
func (rt *Runtime) RegisterGlobal(name string, v object.Value) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if assocValue, ok := rt.globals[name]; ok {
		class.AsAssociation(rt.Heap, assocValue).SetValue(v)
		return nil
	}
	sym, err := rt.Bootstrap.Registry.Symbols.Intern(name)
	if err != nil {
		return err
	}
	assoc, err := class.NewAssociation(rt.Heap, sym)
	if err != nil {
		return err
	}
	assoc.SetValue(v)
	rt.globals[name] = assoc.Value
	return nil
}

// Global resolves name against the global namespace and returns the value
// currently bound to it (the Association's contents, not the Association
// itself). Used by host packages like ioprim to recover the singleton
// instance they registered under a name such as "Transcript".
func (rt *Runtime) Global(name string) (object.Value, bool) {
	rt.mu.RLock()
	assocValue, ok := rt.globals[name]
	rt.mu.RUnlock()
	if !ok {
		return object.Nil, false
	}
	return class.AsAssociation(rt.Heap, assocValue).GetValue(), true
}

// DefineClass declares a new class named name, subclassing super (looked
// up by name against the Runtime's own class table, so a user-defined
// class may subclass a bootstrap special class or an earlier user-defined
// one), with the given instance variable names, and records package in
// the class's Category slot. It is the Runtime-level half of the
// subclass:instanceVariableNames:classVariableNames:package: DSL form a
// Script drives; Script itself owns parsing the ast.Program.
func (rt *Runtime) DefineClass(name, superName string, instanceVariableNames []string, category string) (class.Class, error) {
	super, ok := rt.LookupClass(superName)
	if superName != "" && !ok {
		return class.Class{}, errors.ClassNotFound(superName)
	}
	b, err := rt.Bootstrap.Registry.NewClass(name, super)
	if err != nil {
		return class.Class{}, err
	}
	if ok {
		superMetaIndex, _ := rt.Bootstrap.Registry.IndexOf(super)
		superMetaValue := rt.Heap.Classes().Get(superMetaIndex + 1)
		b.WithMetaSuperclass(class.AsMetaclass(rt.Heap, superMetaValue))
	}
	b.AddInstanceVariables(instanceVariableNames...)
	cls, err := b.Finish()
	if err != nil {
		return class.Class{}, err
	}
	if category != "" {
		sym, err := rt.Bootstrap.Registry.Symbols.Intern(category)
		if err != nil {
			return class.Class{}, err
		}
		cls.SetCategory(sym)
	}
	rt.bindClass(name, cls)
	return cls, nil
}

// GlobalContext returns the Runtime's "Smalltalk" singleton -- spec.md
// §6's "global-context singleton" the CLI sends the unary selector main
// to once a script has finished loading.
func (rt *Runtime) GlobalContext() object.Value { return rt.globalContext }

// NewActivation creates a fresh stack.Memory and interp.Interpreter pair
// bound to this Runtime, for one OS thread's worth of Smalltalk
// execution (spec.md §5). Activations are cheap and not meant to be
// shared across goroutines.
func (rt *Runtime) NewActivation() *Activation {
	mem := stack.NewMemory(rt.Bootstrap.Registry, rt.pool)
	i := interp.New(rt.Bootstrap, mem, rt.Collector)
	return &Activation{mem: mem, interp: i}
}

// classForTarget resolves a compile:classified:'s receiver name to the
// class description a method should be compiled and installed against. A
// name ending in " class" (real Smalltalk's "Foo class >> bar" idiom for
// defining a class-side method) resolves to the class's own metaclass,
// viewed through class.AsClass since compiler.Compile only ever reads
// the Behavior/ClassDescription prefix both share (see
// class.Builder.Finish's metaclass instance-variables fix).
func (rt *Runtime) classForTarget(name string) (class.Class, error) {
	if target := strings.TrimSuffix(name, " class"); target != name {
		cls, ok := rt.LookupClass(target)
		if !ok {
			return class.Class{}, errors.ClassNotFound(target)
		}
		metaIndex, _ := rt.Bootstrap.Registry.IndexOf(cls)
		meta := rt.Heap.Classes().Get(metaIndex + 1)
		return class.AsClass(rt.Heap, meta), nil
	}
	cls, ok := rt.LookupClass(name)
	if !ok {
		return class.Class{}, errors.ClassNotFound(name)
	}
	return cls, nil
}
