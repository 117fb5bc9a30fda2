package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Builder declaratively assembles a Class and its Metaclass, grounded on
// original_source/include/Lodtalk/ClassBuilder.hpp's fluent API (setName,
// setSuperclass, variableSize*/variableBits*/compiledMethodFormat,
// addMethod/addClassMethod, addInstanceVariable(s), finish). Obtain one via
// Registry.NewClass, configure it with the With* methods, then call
// Finish.
type Builder struct {
	heap       *heap.Heap
	symbols    *SymbolTable
	primitives *PrimitiveTable

	class     Class
	metaclass Metaclass

	instanceVariableNames  []string
	instanceMethods        map[string]PrimitiveFunc
	classMethods           map[string]PrimitiveFunc
}

// Registry owns the heap-wide class table, symbol table and primitive
// table a Builder needs, and assigns each new class its paired
// class/metaclass indices (spec.md §3: "The metaclass of each class
// occupies the slot immediately after its class").
type Registry struct {
	Heap       *heap.Heap
	Symbols    *SymbolTable
	Primitives *PrimitiveTable

	indexOf map[object.Value]uint32
}

// NewRegistry creates a Registry bound to h, with fresh symbol and
// primitive tables.
func NewRegistry(h *heap.Heap) *Registry {
	return &Registry{
		Heap:       h,
		Symbols:    NewSymbolTable(h),
		Primitives: NewPrimitiveTable(h),
		indexOf:    make(map[object.Value]uint32),
	}
}

// IndexOf returns the class-table index a previously built Class was
// registered under.
func (r *Registry) IndexOf(c Class) (uint32, bool) {
	index, ok := r.indexOf[c.Value]
	return index, ok
}

// NewClass allocates a fresh Class/Metaclass pair at the next two
// consecutive class-table indices and returns a Builder to configure
// them. super may be the zero Class (its Value == object.Nil) for a class
// with no superclass (Object's own case in Bootstrap).
func (r *Registry) NewClass(name string, super Class) (*Builder, error) {
	return r.newClassAt(name, super, 0, false)
}

// NewSpecialClass is like NewClass but installs the pair at a caller-
// chosen, stable special class index (see ClassTable.AddSpecial) instead
// of the table's next free index.
func (r *Registry) NewSpecialClass(name string, super Class, specialIndex uint32) (*Builder, error) {
	return r.newClassAt(name, super, specialIndex, true)
}

func (r *Registry) newClassAt(name string, super Class, specialIndex uint32, isSpecial bool) (*Builder, error) {
	classValue, err := r.Heap.NewObject(classSlotCount, 0, object.FormatFixed, SpecialClass)
	if err != nil {
		return nil, err
	}
	metaclassValue, err := r.Heap.NewObject(metaclassSlotCount, 0, object.FormatFixed, SpecialMetaclass)
	if err != nil {
		return nil, err
	}

	var classIndex, metaclassIndex uint32
	if isSpecial {
		classIndex = specialIndex
		metaclassIndex = specialIndex + 1
		r.Heap.Classes().AddSpecial(classValue, classIndex)
		r.Heap.Classes().AddSpecial(metaclassValue, metaclassIndex)
	} else {
		classIndex = r.Heap.Classes().Register(classValue)
		metaclassIndex = r.Heap.Classes().Register(metaclassValue)
		if metaclassIndex != classIndex+1 {
			// The class table's next free slot was not immediately
			// reusable for the metaclass (a concurrent registration raced
			// in between); re-register the metaclass at the right place.
			// In this single-writer bootstrap path that never happens in
			// practice, but the invariant is cheap to keep explicit.
			r.Heap.Classes().AddSpecial(metaclassValue, classIndex+1)
			metaclassIndex = classIndex + 1
		}
	}

	b := &Builder{
		heap:            r.Heap,
		symbols:         r.Symbols,
		primitives:      r.Primitives,
		class:           AsClass(r.Heap, classValue),
		metaclass:       AsMetaclass(r.Heap, metaclassValue),
		instanceMethods: make(map[string]PrimitiveFunc),
		classMethods:    make(map[string]PrimitiveFunc),
	}

	b.metaclass.SetThisClass(classValue)
	r.indexOf[classValue] = classIndex
	r.indexOf[metaclassValue] = metaclassIndex

	// A class's own class is its metaclass, not the shared SpecialClass
	// every class object was allocated under a moment ago -- real
	// Smalltalk's "Counter class == Counter's class", which is what lets
	// a class-side method lookup (interp.classOf sent to a class object)
	// actually start at the right metaclass. The metaclass object itself
	// keeps SpecialMetaclass: every metaclass is alike an instance of the
	// one shared Metaclass class.
	classHdr := r.Heap.ReadHeader(classValue)
	classHdr.ClassIndex = metaclassIndex
	r.Heap.WriteHeader(classValue, classHdr)

	if err := b.setSuperclass(super); err != nil {
		return nil, err
	}
	if err := b.setName(name); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Builder) setName(name string) error {
	sym, err := b.symbols.Intern(name)
	if err != nil {
		return err
	}
	b.class.SetName(sym)
	return nil
}

// setSuperclass wires both the class's and metaclass's superclass links,
// and copies the superclass's format and fixed variable count as the
// starting point for this class's own layout (ClassBuilder.cpp's
// setSuperclass).
func (b *Builder) setSuperclass(super Class) error {
	b.class.SetSuperClass(super.Value)
	if super.Value != object.Nil {
		b.class.SetFormat(super.Format())
		b.class.SetFixedVariableCount(super.FixedVariableCount())
	} else {
		b.class.SetFormat(object.FormatEmpty)
		b.class.SetFixedVariableCount(0)
	}
	// The metaclass's own superclass (Foo class's superclass is Foo's
	// superclass's metaclass) is not derivable from super alone -- the
	// caller wires it explicitly via WithMetaSuperclass.
	return nil
}

// WithMetaSuperclass sets the metaclass's own superclass link explicitly
// (the metaclass hierarchy mirrors the class hierarchy one level up:
// Foo class's superclass is Foo's superclass's metaclass). Bootstrap
// calls this once both classes in a pair exist, since a metaclass's
// proper superclass cannot always be derived from the builder's own
// arguments alone.
func (b *Builder) WithMetaSuperclass(superMetaclass Metaclass) *Builder {
	b.metaclass.SetSuperClass(superMetaclass.Value)
	return b
}

// VariableSizeWithoutInstanceVariables declares instances as pure
// variable-pointer-slot objects (e.g. Array).
func (b *Builder) VariableSizeWithoutInstanceVariables() *Builder {
	b.class.SetFormat(object.FormatVariable)
	return b
}

// VariableSizeWithInstanceVariables declares instances as fixed ivars
// followed by a variable pointer tail.
func (b *Builder) VariableSizeWithInstanceVariables() *Builder {
	b.class.SetFormat(object.FormatVariableWithIvars)
	return b
}

// VariableBits64/32/16/8 declare instances as indexable words of the
// given width (e.g. ByteString/ByteSymbol use VariableBits8).
func (b *Builder) VariableBits64() *Builder { b.class.SetFormat(object.FormatIndexable64); return b }
func (b *Builder) VariableBits32() *Builder { b.class.SetFormat(object.FormatIndexable32); return b }
func (b *Builder) VariableBits16() *Builder { b.class.SetFormat(object.FormatIndexable16); return b }
func (b *Builder) VariableBits8() *Builder  { b.class.SetFormat(object.FormatIndexable8); return b }

// CompiledMethodFormat declares instances laid out as spec.md §3's
// CompiledMethod row (header word, literal slots, indexable bytecode
// tail).
func (b *Builder) CompiledMethodFormat() *Builder {
	b.class.SetFormat(object.FormatCompiledMethod)
	return b
}

// AddInstanceVariable appends name to the class's declared instance
// variables.
func (b *Builder) AddInstanceVariable(name string) *Builder {
	b.instanceVariableNames = append(b.instanceVariableNames, name)
	return b
}

// AddInstanceVariables appends every name in names.
func (b *Builder) AddInstanceVariables(names ...string) *Builder {
	b.instanceVariableNames = append(b.instanceVariableNames, names...)
	return b
}

// AddMethod registers an instance-side primitive under selector.
func (b *Builder) AddMethod(selector string, fn PrimitiveFunc) *Builder {
	b.instanceMethods[selector] = fn
	return b
}

// AddClassMethod registers a class-side primitive under selector.
func (b *Builder) AddClassMethod(selector string, fn PrimitiveFunc) *Builder {
	b.classMethods[selector] = fn
	return b
}

// Finish allocates the instance-variable name Array, bumps
// fixedVariableCount by the newly added ivars (promoting an Empty format
// to Fixed, exactly as ClassBuilder::finish does), builds both method
// dictionaries, and registers every declared primitive into them.
func (b *Builder) Finish() (Class, error) {
	ivars, err := NewArray(b.heap, len(b.instanceVariableNames))
	if err != nil {
		return Class{}, err
	}
	for i, name := range b.instanceVariableNames {
		sym, err := b.symbols.Intern(name)
		if err != nil {
			return Class{}, err
		}
		ivars.AtPut(i, sym)
	}
	b.class.SetInstanceVariables(ivars.Value)

	// The metaclass side never declares its own instance variables here
	// (Builder has no AddClassInstanceVariable), but its InstanceVariables
	// slot must still hold a valid, empty Array rather than the raw nil
	// sentinel -- InstanceVariableIndex walks a metaclass's own ancestor
	// chain the same way it walks a class's when compiling a class-side
	// method (script.Runtime's "Foo class >> bar" form), and an unset
	// slot there is not a heap pointer at all.
	metaIvars, err := NewArray(b.heap, 0)
	if err != nil {
		return Class{}, err
	}
	b.metaclass.SetInstanceVariables(metaIvars.Value)

	if len(b.instanceVariableNames) > 0 {
		b.class.SetFixedVariableCount(b.class.FixedVariableCount() + len(b.instanceVariableNames))
		if b.class.Format() == object.FormatEmpty {
			b.class.SetFormat(object.FormatFixed)
		}
	}

	classDict, err := b.buildMethodDict(b.instanceMethods)
	if err != nil {
		return Class{}, err
	}
	b.class.SetMethodDict(classDict.Value)

	metaDict, err := b.buildMethodDict(b.classMethods)
	if err != nil {
		return Class{}, err
	}
	b.metaclass.SetMethodDict(metaDict.Value)

	return b.class, nil
}

func (b *Builder) buildMethodDict(methods map[string]PrimitiveFunc) (MethodDictionary, error) {
	dict, err := NewMethodDictionary(b.heap)
	if err != nil {
		return MethodDictionary{}, err
	}
	for selector, fn := range methods {
		sym, err := b.symbols.Intern(selector)
		if err != nil {
			return MethodDictionary{}, err
		}
		method, err := b.primitives.Register(fn)
		if err != nil {
			return MethodDictionary{}, err
		}
		if err := dict.AtPut(sym, method); err != nil {
			return MethodDictionary{}, err
		}
	}
	return dict, nil
}
