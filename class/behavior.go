package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Slot indices of the built-in entity shapes (spec.md §3's table). Each
// row below is laid out as "superclass row + its own new slots", matching
// the table's "Behavior + ..." notation; the constants are cumulative so a
// Class, say, can be read through its ClassDescription and Behavior
// accessors without any special-casing.
const (
	behaviorSuperclass = iota
	behaviorMethodDict
	behaviorFormat
	behaviorFixedVariableCount
	behaviorLayout

	behaviorSlotCount
)

const (
	classDescriptionInstanceVariables = behaviorSlotCount + iota
	classDescriptionOrganization

	classDescriptionSlotCount
)

const (
	classSubclasses = classDescriptionSlotCount + iota
	className
	classClassPool
	classSharedPools
	classCategory
	classEnvironment
	classTraitComposition
	classLocalSelectors

	classSlotCount
)

const (
	metaclassThisClass = classDescriptionSlotCount + iota
	metaclassTraitComposition
	metaclassLocalSelectors

	metaclassSlotCount
)

// Behavior is a typed view over any heap object laid out per the Behavior
// row of spec.md §3's built-in entity shape table: the minimal slots the
// interpreter's message lookup needs (superclass chain, method
// dictionary, instance layout). ClassDescription, Class and Metaclass all
// embed it, since their own slots are declared in addition to Behavior's.
type Behavior struct {
	Heap  *heap.Heap
	Value object.Value
}

func (b Behavior) SuperClass() object.Value        { return b.Heap.Slot(b.Value, behaviorSuperclass) }
func (b Behavior) SetSuperClass(v object.Value)     { b.Heap.SetSlot(b.Value, behaviorSuperclass, v) }
func (b Behavior) MethodDict() object.Value        { return b.Heap.Slot(b.Value, behaviorMethodDict) }
func (b Behavior) SetMethodDict(v object.Value)     { b.Heap.SetSlot(b.Value, behaviorMethodDict, v) }
func (b Behavior) Format() object.Format {
	return object.Format(object.DecodeSmallInteger(b.Heap.Slot(b.Value, behaviorFormat)))
}
func (b Behavior) SetFormat(f object.Format) {
	b.Heap.SetSlot(b.Value, behaviorFormat, object.EncodeSmallInteger(int64(f)))
}

// FixedVariableCount is the "fixedVariableCount" slot referenced by
// spec.md §4.1's getFixedSlotCount operation: how many of this class's
// instances' header slots are fixed (pointer-width instance variables, or
// a CompiledMethod's single header word) rather than indexable tail.
func (b Behavior) FixedVariableCount() int {
	return int(object.DecodeSmallInteger(b.Heap.Slot(b.Value, behaviorFixedVariableCount)))
}
func (b Behavior) SetFixedVariableCount(n int) {
	b.Heap.SetSlot(b.Value, behaviorFixedVariableCount, object.EncodeSmallInteger(int64(n)))
}

func (b Behavior) Layout() object.Value    { return b.Heap.Slot(b.Value, behaviorLayout) }
func (b Behavior) SetLayout(v object.Value) { b.Heap.SetSlot(b.Value, behaviorLayout, v) }

// ClassDescription extends Behavior with the slots ClassDescription adds.
type ClassDescription struct{ Behavior }

func (c ClassDescription) InstanceVariables() object.Value {
	return c.Heap.Slot(c.Value, classDescriptionInstanceVariables)
}
func (c ClassDescription) SetInstanceVariables(v object.Value) {
	c.Heap.SetSlot(c.Value, classDescriptionInstanceVariables, v)
}
func (c ClassDescription) Organization() object.Value {
	return c.Heap.Slot(c.Value, classDescriptionOrganization)
}
func (c ClassDescription) SetOrganization(v object.Value) {
	c.Heap.SetSlot(c.Value, classDescriptionOrganization, v)
}

// Class extends ClassDescription with the slots Class adds.
type Class struct{ ClassDescription }

func (c Class) Subclasses() object.Value     { return c.Heap.Slot(c.Value, classSubclasses) }
func (c Class) SetSubclasses(v object.Value)  { c.Heap.SetSlot(c.Value, classSubclasses, v) }
func (c Class) Name() object.Value           { return c.Heap.Slot(c.Value, className) }
func (c Class) SetName(v object.Value)        { c.Heap.SetSlot(c.Value, className, v) }
func (c Class) ClassPool() object.Value      { return c.Heap.Slot(c.Value, classClassPool) }
func (c Class) SetClassPool(v object.Value)   { c.Heap.SetSlot(c.Value, classClassPool, v) }
func (c Class) SharedPools() object.Value    { return c.Heap.Slot(c.Value, classSharedPools) }
func (c Class) SetSharedPools(v object.Value) { c.Heap.SetSlot(c.Value, classSharedPools, v) }
func (c Class) Category() object.Value       { return c.Heap.Slot(c.Value, classCategory) }
func (c Class) SetCategory(v object.Value)    { c.Heap.SetSlot(c.Value, classCategory, v) }
func (c Class) Environment() object.Value    { return c.Heap.Slot(c.Value, classEnvironment) }
func (c Class) SetEnvironment(v object.Value) { c.Heap.SetSlot(c.Value, classEnvironment, v) }
func (c Class) TraitComposition() object.Value {
	return c.Heap.Slot(c.Value, classTraitComposition)
}
func (c Class) SetTraitComposition(v object.Value) {
	c.Heap.SetSlot(c.Value, classTraitComposition, v)
}
func (c Class) LocalSelectors() object.Value { return c.Heap.Slot(c.Value, classLocalSelectors) }
func (c Class) SetLocalSelectors(v object.Value) {
	c.Heap.SetSlot(c.Value, classLocalSelectors, v)
}

// Metaclass extends ClassDescription with the slots Metaclass adds.
type Metaclass struct{ ClassDescription }

func (m Metaclass) ThisClass() object.Value     { return m.Heap.Slot(m.Value, metaclassThisClass) }
func (m Metaclass) SetThisClass(v object.Value)  { m.Heap.SetSlot(m.Value, metaclassThisClass, v) }
func (m Metaclass) TraitComposition() object.Value {
	return m.Heap.Slot(m.Value, metaclassTraitComposition)
}
func (m Metaclass) SetTraitComposition(v object.Value) {
	m.Heap.SetSlot(m.Value, metaclassTraitComposition, v)
}
func (m Metaclass) LocalSelectors() object.Value {
	return m.Heap.Slot(m.Value, metaclassLocalSelectors)
}
func (m Metaclass) SetLocalSelectors(v object.Value) {
	m.Heap.SetSlot(m.Value, metaclassLocalSelectors, v)
}

// AsClass views a class Value (as stored in an ordinary object's header
// class index, resolved through a ClassTable) as a Class wrapper.
func AsClass(h *heap.Heap, v object.Value) Class {
	return Class{ClassDescription{Behavior{Heap: h, Value: v}}}
}

// AsMetaclass views a metaclass Value as a Metaclass wrapper.
func AsMetaclass(h *heap.Heap, v object.Value) Metaclass {
	return Metaclass{ClassDescription{Behavior{Heap: h, Value: v}}}
}
