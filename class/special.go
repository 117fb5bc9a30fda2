package class

import "github.com/lodtalk-go/vm/object"

// Special class indices. These are baked into tagged-immediate dispatch
// (object.KindOf) and the bootstrap class hierarchy, so they must be
// stable regardless of the order user code later registers classes in
// (spec.md §3: "Special class indices are reserved for built-ins"). Each
// constant is spaced two apart rather than packed consecutively, since
// "the metaclass of each class occupies the slot immediately after its
// class" (spec.md §3) needs that odd neighboring slot kept free for every
// special class, not just the last one.
const (
	SpecialUndefinedObject uint32 = iota * 2
	SpecialBoolean
	SpecialTrue
	SpecialFalse
	SpecialSmallInteger
	SpecialCharacter
	SpecialSmallFloat
	SpecialObject
	SpecialBehavior
	SpecialClassDescription
	SpecialClass
	SpecialMetaclass
	SpecialArray
	SpecialByteString
	SpecialByteSymbol
	SpecialCompiledMethod
	SpecialBlockClosure
	SpecialContext
	SpecialMethodDictionary
	SpecialAssociation
	SpecialNativeMethod

	// NumSpecialClasses is the first index a user-defined class may occupy
	// (one past the last special class's own metaclass slot).
	NumSpecialClasses
)

// ClassIndexOfValue returns the fixed class index of an immediate value,
// per spec.md §3's invariant: "for immediates, the class index is a fixed
// constant derived from the tag." Calling it on a pointer value is
// undefined; pointer values carry their class index in their own header.
func ClassIndexOfValue(v object.Value) uint32 {
	switch object.KindOf(v) {
	case object.KindSmallInteger:
		return SpecialSmallInteger
	case object.KindCharacter:
		return SpecialCharacter
	case object.KindSmallFloat:
		return SpecialSmallFloat
	default:
		return SpecialUndefinedObject
	}
}
