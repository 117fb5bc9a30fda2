package class

import (
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Bootstrap holds the outcome of building the special class hierarchy:
// the registry every later class/method declaration extends, and the
// singleton instances (nil, true, false) spec.md §3 calls out by name.
type Bootstrap struct {
	Registry *Registry

	Nil   object.Value
	True  object.Value
	False object.Value

	Object           Class
	Behavior         Class
	ClassDescription Class
	ClassClass       Class
	Metaclass        Class
	Boolean          Class
	TrueClass        Class
	FalseClass       Class
	SmallInteger     Class
	Character        Class
	SmallFloat       Class
	UndefinedObject  Class
	ArrayClass       Class
	ByteString       Class
	ByteSymbol       Class
	CompiledMethod   Class
	BlockClosure     Class
	Context          Class
	MethodDictionary Class
	Association      Class
}

// NewBootstrap builds every special class named in spec.md §3's class
// table row ("UndefinedObject, True, False, SmallInteger, Character,
// SmallFloat, Array, ByteString, ByteSymbol, CompiledMethod,
// BlockClosure, Context, MethodDictionary, Metaclass, Class, …") over a
// fresh heap, and wires the heap's ClassTable.FixedSlotCounter so
// Heap.ObjectSize can size indexable and compiled-method objects.
func NewBootstrap(h *heap.Heap) (*Bootstrap, error) {
	r := NewRegistry(h)
	bs := &Bootstrap{Registry: r}

	// Object has no superclass; every other special class descends from
	// it, most of them directly, a few through Behavior/ClassDescription
	// or Boolean -- sufficient for the primitives this bootstrap installs. A script-level Object/Model hierarchy with
	// proper intermediate classes is built by the script host once it
	// loads user-level class declarations.
	objectClass, err := bs.declare("Object", Class{}, SpecialObject)
	if err != nil {
		return nil, err
	}
	bs.Object = objectClass.class

	mustDeclare := func(name string, index uint32) (*Builder, error) {
		return bs.declare(name, bs.Object, index)
	}

	behaviorB, err := mustDeclare("Behavior", SpecialBehavior)
	if err != nil {
		return nil, err
	}
	behaviorB.AddInstanceVariables("superclass", "methodDict", "format", "fixedVariableCount", "layout")
	bs.Behavior, err = behaviorB.Finish()
	if err != nil {
		return nil, err
	}

	cdB, err := bs.declare("ClassDescription", bs.Behavior, SpecialClassDescription)
	if err != nil {
		return nil, err
	}
	cdB.AddInstanceVariables("instanceVariables", "organization")
	bs.ClassDescription, err = cdB.Finish()
	if err != nil {
		return nil, err
	}

	classB, err := bs.declare("Class", bs.ClassDescription, SpecialClass)
	if err != nil {
		return nil, err
	}
	classB.AddInstanceVariables("subclasses", "name", "classPool", "sharedPools",
		"category", "environment", "traitComposition", "localSelectors")
	bs.ClassClass, err = classB.Finish()
	if err != nil {
		return nil, err
	}

	metaclassB, err := bs.declare("Metaclass", bs.ClassDescription, SpecialMetaclass)
	if err != nil {
		return nil, err
	}
	metaclassB.AddInstanceVariables("thisClass", "traitComposition", "localSelectors")
	bs.Metaclass, err = metaclassB.Finish()
	if err != nil {
		return nil, err
	}

	undefB, err := mustDeclare("UndefinedObject", SpecialUndefinedObject)
	if err != nil {
		return nil, err
	}
	bs.UndefinedObject, err = undefB.Finish()
	if err != nil {
		return nil, err
	}
	nilValue, err := h.NewObject(0, 0, object.FormatEmpty, SpecialUndefinedObject)
	if err != nil {
		return nil, err
	}
	bs.Nil = nilValue

	boolB, err := mustDeclare("Boolean", SpecialBoolean)
	if err != nil {
		return nil, err
	}
	bs.Boolean, err = boolB.Finish()
	if err != nil {
		return nil, err
	}

	trueB, err := bs.declare("True", bs.Boolean, SpecialTrue)
	if err != nil {
		return nil, err
	}
	bs.TrueClass, err = trueB.Finish()
	if err != nil {
		return nil, err
	}
	trueValue, err := h.NewObject(0, 0, object.FormatEmpty, SpecialTrue)
	if err != nil {
		return nil, err
	}
	bs.True = trueValue

	falseB, err := bs.declare("False", bs.Boolean, SpecialFalse)
	if err != nil {
		return nil, err
	}
	bs.FalseClass, err = falseB.Finish()
	if err != nil {
		return nil, err
	}
	falseValue, err := h.NewObject(0, 0, object.FormatEmpty, SpecialFalse)
	if err != nil {
		return nil, err
	}
	bs.False = falseValue

	smallIntB, err := mustDeclare("SmallInteger", SpecialSmallInteger)
	if err != nil {
		return nil, err
	}
	bs.SmallInteger, err = smallIntB.Finish()
	if err != nil {
		return nil, err
	}

	charB, err := mustDeclare("Character", SpecialCharacter)
	if err != nil {
		return nil, err
	}
	bs.Character, err = charB.Finish()
	if err != nil {
		return nil, err
	}

	floatB, err := mustDeclare("SmallFloat", SpecialSmallFloat)
	if err != nil {
		return nil, err
	}
	bs.SmallFloat, err = floatB.Finish()
	if err != nil {
		return nil, err
	}

	arrayB, err := mustDeclare("Array", SpecialArray)
	if err != nil {
		return nil, err
	}
	arrayB.VariableSizeWithoutInstanceVariables()
	bs.ArrayClass, err = arrayB.Finish()
	if err != nil {
		return nil, err
	}

	stringB, err := mustDeclare("ByteString", SpecialByteString)
	if err != nil {
		return nil, err
	}
	stringB.VariableBits8()
	bs.ByteString, err = stringB.Finish()
	if err != nil {
		return nil, err
	}

	symbolB, err := mustDeclare("ByteSymbol", SpecialByteSymbol)
	if err != nil {
		return nil, err
	}
	symbolB.VariableBits8()
	bs.ByteSymbol, err = symbolB.Finish()
	if err != nil {
		return nil, err
	}

	cmB, err := mustDeclare("CompiledMethod", SpecialCompiledMethod)
	if err != nil {
		return nil, err
	}
	cmB.CompiledMethodFormat()
	// CompiledMethod's own header word (spec.md §3's "Header word (tagged
	// small-integer)") is the only slot whose count is constant across
	// every instance of the class; its literal count and bytecode length
	// both vary per method and live in the shared byte-indexable tail
	// instead (see class.CompiledMethod), so it is declared as a single
	// pseudo instance variable to keep FixedVariableCount accurate for
	// heap.ObjectSize and the collector's literal-scanning pass.
	cmB.AddInstanceVariable("header")
	bs.CompiledMethod, err = cmB.Finish()
	if err != nil {
		return nil, err
	}

	blockB, err := mustDeclare("BlockClosure", SpecialBlockClosure)
	if err != nil {
		return nil, err
	}
	blockB.AddInstanceVariables("outerContext", "startPc", "numArgs")
	blockB.VariableSizeWithInstanceVariables() // trailing copied[...] slots
	bs.BlockClosure, err = blockB.Finish()
	if err != nil {
		return nil, err
	}

	contextB, err := mustDeclare("Context", SpecialContext)
	if err != nil {
		return nil, err
	}
	contextB.AddInstanceVariables("sender", "pc", "stackp", "method", "closureOrNil", "receiver")
	contextB.VariableSizeWithInstanceVariables() // trailing data[...] slots
	bs.Context, err = contextB.Finish()
	if err != nil {
		return nil, err
	}

	methodDictB, err := mustDeclare("MethodDictionary", SpecialMethodDictionary)
	if err != nil {
		return nil, err
	}
	methodDictB.AddInstanceVariables("capacity", "tally", "keyArray", "valueArray")
	bs.MethodDictionary, err = methodDictB.Finish()
	if err != nil {
		return nil, err
	}

	assocB, err := mustDeclare("Association", SpecialAssociation)
	if err != nil {
		return nil, err
	}
	assocB.AddInstanceVariables("key", "value")
	bs.Association, err = assocB.Finish()
	if err != nil {
		return nil, err
	}

	nativeMethodB, err := mustDeclare("NativeMethod", SpecialNativeMethod)
	if err != nil {
		return nil, err
	}
	if _, err := nativeMethodB.Finish(); err != nil {
		return nil, err
	}

	h.Classes().SetFixedSlotCounter(func(classIndex uint32) int {
		clazzValue := h.Classes().Get(classIndex)
		if clazzValue == object.Nil {
			return 0
		}
		return AsClass(h, clazzValue).FixedVariableCount()
	})

	return bs, nil
}

// declare is a thin wrapper over Registry.NewSpecialClass that also wires
// the new class's metaclass onto super's metaclass (Foo class's
// superclass is Foo's superclass's metaclass) and records this class's
// own index for later declarations to find in turn. Object itself (whose
// super is the zero Class) leaves its metaclass's superclass nil; a full
// Class/Metaclass-cycle bootstrap (Object class's superclass is Class) is
// the script host's concern, not this native-class bootstrap's.
func (bs *Bootstrap) declare(name string, super Class, specialIndex uint32) (*Builder, error) {
	b, err := bs.Registry.NewSpecialClass(name, super, specialIndex)
	if err != nil {
		return nil, err
	}

	if super.Value != object.Nil {
		if superIndex, ok := bs.Registry.IndexOf(super); ok {
			superMetaclassValue := bs.Registry.Heap.Classes().Get(superIndex + 1)
			if superMetaclassValue != object.Nil {
				b.WithMetaSuperclass(AsMetaclass(bs.Registry.Heap, superMetaclassValue))
			}
		}
	}
	return b, nil
}
