package main

import (
	"fmt"

	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/script"
)

// renderValue is a minimal printString: immediates render as their literal
// Smalltalk syntax, True/False/Nil render as their canonical names, and
// every other pointer renders as "a ClassName" (the default Object>>
// printString every Smalltalk dialect falls back to absent a user-defined
// printOn:).
func renderValue(rt *script.Runtime, v object.Value) string {
	switch {
	case v == object.Nil || v == rt.Bootstrap.Nil:
		return "nil"
	case v == rt.Bootstrap.True:
		return "true"
	case v == rt.Bootstrap.False:
		return "false"
	case v.IsSmallInteger():
		return fmt.Sprintf("%d", object.DecodeSmallInteger(v))
	case v.IsCharacter():
		return fmt.Sprintf("$%c", object.DecodeCharacter(v))
	case v.IsSmallFloat():
		return fmt.Sprintf("%g", object.DecodeSmallFloat(v))
	default:
		return describePointer(rt.Heap, v)
	}
}

func describePointer(h *heap.Heap, v object.Value) string {
	classValue := h.Classes().Get(h.ReadHeader(v).ClassIndex)
	name := class.ByteContents(h, class.AsClass(h, classValue).Name())
	if class.IsNativeMethod(h, v) {
		return "a NativeMethod"
	}
	article := "a"
	if len(name) > 0 && isVowel(name[0]) {
		article = "an"
	}
	return article + " " + name
}

func isVowel(b byte) bool {
	switch b {
	case 'A', 'E', 'I', 'O', 'U', 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}
