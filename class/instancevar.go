package class

import "github.com/lodtalk-go/vm/heap"

// ancestorChain returns cls and every superclass above it, root (the
// class with a nil superclass) first. SpecialObject/nil itself never
// appears: the walk stops at the first class whose SuperClass() reads
// back as object.Nil.
func ancestorChain(h *heap.Heap, cls Class) []Class {
	var chain []Class
	for c := cls; ; {
		chain = append(chain, c)
		super := c.SuperClass()
		if super == 0 {
			break
		}
		c = AsClass(h, super)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// InstanceVariableIndex resolves name to its absolute instance variable
// index on cls, walking the superclass chain root-first and summing each
// ancestor's own declared instance variable count ahead of cls's own
// (spec.md §4.3's scope resolution: "walk the class description chain,
// summing inherited instanceVariables lengths"). ok is false if no
// ancestor, including cls itself, declares an instance variable named
// name.
func InstanceVariableIndex(h *heap.Heap, cls Class, name string) (index int, ok bool) {
	offset := 0
	for _, c := range ancestorChain(h, cls) {
		vars := AsArray(h, c.InstanceVariables())
		n := vars.Size()
		for i := 0; i < n; i++ {
			if ByteContents(h, vars.At(i)) == name {
				return offset + i, true
			}
		}
		offset += n
	}
	return 0, false
}

// InstanceVariableCount returns the total number of instance variables
// cls's instances carry, including every inherited one.
func InstanceVariableCount(h *heap.Heap, cls Class) int {
	total := 0
	for _, c := range ancestorChain(h, cls) {
		total += AsArray(h, c.InstanceVariables()).Size()
	}
	return total
}
