package class

import (
	lterrors "github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

var errDictionaryFull = lterrors.Invariant(lterrors.PhaseAlloc, "method dictionary has no free slot after growth")

// MethodDictionary slots (spec.md §3): capacity, tally, keyArray,
// valueArray; linear-probe hash, ≤ 80% load factor.
const (
	methodDictCapacity = iota
	methodDictTally
	methodDictKeyArray
	methodDictValueArray

	methodDictSlotCount
)

// maxLoadFactor is the fill ratio spec.md §3 names as the rehash
// threshold ("A MethodDictionary's tally ≤ 0.8·capacity; exceeding this
// triggers doubling and rehash").
const maxLoadFactor = 0.8

// initialMethodDictCapacity is the starting capacity a fresh
// MethodDictionary is built with.
const initialMethodDictCapacity = 8

// MethodDictionary is a typed view over a MethodDictionary heap object: a
// linear-probed open-addressed hash table keyed by ByteSymbol identity,
// valued by CompiledMethod (or, for a primitive-backed method, the
// native-method object PrimitiveTable.Register creates).
type MethodDictionary struct {
	Heap  *heap.Heap
	Value object.Value
}

// NewMethodDictionary allocates an empty MethodDictionary.
func NewMethodDictionary(h *heap.Heap) (MethodDictionary, error) {
	v, err := h.NewObject(methodDictSlotCount, 0, object.FormatFixed, SpecialMethodDictionary)
	if err != nil {
		return MethodDictionary{}, err
	}
	md := MethodDictionary{Heap: h, Value: v}
	keys, err := NewArray(h, initialMethodDictCapacity)
	if err != nil {
		return MethodDictionary{}, err
	}
	values, err := NewArray(h, initialMethodDictCapacity)
	if err != nil {
		return MethodDictionary{}, err
	}
	h.SetSlot(v, methodDictCapacity, object.EncodeSmallInteger(initialMethodDictCapacity))
	h.SetSlot(v, methodDictTally, object.EncodeSmallInteger(0))
	h.SetSlot(v, methodDictKeyArray, keys.Value)
	h.SetSlot(v, methodDictValueArray, values.Value)
	return md, nil
}

func (d MethodDictionary) Capacity() int {
	return int(object.DecodeSmallInteger(d.Heap.Slot(d.Value, methodDictCapacity)))
}

func (d MethodDictionary) Tally() int {
	return int(object.DecodeSmallInteger(d.Heap.Slot(d.Value, methodDictTally)))
}

func (d MethodDictionary) keys() Array   { return AsArray(d.Heap, d.Heap.Slot(d.Value, methodDictKeyArray)) }
func (d MethodDictionary) values() Array { return AsArray(d.Heap, d.Heap.Slot(d.Value, methodDictValueArray)) }

func (d MethodDictionary) setCapacity(n int) {
	d.Heap.SetSlot(d.Value, methodDictCapacity, object.EncodeSmallInteger(int64(n)))
}
func (d MethodDictionary) setTally(n int) {
	d.Heap.SetSlot(d.Value, methodDictTally, object.EncodeSmallInteger(int64(n)))
}
func (d MethodDictionary) setKeys(a Array)   { d.Heap.SetSlot(d.Value, methodDictKeyArray, a.Value) }
func (d MethodDictionary) setValues(a Array) { d.Heap.SetSlot(d.Value, methodDictValueArray, a.Value) }

// startIndex returns the probe's starting slot for a symbol of the given
// identity hash, under a table of the given capacity.
func startIndex(identityHash uint32, capacity int) int {
	return int(identityHash) % capacity
}

// find returns the slot index holding selector, or -1 if absent, probing
// keys linearly from the selector's hashed start index until an empty
// (nil) slot or a match is found.
func (d MethodDictionary) find(selector object.Value) int {
	keys := d.keys()
	capacity := keys.Size()
	if capacity == 0 {
		return -1
	}
	hash := d.Heap.ReadHeader(selector).IdentityHash
	start := startIndex(hash, capacity)
	for i := 0; i < capacity; i++ {
		slot := (start + i) % capacity
		key := keys.At(slot)
		if key == object.Nil {
			return -1
		}
		if key == selector {
			return slot
		}
	}
	return -1
}

// At returns the method bound to selector, or object.Nil if unbound.
func (d MethodDictionary) At(selector object.Value) object.Value {
	i := d.find(selector)
	if i < 0 {
		return object.Nil
	}
	return d.values().At(i)
}

// AtPut binds selector to method, growing and rehashing the table first
// if doing so would push the load factor above maxLoadFactor.
func (d MethodDictionary) AtPut(selector, method object.Value) error {
	if i := d.find(selector); i >= 0 {
		d.values().AtPut(i, method)
		return nil
	}

	if float64(d.Tally()+1) > maxLoadFactor*float64(d.Capacity()) {
		if err := d.grow(); err != nil {
			return err
		}
	}

	keys := d.keys()
	values := d.values()
	capacity := keys.Size()
	hash := d.Heap.ReadHeader(selector).IdentityHash
	start := startIndex(hash, capacity)
	for i := 0; i < capacity; i++ {
		slot := (start + i) % capacity
		if keys.At(slot) == object.Nil {
			keys.AtPut(slot, selector)
			values.AtPut(slot, method)
			d.setTally(d.Tally() + 1)
			return nil
		}
	}
	// Unreachable under the maxLoadFactor invariant: a grow always leaves
	// at least one empty slot before this loop runs.
	return errDictionaryFull
}

// grow doubles the table's capacity and rehashes every existing entry
// into the new, larger key/value arrays.
func (d MethodDictionary) grow() error {
	oldKeys := d.keys()
	oldValues := d.values()
	newCapacity := d.Capacity() * 2

	newKeys, err := NewArray(d.Heap, newCapacity)
	if err != nil {
		return err
	}
	newValues, err := NewArray(d.Heap, newCapacity)
	if err != nil {
		return err
	}

	for i := 0; i < oldKeys.Size(); i++ {
		key := oldKeys.At(i)
		if key == object.Nil {
			continue
		}
		value := oldValues.At(i)
		hash := d.Heap.ReadHeader(key).IdentityHash
		start := startIndex(hash, newCapacity)
		for j := 0; j < newCapacity; j++ {
			slot := (start + j) % newCapacity
			if newKeys.At(slot) == object.Nil {
				newKeys.AtPut(slot, key)
				newValues.AtPut(slot, value)
				break
			}
		}
	}

	d.setCapacity(newCapacity)
	d.setKeys(newKeys)
	d.setValues(newValues)
	return nil
}

// AsMethodDictionary views an already-allocated MethodDictionary Value.
func AsMethodDictionary(h *heap.Heap, v object.Value) MethodDictionary {
	return MethodDictionary{Heap: h, Value: v}
}
