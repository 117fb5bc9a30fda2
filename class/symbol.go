package class

import (
	"sync"

	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// NewByteString allocates a new ByteString holding s's bytes.
func NewByteString(h *heap.Heap, s string) (object.Value, error) {
	return newIndexable8(h, s, SpecialByteString)
}

// newByteSymbolRaw allocates a new, uninterned ByteSymbol holding s's
// bytes. Callers wanting the canonical symbol for a name should use a
// SymbolTable's Intern instead, since two ByteSymbols with equal contents
// must never coexist (selectors and MethodDictionary keys are compared by
// identity, not contents).
func newByteSymbolRaw(h *heap.Heap, s string) (object.Value, error) {
	return newIndexable8(h, s, SpecialByteSymbol)
}

func newIndexable8(h *heap.Heap, s string, classIndex uint32) (object.Value, error) {
	v, err := h.NewObject(0, len(s), object.FormatIndexable8, classIndex)
	if err != nil {
		return 0, err
	}
	copy(h.Bytes(v, 0, len(s)), s)
	return v, nil
}

// ByteContents reads back the bytes of a ByteString or ByteSymbol Value as
// a Go string.
func ByteContents(h *heap.Heap, v object.Value) string {
	n := h.GetFixedSlotCount(v)
	return string(h.Bytes(v, 0, n))
}

// SymbolTable interns ByteSymbols by their Go-string contents, so that the
// same name always resolves to the same heap object (spec.md §3's
// CompiledMethod/MethodDictionary selectors rely on this for identity
// comparison). It implements gc.StackWalker so the collector can mark and
// rewrite its entries like any other root.
type SymbolTable struct {
	mu     sync.RWMutex
	heap   *heap.Heap
	byName map[string]int
	values []object.Value
}

// NewSymbolTable creates an empty table bound to h.
func NewSymbolTable(h *heap.Heap) *SymbolTable {
	return &SymbolTable{heap: h, byName: make(map[string]int)}
}

// Intern returns the canonical ByteSymbol for name, allocating it on first
// use.
func (t *SymbolTable) Intern(name string) (object.Value, error) {
	t.mu.RLock()
	if i, ok := t.byName[name]; ok {
		v := t.values[i]
		t.mu.RUnlock()
		return v, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check: another goroutine may have interned name while this one
	// waited for the write lock.
	if i, ok := t.byName[name]; ok {
		return t.values[i], nil
	}

	v, err := newByteSymbolRaw(t.heap, name)
	if err != nil {
		return 0, err
	}
	t.byName[name] = len(t.values)
	t.values = append(t.values, v)
	return v, nil
}

// WalkRoots implements gc.StackWalker.
func (t *SymbolTable) WalkRoots(yield func(slot *object.Value)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.values {
		yield(&t.values[i])
	}
}
