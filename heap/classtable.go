package heap

import (
	"sync"

	"github.com/lodtalk-go/vm/object"
)

// classesPerPage is the page size of the class index table, grounded on
// Lodtalk's ClassTable::OopsPerPage paging scheme (original_source/vm/
// MemoryManager.cpp). Growing by pages keeps registerClass's fast path a
// plain slice index instead of a reallocate-and-copy.
const classesPerPage = 1024

// ClassTable is the process-wide table mapping a 22-bit class index
// (object.Header.ClassIndex) to the class object's heap Value. It is
// guarded by a many-readers/single-writer lock: lookups during message
// dispatch vastly outnumber the registrations that happen while loading
// classes (spec.md §4.1).
type ClassTable struct {
	mu               sync.RWMutex
	pages            [][]object.Value
	size             int
	fixedSlotCounter FixedSlotCounter
}

// FixedSlotCounter resolves how many of a class's declared header slots
// are fixed (pointer-width instance variables, or a CompiledMethod's
// single header word) as opposed to its variable/indexable tail. The heap
// itself has no notion of class layout, so package class installs this
// once Behavior's own layout is bootstrapped (spec.md §3's Behavior row:
// "superclass, methodDict, format, fixedVariableCount, layout").
type FixedSlotCounter func(classIndex uint32) int

// SetFixedSlotCounter installs the class-layout callback used by
// Heap.ObjectSize to size indexable and compiled-method objects.
func (t *ClassTable) SetFixedSlotCounter(f FixedSlotCounter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fixedSlotCounter = f
}

func (t *ClassTable) fixedSlotCountFor(classIndex uint32) int {
	t.mu.RLock()
	f := t.fixedSlotCounter
	t.mu.RUnlock()
	if f == nil {
		return 0
	}
	return f(classIndex)
}

func newClassTable() *ClassTable {
	return &ClassTable{}
}

// Get returns the class Value registered at index, or object.Nil if index
// is unregistered or out of range.
func (t *ClassTable) Get(index uint32) object.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(index) >= t.size {
		return object.Nil
	}
	page, elem := int(index)/classesPerPage, int(index)%classesPerPage
	return t.pages[page][elem]
}

// Register appends clazz to the table and returns its newly assigned
// index.
func (t *ClassTable) Register(clazz object.Value) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := t.size
	t.growLocked(index)
	page, elem := index/classesPerPage, index%classesPerPage
	t.pages[page][elem] = clazz
	t.size++
	return uint32(index)
}

// AddSpecial installs clazz at a specific, caller-chosen index -- used for
// the bootstrap classes (SmallInteger, Character, UndefinedObject, ...)
// whose indices are baked into tagged-immediate dispatch and so must be
// stable regardless of registration order.
func (t *ClassTable) AddSpecial(clazz object.Value, index uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.growLocked(int(index))
	page, elem := int(index)/classesPerPage, int(index)%classesPerPage
	t.pages[page][elem] = clazz
	if int(index)+1 > t.size {
		t.size = int(index) + 1
	}
}

// growLocked ensures pages holds enough pages to address index. Caller
// must hold t.mu for writing.
func (t *ClassTable) growLocked(index int) {
	neededPage := index / classesPerPage
	for len(t.pages) <= neededPage {
		t.pages = append(t.pages, make([]object.Value, classesPerPage))
	}
}

// Len returns the number of registered class slots (including any gaps
// created by AddSpecial).
func (t *ClassTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// WalkRoots implements gc.StackWalker: every registered class and
// metaclass is a GC root in its own right (nothing else on the heap is
// guaranteed to point at a class with no live instances or subclasses
// yet), yielded in slice order the same way class.SymbolTable walks its
// interned entries. The script host registers this once at startup,
// alongside the bootstrap singletons, per interp.New's own doc comment.
func (t *ClassTable) WalkRoots(yield func(slot *object.Value)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for page := 0; page*classesPerPage < t.size; page++ {
		n := t.size - page*classesPerPage
		if n > classesPerPage {
			n = classesPerPage
		}
		for elem := 0; elem < n; elem++ {
			yield(&t.pages[page][elem])
		}
	}
}
