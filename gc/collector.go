package gc

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

// Collector is the VM's mark-compact garbage collector. One Collector is
// bound to exactly one Heap for the process lifetime.
type Collector struct {
	mu           sync.Mutex
	heap         *heap.Heap
	disableCount int

	refs         []*object.Value
	stackWalkers []StackWalker
	natives      []object.Value

	// nilValue is written into a weak slot whose referent did not survive
	// a collection. Defaults to the zero Value (object.Nil's placeholder)
	// until SetNilValue installs the real singleton once the special
	// object table is bootstrapped.
	nilValue object.Value
}

// New creates a collector over h.
func New(h *heap.Heap) *Collector {
	return &Collector{heap: h}
}

// SetNilValue installs the real nil singleton, used to clear dead weak
// slots. Must be called once the heap's special object table exists.
func (c *Collector) SetNilValue(v object.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nilValue = v
}

// Disable increments the collector's disable-nesting counter; Collect is
// a no-op while it is above zero. Grounded on
// original_source/vm/MemoryManager.cpp's GarbageCollector::disable/enable.
func (c *Collector) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableCount++
}

// Enable decrements the disable-nesting counter.
func (c *Collector) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableCount--
}

// Stats summarizes one Collect cycle.
type Stats struct {
	BytesBefore  int
	BytesAfter   int
	ObjectsFreed int
	Aborted      bool // true if compaction was skipped (disabled, or nothing collectible)
}

// Collect runs one Mark/Plan/Rewrite/Move cycle (spec.md §4.2), unless
// disabled. Pass 3 (Move) is skipped when Pass 1 (Plan) finds nothing
// collectible, to keep the heap's bump cursor stable when a cycle would
// free nothing -- but Pass 2 (Rewrite), including weak-slot clearing,
// always runs, since a weak reference can die even when no object moves.
func (c *Collector) Collect() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disableCount > 0 {
		Logger().Debug("gc collect skipped: disabled")
		return Stats{Aborted: true}
	}

	before := c.heap.Size()
	c.mark()
	newSize, freed := c.plan()
	c.rewrite()

	aborted := freed == 0
	if aborted {
		c.resetColors()
	} else {
		c.move(newSize)
	}

	after := c.heap.Size()
	Logger().Info("gc cycle",
		zap.Int("bytes_before", before),
		zap.Int("bytes_after", after),
		zap.Int("objects_freed", freed),
		zap.Bool("aborted", aborted),
	)
	return Stats{BytesBefore: before, BytesAfter: after, ObjectsFreed: freed, Aborted: aborted}
}

// heapEnd returns the address one past the last committed byte.
func (c *Collector) heapEnd() uint64 { return uint64(c.heap.Size()) }

// firstHeaderAddress is the header address of the very first heap
// allocation (its forwarding slot occupies heap offset 0).
const firstHeaderAddress = uint64(object.ForwardingSlotSize)

// walkHeap visits the header address of every live allocation in address
// order, regardless of color.
func (c *Collector) walkHeap(visit func(v object.Value)) {
	end := c.heapEnd()
	for cur := firstHeaderAddress; cur < end; {
		v := object.PointerValue(cur)
		size := c.heap.ObjectSize(v)
		visit(v)
		cur += uint64(size)
	}
}

func (c *Collector) walkRoots(yield func(slot *object.Value)) {
	for _, r := range c.refs {
		yield(r)
	}
	for _, w := range c.stackWalkers {
		w.WalkRoots(yield)
	}
}

// mark is Pass 0: color Gray then Black from every root and pinned
// native, scanning only the slots that retain (non-weak pointer formats
// and a CompiledMethod's literal region).
func (c *Collector) mark() {
	var markValue func(v object.Value)
	markValue = func(v object.Value) {
		if !v.IsPointer() || v == 0 {
			return
		}
		hdr := c.heap.ReadHeader(v)
		if hdr.GCColor != object.White {
			return
		}
		hdr.GCColor = object.Gray
		c.heap.WriteHeader(v, hdr)

		family := hdr.Format.Family()
		switch {
		case family.IsPointerFormat() && !family.IsWeak():
			n := c.heap.GetFixedSlotCount(v)
			for i := 0; i < n; i++ {
				markValue(c.heap.Slot(v, i))
			}
		case family == object.FormatCompiledMethod:
			literals := compiledMethodLiteralCount(c.heap, v)
			for i := 1; i <= literals; i++ {
				markValue(c.heap.Slot(v, i))
			}
		}

		hdr = c.heap.ReadHeader(v)
		hdr.GCColor = object.Black
		c.heap.WriteHeader(v, hdr)
	}

	c.walkRoots(func(slot *object.Value) { markValue(*slot) })
	for _, nv := range c.natives {
		markValue(nv)
	}
}

// compiledMethodLiteralCount reads a CompiledMethod's own header word
// (slot 0, a tagged SmallInteger distinct from the heap object header
// every value carries) to recover how many of its word slots are literal
// pointers. Unlike every other pointer format, this count varies per
// instance rather than per class, so it cannot come from
// heap.ClassFixedSlotCount the way ordinary fixed-slot objects work.
func compiledMethodLiteralCount(h *heap.Heap, v object.Value) int {
	return object.DecodeMethodHeader(object.DecodeSmallInteger(h.Slot(v, 0))).LiteralCount
}

// plan is Pass 1: assign every surviving object a forwarding header
// address equal to the next compacted position, storing it in the
// object's own forwarding slot. Returns the heap size after compaction
// and the count of collected (White) objects.
func (c *Collector) plan() (newSize int, freed int) {
	free := firstHeaderAddress
	c.walkHeap(func(v object.Value) {
		allocStart := v.Address() - uint64(object.ForwardingSlotSize)
		hdr := c.heap.ReadHeader(v)
		if hdr.GCColor != object.White {
			c.heap.WriteWord(allocStart, free)
			free += uint64(c.heap.ObjectSize(v))
		} else {
			c.heap.WriteWord(allocStart, 0)
			freed++
		}
	})
	return int(free), freed
}

// forwardingOf resolves v to its post-compaction address via the
// forwarding slot Plan wrote. Non-pointer values and the zero (unattached)
// value pass through unchanged.
func (c *Collector) forwardingOf(v object.Value) object.Value {
	if !v.IsPointer() || v == 0 {
		return v
	}
	fwd := c.heap.ReadWord(v.Address() - uint64(object.ForwardingSlotSize))
	if fwd == 0 {
		return v
	}
	return object.PointerValue(fwd)
}

// rewrite is Pass 2: for every live object, rewrite its internal pointer
// slots through forwardingOf; weak slots are cleared instead when their
// referent did not survive. Then root slots, stack-walker slots, and
// pinned natives are rewritten the same way.
func (c *Collector) rewrite() {
	c.walkHeap(func(v object.Value) {
		hdr := c.heap.ReadHeader(v)
		if hdr.GCColor == object.White {
			return
		}
		family := hdr.Format.Family()
		switch {
		case family.IsWeak():
			n := c.heap.GetFixedSlotCount(v)
			for i := 0; i < n; i++ {
				slot := c.heap.Slot(v, i)
				if !slot.IsPointer() || slot == 0 {
					continue
				}
				if c.heap.ReadHeader(slot).GCColor == object.White {
					c.heap.SetSlot(v, i, c.nilValue)
				} else {
					c.heap.SetSlot(v, i, c.forwardingOf(slot))
				}
			}
		case family.IsPointerFormat():
			n := c.heap.GetFixedSlotCount(v)
			for i := 0; i < n; i++ {
				c.heap.SetSlot(v, i, c.forwardingOf(c.heap.Slot(v, i)))
			}
		case family == object.FormatCompiledMethod:
			literals := compiledMethodLiteralCount(c.heap, v)
			for i := 1; i <= literals; i++ {
				c.heap.SetSlot(v, i, c.forwardingOf(c.heap.Slot(v, i)))
			}
		}
	})

	c.walkRoots(func(slot *object.Value) { *slot = c.forwardingOf(*slot) })
	for i, nv := range c.natives {
		c.natives[i] = c.forwardingOf(nv)
	}
}

// move is Pass 3: memmove every live object to its forwarding address,
// reset its color to White, and shrink the heap's bump cursor to newSize.
func (c *Collector) move(newSize int) {
	c.walkHeap(func(v object.Value) {
		hdr := c.heap.ReadHeader(v)
		if hdr.GCColor == object.White {
			return
		}
		size := c.heap.ObjectSize(v)
		allocStart := v.Address() - uint64(object.ForwardingSlotSize)
		dest := c.heap.ReadWord(allocStart)
		destAllocStart := dest - uint64(object.ForwardingSlotSize)

		hdr.GCColor = object.White
		c.heap.WriteHeader(v, hdr)

		if destAllocStart != allocStart {
			c.heap.CopyBytes(destAllocStart, allocStart, size)
		}
	})
	c.heap.SetCursor(newSize)
}

// resetColors clears every object's color back to White without moving
// anything, used when Plan finds nothing collectible (Move is skipped).
func (c *Collector) resetColors() {
	c.walkHeap(func(v object.Value) {
		hdr := c.heap.ReadHeader(v)
		if hdr.GCColor != object.White {
			hdr.GCColor = object.White
			c.heap.WriteHeader(v, hdr)
		}
	})
}
