package heap

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

// DefaultReservedBytes is the default size of the heap's reserved region
// (spec.md §4.1: "16 GiB on 64-bit"). This implementation reserves a Go
// byte slice up front rather than mapping raw OS address space (see
// DESIGN.md for why edsrzf/mmap-go was not adopted); DefaultReservedBytes
// is therefore deliberately modest so a process can actually allocate it.
const DefaultReservedBytes = 256 << 20 // 256 MiB

// Config configures heap creation.
type Config struct {
	// ReservedBytes caps the heap's total size. 0 uses DefaultReservedBytes.
	ReservedBytes int
}

// Heap is the bump-allocated object memory. All pointer Values returned by
// Allocate/NewObject are offsets relative to the heap's own base, pointing
// at the object's header (i.e. just past its reserved forwarding slot).
type Heap struct {
	mu      sync.Mutex
	mem     []byte
	cursor  int
	classes *ClassTable

	// allocCount is exposed for GC heuristics and tests; not load-bearing.
	allocCount atomic.Uint64
	hashSeq    atomic.Uint32
}

// New creates a heap with the given configuration.
func New(cfg Config) *Heap {
	size := cfg.ReservedBytes
	if size <= 0 {
		size = DefaultReservedBytes
	}
	return &Heap{
		mem:     make([]byte, size),
		classes: newClassTable(),
	}
}

// Classes returns the heap's class index table.
func (h *Heap) Classes() *ClassTable { return h.classes }

// Size returns the current bump cursor (bytes committed so far).
func (h *Heap) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Capacity returns the heap's reserved size in bytes.
func (h *Heap) Capacity() int { return len(h.mem) }

// Allocate bumps the heap's cursor by totalBytes (which must already
// include the forwarding slot, header, optional extended slot count, and
// all slots rounded to word size, per spec.md §4.1) and returns the
// address of the allocation's forwarding slot (the lowest address of the
// block). The header begins ForwardingSlotSize bytes later.
func (h *Heap) Allocate(totalBytes int) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor+totalBytes > len(h.mem) {
		return 0, errors.OutOfMemory(totalBytes, len(h.mem)-h.cursor)
	}
	base := h.cursor
	h.cursor += totalBytes
	for i := base; i < base+totalBytes; i++ {
		h.mem[i] = 0
	}
	h.allocCount.Add(1)
	return uint64(base + object.ForwardingSlotSize), nil
}

// nextHash assigns the next identity hash, wrapping modulo the header's
// 22-bit field (object.MaxIdentityHash).
func (h *Heap) nextHash() uint32 {
	return h.hashSeq.Add(1) % object.MaxIdentityHash
}

// NewObject allocates and initializes a new heap object: it composes
// object.Calculate's sizing with header population and nil-filling of
// pointer slots (primitive-data slots are left zero, as bump allocation
// already zero-fills).
func (h *Heap) NewObject(fixedSlots, indexableSize int, format object.Format, classIndex uint32) (object.Value, error) {
	info := object.Calculate(format, fixedSlots, indexableSize)

	addr, err := h.Allocate(info.TotalBytes)
	if err != nil {
		return 0, err
	}

	slotCount := info.FixedSlots + info.VariableSlots
	hdr := object.Header{
		SlotCount:    slotCount,
		Format:       format.WithSubFormat(info.SubFormat),
		ClassIndex:   classIndex,
		IdentityHash: h.nextHash(),
	}
	extra := 0
	if info.NeedsExtended {
		hdr.SlotCount = object.ExtendedSlotCount
		extra = object.WordSize
		h.writeWord(addr+uint64(object.HeaderSize), uint64(slotCount))
	}
	h.writeWord(addr, hdr.Encode())

	if format.IsPointerFormat() {
		slotsStart := addr + uint64(object.HeaderSize+extra)
		for i := 0; i < slotCount; i++ {
			h.writeWord(slotsStart+uint64(i*object.WordSize), uint64(object.Nil))
		}
	}

	v := object.PointerValue(addr)
	return v, nil
}

// GetFixedSlotCount returns the raw slotCount recorded in v's header
// (resolving the extended slot count word when present). It does not
// subtract any variable portion; callers combining this with a class's
// declared fixedVariableCount live in package class, which knows how to
// read Behavior instances.
func (h *Heap) GetFixedSlotCount(v object.Value) int {
	hdr := h.ReadHeader(v)
	if hdr.SlotCount != object.ExtendedSlotCount {
		return hdr.SlotCount
	}
	return int(h.readWord(v.Address() + uint64(object.HeaderSize)))
}

// ClassFixedSlotCount exposes the class table's fixed-slot-count callback
// (see ClassTable.SetFixedSlotCounter) to callers outside this package,
// such as the garbage collector, that need to split an indexable or
// compiled-method object's declared slot count into its fixed and
// variable portions.
func (h *Heap) ClassFixedSlotCount(classIndex uint32) int {
	return h.classes.fixedSlotCountFor(classIndex)
}

// ObjectSize returns the total number of bytes v's allocation occupies,
// including its forwarding slot, header, optional extended slot count
// word, and payload. For indexable and compiled-method formats this
// consults the class table to split the header's combined slot count into
// its fixed (pointer-width) and variable (element-width, word-rounded)
// portions (object.Calculate performs the mirror-image computation at
// allocation time).
func (h *Heap) ObjectSize(v object.Value) int {
	hdr := h.ReadHeader(v)
	slotCount := hdr.SlotCount
	extra := 0
	if slotCount == object.ExtendedSlotCount {
		slotCount = int(h.readWord(v.Address() + uint64(object.HeaderSize)))
		extra = object.WordSize
	}

	family := hdr.Format.Family()
	var payload int
	if !family.IsVariable() {
		payload = slotCount * object.WordSize
	} else {
		fixedCount := h.classes.fixedSlotCountFor(hdr.ClassIndex)
		variableCount := slotCount - fixedCount
		byteLength := object.IndexableByteLength(family, variableCount, hdr.Format.SubFormat())
		variableBytes := (byteLength + object.WordSize - 1) / object.WordSize * object.WordSize
		payload = fixedCount*object.WordSize + variableBytes
	}

	return object.ForwardingSlotSize + object.HeaderSize + extra + payload
}

// ReadHeader decodes the header word at v's address.
func (h *Heap) ReadHeader(v object.Value) object.Header {
	return object.DecodeHeader(h.readWord(v.Address()))
}

// WriteHeader re-encodes and stores hdr at v's address.
func (h *Heap) WriteHeader(v object.Value, hdr object.Header) {
	h.writeWord(v.Address(), hdr.Encode())
}

// slotsBase returns the byte offset of the first slot of v, accounting for
// the extended slot count word when present.
func (h *Heap) slotsBase(v object.Value) uint64 {
	hdr := h.ReadHeader(v)
	base := v.Address() + uint64(object.HeaderSize)
	if hdr.SlotCount == object.ExtendedSlotCount {
		base += object.WordSize
	}
	return base
}

// Slot reads the i-th pointer slot of v.
func (h *Heap) Slot(v object.Value, i int) object.Value {
	return object.Value(h.readWord(h.slotsBase(v) + uint64(i*object.WordSize)))
}

// SetSlot writes the i-th pointer slot of v.
func (h *Heap) SetSlot(v object.Value, i int, slot object.Value) {
	h.writeWord(h.slotsBase(v)+uint64(i*object.WordSize), uint64(slot))
}

// Bytes returns the indexable byte region of v (for the byte/word
// indexable formats and CompiledMethod's bytecode tail), as a direct slice
// into heap memory -- callers must not retain it across an allocation or
// GC cycle.
func (h *Heap) Bytes(v object.Value, byteOffset, length int) []byte {
	start := int(h.slotsBase(v)) + byteOffset
	return h.mem[start : start+length]
}

func (h *Heap) readWord(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(h.mem[addr : addr+8])
}

func (h *Heap) writeWord(addr uint64, w uint64) {
	binary.LittleEndian.PutUint64(h.mem[addr:addr+8], w)
}

// ReadWord and WriteWord expose raw word access for the GC's compaction
// passes, which must walk arbitrary header-aligned addresses rather than
// slot-relative offsets.
func (h *Heap) ReadWord(addr uint64) uint64       { return h.readWord(addr) }
func (h *Heap) WriteWord(addr uint64, w uint64)   { h.writeWord(addr, w) }
func (h *Heap) CopyBytes(dst, src uint64, n int)  { copy(h.mem[dst:dst+uint64(n)], h.mem[src:src+uint64(n)]) }
func (h *Heap) ZeroBytes(addr uint64, n int)      { clear(h.mem[addr : addr+uint64(n)]) }
func (h *Heap) SetCursor(c int)                   { h.mu.Lock(); h.cursor = c; h.mu.Unlock() }
func (h *Heap) Cursor() int                       { h.mu.Lock(); defer h.mu.Unlock(); return h.cursor }
