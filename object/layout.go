package object

// WordSize is the machine word size in bytes this VM targets (64-bit only;
// spec.md §3 notes SmallFloat is absent on 32-bit targets, which this
// implementation does not support).
const WordSize = 8

// ForwardingSlotSize is the size in bytes of the forwarding-pointer slot
// every heap object reserves immediately before its header, used only
// during GC compaction (spec.md §3 invariant 7, §4.2 Pass 1/3).
const ForwardingSlotSize = WordSize

// Info describes the on-heap size of an object before allocation: how many
// bytes the allocator must reserve, and how that breaks down into fixed
// slots, a variable/indexable region, and whether an extended slot count
// word is needed. Mirrors the shape of a classic ABI layout calculator
// (fixed+variable sizing, alignment rounding) adapted to this heap's own
// fixed/variable Format rules instead of a WIT type system.
type Info struct {
	TotalBytes    int // forwarding slot + header [+ extended count] + slots
	FixedSlots    int
	VariableSlots int // trailing pointer or indexable slots
	NeedsExtended bool
	SubFormat     int // sub-format byte count for indexable formats
}

// Calculate computes the allocation Info for an object of the given
// format with fixedSlots fixed pointer slots and indexableSize additional
// bytes (for byte/word-indexable formats) or additional pointer slots (for
// variable-pointer formats).
//
// For pointer-indexable formats (Variable, VariableWithIvars, the weak
// variants) indexableSize is a slot COUNT. For the word-indexable formats
// (Indexable64/32/16/8, CompiledMethod) indexableSize is a BYTE count, and
// is divided by the format's word size per spec.md §4.1.
func Calculate(format Format, fixedSlots int, indexableSize int) Info {
	info := Info{FixedSlots: fixedSlots}

	variableSlots := 0
	variableBytes := 0
	switch {
	case format.IsVariable() && format.Family() != FormatIndexable64 &&
		format.Family() != FormatIndexable32 && format.Family() != FormatIndexable16 &&
		format.Family() != FormatIndexable8 && format.Family() != FormatCompiledMethod:
		// Variable/VariableWithIvars/weak-variable: indexableSize is a
		// pointer-slot count already, one word each.
		variableSlots = indexableSize
		variableBytes = indexableSize * WordSize
	case format.IsVariable():
		// Word-indexable and compiled-method formats: indexableSize is a
		// byte count. The header's declared slot count is at the format's
		// own element granularity (IndexableLayout/IndexableByteLength),
		// but the bytes actually committed in the heap are indexableSize
		// rounded up to a whole word, independent of element width.
		slots, sub := IndexableLayout(format, indexableSize)
		variableSlots = slots
		info.SubFormat = sub
		variableBytes = (indexableSize + WordSize - 1) / WordSize * WordSize
	}
	info.VariableSlots = variableSlots

	totalSlots := fixedSlots + variableSlots
	info.NeedsExtended = totalSlots >= ExtendedSlotCount

	size := ForwardingSlotSize + HeaderSize
	if info.NeedsExtended {
		size += WordSize // extended 64-bit slot count word
	}
	size += fixedSlots * WordSize
	size += variableBytes
	info.TotalBytes = size

	return info
}
