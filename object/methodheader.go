package object

// CompiledMethod header bit layout (spec.md §6's "Compiled method header
// word layout" table), numbered relative to the tagged word itself -- bit
// 0 is the SmallInteger tag bit EncodeSmallInteger already occupies, so
// every field below is expressed as a shift on the DECODED arithmetic
// value (one less than the word-relative bit the table names).
const (
	methodHeaderLiteralCountShift  = 0
	methodHeaderLiteralCountBits   = 16
	methodHeaderHasPrimitiveBit    = 16
	methodHeaderNeedsLargeFrameBit = 17
	methodHeaderTemporalCountShift = 18
	methodHeaderTemporalCountBits  = 6
	methodHeaderArgumentCountShift = 24
	methodHeaderArgumentCountBits  = 4
	methodHeaderFlagBit            = 29
	methodHeaderAltBytecodeSetBit  = 30
)

func bitMask(bits int) int64 { return 1<<uint(bits) - 1 }

// MethodHeader is the decoded form of a CompiledMethod's header word.
type MethodHeader struct {
	LiteralCount    int
	HasPrimitive    bool
	NeedsLargeFrame bool
	TemporalCount   int
	ArgumentCount   int
	Flag            bool
	AltBytecodeSet  bool
}

// EncodeMethodHeader packs h into the arithmetic value later stored as a
// tagged SmallInteger via EncodeSmallInteger.
func EncodeMethodHeader(h MethodHeader) int64 {
	n := int64(h.LiteralCount) & bitMask(methodHeaderLiteralCountBits) << methodHeaderLiteralCountShift
	if h.HasPrimitive {
		n |= 1 << methodHeaderHasPrimitiveBit
	}
	if h.NeedsLargeFrame {
		n |= 1 << methodHeaderNeedsLargeFrameBit
	}
	n |= int64(h.TemporalCount) & bitMask(methodHeaderTemporalCountBits) << methodHeaderTemporalCountShift
	n |= int64(h.ArgumentCount) & bitMask(methodHeaderArgumentCountBits) << methodHeaderArgumentCountShift
	if h.Flag {
		n |= 1 << methodHeaderFlagBit
	}
	if h.AltBytecodeSet {
		n |= 1 << methodHeaderAltBytecodeSetBit
	}
	return n
}

// DecodeMethodHeader unpacks a header word previously built by
// EncodeMethodHeader.
func DecodeMethodHeader(n int64) MethodHeader {
	return MethodHeader{
		LiteralCount:    int(n >> methodHeaderLiteralCountShift & bitMask(methodHeaderLiteralCountBits)),
		HasPrimitive:    n&(1<<methodHeaderHasPrimitiveBit) != 0,
		NeedsLargeFrame: n&(1<<methodHeaderNeedsLargeFrameBit) != 0,
		TemporalCount:   int(n >> methodHeaderTemporalCountShift & bitMask(methodHeaderTemporalCountBits)),
		ArgumentCount:   int(n >> methodHeaderArgumentCountShift & bitMask(methodHeaderArgumentCountBits)),
		Flag:            n&(1<<methodHeaderFlagBit) != 0,
		AltBytecodeSet:  n&(1<<methodHeaderAltBytecodeSetBit) != 0,
	}
}
