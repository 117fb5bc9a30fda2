package bytecode

// Opcode is a single SistaV1-style instruction opcode byte.
type Opcode uint8

// rangeOf names one of the 16-wide (or, for the three short jump bands,
// 8-wide) short-form instruction ranges: its own opcode occupies
// First+n for n in [0, Size).
type rangeOf struct {
	First Opcode
	Size  int
}

func (r rangeOf) Last() Opcode { return r.First + Opcode(r.Size) - 1 }

// Single-byte opcode space: 0-223 (spec.md §6's short-form ranges, the
// 32 dedicated special-selector fast paths, and the handful of
// always-one-byte stack/return/prefix opcodes).
var (
	PushReceiverVariableShort     = rangeOf{0, 16}
	PushLiteralVariableShort      = rangeOf{16, 16}
	PushLiteralShort              = rangeOf{32, 16}
	PushTempShort                 = rangeOf{48, 16}
	SendShortArgs0                = rangeOf{64, 16}
	SendShortArgs1                = rangeOf{80, 16}
	SendShortArgs2                = rangeOf{96, 16}
	JumpShort                     = rangeOf{112, 8} // delta 1..8
	JumpOnTrueShort               = rangeOf{120, 8}  // delta 1..8
	JumpOnFalseShort              = rangeOf{128, 8}  // delta 1..8
	PopStoreReceiverVariableShort = rangeOf{136, 16}
	PopStoreTemporalShort         = rangeOf{152, 16}
	SpecialSelector               = rangeOf{168, 32}
)

const (
	PushSelf Opcode = 200 + iota
	PushThisContext
	PushNil
	PushTrue
	PushFalse
	PushSmallInteger0
	PushSmallInteger1
	DuplicateTop
	PopStackTop
	ReturnReceiver
	ReturnTrue
	ReturnFalse
	ReturnNil
	ReturnTop
	BlockReturnTop
	BlockReturnNil
)

// oneByteZoneEnd is the first opcode value requiring a 2-byte encoding
// (original_source/vm/BytecodeSets.cpp's getSistaBytecodeSize banding).
const oneByteZoneEnd = 224

// Two-byte opcode space: 224-246. Each of these is followed by exactly
// one immediate byte (ExtA/ExtB themselves included -- a prefix is a
// complete 2-byte unit, repeated as many times as the extended value
// needs).
const (
	ExtA Opcode = 224 + iota
	ExtB
	PushReceiverVariable
	PushLiteralVariable
	PushLiteral
	StoreReceiverVariable
	StoreLiteralVariable
	PushTemporal
	StoreTemporal
	PopStoreTemporal
	PushNewArray
	PushNewArrayWithElements
	PushNClosureTemps
	PushTemporalInVector
	StoreTemporalInVector
	PopStoreTemporalInVector
)

// twoByteZoneEnd is the first opcode value requiring a 3-byte encoding.
const twoByteZoneEnd = 247

// Three-byte opcode space: 247-255. Send and SuperSend live here rather
// than in the two-byte zone because their long form packs two extended
// operands (selector literal index, argument count) into two trailing
// bytes instead of one; PushClosure similarly needs a packed
// numArgs/numCopied byte plus a block-size byte; the long jump family
// carries a signed 16-bit delta across its two trailing bytes instead
// of an Ext-prefixed unsigned magnitude, since a branch delta can be
// negative.
const (
	PushClosure Opcode = 247 + iota
	Send
	SuperSend
	Jump
	JumpOnTrue
	JumpOnFalse
)

// Size returns the fixed encoded size this opcode's leading byte implies,
// per original_source/vm/BytecodeSets.cpp's getSistaBytecodeSize banding
// (a 2- or 3-byte opcode's trailing bytes are its own immediate data, not
// further opcodes).
func (op Opcode) Size() int {
	switch {
	case op < oneByteZoneEnd:
		return 1
	case op < twoByteZoneEnd:
		return 2
	default:
		return 3
	}
}

var opcodeNames = buildOpcodeNames()

func buildOpcodeNames() [256]string {
	var names [256]string
	nameRange := func(r rangeOf, label string) {
		for i := 0; i < r.Size; i++ {
			names[int(r.First)+i] = label
		}
	}
	nameRange(PushReceiverVariableShort, "pushReceiverVariableShort")
	nameRange(PushLiteralVariableShort, "pushLiteralVariableShort")
	nameRange(PushLiteralShort, "pushLiteralShort")
	nameRange(PushTempShort, "pushTempShort")
	nameRange(SendShortArgs0, "sendShort0")
	nameRange(SendShortArgs1, "sendShort1")
	nameRange(SendShortArgs2, "sendShort2")
	nameRange(JumpShort, "jumpShort")
	nameRange(JumpOnTrueShort, "jumpOnTrueShort")
	nameRange(JumpOnFalseShort, "jumpOnFalseShort")
	nameRange(PopStoreReceiverVariableShort, "popStoreReceiverVariableShort")
	nameRange(PopStoreTemporalShort, "popStoreTemporalShort")
	nameRange(SpecialSelector, "specialSelector")

	single := map[Opcode]string{
		PushSelf: "pushSelf", PushThisContext: "pushThisContext", PushNil: "pushNil",
		PushTrue: "pushTrue", PushFalse: "pushFalse", PushSmallInteger0: "pushSmallInteger0",
		PushSmallInteger1: "pushSmallInteger1", DuplicateTop: "duplicateTop", PopStackTop: "popStackTop",
		ReturnReceiver: "returnReceiver", ReturnTrue: "returnTrue", ReturnFalse: "returnFalse",
		ReturnNil: "returnNil", ReturnTop: "returnTop", BlockReturnTop: "blockReturnTop",
		BlockReturnNil: "blockReturnNil",
		ExtA:           "extA", ExtB: "extB",
		PushReceiverVariable: "pushReceiverVariable", PushLiteralVariable: "pushLiteralVariable",
		PushLiteral: "pushLiteral", StoreReceiverVariable: "storeReceiverVariable",
		StoreLiteralVariable: "storeLiteralVariable", PushTemporal: "pushTemporal",
		StoreTemporal: "storeTemporal", PopStoreTemporal: "popStoreTemporal",
		PushNewArray: "pushNewArray", PushNewArrayWithElements: "pushNewArrayWithElements",
		PushNClosureTemps: "pushNClosureTemps", Jump: "jump", JumpOnTrue: "jumpOnTrue",
		JumpOnFalse: "jumpOnFalse", PushTemporalInVector: "pushTemporalInVector",
		StoreTemporalInVector: "storeTemporalInVector", PopStoreTemporalInVector: "popStoreTemporalInVector",
		Send: "send", SuperSend: "superSend", PushClosure: "pushClosure",
	}
	for op, name := range single {
		names[op] = name
	}
	return names
}

// Name returns op's mnemonic, or "unsupported" for an opcode value this
// table leaves unassigned.
func (op Opcode) Name() string {
	if n := opcodeNames[op]; n != "" {
		return n
	}
	return "unsupported"
}
