package object

// Format distinguishes the slot layout of a heap object, stored in the
// 5-bit objectFormat field of its Header (spec.md §3). For the indexable
// families the wire value also carries a sub-format code (the unused
// element count in the last word, at that family's element granularity)
// packed into the same 5 bits, so the exact byte length of an indexable
// object is always recoverable from the header alone. Family() strips the
// sub-format back off; the exported Format* constants below are each
// family's zero-sub-format representative, which is what callers pass
// when describing the format they want.
type Format uint8

const (
	FormatEmpty             Format = iota // no slots at all (e.g. UndefinedObject)
	FormatFixed                           // fixed pointer slots only
	FormatVariable                        // variable pointer slots, no fixed ivars
	FormatVariableWithIvars               // fixed ivars followed by variable pointer slots
	FormatWeakVariable                    // variable pointer slots, cleared on GC if unmarked
	FormatWeakFixed                       // fixed pointer slots, cleared on GC if unmarked

	formatIndexable64Base // + 1 sub-format code (64-bit elements always fill a whole word)
)

const (
	formatIndexable32Base    Format = formatIndexable64Base + 1 // + 2 sub-format codes
	formatIndexable16Base    Format = formatIndexable32Base + 2 // + 4 sub-format codes
	formatIndexable8Base     Format = formatIndexable16Base + 4 // + 8 sub-format codes
	formatCompiledMethodBase Format = formatIndexable8Base + 8  // + 8 sub-format codes
	formatMax                Format = formatCompiledMethodBase + 8
)

// Exported family representatives (sub-format 0).
const (
	FormatIndexable64    = formatIndexable64Base
	FormatIndexable32    = formatIndexable32Base
	FormatIndexable16    = formatIndexable16Base
	FormatIndexable8     = formatIndexable8Base
	FormatCompiledMethod = formatCompiledMethodBase
)

// Family strips any packed sub-format code off f, returning the plain
// family value (one of the exported Format* constants).
func (f Format) Family() Format {
	family, _ := f.split()
	return family
}

// SubFormat returns the sub-format code packed into f (0 for non-indexable
// families).
func (f Format) SubFormat() int {
	_, sub := f.split()
	return sub
}

// WithSubFormat packs sub (0-7, range depends on family) onto f's family.
func (f Format) WithSubFormat(sub int) Format {
	return f.Family() + Format(sub)
}

func (f Format) split() (family Format, subFormat int) {
	switch {
	case f < formatIndexable64Base:
		return f, 0
	case f < formatIndexable32Base:
		return FormatIndexable64, int(f - formatIndexable64Base)
	case f < formatIndexable16Base:
		return FormatIndexable32, int(f - formatIndexable32Base)
	case f < formatIndexable8Base:
		return FormatIndexable16, int(f - formatIndexable16Base)
	case f < formatCompiledMethodBase:
		return FormatIndexable8, int(f - formatIndexable8Base)
	default:
		return FormatCompiledMethod, int(f - formatCompiledMethodBase)
	}
}

// IsPointerFormat reports whether slots of this format are scanned as
// pointers by the GC mark pass.
func (f Format) IsPointerFormat() bool {
	switch f.Family() {
	case FormatFixed, FormatVariable, FormatVariableWithIvars,
		FormatWeakVariable, FormatWeakFixed:
		return true
	default:
		return false
	}
}

// IsWeak reports whether slots of this format are weak references,
// cleared by the GC when their target was not marked (spec.md §4.2).
func (f Format) IsWeak() bool {
	family := f.Family()
	return family == FormatWeakVariable || family == FormatWeakFixed
}

// IsVariable reports whether instances of this format carry a variable
// number of trailing slots, in addition to any fixed slots the class
// declares.
func (f Format) IsVariable() bool {
	switch f.Family() {
	case FormatVariable, FormatVariableWithIvars, FormatWeakVariable,
		FormatIndexable64, FormatIndexable32, FormatIndexable16,
		FormatIndexable8, FormatCompiledMethod:
		return true
	default:
		return false
	}
}

// BytesPerIndexableWord returns how many bytes one indexable element
// occupies for the indexable formats, or 8 (a full pointer word) for
// pointer formats where the concept does not otherwise apply.
func (f Format) BytesPerIndexableWord() int {
	switch f.Family() {
	case FormatIndexable64:
		return 8
	case FormatIndexable32:
		return 4
	case FormatIndexable16:
		return 2
	case FormatIndexable8, FormatCompiledMethod:
		return 1
	default:
		return 8
	}
}

// IndexableLayout computes the slot count and the sub-format code needed
// to store indexableSize bytes in the given non-pointer format. The slot
// count is at the format's element granularity: indexableSize divided by
// BytesPerIndexableWord(format), rounded up. The sub-format is the count
// of unused bytes in the last element, so it is always 0 for the
// byte-oriented formats (8-bit, CompiledMethod).
func IndexableLayout(format Format, indexableSize int) (slotCount int, subFormat int) {
	div := format.BytesPerIndexableWord()
	if div <= 0 {
		div = 1
	}
	slotCount = (indexableSize + div - 1) / div
	used := indexableSize % div
	if used == 0 {
		subFormat = 0
	} else {
		subFormat = div - used
	}
	return
}

// IndexableByteLength recovers the exact byte length of an indexable
// object from its header's slotCount, format and subFormat, per spec.md §3
// ("exact byte length is recoverable from header alone").
func IndexableByteLength(format Format, slotCount int, subFormat int) int {
	div := format.BytesPerIndexableWord()
	if slotCount == 0 {
		return 0
	}
	return slotCount*div - subFormat
}

func (f Format) String() string {
	switch f.Family() {
	case FormatEmpty:
		return "empty"
	case FormatFixed:
		return "fixed"
	case FormatVariable:
		return "variable"
	case FormatVariableWithIvars:
		return "variableWithIvars"
	case FormatWeakVariable:
		return "weakVariable"
	case FormatWeakFixed:
		return "weakFixed"
	case FormatIndexable64:
		return "indexable64"
	case FormatIndexable32:
		return "indexable32"
	case FormatIndexable16:
		return "indexable16"
	case FormatIndexable8:
		return "indexable8"
	case FormatCompiledMethod:
		return "compiledMethod"
	default:
		return "unknown"
	}
}
