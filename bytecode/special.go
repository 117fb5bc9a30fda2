package bytecode

// SpecialSelectors is the fixed 32-entry special-message-selector table
// spec.md §4.3.4/§4.4 refer to without enumerating: the compiler consults
// it to decide when a send can be emitted as a SpecialSelectorSend
// instead of an ordinary Send, and the interpreter consults the same
// table (by index, not by re-deriving it) to find each slot's inline
// fast path. Order is significant -- it IS the opcode numbering within
// the SpecialSelector range -- and must never change without
// recompiling every CompiledMethod that embeds a SpecialSelectorSend.
var SpecialSelectors = [32]struct {
	Selector string
	ArgCount int
}{
	{"+", 1},
	{"-", 1},
	{"<", 1},
	{">", 1},
	{"<=", 1},
	{">=", 1},
	{"=", 1},
	{"~=", 1},
	{"*", 1},
	{"/", 1},
	{"\\\\", 1},
	{"@", 1},
	{"bitShift:", 1},
	{"//", 1},
	{"bitAnd:", 1},
	{"bitOr:", 1},
	{"at:", 1},
	{"at:put:", 2},
	{"size", 0},
	{"class", 0},
	{"~~", 1},
	{"==", 1},
	{"value", 0},
	{"value:", 1},
	{"do:", 1},
	{"new", 0},
	{"new:", 1},
	{"isNil", 0},
	{"notNil", 0},
	{"ifNil:", 1},
	{"ifNotNil:", 1},
	{",", 1},
}

// SpecialSelectorIndex returns the SpecialSelectors index matching
// selector and argCount, or ok=false if the send has no dedicated fast
// path and must go through an ordinary Send.
func SpecialSelectorIndex(selector string, argCount int) (index int, ok bool) {
	for i, s := range SpecialSelectors {
		if s.Selector == selector && s.ArgCount == argCount {
			return i, true
		}
	}
	return 0, false
}
