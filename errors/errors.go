// Package errors provides the structured error type used across the VM.
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which subsystem raised the error.
type Phase string

const (
	PhaseAlloc     Phase = "alloc"     // heap allocation / class table
	PhaseGC        Phase = "gc"        // garbage collection
	PhaseCompile   Phase = "compile"   // semantic analysis
	PhaseAssemble  Phase = "assemble"  // bytecode assembly
	PhaseDispatch  Phase = "dispatch"  // interpreter send / frame activation
	PhasePrimitive Phase = "primitive" // primitive invocation
	PhaseScript    Phase = "script"    // script host class/method binding
)

// Kind categorizes the error within its phase.
type Kind string

const (
	KindOutOfMemory          Kind = "out_of_memory"
	KindInvariant            Kind = "invariant_violation"
	KindUndeclaredIdentifier Kind = "undeclared_identifier"
	KindImmutableAssignment  Kind = "immutable_assignment"
	KindDuplicateArgument    Kind = "duplicate_argument"
	KindBadArity             Kind = "bad_arity"
	KindDoesNotUnderstand    Kind = "does_not_understand"
	KindMustBeBoolean        Kind = "must_be_boolean"
	KindNonLocalReturn       Kind = "non_local_return"
	KindIndexOutOfBounds     Kind = "index_out_of_bounds"
	KindPrimitiveFailed      Kind = "primitive_failed"
	KindClassNotFound        Kind = "class_not_found"
	KindMethodNotFound       Kind = "method_not_found"
	KindInvalidInput         Kind = "invalid_input"
)

// Error is the structured error type used throughout the VM.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string // e.g. [file, line] for compile errors
	Value  any
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, ":"))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by Phase and Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New starts building an error for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns.

// OutOfMemory creates an allocation-failure error.
func OutOfMemory(requested, available int) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("requested %d bytes, %d available in reserved heap", requested, available),
	}
}

// Invariant creates a native-error invariant violation (fail-fast).
func Invariant(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvariant,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// CompileError creates a compile-time error with a file/line path.
func CompileError(kind Kind, file string, line int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   kind,
		Path:   []string{file, fmt.Sprintf("%d", line)},
		Detail: fmt.Sprintf(detail, args...),
	}
}

// DoesNotUnderstand creates the language-level doesNotUnderstand: error.
func DoesNotUnderstand(selector string, argCount int) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindDoesNotUnderstand,
		Detail: fmt.Sprintf("does not understand #%s (%d args)", selector, argCount),
		Value:  selector,
	}
}

// MustBeBoolean creates the mustBeBoolean trap error.
func MustBeBoolean(className string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindMustBeBoolean,
		Detail: fmt.Sprintf("%s does not understand mustBeBoolean", className),
	}
}

// NonLocalReturn creates the dead-home-context non-local-return error.
func NonLocalReturn(detail string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNonLocalReturn,
		Detail: detail,
	}
}

// IndexOutOfBounds creates an out-of-bounds indexing error.
func IndexOutOfBounds(index, length int) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindIndexOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// PrimitiveFailed creates a primitive-failure error (recovered locally by
// falling through into the method's bytecode body).
func PrimitiveFailed(index int, reason string) *Error {
	return &Error{
		Phase:  PhasePrimitive,
		Kind:   KindPrimitiveFailed,
		Detail: fmt.Sprintf("primitive %d failed: %s", index, reason),
		Value:  index,
	}
}

// ClassNotFound creates a script-host class lookup error.
func ClassNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseScript,
		Kind:   KindClassNotFound,
		Detail: fmt.Sprintf("class %q not found", name),
		Value:  name,
	}
}

// MethodNotFound creates a script-host method lookup error.
func MethodNotFound(class, selector string) *Error {
	return &Error{
		Phase:  PhaseScript,
		Kind:   KindMethodNotFound,
		Detail: fmt.Sprintf("%s>>#%s not found", class, selector),
	}
}

// InvalidInput creates a generic invalid-input error for a phase.
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf(detail, args...),
	}
}
