// Package errors provides structured error types for the VM.
//
// Errors are categorized by Phase (which subsystem raised it) and Kind
// (error category). Compile-time errors additionally carry a Path of
// [file, line] for diagnostics.
//
// Use the Builder for ad-hoc construction:
//
//	err := errors.New(errors.PhaseCompile, errors.KindUndeclaredIdentifier).
//		Path("foo.st", "12").
//		Detail("undeclared identifier %q", name).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DoesNotUnderstand("frobnicate:", 1)
//	err := errors.IndexOutOfBounds(10, 5)
//
// All errors implement the standard error interface and support errors.Is.
package errors
