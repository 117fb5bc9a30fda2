// Package compiler turns one parsed method body (ast.MethodNode) into a
// class.CompiledMethod, following spec.md §4.3's two-pass design: a
// semantic analysis pass (analyze.go, scope.go) resolves every
// identifier and classifies every send, then an emission pass (emit.go,
// inline.go) drives a bytecode.Assembler to produce the final literal
// pool and bytecode.
package compiler
