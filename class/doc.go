// Package class implements the built-in entity shapes of spec.md §3
// (Behavior, ClassDescription, Class, Metaclass, MethodDictionary,
// Association) as typed views over heap objects, plus a fluent builder for
// declaring classes and populating their method dictionaries. Grounded on
// original_source/include/Lodtalk/{ClassBuilder,ClassFactory}.hpp and
// vm/ClassBuilder.cpp.
package class
