// Package stack implements per-thread interpreter stack memory: fixed-size
// pages of tagged words, frame layout addressed by fixed offsets
// from a frame pointer, and "marriage" of a live frame into a heap
// class.Context when it must become addressable as a first-class object.
// Grounded on spec.md §4.4 and original_source/vm/StackMemory.hpp/.cpp.
package stack
