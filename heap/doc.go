// Package heap implements the bump-allocated object heap and the paged
// class index table (spec.md §4.1). The heap reserves a large byte slice
// up front and commits space by simple resizing; GC compaction (package
// gc) moves objects within it and updates the bump cursor.
package heap
