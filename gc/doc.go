// Package gc implements the VM's mark-compact collector (spec.md §4.2):
// a four-pass cycle (Mark, Plan, Rewrite, Move) over the heap's linear
// object sequence, pinned roots registered by native Go code, and
// registered stack memories whose frames hold live Values.
package gc
