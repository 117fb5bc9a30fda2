package gc

import "github.com/lodtalk-go/vm/object"

// StackWalker is implemented by anything holding live Values the
// collector must both mark through and rewrite during compaction --
// chiefly a stack memory's frames (package stack). WalkRoots must call
// yield once per live root slot; the collector both reads through the
// pointer (to mark) and writes through it (to rewrite after compaction),
// so slots must be the walker's own backing storage, not copies.
type StackWalker interface {
	WalkRoots(yield func(slot *object.Value))
}

// RegisterRoot pins slot as a GC root: its current value is marked, and
// it is rewritten in place if it points at an object that moves.
// Grounded on original_source/vm/MemoryManager.cpp's
// registerGCRoot/unregisterGCRoot (an OopRef doubly-linked list there;
// a plain identity-scanned slice here, since root counts are small and
// registration is rare compared to lookup).
func (c *Collector) RegisterRoot(slot *object.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = append(c.refs, slot)
}

// UnregisterRoot removes a previously registered root slot.
func (c *Collector) UnregisterRoot(slot *object.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.refs {
		if r == slot {
			c.refs = append(c.refs[:i], c.refs[i+1:]...)
			return
		}
	}
}

// RegisterStackWalker adds w's frames to the root set.
func (c *Collector) RegisterStackWalker(w StackWalker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stackWalkers = append(c.stackWalkers, w)
}

// UnregisterStackWalker removes w from the root set.
func (c *Collector) UnregisterStackWalker(w StackWalker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.stackWalkers {
		if s == w {
			c.stackWalkers = append(c.stackWalkers[:i], c.stackWalkers[i+1:]...)
			return
		}
	}
}

// RegisterNative pins v alive across collections even though nothing in
// the ordinary root set references it (e.g. a bootstrap object held only
// by a native data structure the VM doesn't expose as a root slot). v's
// own slots are kept current as it is compacted; callers needing the
// post-collection address should re-fetch it via NativeValue.
func (c *Collector) RegisterNative(v object.Value) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.natives = append(c.natives, v)
	return len(c.natives) - 1
}

// NativeValue returns the current (possibly rewritten) value of a
// RegisterNative'd object by the index RegisterNative returned.
func (c *Collector) NativeValue(index int) object.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.natives[index]
}
