package stack

import (
	"sync"

	"github.com/lodtalk-go/vm/object"
)

// PageSize is one OS page's worth of tagged words (4 KiB / 8 bytes per
// word), matching original_source/vm/StackMemory.hpp's
// StackMemoryPageSize. Stack pages, not the heap, so this is independent
// of the heap's own allocation granularity.
const PageSize = 4096 / object.WordSize

// Page is one fixed-size stack page. Frame pointers and stack pointers
// never cross a page boundary mid-frame; a frame that would overflow its
// page is copied to a fresh page at the point of transition (see
// Memory.ActivateFrame and Memory.transition). Memory never sets prev or
// next: a frame's sender on an earlier page is reached through its
// married Context, not through a page link.
type Page struct {
	words      [PageSize]object.Value
	prev, next *Page
}

// PagePool recycles Page backing arrays across every stack Memory
// registered with a VM, adapting the sync.Pool buffer-reuse idea from the
// teacher's transcoder buffer pool (transcoder/pool.go) to fixed-size
// stack pages instead of flattened uint64 ABI-lowering buffers. A single
// pool is meant to be shared by every OS thread's Memory, the same way a
// real VM keeps one free-page list for all stack memories (spec.md §5).
type PagePool struct {
	mu   sync.Mutex
	free []*Page
}

func NewPagePool() *PagePool {
	return &PagePool{}
}

// Get returns a zeroed page, reusing a previously released one when
// available.
func (p *PagePool) Get() *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return &Page{}
	}
	page := p.free[n-1]
	p.free = p.free[:n-1]
	*page = Page{}
	return page
}

// Put releases page back to the pool once no frame remains in use on it
// (spec.md §4.4: "A page is returned to the free list once no frame
// remains in use").
func (p *PagePool) Put(page *Page) {
	page.prev, page.next = nil, nil
	p.mu.Lock()
	p.free = append(p.free, page)
	p.mu.Unlock()
}
