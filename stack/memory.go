package stack

import (
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/object"
)

// largeContextWatermark is the remaining-capacity threshold (in words)
// below which an about-to-be-activated frame triggers a page transition
// rather than risk running off the end of the page (spec.md §4.4 "Stack
// pages"). Sized generously above the reserved-slot count of a frame with
// no arguments (six words) plus headroom for a typical method body's
// temporaries and operand stack.
const largeContextWatermark = 48

// Memory is one OS thread's interpreter stack, held one fixed page at a
// time, only ever touched by the goroutine that owns it (spec.md §5:
// "Stack memory: thread-local; never shared"). Grounded on
// original_source/vm/StackMemory.hpp's StackMemory class.
type Memory struct {
	Heap *class.Registry // for marrying frames into Context objects
	pool *PagePool

	page *Page
	fp   int // current frame pointer index; noPrevFP before any frame
	sp   int // current stack pointer index; PageSize before any push
}

// NewMemory creates a fresh stack memory backed by pool, with an empty
// top-level frame state (no frame activated yet -- suitable for a do-it
// or the script host's top-level statement evaluation, which pushes
// values directly without a method activation).
func NewMemory(registry *class.Registry, pool *PagePool) *Memory {
	return &Memory{
		Heap: registry,
		pool: pool,
		page: pool.Get(),
		fp:   noPrevFP,
		sp:   PageSize,
	}
}

// Push pushes v onto the operand stack.
func (m *Memory) Push(v object.Value) {
	m.sp--
	m.page.words[m.sp] = v
}

// Pop pops and returns the top of the operand stack.
func (m *Memory) Pop() object.Value {
	v := m.page.words[m.sp]
	m.sp++
	return v
}

// Top returns the top of the operand stack without popping it.
func (m *Memory) Top() object.Value { return m.page.words[m.sp] }

// At returns the operand stack value offset words below the top (spec.md
// §4.4 send protocol: "Receiver is the stack slot argCount below the
// top").
func (m *Memory) At(offsetFromTop int) object.Value { return m.page.words[m.sp+offsetFromTop] }

// PopN discards the top n operand stack values.
func (m *Memory) PopN(n int) { m.sp += n }

// AvailableCapacity is the number of free words remaining below the
// current stack pointer on the current page.
func (m *Memory) AvailableCapacity() int { return m.sp }

// CurrentFrame returns a view over the currently active frame. Calling it
// before any frame has been activated is a caller error.
func (m *Memory) CurrentFrame() Frame { return Frame{page: m.page, fp: m.fp} }

// HasFrame reports whether any frame is currently activated on this
// memory.
func (m *Memory) HasFrame() bool { return m.fp != noPrevFP }

// ActivateFrame pushes args (left to right; stored right-to-left per
// spec.md §4.4) and establishes a new frame above them, becoming the
// current frame. callerPC is the bytecode offset execution resumes at in
// the calling frame once this one returns (0 for a terminal/top-level
// activation). If the page has fallen below the large-context watermark,
// the previously-current frame is first relocated to a fresh page and
// married (spec.md §4.4 "Stack pages"); pc is the bytecode offset
// currently executing in that relocated frame, needed only for the
// Context's pc field and supplied by the caller since only the
// interpreter's dispatch loop tracks it.
func (m *Memory) ActivateFrame(method, receiver object.Value, args []object.Value, isBlock bool, callerPC, currentPC int64) (Frame, error) {
	if m.sp-len(args) < largeContextWatermark {
		if err := m.transition(currentPC); err != nil {
			return Frame{}, err
		}
	}

	for _, a := range args {
		m.Push(a)
	}

	newFP := m.sp - offsetLastArgument
	f := Frame{page: m.page, fp: newFP}
	f.setPrevFramePointer(m.fp)
	f.SetReturnPC(callerPC)
	f.SetMethod(method)
	f.setMetadata(len(args), isBlock, false)
	f.SetThisContext(object.Nil)
	f.SetReceiver(receiver)

	m.sp = newFP + offsetReceiver
	m.fp = newFP
	return f, nil
}

// ExitInfo reports what a popped frame needs the interpreter to resume:
// where to jump back to, and whether a sender remains reachable only
// through a married Context (because this frame's page boundary was
// reached and the raw previous-frame-pointer link was cleared).
type ExitInfo struct {
	ReturnPC     int64
	HasPrevFrame bool
	WasMarried   bool
	Context      object.Value
}

// PopFrame pops the current frame, discards its arguments and receiver,
// and pushes result in their place -- spec.md §4.4 "Returns": "pop the
// frame (restore previous FP, pop PC, drop arguments and receiver, push
// result)".
func (m *Memory) PopFrame(result object.Value) (ExitInfo, error) {
	if m.fp == noPrevFP {
		return ExitInfo{}, errNoActiveFrame
	}
	cur := Frame{page: m.page, fp: m.fp}
	argCount, _, hasContext := cur.Metadata()
	info := ExitInfo{
		ReturnPC: cur.ReturnPC(),
	}
	if hasContext {
		info.WasMarried = true
		info.Context = cur.ThisContext()
	}

	prevFP, hasPrev := cur.PrevFramePointer()
	info.HasPrevFrame = hasPrev

	m.sp = cur.fp + offsetLastArgument + argCount
	if hasPrev {
		m.fp = prevFP
	} else {
		m.fp = noPrevFP
	}
	m.Push(result)
	return info, nil
}

// Marry ensures the current frame is addressable as a first-class
// Context, allocating one and copying the frame's live fields into it if
// this has not already happened. pc is the bytecode offset currently
// executing in the frame, supplied by the interpreter (the frame layout
// itself has no pc slot -- it is one of the dispatch loop's own
// registers per spec.md §4.4 "Execution model"). Returns the (possibly
// pre-existing) Context.
func (m *Memory) Marry(pc int64) (object.Value, error) {
	if m.fp == noPrevFP {
		return object.Nil, errNoActiveFrame
	}
	f := Frame{page: m.page, fp: m.fp}
	if _, _, hasContext := f.Metadata(); hasContext {
		return f.ThisContext(), nil
	}
	ctx, err := marryFrame(m.Heap, f, m.sp, pc)
	if err != nil {
		return object.Nil, err
	}
	f.setHasContext(true)
	f.SetThisContext(ctx)
	return ctx, nil
}

// marryFrame allocates a Context mirroring f's live state: its method,
// receiver, and the operand-stack/temporary region from topIndex down to
// f's receiver slot (exclusive), per spec.md §4.4 "Frame marriage".
func marryFrame(registry *class.Registry, f Frame, topIndex int, pc int64) (object.Value, error) {
	dataCount := f.fp + offsetFirstTemp - topIndex + 1
	if dataCount < 0 {
		dataCount = 0
	}
	ctx, err := class.NewContext(registry.Heap, dataCount)
	if err != nil {
		return object.Nil, err
	}
	ctx.SetMethod(f.Method())
	ctx.SetReceiver(f.Receiver())
	ctx.SetPC(object.EncodeSmallInteger(pc))
	for i := 0; i < dataCount; i++ {
		ctx.SetData(i, *f.temp(i))
	}
	return ctx.Value, nil
}

// transition relocates the current frame (and, if the current page holds
// no earlier frame, retires the page) to a fresh page, clearing the
// relocated frame's previous-frame-pointer and marrying both it and its
// prior frame so the sender chain survives the page boundary (spec.md
// §4.4 "Stack pages"; invariant 7 in spec.md §8: "the destination frame's
// previous-frame-pointer is null and both the moved frame and its prior
// frame are married with linked contexts").
func (m *Memory) transition(currentPC int64) error {
	cur := Frame{page: m.page, fp: m.fp}
	if m.fp == noPrevFP {
		// No frame activated yet (a do-it at the very start of a stack
		// memory's life): nothing to relocate, just swap pages.
		old := m.page
		m.page = m.pool.Get()
		m.sp = PageSize
		m.pool.Put(old)
		return nil
	}

	argCount, _, _ := cur.Metadata()
	frameTop := cur.fp + offsetLastArgument + argCount
	width := frameTop - m.sp

	newPage := m.pool.Get()
	copy(newPage.words[:width], m.page.words[m.sp:frameTop])
	shift := m.sp
	newFP := cur.fp - shift

	relocated := Frame{page: newPage, fp: newFP}
	relocated.setPrevFramePointer(noPrevFP)

	curCtx, err := marryFrame(m.Heap, relocated, 0, currentPC)
	if err != nil {
		return err
	}
	relocated.setHasContext(true)
	relocated.SetThisContext(curCtx)

	prevFP, hasPrev := cur.PrevFramePointer()
	if hasPrev {
		prior := Frame{page: m.page, fp: prevFP}
		// The prior (suspended caller) frame's own operand stack top is
		// bounded above by cur's fp+2 -- that's exactly where it left off
		// pushing cur's arguments before the call (original's
		// getPreviousFrame mirrors this: the returned frame's stack
		// pointer is the CALLEE's frame pointer plus LastArgumentOffset,
		// not the prior frame's own fp).
		priorTop := cur.fp + offsetLastArgument
		priorCtx, err := marryFrame(m.Heap, prior, priorTop, prior.ReturnPC())
		if err != nil {
			return err
		}
		prior.setHasContext(true)
		prior.SetThisContext(priorCtx)
		class.AsContext(m.Heap.Heap, curCtx).SetSender(priorCtx)
	} else {
		m.pool.Put(m.page)
	}

	m.page = newPage
	m.fp = newFP
	m.sp = 0
	return nil
}

var errNoActiveFrame = errors.Invariant(errors.PhaseDispatch, "stack memory has no active frame")

// WalkRoots implements gc.StackWalker: it yields every live oop slot
// across every frame on this memory's current page, from the innermost
// frame's operand stack top up through each ancestor's reserved fields
// (spec.md §4.4's oopElementsDo-equivalent walk). Frames beyond a page
// boundary are not walked here -- their roots are already covered via
// their married Context, itself reachable (and walked) as an ordinary
// heap object through whichever root holds it live (spec.md §3
// "marriage").
func (m *Memory) WalkRoots(yield func(slot *object.Value)) {
	if m.fp == noPrevFP {
		return
	}
	top := m.sp
	fp := m.fp
	for {
		f := Frame{page: m.page, fp: fp}
		yield(f.slot(offsetMethod))
		yield(f.slot(offsetThisContext))
		for i := top; i <= fp+offsetReceiver; i++ {
			yield(&m.page.words[i])
		}

		prevFP, hasPrev := f.PrevFramePointer()
		if !hasPrev {
			// No caller on this page walks the oldest frame's arguments
			// as its own operand stack, so yield them here.
			argCount, _, _ := f.Metadata()
			for i := fp + offsetLastArgument; i < fp+offsetLastArgument+argCount; i++ {
				yield(&m.page.words[i])
			}
			return
		}
		top = fp + offsetLastArgument
		fp = prevFP
	}
}
