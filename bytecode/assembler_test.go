package bytecode

import (
	"testing"

	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
)

func newTestHeap(t *testing.T) *heap.Heap {
	t.Helper()
	return heap.New(heap.Config{ReservedBytes: 1 << 20})
}

func TestAddLiteralDeduplicatesByIdentity(t *testing.T) {
	a := NewAssembler(newTestHeap(t))
	v := object.EncodeSmallInteger(42)
	i1 := a.addLiteral(v)
	i2 := a.addLiteral(v)
	if i1 != i2 {
		t.Errorf("addLiteral returned different indices for the same value: %d, %d", i1, i2)
	}
	if got := len(a.literals); got != 1 {
		t.Errorf("literal pool has %d entries, want 1", got)
	}

	i3 := a.addLiteralAlways(v)
	if i3 == i1 {
		t.Errorf("addLiteralAlways reused an existing index")
	}
	if got := len(a.literals); got != 2 {
		t.Errorf("literal pool has %d entries after addLiteralAlways, want 2", got)
	}
}

func TestGeneratePushSelfReturnTop(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	a.PushSelf()
	a.ReturnTop()

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []byte{byte(PushSelf), byte(ReturnTop)}
	got := m.Bytecode()
	if string(got) != string(want) {
		t.Errorf("Bytecode() = %v, want %v", got, want)
	}

	hdr := m.Header()
	if hdr.ArgumentCount != 0 || hdr.TemporalCount != 0 {
		t.Errorf("Header() = %+v, want argumentCount=0 temporalCount=0", hdr)
	}
}

func TestGenerateShortSend(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	selIdx := a.addLiteral(object.EncodeSmallInteger(1)) // stand-in for a selector symbol
	a.PushSelf()
	a.Send(selIdx, 0)
	a.ReturnTop()

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []byte{byte(PushSelf), byte(SendShortArgs0.First) + byte(selIdx), byte(ReturnTop)}
	if got := m.Bytecode(); string(got) != string(want) {
		t.Errorf("Bytecode() = %v, want %v", got, want)
	}
}

func TestGenerateLongSendWhenSelectorIndexOverflowsShortRange(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	for i := 0; i < 20; i++ {
		a.addLiteralAlways(object.EncodeSmallInteger(int64(i)))
	}
	selIdx := 19 // beyond SendShortArgs0's 16-wide range
	a.PushSelf()
	a.Send(selIdx, 0)
	a.ReturnTop()

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bc := m.Bytecode()
	if bc[0] != byte(PushSelf) {
		t.Fatalf("bc[0] = %d, want PushSelf", bc[0])
	}
	if Opcode(bc[1]) != Send {
		t.Errorf("long send opcode = %d, want Send (%d)", bc[1], Send)
	}
	if bc[2] != byte(selIdx) {
		t.Errorf("send selector low byte = %d, want %d", bc[2], selIdx)
	}
	if bc[3] != 0 {
		t.Errorf("send argCount low byte = %d, want 0", bc[3])
	}
	if bc[len(bc)-1] != byte(ReturnTop) {
		t.Errorf("last byte = %d, want ReturnTop", bc[len(bc)-1])
	}
}

func TestGenerateForwardJumpShortForm(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	end := a.MakeLabel()
	a.PushNil()
	a.Jump(end)
	a.PushTrue()
	a.PutLabel(end)
	a.ReturnTop()

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []byte{byte(PushNil), byte(JumpShort.First) + byte(0), byte(PushTrue), byte(ReturnTop)}
	if got := m.Bytecode(); string(got) != string(want) {
		t.Errorf("Bytecode() = %v, want %v", got, want)
	}
}

func TestGenerateBackwardJumpLongForm(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	loop := a.MakeLabelHere()
	a.PushNil()
	a.PopStackTop()
	a.Jump(loop)

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bc := m.Bytecode()
	// PushNil(1) + PopStackTop(1) + long Jump(3) = 5 bytes; jump back to
	// offset 0 from just past itself at offset 5: delta = -5.
	if len(bc) != 5 {
		t.Fatalf("len(bc) = %d, want 5", len(bc))
	}
	if Opcode(bc[2]) != Jump {
		t.Fatalf("bc[2] = %d, want Jump (%d)", bc[2], Jump)
	}
	delta := int16(bc[3])<<8 | int16(bc[4])
	if delta != -5 {
		t.Errorf("decoded delta = %d, want -5", delta)
	}
}

func TestPushClosureEncodesPackedHeader(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	a.PushClosure(2, 1, 10)
	a.ReturnTop()

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bc := m.Bytecode()
	if Opcode(bc[0]) != PushClosure {
		t.Fatalf("bc[0] = %d, want PushClosure (%d)", bc[0], PushClosure)
	}
	if bc[1] != byte(2<<4|1) {
		t.Errorf("packed numArgs/numCopied byte = %d, want %d", bc[1], byte(2<<4|1))
	}
	if bc[2] != 10 {
		t.Errorf("block size byte = %d, want 10", bc[2])
	}
}

func TestPushClosureUntilComputesBlockSizeFromLabel(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	bodyEnd := a.MakeLabel()
	a.PushClosureUntil(0, 0, bodyEnd)
	a.PushSelf()
	a.BlockReturnTop()
	a.PutLabel(bodyEnd)
	a.ReturnTop()

	m, err := a.Generate(0, 0, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []byte{byte(PushClosure), 0, 2, byte(PushSelf), byte(BlockReturnTop), byte(ReturnTop)}
	if got := m.Bytecode(); string(got) != string(want) {
		t.Errorf("Bytecode() = %v, want %v", got, want)
	}
}

func TestGenerateTemporalInVectorOps(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	a.PushTemporalInVector(2)
	a.StoreTemporalInVector(0)
	a.PopStoreTemporalInVector(1)
	a.ReturnTop()

	m, err := a.Generate(0, 3, false, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []byte{
		byte(PushTemporalInVector), 2,
		byte(StoreTemporalInVector), 0,
		byte(PopStoreTemporalInVector), 1,
		byte(ReturnTop),
	}
	if got := m.Bytecode(); string(got) != string(want) {
		t.Errorf("Bytecode() = %v, want %v", got, want)
	}
}

func TestGenerateRejectsOutOfRangeHeaderFields(t *testing.T) {
	h := newTestHeap(t)
	a := NewAssembler(h)
	a.ReturnTop()
	if _, err := a.Generate(16, 0, false, false); err == nil {
		t.Errorf("Generate with argumentCount=16 should fail")
	}
	a2 := NewAssembler(h)
	a2.ReturnTop()
	if _, err := a2.Generate(0, 64, false, false); err == nil {
		t.Errorf("Generate with temporalCount=64 should fail")
	}
}
