package bytecode

import "testing"

func TestSizeBanding(t *testing.T) {
	cases := []struct {
		op   Opcode
		want int
	}{
		{PushSelf, 1},
		{PushReceiverVariableShort.First, 1},
		{SpecialSelector.Last(), 1},
		{PushReceiverVariable, 2},
		{PopStoreTemporal, 2},
		{Send, 3},
		{SuperSend, 3},
		{Jump, 3},
		{PushClosure, 3},
	}
	for _, c := range cases {
		if got := c.op.Size(); got != c.want {
			t.Errorf("Opcode(%d).Size() = %d, want %d", c.op, got, c.want)
		}
	}
}

func TestRangeLast(t *testing.T) {
	if got, want := PushReceiverVariableShort.Last(), Opcode(15); got != want {
		t.Errorf("PushReceiverVariableShort.Last() = %d, want %d", got, want)
	}
	if got, want := JumpShort.Last(), Opcode(119); got != want {
		t.Errorf("JumpShort.Last() = %d, want %d", got, want)
	}
}

func TestNameNonEmptyForEveryAssignedOpcode(t *testing.T) {
	assigned := []rangeOf{
		PushReceiverVariableShort, PushLiteralVariableShort, PushLiteralShort, PushTempShort,
		SendShortArgs0, SendShortArgs1, SendShortArgs2,
		JumpShort, JumpOnTrueShort, JumpOnFalseShort,
		PopStoreReceiverVariableShort, PopStoreTemporalShort, SpecialSelector,
	}
	for _, r := range assigned {
		for i := 0; i < r.Size; i++ {
			op := r.First + Opcode(i)
			if op.Name() == "unsupported" {
				t.Errorf("opcode %d in range starting at %d has no name", op, r.First)
			}
		}
	}
	if PushSelf.Name() != "pushSelf" {
		t.Errorf("PushSelf.Name() = %q, want pushSelf", PushSelf.Name())
	}
}

func TestUnassignedOpcodeReportsUnsupported(t *testing.T) {
	if got := Opcode(245).Name(); got != "unsupported" {
		t.Errorf("reserved opcode 245 Name() = %q, want unsupported", got)
	}
}
