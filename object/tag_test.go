package object

import "testing"

func TestSmallIntegerRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 42, -42, SmallIntegerMax, SmallIntegerMin, 1 << 30, -(1 << 30)}
	for _, n := range cases {
		v := EncodeSmallInteger(n)
		if KindOf(v) != KindSmallInteger {
			t.Fatalf("EncodeSmallInteger(%d): kind = %v, want SmallInteger", n, KindOf(v))
		}
		got := DecodeSmallInteger(v)
		if got != n {
			t.Errorf("round trip %d -> %d", n, got)
		}
	}
}

func TestCharacterRoundTrip(t *testing.T) {
	cases := []rune{'a', 'Z', '0', ' ', '€', 0}
	for _, c := range cases {
		v := EncodeCharacter(c)
		if KindOf(v) != KindCharacter {
			t.Fatalf("EncodeCharacter(%q): kind = %v, want Character", c, KindOf(v))
		}
		if got := DecodeCharacter(v); got != c {
			t.Errorf("round trip %q -> %q", c, got)
		}
	}
}

func TestSmallFloatRoundTrip(t *testing.T) {
	cases := []float64{0.5, 1.0, -1.0, 3.14159, -123.456, 1e10, -1e-10}
	for _, f := range cases {
		v, ok := EncodeSmallFloat(f)
		if !ok {
			t.Fatalf("EncodeSmallFloat(%v): expected ok", f)
		}
		if KindOf(v) != KindSmallFloat {
			t.Fatalf("EncodeSmallFloat(%v): kind = %v, want SmallFloat", f, KindOf(v))
		}
		if got := DecodeSmallFloat(v); got != f {
			t.Errorf("round trip %v -> %v", f, got)
		}
	}
}

func TestSmallFloatRejectsSpecialValues(t *testing.T) {
	for _, f := range []float64{0.0} {
		if _, ok := EncodeSmallFloat(f); ok {
			t.Errorf("EncodeSmallFloat(%v): expected not ok (zero exponent)", f)
		}
	}
}

func TestPointerTagIsZero(t *testing.T) {
	v := PointerValue(0x1000)
	if KindOf(v) != KindPointer {
		t.Fatalf("kind = %v, want pointer", KindOf(v))
	}
	if v.Address() != 0x1000 {
		t.Errorf("Address() = %#x, want 0x1000", v.Address())
	}
}

func TestIndexableByteLengthRoundTrip(t *testing.T) {
	cases := []struct {
		format Format
		size   int
	}{
		{FormatIndexable8, 0},
		{FormatIndexable8, 1},
		{FormatIndexable8, 17},
		{FormatIndexable32, 4},
		{FormatIndexable32, 10},
		{FormatIndexable64, 24},
		{FormatCompiledMethod, 33},
	}
	for _, c := range cases {
		slots, sub := IndexableLayout(c.format, c.size)
		got := IndexableByteLength(c.format, slots, sub)
		if got != c.size {
			t.Errorf("format=%v size=%d: slots=%d sub=%d -> recovered %d", c.format, c.size, slots, sub, got)
		}
	}
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		SlotCount:    12,
		IsImmutable:  true,
		IsPinned:     false,
		IdentityHash: 0x3FFFFF,
		GCColor:      Gray,
		Format:       FormatVariableWithIvars,
		ClassIndex:   0x2AAAAA,
	}
	got := DecodeHeader(h.Encode())
	if got != h {
		t.Errorf("round trip: got %+v, want %+v", got, h)
	}
}
