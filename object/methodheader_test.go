package object

import "testing"

func TestMethodHeaderRoundTrips(t *testing.T) {
	h := MethodHeader{
		LiteralCount:    12,
		HasPrimitive:    true,
		NeedsLargeFrame: false,
		TemporalCount:   5,
		ArgumentCount:   3,
		Flag:            true,
		AltBytecodeSet:  false,
	}
	got := DecodeMethodHeader(EncodeMethodHeader(h))
	if got != h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
}

func TestMethodHeaderFitsInSmallInteger(t *testing.T) {
	h := MethodHeader{LiteralCount: 0xFFFF, TemporalCount: 0x3F, ArgumentCount: 0xF, HasPrimitive: true, NeedsLargeFrame: true, Flag: true, AltBytecodeSet: true}
	raw := EncodeMethodHeader(h)
	if raw < SmallIntegerMin || raw > SmallIntegerMax {
		t.Fatalf("encoded header %d does not fit in a SmallInteger", raw)
	}
	v := EncodeSmallInteger(raw)
	if !v.IsSmallInteger() {
		t.Fatalf("encoded header did not tag as a SmallInteger")
	}
	if got := DecodeMethodHeader(DecodeSmallInteger(v)); got != h {
		t.Errorf("round trip through EncodeSmallInteger = %+v, want %+v", got, h)
	}
}
