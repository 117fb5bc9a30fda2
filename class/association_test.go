package class

import (
	"testing"

	"github.com/lodtalk-go/vm/object"
)

func TestAssociationRoundTripsKeyAndValue(t *testing.T) {
	h := newTestHeap(t)
	key, err := newByteSymbolRaw(h, "Total")
	if err != nil {
		t.Fatalf("newByteSymbolRaw: %v", err)
	}
	a, err := NewAssociation(h, key)
	if err != nil {
		t.Fatalf("NewAssociation: %v", err)
	}
	if a.Key() != key {
		t.Errorf("Key() = %v, want %v", a.Key(), key)
	}
	if a.GetValue() != object.Nil {
		t.Errorf("GetValue() = %v, want Nil before SetValue", a.GetValue())
	}
	want := object.EncodeSmallInteger(7)
	a.SetValue(want)
	if got := a.GetValue(); got != want {
		t.Errorf("GetValue() after SetValue = %v, want %v", got, want)
	}
}
