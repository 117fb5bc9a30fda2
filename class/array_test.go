package class

import (
	"testing"

	"github.com/lodtalk-go/vm/object"
)

func TestArrayAtPutAndAt(t *testing.T) {
	h := newTestHeap(t)

	arr, err := NewArray(h, 3)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	if arr.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", arr.Size())
	}
	for i := 0; i < 3; i++ {
		if got := arr.At(i); got != object.Nil {
			t.Errorf("At(%d) = %v, want Nil", i, got)
		}
	}

	arr.AtPut(1, object.EncodeSmallInteger(7))
	if got := arr.At(1); got != object.EncodeSmallInteger(7) {
		t.Errorf("At(1) = %v, want SmallInteger(7)", got)
	}
	if got := arr.At(0); got != object.Nil {
		t.Errorf("At(0) = %v, want Nil (untouched)", got)
	}
}
