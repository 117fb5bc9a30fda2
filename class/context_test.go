package class

import (
	"testing"

	"github.com/lodtalk-go/vm/object"
)

func TestContextRoundTripsFieldsAndData(t *testing.T) {
	h := newTestHeap(t)
	ctx, err := NewContext(h, 3)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if ctx.DataSize() != 3 {
		t.Fatalf("DataSize() = %d, want 3", ctx.DataSize())
	}

	ctx.SetReceiver(object.EncodeSmallInteger(7))
	ctx.SetPC(object.EncodeSmallInteger(42))
	ctx.SetData(0, object.EncodeSmallInteger(1))
	ctx.SetData(2, object.EncodeSmallInteger(3))

	if ctx.Receiver() != object.EncodeSmallInteger(7) {
		t.Errorf("Receiver() = %v, want SmallInteger(7)", ctx.Receiver())
	}
	if ctx.PC() != object.EncodeSmallInteger(42) {
		t.Errorf("PC() = %v, want SmallInteger(42)", ctx.PC())
	}
	if ctx.Data(0) != object.EncodeSmallInteger(1) {
		t.Errorf("Data(0) = %v, want SmallInteger(1)", ctx.Data(0))
	}
	if ctx.Data(1) != object.Nil {
		t.Errorf("Data(1) = %v, want nil (untouched)", ctx.Data(1))
	}
}

func TestBlockClosureRoundTripsFieldsAndCopied(t *testing.T) {
	h := newTestHeap(t)
	blk, err := NewBlockClosure(h, 2)
	if err != nil {
		t.Fatalf("NewBlockClosure: %v", err)
	}
	if blk.NumCopied() != 2 {
		t.Fatalf("NumCopied() = %d, want 2", blk.NumCopied())
	}

	blk.SetStartPc(10)
	blk.SetNumArgs(1)
	blk.SetCopied(0, object.EncodeSmallInteger(99))

	if blk.StartPc() != 10 {
		t.Errorf("StartPc() = %d, want 10", blk.StartPc())
	}
	if blk.NumArgs() != 1 {
		t.Errorf("NumArgs() = %d, want 1", blk.NumArgs())
	}
	if blk.Copied(0) != object.EncodeSmallInteger(99) {
		t.Errorf("Copied(0) = %v, want SmallInteger(99)", blk.Copied(0))
	}
}
