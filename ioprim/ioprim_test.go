package ioprim_test

import (
	"io"
	"os"
	"testing"

	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/ioprim"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/script"
)

func newRuntime(t *testing.T) *script.Runtime {
	t.Helper()
	rt, err := script.New(heap.Config{ReservedBytes: 1 << 20})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ioprim.Register(rt); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return rt
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(out)
}

func TestOSIODescriptors(t *testing.T) {
	rt := newRuntime(t)
	cls, found := rt.LookupClass("OSIO")
	if !found {
		t.Fatalf("LookupClass(OSIO): not found")
	}

	act := rt.NewActivation()
	for selector, want := range map[string]int64{"stdout": 1, "stdin": 0, "stderr": 2} {
		result, err := act.Send(cls.Value, selector)
		if err != nil {
			t.Fatalf("Send(%s): %v", selector, err)
		}
		if got := object.DecodeSmallInteger(result); got != want {
			t.Errorf("OSIO %s = %d, want %d", selector, got, want)
		}
	}
}

func TestTranscriptShowWritesToStdout(t *testing.T) {
	rt := newRuntime(t)
	receiver, found := rt.Global("Transcript")
	if !found {
		t.Fatalf("Global(Transcript): not found")
	}
	buf, err := class.NewByteString(rt.Heap, "hello")
	if err != nil {
		t.Fatalf("NewByteString: %v", err)
	}

	act := rt.NewActivation()
	out := captureStdout(t, func() {
		result, err := act.Send(receiver, "show:", buf)
		if err != nil {
			t.Fatalf("Send(show:): %v", err)
		}
		if result != receiver {
			t.Errorf("show: returned %v, want self", result)
		}
	})
	if out != "hello" {
		t.Errorf("captured stdout = %q, want %q", out, "hello")
	}
}

func TestOSIOWriteOffsetSizeTo(t *testing.T) {
	rt := newRuntime(t)
	cls, found := rt.LookupClass("OSIO")
	if !found {
		t.Fatalf("LookupClass(OSIO): not found")
	}
	buf, err := class.NewByteString(rt.Heap, "xxhelloxx")
	if err != nil {
		t.Fatalf("NewByteString: %v", err)
	}

	act := rt.NewActivation()
	out := captureStdout(t, func() {
		result, err := act.Send(cls.Value, "write:offset:size:to:",
			buf, object.EncodeSmallInteger(2), object.EncodeSmallInteger(5), object.EncodeSmallInteger(1))
		if err != nil {
			t.Fatalf("Send(write:offset:size:to:): %v", err)
		}
		if got := object.DecodeSmallInteger(result); got != 5 {
			t.Errorf("write:offset:size:to: = %d, want 5", got)
		}
	})
	if out != "hello" {
		t.Errorf("captured stdout = %q, want %q", out, "hello")
	}
}

func TestOSIOWriteRejectsBadArguments(t *testing.T) {
	rt := newRuntime(t)
	cls, found := rt.LookupClass("OSIO")
	if !found {
		t.Fatalf("LookupClass(OSIO): not found")
	}
	act := rt.NewActivation()
	result, err := act.Send(cls.Value, "write:offset:size:to:",
		object.EncodeSmallInteger(0), object.EncodeSmallInteger(0), object.EncodeSmallInteger(0), object.EncodeSmallInteger(1))
	if err != nil {
		t.Fatalf("Send(write:offset:size:to:): %v", err)
	}
	if got := object.DecodeSmallInteger(result); got != -1 {
		t.Errorf("write:offset:size:to: with a non-buffer argument = %d, want -1", got)
	}
}

func TestStdinNextReadsOneByteAtATime(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	orig := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = orig }()

	rt := newRuntime(t)

	if _, err := w.WriteString("AB"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	w.Close()

	receiver, found := rt.Global("Stdin")
	if !found {
		t.Fatalf("Global(Stdin): not found")
	}

	act := rt.NewActivation()
	first, err := act.Send(receiver, "next")
	if err != nil {
		t.Fatalf("Send(next): %v", err)
	}
	if got := object.DecodeCharacter(first); got != 'A' {
		t.Errorf("next = %q, want 'A'", got)
	}
	second, err := act.Send(receiver, "next")
	if err != nil {
		t.Fatalf("Send(next): %v", err)
	}
	if got := object.DecodeCharacter(second); got != 'B' {
		t.Errorf("next = %q, want 'B'", got)
	}
	third, err := act.Send(receiver, "next")
	if err != nil {
		t.Fatalf("Send(next): %v", err)
	}
	if third != object.Nil {
		t.Errorf("next at end of stream = %v, want nil", third)
	}
}
