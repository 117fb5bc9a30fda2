// Package ioprim implements the narrow platform I/O surface SPEC_FULL.md
// carves out as its own primitive set: Transcript show:, reading one
// character at a time from the process's standard input, and writing raw
// bytes to a tagged small-integer file handle. Grounded on
// original_source/vm/InputOutput.cpp's OSIO class, which exposes exactly
// the same three class-side descriptor primitives (stdout/stdin/stderr)
// plus one write:offset:size:to: primitive, and nothing else -- Smalltalk
// code never touches an OS file descriptor directly, only the tagged
// SmallInteger OSIO hands back.
package ioprim

import (
	"bufio"
	"os"

	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/errors"
	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/script"
)

// Standard POSIX descriptor numbers, matching the constants
// OSIO::stdout/stdin/stderr answer as tagged SmallIntegers in
// original_source/vm/InputOutput.cpp.
const (
	fdStdin  = 0
	fdStdout = 1
	fdStderr = 2
)

// Register declares OSIO, TextCollector and StdinStream against rt and
// binds the "Transcript" and "Stdin" globals a loaded Script can send to.
// It is meant to run once per Runtime, after script.New and before any
// Script is loaded against it, the same way a teacher's own bootstrap
// wires its special classes before user code ever runs.
func Register(rt *script.Runtime) error {
	if err := registerOSIO(rt); err != nil {
		return err
	}
	if err := registerTranscript(rt); err != nil {
		return err
	}
	if err := registerStdin(rt); err != nil {
		return err
	}
	return nil
}

// registerOSIO declares the OSIO class: three descriptor accessors and the
// one write primitive, all class-side since OSIO is never instantiated.
func registerOSIO(rt *script.Runtime) error {
	b, err := rt.Bootstrap.Registry.NewClass("OSIO", rt.Bootstrap.Object)
	if err != nil {
		return err
	}
	b.AddClassMethod("stdout", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		return object.EncodeSmallInteger(fdStdout), nil
	})
	b.AddClassMethod("stdin", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		return object.EncodeSmallInteger(fdStdin), nil
	})
	b.AddClassMethod("stderr", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		return object.EncodeSmallInteger(fdStderr), nil
	})
	b.AddClassMethod("write:offset:size:to:", primWriteOffsetSizeTo)
	cls, err := b.Finish()
	if err != nil {
		return err
	}
	rt.RegisterClass("OSIO", cls)
	return nil
}

// primWriteOffsetSizeTo writes size bytes of buffer starting at offset to
// the descriptor named by file. It never returns a Go error: like
// OSIO::writeOffsetSizeTo, a malformed argument or a failed OS write both
// answer the tagged SmallInteger -1 rather than raising anything a
// doesNotUnderstand handler would need to catch.
func primWriteOffsetSizeTo(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
	if len(args) != 4 || !args[0].IsPointer() || args[0] == object.Nil ||
		!args[1].IsSmallInteger() || !args[2].IsSmallInteger() || !args[3].IsSmallInteger() {
		return object.EncodeSmallInteger(-1), nil
	}
	buffer, offset, size := args[0], int(object.DecodeSmallInteger(args[1])), int(object.DecodeSmallInteger(args[2]))
	if offset < 0 || size < 0 || offset+size > h.GetFixedSlotCount(buffer) {
		return object.EncodeSmallInteger(-1), nil
	}
	f := fileForDescriptor(object.DecodeSmallInteger(args[3]))
	if f == nil {
		return object.EncodeSmallInteger(-1), nil
	}
	n, err := f.Write(h.Bytes(buffer, offset, size))
	if err != nil {
		return object.EncodeSmallInteger(-1), nil
	}
	return object.EncodeSmallInteger(int64(n)), nil
}

// fileForDescriptor maps a tagged descriptor number to the *os.File it
// names. stdin is deliberately not writable -- OSIO::writeOffsetSizeTo
// would fail the underlying write(2) call the same way.
func fileForDescriptor(fd int64) *os.File {
	switch fd {
	case fdStdout:
		return os.Stdout
	case fdStderr:
		return os.Stderr
	default:
		return nil
	}
}

// registerTranscript declares TextCollector, the class behind the global
// "Transcript", with the show:/showCr:/nl trio every Smalltalk dialect's
// Transcript answers. Each primitive returns self, matching the
// cascade-friendly convention real Transcript show: follows.
func registerTranscript(rt *script.Runtime) error {
	b, err := rt.Bootstrap.Registry.NewClass("TextCollector", rt.Bootstrap.Object)
	if err != nil {
		return err
	}
	b.AddMethod("show:", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		text, err := stringArgument(h, args)
		if err != nil {
			return object.Nil, err
		}
		os.Stdout.WriteString(text)
		return receiver, nil
	})
	b.AddMethod("showCr:", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		text, err := stringArgument(h, args)
		if err != nil {
			return object.Nil, err
		}
		os.Stdout.WriteString(text)
		os.Stdout.WriteString("\n")
		return receiver, nil
	})
	b.AddMethod("nl", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		os.Stdout.WriteString("\n")
		return receiver, nil
	})
	cls, err := b.Finish()
	if err != nil {
		return err
	}
	rt.RegisterClass("TextCollector", cls)

	classIndex, _ := rt.Bootstrap.Registry.IndexOf(cls)
	instance, err := rt.Heap.NewObject(0, 0, object.FormatEmpty, classIndex)
	if err != nil {
		return err
	}
	return rt.RegisterGlobal("Transcript", instance)
}

func stringArgument(h *heap.Heap, args []object.Value) (string, error) {
	if len(args) != 1 || !args[0].IsPointer() || args[0] == object.Nil {
		return "", errors.InvalidInput(errors.PhasePrimitive, "expected a String argument")
	}
	return class.ByteContents(h, args[0]), nil
}

// registerStdin declares StdinStream, a singleton wrapping the process's
// standard input one byte at a time -- spec.md's "stdin next" interface,
// narrower than a full PositionableStream since OSIO itself only ever
// names a descriptor, never a position. next answers nil at end of
// stream, the same sentinel a Smalltalk Stream answers past its end
// without atEnd having been checked first.
func registerStdin(rt *script.Runtime) error {
	b, err := rt.Bootstrap.Registry.NewClass("StdinStream", rt.Bootstrap.Object)
	if err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)
	b.AddMethod("next", func(h *heap.Heap, receiver object.Value, args []object.Value) (object.Value, error) {
		ch, err := reader.ReadByte()
		if err != nil {
			return object.Nil, nil
		}
		return object.EncodeCharacter(rune(ch)), nil
	})
	cls, err := b.Finish()
	if err != nil {
		return err
	}
	rt.RegisterClass("StdinStream", cls)

	classIndex, _ := rt.Bootstrap.Registry.IndexOf(cls)
	instance, err := rt.Heap.NewObject(0, 0, object.FormatEmpty, classIndex)
	if err != nil {
		return err
	}
	return rt.RegisterGlobal("Stdin", instance)
}
