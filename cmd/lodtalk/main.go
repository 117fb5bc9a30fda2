// Command lodtalk is the CLI entry point spec.md §6 describes: load a
// script from a file or standard input, run it, and send main to the
// global-context singleton. Grounded on the teacher's own cmd/run/main.go
// -- flag-based argument parsing, a run(...) error helper kept separate
// from main so the exit-code logic lives in exactly one place, usage
// printed to stderr on a missing argument.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/lodtalk-go/vm/heap"
	"github.com/lodtalk-go/vm/ioprim"
	"github.com/lodtalk-go/vm/script"
)

func main() {
	var help bool
	flag.BoolVar(&help, "h", false, "show usage")
	flag.BoolVar(&help, "help", false, "show usage")
	interactive := flag.Bool("i", false, "interactive do-it REPL")
	flag.Usage = printUsage
	flag.Parse()

	if help {
		printUsage()
		os.Exit(0)
	}

	path := flag.Arg(0)
	if path == "" {
		printUsage()
		os.Exit(-1)
	}

	if *interactive {
		if err := runInteractive(path); err != nil {
			fmt.Fprintf(os.Stderr, "lodtalk: %v\n", err)
			os.Exit(-1)
		}
		return
	}

	if err := run(path); err != nil {
		fmt.Fprintf(os.Stderr, "lodtalk: %v\n", err)
		os.Exit(-1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: lodtalk [-i] [-h] <source.json | ->")
}

func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func newRuntime() (*script.Runtime, error) {
	rt, err := script.New(heap.Config{ReservedBytes: 64 << 20})
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	if err := ioprim.Register(rt); err != nil {
		return nil, fmt.Errorf("register I/O primitives: %w", err)
	}
	return rt, nil
}

func run(path string) error {
	data, err := readSource(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	program, err := loadProgram(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	if _, err := script.Load(rt, program); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	act := rt.NewActivation()
	result, err := act.RunMain(rt.GlobalContext())
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}
	fmt.Println(renderValue(rt, result))
	return nil
}
