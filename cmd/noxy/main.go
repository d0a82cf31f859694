package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"noxy-vm/internal/bytecodefile"
	"noxy-vm/internal/compiler"
	"noxy-vm/internal/session"
	"noxy-vm/internal/value"
	"noxy-vm/internal/vm"
)

const version = "v1.0.0"

// Exit codes follow the sysexits-flavored triage spec.md requires: usage
// errors are distinct from compile errors, which are distinct from
// runtime errors.
const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("noxy", flag.ContinueOnError)
	outPath := fs.String("o", "", "write compiled bytecode to this path instead of running")
	showDisasm := fs.Bool("d", false, "print bytecode disassembly before running")
	sessionPath := fs.String("session", "", "persist and restore global variables across runs")
	showVersion := fs.Bool("version", false, "print version information")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: noxy [options] [file]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *showVersion {
		fmt.Printf("noxy %s\n", version)
		return exitOK
	}

	positional := fs.Args()
	if len(positional) > 1 {
		fmt.Fprintln(os.Stderr, "noxy: at most one source file may be given")
		return exitUsage
	}

	var sess *session.Store
	if *sessionPath != "" {
		s, err := session.Open(*sessionPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitRuntime
		}
		defer s.Close()
		sess = s
	}

	if len(positional) == 0 {
		return runREPL(sess, *showDisasm)
	}
	return runFile(positional[0], sess, *outPath, *showDisasm)
}

func runFile(path string, sess *session.Store, outPath string, showDisasm bool) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
		return exitUsage
	}

	fn, store, errs := compiler.Compile(string(src))
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return exitCompile
	}

	if showDisasm {
		store.DisassembleAll(fn.ChunkIdx, path)
	}

	if outPath != "" {
		if store.Len() > 1 {
			fmt.Fprintln(os.Stderr, "noxy: -o cannot serialize a program containing function declarations")
			return exitUsage
		}
		data, err := bytecodefile.Write(store.Get(fn.ChunkIdx))
		if err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitUsage
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitRuntime
		}
		return exitOK
	}

	machine := vm.New()
	if sess != nil {
		if err := loadSession(machine, sess); err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitRuntime
		}
	}

	if _, err := machine.Interpret(string(src)); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return exitRuntime
	}

	if showDisasm {
		printGlobalsTrace(machine)
	}

	if sess != nil {
		if err := sess.Save(machine.Globals()); err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitRuntime
		}
	}

	return exitOK
}

func runREPL(sess *session.Store, showDisasm bool) int {
	fmt.Printf("noxy %s\n", version)
	fmt.Println("Type 'exit' to quit.")

	machine := vm.New()
	if sess != nil {
		if err := loadSession(machine, sess); err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitRuntime
		}
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	input := bufio.NewScanner(os.Stdin)

	for {
		if interactive {
			fmt.Print(">>> ")
		}
		if !input.Scan() {
			break
		}
		line := input.Text()
		if strings.TrimSpace(line) == "exit" {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		result, err := machine.Interpret(line)
		if err != nil {
			fmt.Println(err.Error())
			continue
		}
		if result.Type != value.Nil {
			fmt.Println(result.String())
		}
		if showDisasm {
			printGlobalsTrace(machine)
		}
	}

	if sess != nil {
		if err := sess.Save(machine.Globals()); err != nil {
			fmt.Fprintf(os.Stderr, "noxy: %s\n", err)
			return exitRuntime
		}
	}
	return exitOK
}

// printGlobalsTrace prints the current global bindings in a stable,
// alphabetical order, as the -d trace's complement to the static
// bytecode disassembly: disassembly shows what will run, this shows
// what state running it left behind.
func printGlobalsTrace(machine *vm.VM) {
	globals := machine.Globals()
	names := machine.SortedGlobalNames()
	if len(names) == 0 {
		return
	}
	fmt.Println("== globals ==")
	for _, name := range names {
		fmt.Printf("%-18s %s\n", name, globals[name].String())
	}
}

func loadSession(machine *vm.VM, sess *session.Store) error {
	globals, err := sess.Load()
	if err != nil {
		return err
	}
	for name, v := range globals {
		machine.Globals()[name] = v
	}
	return nil
}
