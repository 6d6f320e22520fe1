// Package cli implements jdbasic's command-line entry point (§6 Invocation):
// running a source file, or entering the REPL when no source file is given
// (with a prompt only when stdin is a terminal), mirroring the teacher's pkg/cli/entry.go split between a thin
// main and a testable Run(args, stdin, stdout, stderr) int so tests can
// drive the whole program without spawning a process.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/jdbasic/jdbasic/internal/compiler"
	"github.com/jdbasic/jdbasic/internal/config"
	"github.com/jdbasic/jdbasic/internal/debugger"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/vm"
)

// Run is the whole program, parameterized over args/stdin/stdout/stderr so
// it can be exercised from tests (see entry_test.go) without a subprocess.
// Usage is "interpreter [--debug [port]] [source-file]" (§6 Invocation).
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "--debug" {
		args = args[1:]
		port := config.DefaultDebugPort
		if len(args) > 0 {
			if p, err := strconv.Atoi(args[0]); err == nil {
				port = p
				args = args[1:]
			}
		}
		if len(args) == 0 {
			fmt.Fprintln(stderr, "jdbasic: --debug requires a source file")
			return 1
		}
		return runDebug(args[0], port, stderr)
	}

	if len(args) == 0 {
		return runREPL(stdin, stdout, stderr)
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "jdbasic: %s\n", err)
		return 1
	}
	return runSource(string(src), stdin, stdout, stderr)
}

// runDebug opens the line-oriented debugger transport on port and waits for
// a client launch request before running path (§6 Invocation, Debugger
// protocol). Exit code is non-zero on launch failure, matching §6 Process
// exit codes.
func runDebug(path string, port int, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "jdbasic: %s\n", err)
		return 1
	}
	srv := debugger.New(path, string(src), port)
	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(stderr, "jdbasic: %s\n", err)
		return 1
	}
	return 0
}

// IsInteractive reports whether stdin is a real terminal (vs. a pipe or
// redirected file), the same test the teacher's builtins_term.go uses to
// decide whether to show prompts.
func IsInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runSource(src string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := compiler.New(src)
	prog, err := c.Compile()
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	machine := vm.New(prog, c.TypeRegistry())
	machine.Out = stdout
	machine.In = bufio.NewReader(stdin)
	if err := machine.Run(); err != nil {
		if re, ok := err.(*errs.RuntimeError); ok {
			errs.Print(stderr, re)
		} else {
			fmt.Fprintf(stderr, "jdbasic: %s\n", err)
		}
		return 1
	}
	return 0
}

// runREPL reads one line at a time, compiling each as its own tiny program
// so no parse state persists across lines; every line runs on the one VM
// the session keeps, so globals carry over the way a classic BASIC
// immediate-mode line does. The prompt is printed only when stdin is a
// terminal.
func runREPL(stdin io.Reader, stdout, stderr io.Writer) int {
	reader := bufio.NewReader(stdin)
	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = IsInteractive(f)
	}

	session := newREPLSession(stdout)
	for {
		if interactive {
			fmt.Fprint(stdout, "jdb> ")
		}
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if err != nil {
				break
			}
			continue
		}
		session.evalLine(line, stderr)
		if err != nil {
			break
		}
	}
	return 0
}

// replSession keeps one VM alive across REPL lines so variables declared on
// one line persist to the next (§4.7 scoping: Globals is the session state).
type replSession struct {
	vm *vm.VM
}

func newREPLSession(stdout io.Writer) *replSession {
	c := compiler.New("")
	prog, _ := c.Compile()
	machine := vm.New(prog, c.TypeRegistry())
	machine.Out = stdout
	return &replSession{vm: machine}
}

func (s *replSession) evalLine(line string, stderr io.Writer) {
	c := compiler.New(line)
	prog, err := c.Compile()
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	s.vm.Program = prog
	vm.RegisterBuiltins(s.vm)
	if err := s.vm.Run(); err != nil {
		if re, ok := err.(*errs.RuntimeError); ok {
			errs.Print(stderr, re)
		} else {
			fmt.Fprintf(stderr, "jdbasic: %s\n", err)
		}
	}
}
