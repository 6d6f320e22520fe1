package debugger

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jdbasic/jdbasic/internal/compiler"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
	"github.com/jdbasic/jdbasic/internal/vm"
)

// errExit is returned by the LineHook to unwind the VM's exec loop cleanly
// when the client sends "exit" while the program is paused.
var errExit = fmt.Errorf("debugger: exit requested")

// Server drives one debug session: it listens for a single client
// connection, compiles and runs the given source against a fresh VM with
// its LineHook wired to this server's breakpoint/step bookkeeping, and
// speaks the line-oriented protocol of §6 over that connection.
type Server struct {
	port int
	path string // source file path, echoed back in "stopped"/"stack:" lines
	src  string

	mu    sync.Mutex
	st    *state
	out   *bufio.Writer
	cmdCh chan []string
}

// New creates a debugger server for the given source file, ready to Listen.
func New(path, src string, port int) *Server {
	return &Server{port: port, path: path, src: src, st: newState(), cmdCh: make(chan []string)}
}

// ListenAndServe opens the transport on the server's port, accepts a single
// client connection, and runs the debug session to completion. It returns
// when the client sends "exit" or disconnects, or on an accept error; after
// the program finishes, the session keeps serving commands until then.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("debugger: listen on port %d: %w", s.port, err)
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("debugger: accept: %w", err)
	}
	defer conn.Close()

	return s.serve(conn)
}

// ServeConn runs one debug session directly over an already-connected conn,
// skipping the listen/accept step. Used by tests (net.Pipe) and by any
// future transport that hands the server an established connection.
func (s *Server) ServeConn(conn net.Conn) error { return s.serve(conn) }

func (s *Server) serve(conn net.Conn) error {
	s.out = bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)

	s.send("initialized")

	// Drain lines until "start" arrives; any other command before start is
	// ignored since no VM is running yet to act on it.
	for {
		line, err := readLine(reader)
		if err != nil {
			return nil
		}
		if strings.TrimSpace(line) == "start" {
			break
		}
	}

	go s.pump(reader)

	c := compiler.New(s.src)
	prog, cerr := c.Compile()
	if cerr != nil {
		s.send(fmt.Sprintf("output %s", cerr))
		s.send("ended")
		return nil
	}

	machine := vm.New(prog, c.TypeRegistry())
	var outBuf outputWriter
	outBuf.w = s.out
	outBuf.prefix = "output "
	machine.Out = &outBuf
	machine.LineHook = s.onLine

	runErr := machine.Run()
	if runErr == errExit {
		s.send("ended")
		return nil
	}
	if runErr != nil {
		if re, ok := runErr.(*errs.RuntimeError); ok {
			s.send(fmt.Sprintf("output %s", re.Error()))
		} else {
			s.send(fmt.Sprintf("output %s", runErr))
		}
	}
	s.send("ended")

	// After the program ends, keep answering repl/exit so the client can
	// inspect final state before disconnecting.
	s.postRunLoop(machine)
	return nil
}

// postRunLoop answers repl/exit commands after the debuggee has finished,
// against the VM's now-frozen global state.
func (s *Server) postRunLoop(machine *vm.VM) {
	for args := range s.cmdCh {
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit":
			return
		case "repl":
			s.handleRepl(machine, strings.Join(args[1:], " "))
		case "get_vars":
			s.handleGetVars(machine, argOr(args, 1, "globals"))
		default:
			// no running program to act on; ignore.
		}
	}
}

// pump reads newline-terminated commands off the connection and forwards
// them to cmdCh for onLine (or postRunLoop) to consume.
func (s *Server) pump(reader *bufio.Reader) {
	defer close(s.cmdCh)
	for {
		line, err := readLine(reader)
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		s.cmdCh <- fields
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if line == "" && err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Server) send(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s\n", msg)
	s.out.Flush()
}

// onLine is the VM's LineHook (§6): called once per statement boundary.
// It decides whether to stop, and if so blocks handling protocol commands
// until a resuming command (continue/next/stepin/stepout) or exit arrives.
func (s *Server) onLine(v *vm.VM) error {
	line := v.CurrentLine()
	depth := v.Depth()

	stop, reason := s.st.shouldStop(line, depth)
	if !stop {
		return nil
	}
	s.send(fmt.Sprintf("stopped %s %d %s", reason, line, s.path))

	for args := range s.cmdCh {
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "continue":
			s.st.mode = ModeContinue
			return nil
		case "next":
			s.st.mode = ModeStep
			s.st.depth = depth
			return nil
		case "stepin":
			s.st.mode = ModeStepIn
			return nil
		case "stepout":
			s.st.mode = ModeStepOut
			s.st.depth = depth
			return nil
		case "set_breakpoint":
			if len(args) >= 3 {
				lineNum, err := strconv.Atoi(args[2])
				if err == nil {
					s.st.setBreakpoint(args[1], lineNum)
				}
			}
		case "clear_all_breakpoints":
			s.st.clearBreakpoints()
		case "get_stacktrace":
			s.handleStacktrace(v)
		case "get_vars":
			s.handleGetVars(v, argOr(args, 1, "globals"))
		case "repl":
			s.handleRepl(v, strings.Join(args[1:], " "))
		case "exit":
			return errExit
		}
	}
	return errExit
}

func (s *Server) handleStacktrace(v *vm.VM) {
	total := v.Depth() + 1
	for i := total - 1; i >= 0; i-- {
		funcName := "<script>"
		lineNum := v.CurrentLine()
		if i > 0 {
			funcName = v.FrameFuncName(i - 1)
			lineNum = v.FrameLine(i - 1)
		}
		s.send(fmt.Sprintf("stack: %d %d %d %s %s", total-1-i, total, lineNum, funcName, s.path))
	}
}

func (s *Server) handleGetVars(v *vm.VM, scope string) {
	var vars map[string]value.Value
	switch scope {
	case "locals":
		vars = v.LocalsSnapshot()
	default:
		scope = "globals"
		vars = v.GlobalsSnapshot()
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.send(fmt.Sprintf("var: %s %s = %s", scope, name, value.ToString(vars[name])))
	}
	s.send("varsdone")
}

// handleRepl compiles and runs a single line against the paused VM's live
// Globals and function table, the same persistence model as cli's
// interactive REPL (internal/cli/entry.go).
func (s *Server) handleRepl(v *vm.VM, text string) {
	if strings.TrimSpace(text) == "" {
		s.send("repl: ")
		return
	}
	c := compiler.New(text)
	prog, err := c.Compile()
	if err != nil {
		s.send(fmt.Sprintf("repl: %s", err))
		return
	}
	// A fresh VM.New gives us a fully initialized scheduler/maps; swapping
	// in the live Globals (by reference) is what makes variables declared
	// in the debuggee visible to, and mutable from, the repl command.
	shadow := vm.New(prog, v.Types)
	shadow.Globals = v.Globals
	shadow.Out = &replWriter{s: s}
	if err := shadow.Run(); err != nil {
		if re, ok := err.(*errs.RuntimeError); ok {
			s.send(fmt.Sprintf("repl: %s", re.Error()))
		} else {
			s.send(fmt.Sprintf("repl: %s", err))
		}
	}
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

// outputWriter forwards the debuggee's PRINT output as "output <text>"
// lines, one per underlying Write call.
type outputWriter struct {
	w      io.Writer
	prefix string
}

func (t *outputWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	if text != "" {
		fmt.Fprintf(t.w, "%s%s\n", t.prefix, text)
		if bw, ok := t.w.(*bufio.Writer); ok {
			bw.Flush()
		}
	}
	return len(p), nil
}

// replWriter routes a "repl <text>" evaluation's PRINT output into
// "repl: <text>" response lines instead of "output <text>".
type replWriter struct{ s *Server }

func (r *replWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	if text != "" {
		r.s.send(fmt.Sprintf("repl: %s", text))
	}
	return len(p), nil
}
