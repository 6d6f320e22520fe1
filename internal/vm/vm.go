// Package vm implements the statement dispatcher and expression opcode
// executor (§4.6 expression evaluator, §4.7 scoping, §4.8 statement
// dispatcher). Grounded on the CallFrame/VM struct shape of
// _examples/funvibe-funxy/internal/vm/vm.go (a flat Stack plus a Frames
// slice of call frames, a fetch-decode Run loop split into vm_exec.go/
// vm_ops.go/vm_calls.go), adapted from funxy's expression-VM opcode set to
// jdbasic's statement-oriented bytecode (§4.5) and its tagged-union Value
// model instead of funxy's native Go value representation.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/sched"
	"github.com/jdbasic/jdbasic/internal/types"
	"github.com/jdbasic/jdbasic/internal/value"
)

// Frame is one FUNC/SUB activation record (§4.7 scoping): locals are
// looked up here first, falling back to Globals.
type Frame struct {
	FuncName   string
	ReturnAddr int
	CallLine   int // source line of the CALL that pushed this frame (§6 get_stacktrace)
	Locals     map[string]value.Value
	ForState   map[string]*forLoopState
}

type forLoopState struct {
	Limit float64
	Step  float64
	IsInt bool
}

// Handler is one live TRY/CATCH/FINALLY frame (§4.4, §7): RAISE unwinds the
// call stack and value stack back to FrameDepth/StackDepth before jumping
// to CatchAddr.
type Handler struct {
	CatchAddr   int
	FinallyAddr int
	FrameDepth  int
	StackDepth  int
}

// VM executes one compiled Program (§4.6-§4.9).
type VM struct {
	Program *bytecode.Program
	Types   *types.Registry

	Stack    []value.Value
	Frames   []*Frame
	Globals  map[string]value.Value
	Handlers []*Handler

	ip              int
	currentLine     int
	needLinePrefix  bool

	Natives  map[string]bytecode.NativeFunc
	EventHandlers map[string]string // event name -> handler func name

	Sched     *sched.Scheduler
	taskSeq   int
	taskByID  map[int]*taskRun

	// globalForState holds FOR/NEXT loop state for loops running at top
	// level, outside any Frame (Frame.ForState covers loops inside a
	// FUNC/SUB body).
	globalForState map[string]*forLoopState

	Out io.Writer
	In  *bufio.Reader

	stopped bool

	// LineHook, if set, is called once per statement boundary (just after
	// the line-number prefix is consumed) before its opcodes execute. The
	// debugger package uses this to implement breakpoints and stepping
	// (§6 Debugger protocol) without this package depending on it. A
	// non-nil return aborts execution, surfaced as exec's error.
	LineHook func(v *VM) error
}

// New creates a VM ready to execute prog (§4.6).
func New(prog *bytecode.Program, reg *types.Registry) *VM {
	v := &VM{
		Program:       prog,
		Types:         reg,
		Globals:       make(map[string]value.Value),
		Natives:       make(map[string]bytecode.NativeFunc),
		EventHandlers: make(map[string]string),
		Sched:         sched.New(),
		taskByID:      make(map[int]*taskRun),
		Out:           os.Stdout,
		In:            bufio.NewReader(os.Stdin),
	}
	RegisterBuiltins(v)
	registerConstants(v)
	return v
}

// registerConstants seeds the process-wide constants map (§4.6: "PI,
// VBNEWLINE, ERR, ERL"): plain global variables so a bare reference resolves
// through the ordinary LOAD_VAR/Globals path without a dedicated opcode.
// ERR/ERL/ERRMSG/STACK$ are overwritten by raise (§4.2/§7) once a handler
// catches a fault; until then they read as their zero values.
func registerConstants(v *VM) {
	v.Globals["PI"] = value.Double(3.14159265358979323846)
	v.Globals["VBNEWLINE"] = value.String("\n")
	v.Globals["ERR"] = value.Int(0)
	v.Globals["ERL"] = value.Int(0)
	v.Globals["ERRMSG"] = value.String("")
	v.Globals["STACK$"] = value.String("")
}

// Run executes the program from the start to completion (§4.8).
func (v *VM) Run() error {
	v.ip = 0
	v.needLinePrefix = true
	return v.exec()
}

func (v *VM) push(val value.Value) { v.Stack = append(v.Stack, val) }

func (v *VM) pop() value.Value {
	if len(v.Stack) == 0 {
		return value.Nil()
	}
	top := v.Stack[len(v.Stack)-1]
	v.Stack = v.Stack[:len(v.Stack)-1]
	return top
}

func (v *VM) popN(n int) []value.Value {
	if n == 0 {
		return nil
	}
	if n > len(v.Stack) {
		n = len(v.Stack)
	}
	out := make([]value.Value, n)
	copy(out, v.Stack[len(v.Stack)-n:])
	v.Stack = v.Stack[:len(v.Stack)-n]
	return out
}

func (v *VM) currentFrame() *Frame {
	if len(v.Frames) == 0 {
		return nil
	}
	return v.Frames[len(v.Frames)-1]
}

func (v *VM) runtimeErr(code errs.Code, msg string) *errs.RuntimeError {
	return errs.New(code, v.currentLine, msg)
}

func (v *VM) fprintf(format string, a ...interface{}) {
	fmt.Fprintf(v.Out, format, a...)
}

// CurrentLine is the source line of the statement currently executing
// (§6 get_stacktrace, Debugger protocol).
func (v *VM) CurrentLine() int { return v.currentLine }

// Depth is the number of active call frames; 0 at top level.
func (v *VM) Depth() int { return len(v.Frames) }

// FrameLine returns the source line associated with frame i (0 = outermost),
// using the live currentLine for the innermost frame and the recorded call
// site for any frame above it.
func (v *VM) FrameLine(i int) int {
	if i == len(v.Frames)-1 {
		return v.currentLine
	}
	if i+1 < len(v.Frames) {
		return v.Frames[i+1].CallLine
	}
	return v.currentLine
}

// FrameFuncName returns the function name of frame i, or "" for the
// implicit top-level frame.
func (v *VM) FrameFuncName(i int) string {
	if i < 0 || i >= len(v.Frames) {
		return ""
	}
	return v.Frames[i].FuncName
}

// GlobalsSnapshot returns a copy of the global variable table (§6 get_vars).
func (v *VM) GlobalsSnapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(v.Globals))
	for k, val := range v.Globals {
		out[k] = val
	}
	return out
}

// LocalsSnapshot returns a copy of the innermost frame's locals, or nil at
// top level (§6 get_vars).
func (v *VM) LocalsSnapshot() map[string]value.Value {
	f := v.currentFrame()
	if f == nil {
		return nil
	}
	out := make(map[string]value.Value, len(f.Locals))
	for k, val := range f.Locals {
		out[k] = val
	}
	return out
}
