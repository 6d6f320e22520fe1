package vm

import (
	"strconv"
	"strings"
	"sync"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
)

func (v *VM) execPrint() *errs.RuntimeError {
	n := int(v.fetchByte())
	vals := v.popN(n)
	parts := make([]string, len(vals))
	for i, val := range vals {
		parts[i] = value.ToString(val)
	}
	v.fprintf("%s\n", strings.Join(parts, " "))
	return nil
}

func (v *VM) execInput() *errs.RuntimeError {
	prompt := v.fetchCString()
	name := v.fetchCString()
	if prompt != "" {
		v.fprintf("%s", prompt)
	}
	line, _ := v.In.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	var val value.Value
	if i, err := strconv.ParseInt(line, 10, 64); err == nil {
		val = value.Int(i)
	} else if f, err := strconv.ParseFloat(line, 64); err == nil {
		val = value.Double(f)
	} else {
		val = value.String(line)
	}
	return v.setVar(name, val)
}

func (v *VM) execDim() *errs.RuntimeError {
	name := v.fetchCString()
	ndims := int(v.fetchByte())
	typeName := v.fetchCString()
	var shape []int
	if ndims > 0 {
		dims := v.popN(ndims)
		shape = make([]int, ndims)
		for i, d := range dims {
			n, err := value.ToNumber(d)
			if err != nil {
				return err
			}
			shape[i] = int(n)
		}
	}
	switch {
	case ndims > 0:
		v.declareVar(name, value.ArrayVal(value.NewArray(shape, value.Int(0))))
	case typeName != "":
		inst, ok := v.Types.Instantiate(typeName)
		if !ok {
			return v.runtimeErr(errs.UndefinedFunction, "unknown type "+typeName)
		}
		v.declareVar(name, value.MapVal(inst))
	default:
		v.declareVar(name, value.Int(0))
	}
	return nil
}

// --- FOR/NEXT (§4.4) ---

func (v *VM) forStateMap() map[string]*forLoopState {
	if f := v.currentFrame(); f != nil {
		return f.ForState
	}
	if v.globalForState == nil {
		v.globalForState = make(map[string]*forLoopState)
	}
	return v.globalForState
}

func (v *VM) execForSetup() *errs.RuntimeError {
	name := v.fetchCString()
	hasStep := v.fetchByte() != 0
	step := 1.0
	if hasStep {
		stepVal := v.pop()
		n, err := value.ToNumber(stepVal)
		if err != nil {
			return err
		}
		step = n
	}
	limitVal := v.pop()
	limit, err := value.ToNumber(limitVal)
	if err != nil {
		return err
	}
	startVal, gerr := v.getVar(name)
	if gerr != nil {
		return gerr
	}
	v.forStateMap()[name] = &forLoopState{Limit: limit, Step: step, IsInt: startVal.Kind == value.KindInt}
	return nil
}

func (v *VM) execForNext() *errs.RuntimeError {
	addr := v.fetchUint16()
	name := v.fetchCString()
	st, ok := v.forStateMap()[name]
	if !ok {
		return v.runtimeErr(errs.NextWithoutFor, name)
	}
	cur, err := v.getVar(name)
	if err != nil {
		return err
	}
	n, _ := value.ToNumber(cur)
	n += st.Step
	var next value.Value
	if st.IsInt && n == float64(int64(n)) {
		next = value.Int(int64(n))
	} else {
		next = value.Double(n)
	}
	if serr := v.setVar(name, next); serr != nil {
		return serr
	}
	cont := (st.Step >= 0 && n <= st.Limit) || (st.Step < 0 && n >= st.Limit)
	if cont {
		v.ip = int(addr)
	}
	return nil
}

// --- Calls & returns (§4.7 scoping, §4.8) ---

func (v *VM) execCall() *errs.RuntimeError {
	name := v.fetchCString()
	argc := int(v.fetchByte())
	args := v.popN(argc)
	return v.dispatchCall(name, args)
}

func (v *VM) execCallValue() *errs.RuntimeError {
	argc := int(v.fetchByte())
	args := v.popN(argc)
	fnVal := v.pop()
	name, ok := fnVal.AsFuncRef()
	if !ok {
		return v.runtimeErr(errs.TypeMismatch, "value is not callable")
	}
	return v.dispatchCall(name, args)
}

func (v *VM) dispatchCall(name string, args []value.Value) *errs.RuntimeError {
	if strings.HasPrefix(name, "__NEW_") {
		typeName := name[len("__NEW_"):]
		inst, ok := v.Types.Instantiate(typeName)
		if !ok {
			return v.runtimeErr(errs.UndefinedFunction, "unknown type "+typeName)
		}
		v.push(value.MapVal(inst))
		return nil
	}
	if fi, ok := v.Program.Functions[name]; ok {
		if fi.Native != nil {
			result, err := fi.Native(v, args)
			if err != nil {
				if re, ok := err.(*errs.RuntimeError); ok {
					return re
				}
				return v.runtimeErr(errs.IOGeneric, err.Error())
			}
			v.push(result)
			return nil
		}
		result, unwound, err := v.callUser(fi, args)
		if err != nil {
			return err
		}
		if !unwound {
			v.push(result)
		}
		return nil
	}
	// A variable holding a function reference (e.g. a LAMBDA or a parameter
	// passed `&Name`) is called by resolving through it (§4.4 Lambdas),
	// so there is no separate dynamic-call opcode for the common case.
	if val, verr := v.getVar(name); verr == nil {
		if fname, ok := val.AsFuncRef(); ok && fname != name {
			return v.dispatchCall(fname, args)
		}
	}
	return v.runtimeErr(errs.UndefinedFunction, name)
}

// callUser runs a compiled FUNC/SUB body to completion synchronously,
// reusing the shared value/call stacks (§4.7). unwound is true when a RAISE
// inside the body was caught by a handler registered outside this call, in
// which case the VM's ip/stack were already repositioned by raise and the
// caller must not treat the top of stack as a return value.
func (v *VM) callUser(fi *bytecode.FunctionInfo, args []value.Value) (result value.Value, unwound bool, rerr *errs.RuntimeError) {
	if fi.Arity >= 0 {
		if len(args) < fi.Arity {
			return value.Value{}, false, v.runtimeErr(errs.ArityTooFew, fi.Name)
		}
		if len(args) > fi.Arity {
			return value.Value{}, false, v.runtimeErr(errs.ArityTooMany, fi.Name)
		}
	}
	locals := make(map[string]value.Value, len(fi.ParamNames))
	for i, p := range fi.ParamNames {
		if i < len(args) {
			locals[p] = args[i]
		} else {
			locals[p] = value.Nil()
		}
	}
	frame := &Frame{FuncName: fi.Name, ReturnAddr: v.ip, CallLine: v.currentLine, Locals: locals, ForState: make(map[string]*forLoopState)}
	v.Frames = append(v.Frames, frame)
	depth := len(v.Frames)

	v.ip = fi.StartOffset
	v.needLinePrefix = true

	for len(v.Frames) >= depth {
		finished, err := v.stepOnce()
		if err != nil {
			if re, ok := err.(*errs.RuntimeError); ok {
				return value.Value{}, false, re
			}
			return value.Value{}, false, v.runtimeErr(errs.IOGeneric, err.Error())
		}
		if finished {
			break
		}
	}
	if len(v.Frames) < depth-1 {
		return value.Value{}, true, nil
	}
	return v.pop(), false, nil
}

func (v *VM) execReturn() *errs.RuntimeError {
	val := v.pop()
	if len(v.Frames) == 0 {
		v.stopped = true
		v.push(val)
		return nil
	}
	frame := v.Frames[len(v.Frames)-1]
	v.Frames = v.Frames[:len(v.Frames)-1]
	v.ip = frame.ReturnAddr
	v.needLinePrefix = false
	v.push(val)
	return nil
}

// --- TRY/CATCH/RAISE (§4.4, §7) ---

func (v *VM) execRaise() *errs.RuntimeError {
	n := int(v.fetchByte())
	vals := v.popN(n)
	if len(vals) == 0 {
		return v.runtimeErr(errs.RaiseOutsideHandler, "RAISE with no arguments")
	}
	code, _ := value.ToNumber(vals[0])
	msg := ""
	if len(vals) > 1 {
		msg = value.ToString(vals[1])
	}
	return errs.New(errs.Code(int(code)), v.currentLine, msg)
}

// --- Tasks (§4.9) ---

func (v *VM) execStartTask() *errs.RuntimeError {
	name := v.fetchCString()
	argc := int(v.fetchByte())
	args := v.popN(argc)
	fi, ok := v.Program.Functions[name]
	if !ok {
		return v.runtimeErr(errs.UndefinedFunction, name)
	}
	v.taskSeq++
	id := v.taskSeq
	t := &taskRun{id: id, fn: fi, args: args, vm: v}
	v.taskByID[id] = t
	v.Sched.Spawn(t)
	v.push(value.TaskRef(id))
	return nil
}

func (v *VM) execAwait() *errs.RuntimeError {
	taskVal := v.pop()
	id, ok := taskVal.AsTaskRef()
	if !ok {
		v.push(taskVal)
		return nil
	}
	if serr := v.Sched.AwaitResult(id); serr != nil {
		if re, ok := serr.(*taskError); ok {
			return re.err
		}
	}
	t := v.taskByID[id]
	if t != nil {
		v.push(t.result)
	} else {
		v.push(value.Nil())
	}
	return nil
}

type taskError struct{ err *errs.RuntimeError }

func (e *taskError) Error() string { return e.err.Error() }

// taskRun is one cooperative task (§4.9), grounded on the Task interface of
// internal/sched: simplified to run its function body to completion on its
// first scheduler tick, rather than suspending mid-body, since jdbasic's
// bytecode VM has no resumable-continuation representation. Independently
// spawned tasks still interleave at START_TASK/AWAIT boundaries.
type taskRun struct {
	id     int
	fn     *bytecode.FunctionInfo
	args   []value.Value
	vm     *VM
	result value.Value
}

func (t *taskRun) ID() int { return t.id }

func (t *taskRun) Tick() (bool, error) {
	result, _, err := t.vm.callUser(t.fn, t.args)
	if err != nil {
		return true, &taskError{err: err}
	}
	t.result = result
	return true, nil
}

// --- BSYNC detached threads (§4.9, §5: original_source/jdb/async.cpp) ---

var bsyncResults = struct {
	sync.Mutex
	m map[string]value.Value
}{m: make(map[string]value.Value)}

func (v *VM) execBsync() *errs.RuntimeError {
	name := v.fetchCString()
	argc := int(v.fetchByte())
	args := v.popN(argc)
	fi, ok := v.Program.Functions[name]
	if !ok {
		return v.runtimeErr(errs.UndefinedFunction, name)
	}
	handle := value.NewThreadHandleID()
	clone := &VM{
		Program: v.Program, Types: v.Types, Globals: v.Globals,
		Natives: v.Natives, EventHandlers: v.EventHandlers,
		Sched: v.Sched, taskByID: make(map[int]*taskRun),
		Out: v.Out, In: v.In,
	}
	go func() {
		result, _, _ := clone.callUser(fi, args)
		bsyncResults.Lock()
		bsyncResults.m[handle] = result
		bsyncResults.Unlock()
	}()
	v.push(value.ThreadHandle(handle))
	return nil
}
