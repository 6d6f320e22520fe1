package vm

import (
	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
)

// exec runs the fetch-decode loop to completion (§4.8): one statement
// opcode or expression opcode at a time, delegating expression-position
// opcodes to execExprOp and handling everything control-flow/IO/call
// related here.
func (v *VM) exec() error {
	for !v.stopped {
		finished, err := v.stepOnce()
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
	}
	return nil
}

// stepOnce executes exactly one opcode (after consuming a pending line
// prefix, if any) and reports whether the program has reached OP_NOCMD.
func (v *VM) stepOnce() (finished bool, rerr error) {
	if v.needLinePrefix {
		lo := v.fetchByte()
		hi := v.fetchByte()
		v.currentLine = int(lo) | int(hi)<<8
		v.needLinePrefix = false
		if v.LineHook != nil {
			if herr := v.LineHook(v); herr != nil {
				return true, herr
			}
		}
	}

	op := bytecode.Op(v.fetchByte())

	if handled, err := v.execExprOp(op); handled {
		if err != nil {
			if remaining := v.raise(err); remaining != nil {
				return true, remaining
			}
		}
		return false, nil
	}

	var err *errs.RuntimeError
	switch op {
	case bytecode.OP_NOCMD:
		return true, nil
	case bytecode.OP_CR:
		v.needLinePrefix = true

	case bytecode.OP_POP:
		v.pop()

	case bytecode.OP_PRINT:
		err = v.execPrint()
	case bytecode.OP_INPUT:
		err = v.execInput()
	case bytecode.OP_DIM:
		err = v.execDim()

	case bytecode.OP_IF:
		addr := v.fetchUint16()
		cond := v.pop()
		if !value.ToBool(cond) {
			v.ip = int(addr)
		}
	case bytecode.OP_JUMP:
		addr := v.fetchUint16()
		v.ip = int(addr)

	case bytecode.OP_FOR_SETUP:
		err = v.execForSetup()
	case bytecode.OP_FOR_NEXT:
		err = v.execForNext()
	case bytecode.OP_EXIT_FOR, bytecode.OP_EXIT_DO:
		addr := v.fetchUint16()
		v.ip = int(addr)

	case bytecode.OP_FUNC_DECL:
		v.fetchCString() // name, informational; registered at compile time
		addr := v.fetchUint16()
		v.ip = int(addr)
	case bytecode.OP_LABEL:
		// no-op marker; labels are resolved to addresses at compile time

	case bytecode.OP_CALL_FUNC, bytecode.OP_CALL_SUB:
		err = v.execCall()
	case bytecode.OP_CALL_VALUE:
		err = v.execCallValue()
	case bytecode.OP_RETURN:
		err = v.execReturn()

	case bytecode.OP_PUSH_HANDLER:
		catch := v.fetchUint16()
		finally := v.fetchUint16()
		v.Handlers = append(v.Handlers, &Handler{
			CatchAddr: int(catch), FinallyAddr: int(finally),
			FrameDepth: len(v.Frames), StackDepth: len(v.Stack),
		})
	case bytecode.OP_POP_HANDLER:
		if len(v.Handlers) > 0 {
			v.Handlers = v.Handlers[:len(v.Handlers)-1]
		}
	case bytecode.OP_RAISE:
		err = v.execRaise()

	case bytecode.OP_START_TASK:
		err = v.execStartTask()
	case bytecode.OP_AWAIT:
		err = v.execAwait()
	case bytecode.OP_ON_EVENT:
		event := v.fetchCString()
		handler := v.fetchCString()
		v.EventHandlers[event] = handler
	case bytecode.OP_BSYNC_CALL:
		err = v.execBsync()

	default:
		err = v.runtimeErr(errs.UnknownTokenInExpr, "unimplemented opcode "+op.String())
	}

	if err != nil {
		if remaining := v.raise(err); remaining != nil {
			return true, remaining
		}
	}
	return false, nil
}
