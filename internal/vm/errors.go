package vm

import (
	"fmt"
	"strings"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
)

// raise implements §7's unwind-to-handler-depth semantics: the innermost
// live TRY/CATCH/FINALLY frame is located, the call stack and value stack
// are truncated back to how they looked when that TRY was entered, and
// execution resumes at the handler's CATCH address. A nil return means
// execution should continue in the exec loop; a non-nil return means no
// handler exists and the error propagates out of Run.
func (v *VM) raise(re *errs.RuntimeError) *errs.RuntimeError {
	stack := v.stackTraceString()
	for len(v.Handlers) > 0 {
		h := v.Handlers[len(v.Handlers)-1]
		v.Handlers = v.Handlers[:len(v.Handlers)-1]
		if h.FrameDepth > len(v.Frames) {
			continue
		}
		v.Frames = v.Frames[:h.FrameDepth]
		if h.StackDepth < len(v.Stack) {
			v.Stack = v.Stack[:h.StackDepth]
		}
		v.Globals["ERR"] = value.Int(int64(re.Code))
		v.Globals["ERRMSG"] = value.String(re.Message)
		v.Globals["ERL"] = value.Int(int64(re.Line))
		v.Globals["STACK$"] = value.String(stack)
		v.ip = h.CatchAddr
		v.needLinePrefix = false
		return nil
	}
	return re
}

// stackTraceString renders the live call stack, innermost frame first, as
// "FUNCNAME(line)" entries (§4.2/§4.6 STACK$), the same frame data the
// debugger's get_stacktrace command reports.
func (v *VM) stackTraceString() string {
	entries := make([]string, 0, len(v.Frames)+1)
	for i := len(v.Frames) - 1; i >= 0; i-- {
		entries = append(entries, fmt.Sprintf("%s(%d)", v.Frames[i].FuncName, v.FrameLine(i)))
	}
	entries = append(entries, fmt.Sprintf("[Global](%d)", v.currentLine))
	return strings.Join(entries, " <- ")
}
