package vm

import (
	"testing"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
)

func TestRaiseWithNoHandlerPropagates(t *testing.T) {
	v := newTestVM()
	re := errs.New(errs.TypeMismatch, 3, "boom")
	if got := v.raise(re); got != re {
		t.Errorf("raise() = %v, want the original error propagated", got)
	}
}

func TestRaiseUnwindsToHandlerDepth(t *testing.T) {
	v := newTestVM()
	v.Frames = append(v.Frames, &Frame{FuncName: "OUTER"}, &Frame{FuncName: "INNER"})
	v.Stack = []value.Value{value.Int(1), value.Int(2), value.Int(3)}
	v.Handlers = append(v.Handlers, &Handler{
		CatchAddr:   42,
		FrameDepth:  1,
		StackDepth:  1,
	})

	re := errs.New(errs.Arithmetic, 7, "div by zero")
	if got := v.raise(re); got != nil {
		t.Fatalf("raise() = %v, want nil (handler found)", got)
	}

	if len(v.Frames) != 1 {
		t.Errorf("Frames truncated to %d, want 1", len(v.Frames))
	}
	if len(v.Stack) != 1 {
		t.Errorf("Stack truncated to %d, want 1", len(v.Stack))
	}
	if v.ip != 42 {
		t.Errorf("ip = %d, want 42", v.ip)
	}
	if v.needLinePrefix {
		t.Error("needLinePrefix should be false after a handler jump")
	}
	if v.Globals["ERR"].Int != int64(errs.Arithmetic) {
		t.Errorf("Globals[ERR] = %v, want %v", v.Globals["ERR"].Int, errs.Arithmetic)
	}
	if v.Globals["ERRMSG"].Str != "div by zero" {
		t.Errorf("Globals[ERRMSG] = %q, want %q", v.Globals["ERRMSG"].Str, "div by zero")
	}
}

func TestRaiseSkipsHandlerDeeperThanCurrentFrames(t *testing.T) {
	v := newTestVM()
	v.Handlers = append(v.Handlers,
		&Handler{CatchAddr: 10, FrameDepth: 0, StackDepth: 0},
		&Handler{CatchAddr: 99, FrameDepth: 5, StackDepth: 0},
	)
	re := errs.New(errs.IOError, 1, "fail")
	if got := v.raise(re); got != nil {
		t.Fatalf("raise() = %v, want nil", got)
	}
	if v.ip != 10 {
		t.Errorf("ip = %d, want 10 (the first handler whose FrameDepth fits)", v.ip)
	}
}
