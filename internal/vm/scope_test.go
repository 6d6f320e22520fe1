package vm

import (
	"testing"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
)

func newTestVM() *VM {
	return New(bytecode.NewProgram(), nil)
}

func TestGetVarGlobalFallback(t *testing.T) {
	v := newTestVM()
	v.Globals["X"] = value.Int(7)
	got, err := v.getVar("X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 7 {
		t.Errorf("got %v, want 7", got.Int)
	}
}

func TestGetVarLocalShadowsGlobal(t *testing.T) {
	v := newTestVM()
	v.Globals["X"] = value.Int(1)
	v.Frames = append(v.Frames, &Frame{Locals: map[string]value.Value{"X": value.Int(99)}})
	got, err := v.getVar("X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 99 {
		t.Errorf("got %v, want 99 (local should shadow global)", got.Int)
	}
}

func TestGetVarUndefinedNameErrors(t *testing.T) {
	v := newTestVM()
	_, err := v.getVar("NOPE")
	if err == nil {
		t.Fatal("expected NameNotFound error")
	}
	if err.Code != errs.NameNotFound {
		t.Errorf("Code = %v, want NameNotFound", err.Code)
	}
}

func TestSetVarCreatesInInnermostScope(t *testing.T) {
	v := newTestVM()
	v.Frames = append(v.Frames, &Frame{Locals: map[string]value.Value{}})
	if err := v.setVar("NEWVAR", value.Int(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.Frames[0].Locals["NEWVAR"]; !ok {
		t.Error("expected NEWVAR to be declared in the local frame, not globals")
	}
	if _, ok := v.Globals["NEWVAR"]; ok {
		t.Error("NEWVAR leaked into globals")
	}
}

func TestSetVarUpdatesExistingGlobalFromInsideFrame(t *testing.T) {
	v := newTestVM()
	v.Globals["X"] = value.Int(1)
	v.Frames = append(v.Frames, &Frame{Locals: map[string]value.Value{}})
	if err := v.setVar("X", value.Int(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.Frames[0].Locals["X"]; ok {
		t.Error("X should update the existing global, not shadow it locally")
	}
	if v.Globals["X"].Int != 2 {
		t.Errorf("Globals[X] = %v, want 2", v.Globals["X"].Int)
	}
}

func TestDeclareVarAtTopLevelGoesToGlobals(t *testing.T) {
	v := newTestVM()
	v.declareVar("A", value.Int(3))
	if v.Globals["A"].Int != 3 {
		t.Errorf("Globals[A] = %v, want 3", v.Globals["A"].Int)
	}
}

func TestDeclareVarInsideFrameGoesToLocals(t *testing.T) {
	v := newTestVM()
	v.Frames = append(v.Frames, &Frame{Locals: map[string]value.Value{}})
	v.declareVar("A", value.Int(3))
	if _, ok := v.Globals["A"]; ok {
		t.Error("A should not have been declared globally")
	}
	if v.Frames[0].Locals["A"].Int != 3 {
		t.Errorf("Locals[A] = %v, want 3", v.Frames[0].Locals["A"].Int)
	}
}

func TestDottedNameResolvesUDTMember(t *testing.T) {
	v := newTestVM()
	rec := value.NewMap()
	rec.Set("X", value.Int(10))
	v.Globals["P"] = value.MapVal(rec)

	got, err := v.getVar("P.X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int != 10 {
		t.Errorf("got %v, want 10", got.Int)
	}
}

func TestDottedNameSetMutatesSharedRecord(t *testing.T) {
	v := newTestVM()
	rec := value.NewMap()
	rec.Set("X", value.Int(10))
	v.Globals["P"] = value.MapVal(rec)

	if err := v.setVar("P.X", value.Int(42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := rec.Get("X")
	if got.Int != 42 {
		t.Errorf("record field = %v, want 42 (should mutate in place)", got.Int)
	}
}

func TestDottedNameMemberAccessOnNonRecordFails(t *testing.T) {
	v := newTestVM()
	v.Globals["N"] = value.Int(5)
	_, err := v.getVar("N.X")
	if err == nil {
		t.Fatal("expected TypeMismatch error")
	}
	if err.Code != errs.TypeMismatch {
		t.Errorf("Code = %v, want TypeMismatch", err.Code)
	}
}

func TestStackPushPopRoundTrip(t *testing.T) {
	v := newTestVM()
	v.push(value.Int(1))
	v.push(value.Int(2))
	v.push(value.Int(3))
	got := v.popN(2)
	if len(got) != 2 || got[0].Int != 2 || got[1].Int != 3 {
		t.Errorf("popN(2) = %v, want [2 3]", got)
	}
	if top := v.pop(); top.Int != 1 {
		t.Errorf("pop() = %v, want 1", top.Int)
	}
}

func TestPopOnEmptyStackReturnsNil(t *testing.T) {
	v := newTestVM()
	got := v.pop()
	if got.Kind != value.KindNil {
		t.Errorf("pop() on empty stack = %v, want Nil", got.Kind)
	}
}

func TestCurrentFrameNilAtTopLevel(t *testing.T) {
	v := newTestVM()
	if v.currentFrame() != nil {
		t.Error("expected currentFrame() to be nil with no active frames")
	}
}

func TestGlobalsAndLocalsSnapshotAreCopies(t *testing.T) {
	v := newTestVM()
	v.Globals["X"] = value.Int(1)
	v.Frames = append(v.Frames, &Frame{Locals: map[string]value.Value{"Y": value.Int(2)}})

	gsnap := v.GlobalsSnapshot()
	gsnap["X"] = value.Int(999)
	if v.Globals["X"].Int != 1 {
		t.Error("GlobalsSnapshot should be a copy, not alias the live map")
	}

	lsnap := v.LocalsSnapshot()
	lsnap["Y"] = value.Int(999)
	if v.Frames[0].Locals["Y"].Int != 2 {
		t.Error("LocalsSnapshot should be a copy, not alias the live map")
	}
}

func TestLocalsSnapshotNilAtTopLevel(t *testing.T) {
	v := newTestVM()
	if v.LocalsSnapshot() != nil {
		t.Error("expected LocalsSnapshot() to be nil with no active frame")
	}
}
