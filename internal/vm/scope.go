package vm

import (
	"strings"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/tensor"
	"github.com/jdbasic/jdbasic/internal/value"
)

// getVar resolves a variable reference (§4.7 scoping): locals in the
// current frame shadow globals. A dotted compound name (produced by the
// lexer's identifier fusion, e.g. OBJ.MEMBER) is resolved as base-variable
// lookup followed by nested Map.Get traversal, so UDT field access never
// needs a dedicated compiler opcode.
func (v *VM) getVar(name string) (value.Value, *errs.RuntimeError) {
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		base, path := name[:idx], name[idx+1:]
		baseVal, err := v.getVar(base)
		if err != nil {
			return value.Value{}, err
		}
		return v.getMemberPath(baseVal, path)
	}
	if f := v.currentFrame(); f != nil {
		if val, ok := f.Locals[name]; ok {
			return val, nil
		}
	}
	if val, ok := v.Globals[name]; ok {
		return val, nil
	}
	return value.Value{}, v.runtimeErr(errs.NameNotFound, name)
}

func (v *VM) getMemberPath(base value.Value, path string) (value.Value, *errs.RuntimeError) {
	if t, ok := base.AsTensor(); ok {
		return v.tensorMemberPath(t, path)
	}
	m, ok := base.AsMap()
	if !ok {
		return value.Value{}, v.runtimeErr(errs.TypeMismatch, "member access on non-record value")
	}
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		head, rest := path[:idx], path[idx+1:]
		next, ok := m.Get(head)
		if !ok {
			return value.Value{}, v.runtimeErr(errs.NameNotFound, head)
		}
		return v.getMemberPath(next, rest)
	}
	val, ok := m.Get(path)
	if !ok {
		return value.Value{}, v.runtimeErr(errs.NameNotFound, path)
	}
	return val, nil
}

// tensorMemberPath resolves dot access on a tensor base (§4.6 trailing
// accessors: "map/UDT/COM/tensor .grad"). GRAD is the only tensor member;
// it reads Nil when no gradient has been recorded yet.
func (v *VM) tensorMemberPath(t *tensor.Tensor, path string) (value.Value, *errs.RuntimeError) {
	head, rest := path, ""
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		head, rest = path[:idx], path[idx+1:]
	}
	if head != "GRAD" {
		return value.Value{}, v.runtimeErr(errs.NameNotFound, head)
	}
	if t.Grad == nil {
		if rest != "" {
			return value.Value{}, v.runtimeErr(errs.TypeMismatch, "member access on non-record value")
		}
		return value.Nil(), nil
	}
	if rest == "" {
		return value.TensorVal(t.Grad), nil
	}
	return v.tensorMemberPath(t.Grad, rest)
}

// setVar stores to a variable reference, creating it in the current scope
// if absent, and splitting dotted compound names into a UDT field set
// (§3 invariant: UDT member writes mutate the shared record in place).
func (v *VM) setVar(name string, val value.Value) *errs.RuntimeError {
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		base, path := name[:idx], name[idx+1:]
		baseVal, err := v.getVar(base)
		if err != nil {
			return err
		}
		return v.setMemberPath(baseVal, path, val)
	}
	if f := v.currentFrame(); f != nil {
		if _, ok := f.Locals[name]; ok {
			f.Locals[name] = val
			return nil
		}
		if _, ok := v.Globals[name]; !ok {
			f.Locals[name] = val
			return nil
		}
	}
	v.Globals[name] = val
	return nil
}

func (v *VM) setMemberPath(base value.Value, path string, val value.Value) *errs.RuntimeError {
	m, ok := base.AsMap()
	if !ok {
		return v.runtimeErr(errs.TypeMismatch, "member assignment on non-record value")
	}
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		head, rest := path[:idx], path[idx+1:]
		next, ok := m.Get(head)
		if !ok {
			return v.runtimeErr(errs.NameNotFound, head)
		}
		return v.setMemberPath(next, rest, val)
	}
	m.Set(path, val)
	return nil
}

// declareVar implements DIM (§4.4/§3): always declares in the innermost
// active scope (local inside a FUNC/SUB body, global at top level).
func (v *VM) declareVar(name string, val value.Value) {
	if f := v.currentFrame(); f != nil {
		f.Locals[name] = val
		return
	}
	v.Globals[name] = val
}
