package vm

import (
	"strings"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/value"
)

// execExprOp executes one expression-position opcode (§4.6): literals,
// variable access, containers, and operators, all as a flat stack
// reduction over bytecode the compiler already resolved into postfix
// order. handled is false for an opcode this function does not own (the caller
// falls back to statement-level handling).
func (v *VM) execExprOp(op bytecode.Op) (handled bool, rerr *errs.RuntimeError) {
	switch op {
	case bytecode.OP_INTEGER_LITERAL:
		v.push(value.Int(v.fetchInt64()))
	case bytecode.OP_NUMBER:
		v.push(value.Double(v.fetchFloat64()))
	case bytecode.OP_STRING_CONST:
		v.push(value.String(v.fetchCString()))
	case bytecode.OP_TRUE:
		v.push(value.Bool(true))
	case bytecode.OP_FALSE:
		v.push(value.Bool(false))
	case bytecode.OP_NIL:
		v.push(value.Nil())

	case bytecode.OP_LOAD_VAR:
		name := v.fetchCString()
		val, err := v.getVar(name)
		if err != nil {
			return true, err
		}
		v.push(val)
	case bytecode.OP_STORE_VAR:
		name := v.fetchCString()
		val := v.pop()
		if err := v.setVar(name, val); err != nil {
			return true, err
		}
	case bytecode.OP_LOAD_CONST_NAME:
		name := v.fetchCString()
		v.push(v.loadConst(name))

	case bytecode.OP_FUNCREF:
		name := v.fetchCString()
		v.push(value.FuncRef(name))

	case bytecode.OP_MAKE_ARRAY:
		n := int(v.fetchUint16())
		vals := v.popN(n)
		v.push(value.ArrayVal(&value.Array{Data: vals, Shape: []int{len(vals)}}))

	case bytecode.OP_MAKE_MAP:
		n := int(v.fetchUint16())
		pairs := v.popN(n * 2)
		m := value.NewMap()
		for i := 0; i+1 < len(pairs); i += 2 {
			m.Set(pairs[i].Str, pairs[i+1])
		}
		v.push(value.MapVal(m))

	case bytecode.OP_INDEX:
		n := int(v.fetchByte())
		idxVals := v.popN(n)
		container := v.pop()
		result, err := v.indexGet(container, idxVals)
		if err != nil {
			return true, err
		}
		v.push(result)
	case bytecode.OP_INDEX_SET:
		name := v.fetchCString()
		n := int(v.fetchByte())
		rhs := v.pop()
		idxVals := v.popN(n)
		if err := v.indexSet(name, idxVals, rhs); err != nil {
			return true, err
		}
	case bytecode.OP_MAP_KEY:
		key := v.pop()
		container := v.pop()
		m, ok := container.AsMap()
		if !ok {
			return true, v.runtimeErr(errs.TypeMismatch, "{} access on non-map value")
		}
		val, _ := m.Get(value.ToString(key))
		v.push(val)
	case bytecode.OP_MAP_KEY_SET:
		name := v.fetchCString()
		rhs := v.pop()
		key := v.pop()
		val, err := v.getVar(name)
		if err != nil {
			return true, err
		}
		m, ok := val.AsMap()
		if !ok {
			return true, v.runtimeErr(errs.TypeMismatch, "{} assignment on non-map value")
		}
		m.Set(value.ToString(key), rhs)
	case bytecode.OP_DOT_GET:
		member := v.fetchCString()
		base := v.pop()
		result, err := v.getMemberPath(base, member)
		if err != nil {
			return true, err
		}
		v.push(result)
	case bytecode.OP_DOT_SET:
		member := v.fetchCString()
		rhs := v.pop()
		base := v.pop()
		if err := v.setMemberPath(base, member, rhs); err != nil {
			return true, err
		}

	case bytecode.OP_ADD, bytecode.OP_SUB, bytecode.OP_MUL, bytecode.OP_DIV, bytecode.OP_MOD, bytecode.OP_POW,
		bytecode.OP_EQ, bytecode.OP_NE, bytecode.OP_LT, bytecode.OP_GT, bytecode.OP_LE, bytecode.OP_GE:
		b := v.pop()
		a := v.pop()
		result, err := value.Arith(binOpFor(op), a, b, v.currentLine)
		if err != nil {
			return true, err
		}
		v.push(result)
	case bytecode.OP_NEG:
		a := v.pop()
		result, err := value.Arith(value.OpSub, value.Int(0), a, v.currentLine)
		if err != nil {
			return true, err
		}
		v.push(result)
	case bytecode.OP_NOT:
		a := v.pop()
		v.push(value.Bool(!value.ToBool(a)))
	case bytecode.OP_AND:
		b := v.pop()
		a := v.pop()
		v.push(value.Bool(value.ToBool(a) && value.ToBool(b)))
	case bytecode.OP_OR:
		b := v.pop()
		a := v.pop()
		v.push(value.Bool(value.ToBool(a) || value.ToBool(b)))

	default:
		return false, nil
	}
	return true, nil
}

func (v *VM) loadConst(name string) value.Value {
	switch strings.ToUpper(name) {
	case "ERR":
		if val, ok := v.Globals["ERR"]; ok {
			return val
		}
		return value.Int(0)
	case "ERRMSG":
		if val, ok := v.Globals["ERRMSG"]; ok {
			return val
		}
		return value.String("")
	case "ERL":
		if val, ok := v.Globals["ERL"]; ok {
			return val
		}
		return value.Int(0)
	case "STACK$":
		if val, ok := v.Globals["STACK$"]; ok {
			return val
		}
		return value.String("")
	case "PI":
		return value.Double(3.14159265358979323846)
	case "VBNEWLINE":
		return value.String("\n")
	}
	val, err := v.getVar(name)
	if err != nil {
		return value.Nil()
	}
	return val
}

func (v *VM) indexGet(container value.Value, idxVals []value.Value) (value.Value, *errs.RuntimeError) {
	switch container.Kind {
	case value.KindArray:
		a, _ := container.AsArray()
		idx, err := v.intIndices(idxVals)
		if err != nil {
			return value.Value{}, err
		}
		flat, ferr := a.FlatIndex(idx)
		if ferr != nil {
			return value.Value{}, v.runtimeErr(errs.SubscriptOutOfRange, ferr.Error())
		}
		return a.Data[flat], nil
	case value.KindMap:
		m, _ := container.AsMap()
		if len(idxVals) != 1 {
			return value.Value{}, v.runtimeErr(errs.SubscriptOutOfRange, "map index requires exactly one key")
		}
		val, _ := m.Get(value.ToString(idxVals[0]))
		return val, nil
	case value.KindString:
		if len(idxVals) != 1 {
			return value.Value{}, v.runtimeErr(errs.SubscriptOutOfRange, "string index requires exactly one position")
		}
		n, _ := value.ToNumber(idxVals[0])
		i := int(n)
		if i < 0 || i >= len(container.Str) {
			return value.Value{}, v.runtimeErr(errs.SubscriptOutOfRange, "string index out of range")
		}
		return value.String(string(container.Str[i])), nil
	default:
		return value.Value{}, v.runtimeErr(errs.TypeMismatch, "value is not indexable")
	}
}

func (v *VM) indexSet(name string, idxVals []value.Value, rhs value.Value) *errs.RuntimeError {
	container, err := v.getVar(name)
	if err != nil {
		return err
	}
	switch container.Kind {
	case value.KindArray:
		a, _ := container.AsArray()
		idx, ierr := v.intIndices(idxVals)
		if ierr != nil {
			return ierr
		}
		flat, ferr := a.FlatIndex(idx)
		if ferr != nil {
			return v.runtimeErr(errs.SubscriptOutOfRange, ferr.Error())
		}
		a.Data[flat] = rhs
		return nil
	case value.KindMap:
		m, _ := container.AsMap()
		if len(idxVals) != 1 {
			return v.runtimeErr(errs.SubscriptOutOfRange, "map index requires exactly one key")
		}
		m.Set(value.ToString(idxVals[0]), rhs)
		return nil
	default:
		return v.runtimeErr(errs.TypeMismatch, "value is not indexable")
	}
}

func (v *VM) intIndices(vals []value.Value) ([]int, *errs.RuntimeError) {
	out := make([]int, len(vals))
	for i, val := range vals {
		n, err := value.ToNumber(val)
		if err != nil {
			return nil, err
		}
		out[i] = int(n)
	}
	return out, nil
}

func binOpFor(op bytecode.Op) value.BinOp {
	switch op {
	case bytecode.OP_ADD:
		return value.OpAdd
	case bytecode.OP_SUB:
		return value.OpSub
	case bytecode.OP_MUL:
		return value.OpMul
	case bytecode.OP_DIV:
		return value.OpDiv
	case bytecode.OP_MOD:
		return value.OpMod
	case bytecode.OP_POW:
		return value.OpPow
	case bytecode.OP_EQ:
		return value.OpEq
	case bytecode.OP_NE:
		return value.OpNe
	case bytecode.OP_LT:
		return value.OpLt
	case bytecode.OP_GT:
		return value.OpGt
	case bytecode.OP_LE:
		return value.OpLe
	case bytecode.OP_GE:
		return value.OpGe
	}
	return value.OpAdd
}
