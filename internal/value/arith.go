package value

import (
	"math"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/tensor"
)

// BinOp identifies a binary arithmetic/comparison operator for dispatch.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

// Arith implements §4.1's arithmetic/comparison dispatch: tensor operands
// always route through the autodiff engine (lifting a scalar operand to a
// rank-0 tensor first); array operands broadcast element-wise; string `+`
// concatenates; everything else coerces to double. line is used for error
// attribution (§4.2).
func Arith(op BinOp, a, b Value, line int) (Value, *errs.RuntimeError) {
	if a.Kind == KindTensor || b.Kind == KindTensor {
		return tensorArith(op, a, b, line)
	}
	if a.Kind == KindArray || b.Kind == KindArray {
		return arrayArith(op, a, b, line)
	}
	if op == OpAdd && a.Kind == KindString && b.Kind == KindString {
		return String(a.Str + b.Str), nil
	}
	if a.Kind == KindString || b.Kind == KindString {
		if op != OpAdd && isComparison(op) {
			return stringCompare(op, a, b)
		}
		return Nil(), errs.New(errs.TypeMismatch, line, "operator not supported on strings")
	}
	af, aerr := ToNumber(a)
	if aerr != nil {
		return Nil(), aerr
	}
	bf, berr := ToNumber(b)
	if berr != nil {
		return Nil(), berr
	}
	return scalarArith(op, af, bf, line)
}

func isComparison(op BinOp) bool {
	return op == OpEq || op == OpNe || op == OpLt || op == OpGt || op == OpLe || op == OpGe
}

func stringCompare(op BinOp, a, b Value) (Value, *errs.RuntimeError) {
	as, bs := ToString(a), ToString(b)
	switch op {
	case OpEq:
		return Bool(as == bs), nil
	case OpNe:
		return Bool(as != bs), nil
	case OpLt:
		return Bool(as < bs), nil
	case OpGt:
		return Bool(as > bs), nil
	case OpLe:
		return Bool(as <= bs), nil
	case OpGe:
		return Bool(as >= bs), nil
	}
	return Nil(), errs.New(errs.TypeMismatch, 0, "unsupported string comparison")
}

func scalarArith(op BinOp, a, b float64, line int) (Value, *errs.RuntimeError) {
	switch op {
	case OpAdd:
		return numVal(a + b), nil
	case OpSub:
		return numVal(a - b), nil
	case OpMul:
		return numVal(a * b), nil
	case OpDiv:
		if b == 0 {
			return Nil(), errs.New(errs.Arithmetic, line, "")
		}
		return numVal(a / b), nil
	case OpMod:
		if b == 0 {
			return Nil(), errs.New(errs.Arithmetic, line, "")
		}
		// §9 Open Question: MOD truncates via integer cast like the
		// original source; large values lose precision (documented
		// divergence point, see DESIGN.md).
		return numVal(float64(int64(a) % int64(b))), nil
	case OpPow:
		return numVal(math.Pow(a, b)), nil
	case OpEq:
		return Bool(a == b), nil
	case OpNe:
		return Bool(a != b), nil
	case OpLt:
		return Bool(a < b), nil
	case OpGt:
		return Bool(a > b), nil
	case OpLe:
		return Bool(a <= b), nil
	case OpGe:
		return Bool(a >= b), nil
	}
	return Nil(), errs.New(errs.TypeMismatch, line, "unsupported operator")
}

func numVal(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e18 {
		return Int(int64(f))
	}
	return Double(f)
}

// arrayArith implements the broadcast rules of §4.1: scalar-vs-array
// broadcasts the scalar to every element; row [1,C] against matrix [R,C]
// broadcasts across rows; identical shapes pair element-wise.
func arrayArith(op BinOp, a, b Value, line int) (Value, *errs.RuntimeError) {
	var shape []int
	var av, bv func(i int) Value

	aArr, aIsArr := a.AsArray()
	bArr, bIsArr := b.AsArray()

	switch {
	case aIsArr && bIsArr:
		if shapesEqual(aArr.Shape, bArr.Shape) {
			shape = aArr.Shape
			av = func(i int) Value { return aArr.Data[i] }
			bv = func(i int) Value { return bArr.Data[i] }
		} else if len(aArr.Shape) == 2 && len(bArr.Shape) == 2 && bArr.Shape[0] == 1 && aArr.Shape[1] == bArr.Shape[1] {
			shape = aArr.Shape
			cols := aArr.Shape[1]
			av = func(i int) Value { return aArr.Data[i] }
			bv = func(i int) Value { return bArr.Data[i%cols] }
		} else if len(aArr.Shape) == 2 && len(bArr.Shape) == 2 && aArr.Shape[0] == 1 && aArr.Shape[1] == bArr.Shape[1] {
			shape = bArr.Shape
			cols := bArr.Shape[1]
			av = func(i int) Value { return aArr.Data[i%cols] }
			bv = func(i int) Value { return bArr.Data[i] }
		} else {
			return Nil(), errs.New(errs.TypeMismatch, line, "incompatible array shapes")
		}
	case aIsArr && !bIsArr:
		shape = aArr.Shape
		av = func(i int) Value { return aArr.Data[i] }
		bv = func(i int) Value { return b }
	case !aIsArr && bIsArr:
		shape = bArr.Shape
		av = func(i int) Value { return a }
		bv = func(i int) Value { return bArr.Data[i] }
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		r, err := Arith(op, av(i), bv(i), line)
		if err != nil {
			return Nil(), err
		}
		out[i] = r
	}
	return ArrayVal(&Array{Data: out, Shape: shape}), nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// tensorArith lifts any non-tensor operand to a rank-0 tensor and routes
// through internal/tensor (§4.1: "Tensor arithmetic always routes through
// the autodiff engine, even when one operand is scalar").
func tensorArith(op BinOp, a, b Value, line int) (Value, *errs.RuntimeError) {
	at, aerr := asTensorOperand(a, line)
	if aerr != nil {
		return Nil(), aerr
	}
	bt, berr := asTensorOperand(b, line)
	if berr != nil {
		return Nil(), berr
	}
	var result *tensor.Tensor
	var err error
	switch op {
	case OpAdd:
		result, err = tensor.Add(at, bt)
	case OpSub:
		result, err = tensor.Sub(at, bt)
	case OpMul:
		result, err = tensor.Mul(at, bt)
	case OpDiv:
		if len(bt.Shape) != 0 {
			return Nil(), errs.New(errs.TypeMismatch, line, "tensor division requires a scalar divisor")
		}
		result, err = tensor.Div(at, bt.Data[0])
	case OpPow:
		if len(bt.Shape) != 0 {
			return Nil(), errs.New(errs.TypeMismatch, line, "tensor pow requires a scalar exponent")
		}
		result = tensor.Pow(at, bt.Data[0])
	default:
		return Nil(), errs.New(errs.TypeMismatch, line, "unsupported tensor operator")
	}
	if err != nil {
		return Nil(), errs.New(errs.TypeMismatch, line, err.Error())
	}
	return TensorVal(result), nil
}

func asTensorOperand(v Value, line int) (*tensor.Tensor, *errs.RuntimeError) {
	if t, ok := v.AsTensor(); ok {
		return t, nil
	}
	f, err := ToNumber(v)
	if err != nil {
		return nil, err
	}
	return tensor.Scalar(f), nil
}
