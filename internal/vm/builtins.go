package vm

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/modules"
	"github.com/jdbasic/jdbasic/internal/modules/nativedb"
	"github.com/jdbasic/jdbasic/internal/modules/nativeio"
	"github.com/jdbasic/jdbasic/internal/tensor"
	"github.com/jdbasic/jdbasic/internal/value"
)

// RegisterBuiltins installs jdbasic's native function library (§4.10
// autodiff tensor engine, §5 optimizer contract, plus the string/math/array
// builtins every BASIC dialect needs) into prog.Functions, grounded on the
// teacher's native-function registration in
// _examples/funvibe-funxy/internal/vm/builtins.go: one FunctionInfo per name
// with Native set and Arity recorded for documentation (native arity is
// enforced by each implementation, not by the call dispatcher).
func RegisterBuiltins(v *VM) {
	reg := func(name string, arity int, fn bytecode.NativeFunc) {
		v.Program.Functions[name] = &bytecode.FunctionInfo{
			Name: name, Arity: arity, Native: fn,
		}
	}

	// --- strings ---
	reg("LEN", 1, biLen)
	reg("LEFT$", 2, biLeft)
	reg("RIGHT$", 2, biRight)
	reg("MID$", -1, biMid)
	reg("UCASE$", 1, biUcase)
	reg("LCASE$", 1, biLcase)
	reg("TRIM$", 1, biTrim)
	reg("STR$", 1, biStrDollar)
	reg("VAL", 1, biVal)
	reg("CHR$", 1, biChr)
	reg("ASC", 1, biAsc)
	reg("INSTR", -1, biInstr)
	reg("SPLIT", 2, biSplit)
	reg("JOIN$", 2, biJoin)

	// --- math ---
	reg("ABS", 1, biAbs)
	reg("SQR", 1, biSqr)
	reg("INT", 1, biInt)
	reg("SGN", 1, biSgn)
	reg("RND", -1, biRnd)
	reg("SIN", 1, biMathFn(math.Sin))
	reg("COS", 1, biMathFn(math.Cos))
	reg("TAN", 1, biMathFn(math.Tan))
	reg("ATN", 1, biMathFn(math.Atan))
	reg("LOG", 1, biMathFn(math.Log))
	reg("EXP", 1, biMathFn(math.Exp))

	// --- arrays ---
	reg("UBOUND", -1, biUbound)
	reg("LBOUND", -1, biLbound)

	// --- introspection ---
	reg("TYPEOF$", 1, biTypeOf)

	// --- JSON (§4.11 nativeio-adjacent convenience) ---
	reg("JSON.PARSE", 1, biJSONParse)
	reg("JSON.STRINGIFY$", 1, biJSONStringify)

	// --- autodiff tensor engine (§4.10) ---
	reg("TENSOR.NEW", -1, biTensorNew)
	reg("TENSOR.SHAPE", 1, biTensorShape)
	reg("TENSOR.ADD", 2, biTensorBin(tensor.Add))
	reg("TENSOR.SUB", 2, biTensorBin(tensor.Sub))
	reg("TENSOR.MUL", 2, biTensorBin(tensor.Mul))
	reg("TENSOR.MATMUL", 2, biTensorBin(tensor.MatMul))
	reg("TENSOR.DIV", 2, biTensorDiv)
	reg("TENSOR.POW", 2, biTensorPow)
	reg("TENSOR.SUM", 1, biTensorUnary(func(t *tensor.Tensor) (*tensor.Tensor, error) { return tensor.Sum(t), nil }))
	reg("TENSOR.SIGMOID", 1, biTensorUnary(func(t *tensor.Tensor) (*tensor.Tensor, error) { return tensor.Sigmoid(t), nil }))
	reg("TENSOR.RELU", 1, biTensorUnary(func(t *tensor.Tensor) (*tensor.Tensor, error) { return tensor.ReLU(t), nil }))
	reg("TENSOR.SOFTMAX", -1, biTensorSoftmax)
	reg("TENSOR.CROSSENTROPY", 2, biTensorBin(tensor.CrossEntropyLoss))
	reg("TENSOR.LAYERNORM", 3, biTensorLayerNorm)
	reg("TENSOR.CONV2D", -1, biTensorConv2D)
	reg("TENSOR.MAXPOOL2D", -1, biTensorMaxPool2D)
	reg("TENSOR.BACKWARD", 1, biTensorBackward)
	reg("TENSOR.GRAD", 1, biTensorGrad)

	// --- optimizers (§5 SGD.UPDATE/ADAM.UPDATE contract) ---
	reg("SGD.NEW", 1, biSGDNew)
	reg("ADAM.NEW", 1, biAdamNew)
	reg("OPTIMIZER.UPDATE", 2, biOptimizerUpdate)

	// --- native modules (§4.11): DB access and model persistence ---
	modules.RegisterAll(reg, nativedb.New(), nativeio.New())
}

func rtErr(code errs.Code, msg string) error { return errs.New(code, 0, msg) }

func argCount(args []value.Value, n int, name string) error {
	if len(args) != n {
		return rtErr(errs.ArityTooFew, name+": expected "+strconv.Itoa(n)+" argument(s)")
	}
	return nil
}

func argString(args []value.Value, i int) string { return value.ToString(args[i]) }

func argNumber(args []value.Value, i int) (float64, error) {
	n, err := value.ToNumber(args[i])
	if err != nil {
		return 0, err
	}
	return n, nil
}

func argInt(args []value.Value, i int) (int, error) {
	n, err := argNumber(args, i)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// --- string builtins ---

func biLen(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "LEN"); err != nil {
		return value.Value{}, err
	}
	switch args[0].Kind {
	case value.KindString:
		return value.Int(int64(len(args[0].Str))), nil
	case value.KindArray:
		a, _ := args[0].AsArray()
		return value.Int(int64(a.Len())), nil
	case value.KindMap:
		m, _ := args[0].AsMap()
		return value.Int(int64(len(m.Keys))), nil
	default:
		return value.Int(int64(len(value.ToString(args[0])))), nil
	}
}

func biLeft(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "LEFT$"); err != nil {
		return value.Value{}, err
	}
	s := argString(args, 0)
	n, err := argInt(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return value.String(s[:n]), nil
}

func biRight(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "RIGHT$"); err != nil {
		return value.Value{}, err
	}
	s := argString(args, 0)
	n, err := argInt(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return value.String(s[len(s)-n:]), nil
}

func biMid(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return value.Value{}, rtErr(errs.ArityTooFew, "MID$: expected 2 or 3 arguments")
	}
	s := argString(args, 0)
	start, err := argInt(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	start--
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		start = len(s)
	}
	length := len(s) - start
	if len(args) == 3 {
		length, err = argInt(args, 2)
		if err != nil {
			return value.Value{}, err
		}
	}
	if length < 0 {
		length = 0
	}
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	return value.String(s[start:end]), nil
}

func biUcase(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "UCASE$"); err != nil {
		return value.Value{}, err
	}
	return value.String(strings.ToUpper(argString(args, 0))), nil
}

func biLcase(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "LCASE$"); err != nil {
		return value.Value{}, err
	}
	return value.String(strings.ToLower(argString(args, 0))), nil
}

func biTrim(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "TRIM$"); err != nil {
		return value.Value{}, err
	}
	return value.String(strings.TrimSpace(argString(args, 0))), nil
}

func biStrDollar(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "STR$"); err != nil {
		return value.Value{}, err
	}
	return value.String(value.ToString(args[0])), nil
}

func biVal(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "VAL"); err != nil {
		return value.Value{}, err
	}
	n, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Double(n), nil
}

func biChr(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "CHR$"); err != nil {
		return value.Value{}, err
	}
	n, err := argInt(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(string(rune(n))), nil
}

func biAsc(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "ASC"); err != nil {
		return value.Value{}, err
	}
	s := argString(args, 0)
	if s == "" {
		return value.Int(0), nil
	}
	return value.Int(int64(s[0])), nil
}

func biInstr(_ interface{}, args []value.Value) (value.Value, error) {
	var hay, needle string
	start := 0
	switch len(args) {
	case 2:
		hay, needle = argString(args, 0), argString(args, 1)
	case 3:
		n, err := argInt(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		start = n - 1
		hay, needle = argString(args, 1), argString(args, 2)
	default:
		return value.Value{}, rtErr(errs.ArityTooFew, "INSTR: expected 2 or 3 arguments")
	}
	if start < 0 {
		start = 0
	}
	if start > len(hay) {
		return value.Int(0), nil
	}
	idx := strings.Index(hay[start:], needle)
	if idx < 0 {
		return value.Int(0), nil
	}
	return value.Int(int64(start + idx + 1)), nil
}

func biSplit(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "SPLIT"); err != nil {
		return value.Value{}, err
	}
	parts := strings.Split(argString(args, 0), argString(args, 1))
	data := make([]value.Value, len(parts))
	for i, p := range parts {
		data[i] = value.String(p)
	}
	return value.ArrayVal(&value.Array{Data: data, Shape: []int{len(data)}}), nil
}

func biJoin(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "JOIN$"); err != nil {
		return value.Value{}, err
	}
	a, ok := args[0].AsArray()
	if !ok {
		return value.Value{}, rtErr(errs.TypeMismatch, "JOIN$ expects an array")
	}
	sep := argString(args, 1)
	parts := make([]string, len(a.Data))
	for i, v := range a.Data {
		parts[i] = value.ToString(v)
	}
	return value.String(strings.Join(parts, sep)), nil
}

// --- math builtins ---

func biAbs(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "ABS"); err != nil {
		return value.Value{}, err
	}
	if args[0].Kind == value.KindInt {
		n := args[0].Int
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	}
	n, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Double(math.Abs(n)), nil
}

func biSqr(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "SQR"); err != nil {
		return value.Value{}, err
	}
	n, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 {
		return value.Value{}, rtErr(errs.Arithmetic, "SQR of negative number")
	}
	return value.Double(math.Sqrt(n)), nil
}

func biInt(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "INT"); err != nil {
		return value.Value{}, err
	}
	n, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(math.Floor(n))), nil
}

func biSgn(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "SGN"); err != nil {
		return value.Value{}, err
	}
	n, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case n > 0:
		return value.Int(1), nil
	case n < 0:
		return value.Int(-1), nil
	default:
		return value.Int(0), nil
	}
}

func biRnd(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Double(rand.Float64()), nil
	}
	n, err := argInt(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if n <= 0 {
		return value.Double(rand.Float64()), nil
	}
	return value.Int(int64(rand.Intn(n))), nil
}

func biMathFn(f func(float64) float64) bytecode.NativeFunc {
	return func(_ interface{}, args []value.Value) (value.Value, error) {
		if err := argCount(args, 1, "math function"); err != nil {
			return value.Value{}, err
		}
		n, err := argNumber(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.Double(f(n)), nil
	}
}

// --- array builtins ---

func biUbound(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) == 0 || len(args) > 2 {
		return value.Value{}, rtErr(errs.ArityTooFew, "UBOUND: expected 1 or 2 arguments")
	}
	a, ok := args[0].AsArray()
	if !ok {
		return value.Value{}, rtErr(errs.TypeMismatch, "UBOUND expects an array")
	}
	dim := 0
	if len(args) == 2 {
		d, err := argInt(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		dim = d - 1
	}
	if dim < 0 || dim >= len(a.Shape) {
		return value.Value{}, rtErr(errs.SubscriptOutOfRange, "UBOUND: dimension out of range")
	}
	return value.Int(int64(a.Shape[dim] - 1)), nil
}

func biLbound(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) == 0 || len(args) > 2 {
		return value.Value{}, rtErr(errs.ArityTooFew, "LBOUND: expected 1 or 2 arguments")
	}
	return value.Int(0), nil
}

// --- introspection ---

func biTypeOf(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "TYPEOF$"); err != nil {
		return value.Value{}, err
	}
	if args[0].Kind == value.KindMap {
		if m, ok := args[0].AsMap(); ok && m.UDTType != "" {
			return value.String(m.UDTType), nil
		}
	}
	return value.String(args[0].Kind.String()), nil
}

// --- JSON builtins ---

func biJSONParse(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "JSON.PARSE"); err != nil {
		return value.Value{}, err
	}
	var data interface{}
	if err := json.Unmarshal([]byte(argString(args, 0)), &data); err != nil {
		return value.Value{}, rtErr(errs.IOGeneric, "JSON.PARSE: "+err.Error())
	}
	return value.JSONVal(&value.JSONObject{Data: data}), nil
}

func biJSONStringify(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "JSON.STRINGIFY$"); err != nil {
		return value.Value{}, err
	}
	j, ok := args[0].AsJSON()
	if !ok {
		return value.Value{}, rtErr(errs.TypeMismatch, "JSON.STRINGIFY$ expects a JSON value")
	}
	out, err := json.Marshal(j.Data)
	if err != nil {
		return value.Value{}, rtErr(errs.IOGeneric, "JSON.STRINGIFY$: "+err.Error())
	}
	return value.String(string(out)), nil
}

// --- tensor builtins (§4.10) ---

func argTensor(args []value.Value, i int) (*tensor.Tensor, error) {
	t, ok := args[i].AsTensor()
	if !ok {
		return nil, rtErr(errs.TypeMismatch, "expected a TENSOR value")
	}
	return t, nil
}

func biTensorNew(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) < 1 {
		return value.Value{}, rtErr(errs.ArityTooFew, "TENSOR.NEW: expected a shape array and optional data array")
	}
	shapeArr, ok := args[0].AsArray()
	if !ok {
		return value.Value{}, rtErr(errs.TypeMismatch, "TENSOR.NEW: first argument must be a shape array")
	}
	shape := make([]int, len(shapeArr.Data))
	n := 1
	for i, v := range shapeArr.Data {
		d, err := value.ToNumber(v)
		if err != nil {
			return value.Value{}, err
		}
		shape[i] = int(d)
		n *= shape[i]
	}
	data := make([]float64, n)
	if len(args) >= 2 {
		dataArr, ok := args[1].AsArray()
		if !ok {
			return value.Value{}, rtErr(errs.TypeMismatch, "TENSOR.NEW: second argument must be a data array")
		}
		for i := 0; i < n && i < len(dataArr.Data); i++ {
			d, err := value.ToNumber(dataArr.Data[i])
			if err != nil {
				return value.Value{}, err
			}
			data[i] = d
		}
	}
	return value.TensorVal(tensor.New(shape, data)), nil
}

func biTensorShape(_ interface{}, args []value.Value) (value.Value, error) {
	t, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	data := make([]value.Value, len(t.Shape))
	for i, s := range t.Shape {
		data[i] = value.Int(int64(s))
	}
	return value.ArrayVal(&value.Array{Data: data, Shape: []int{len(data)}}), nil
}

func biTensorBin(f func(a, b *tensor.Tensor) (*tensor.Tensor, error)) bytecode.NativeFunc {
	return func(_ interface{}, args []value.Value) (value.Value, error) {
		if err := argCount(args, 2, "tensor binary op"); err != nil {
			return value.Value{}, err
		}
		a, err := argTensor(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		b, err := argTensor(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		result, terr := f(a, b)
		if terr != nil {
			return value.Value{}, rtErr(errs.TypeMismatch, terr.Error())
		}
		return value.TensorVal(result), nil
	}
}

func biTensorUnary(f func(t *tensor.Tensor) (*tensor.Tensor, error)) bytecode.NativeFunc {
	return func(_ interface{}, args []value.Value) (value.Value, error) {
		if err := argCount(args, 1, "tensor unary op"); err != nil {
			return value.Value{}, err
		}
		t, err := argTensor(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		result, terr := f(t)
		if terr != nil {
			return value.Value{}, rtErr(errs.TypeMismatch, terr.Error())
		}
		return value.TensorVal(result), nil
	}
}

func biTensorDiv(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "TENSOR.DIV"); err != nil {
		return value.Value{}, err
	}
	t, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	scalar, nerr := argNumber(args, 1)
	if nerr != nil {
		return value.Value{}, nerr
	}
	result, terr := tensor.Div(t, scalar)
	if terr != nil {
		return value.Value{}, rtErr(errs.Arithmetic, terr.Error())
	}
	return value.TensorVal(result), nil
}

func biTensorPow(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "TENSOR.POW"); err != nil {
		return value.Value{}, err
	}
	t, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	n, nerr := argNumber(args, 1)
	if nerr != nil {
		return value.Value{}, nerr
	}
	return value.TensorVal(tensor.Pow(t, n)), nil
}

func biTensorSoftmax(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) == 0 || len(args) > 2 {
		return value.Value{}, rtErr(errs.ArityTooFew, "TENSOR.SOFTMAX: expected 1 or 2 arguments")
	}
	t, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	causal := false
	if len(args) == 2 {
		causal = value.ToBool(args[1])
	}
	result, terr := tensor.Softmax(t, causal)
	if terr != nil {
		return value.Value{}, rtErr(errs.TypeMismatch, terr.Error())
	}
	return value.TensorVal(result), nil
}

func biTensorLayerNorm(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 3, "TENSOR.LAYERNORM"); err != nil {
		return value.Value{}, err
	}
	x, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	gain, err := argTensor(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	bias, err := argTensor(args, 2)
	if err != nil {
		return value.Value{}, err
	}
	result, terr := tensor.LayerNorm(x, gain, bias)
	if terr != nil {
		return value.Value{}, rtErr(errs.TypeMismatch, terr.Error())
	}
	return value.TensorVal(result), nil
}

func biTensorConv2D(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) < 3 || len(args) > 5 {
		return value.Value{}, rtErr(errs.ArityTooFew, "TENSOR.CONV2D: expected input, kernel, bias, [stride, padding]")
	}
	input, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	kernel, err := argTensor(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	bias, err := argTensor(args, 2)
	if err != nil {
		return value.Value{}, err
	}
	stride, padding := 1, 0
	if len(args) >= 4 {
		s, serr := argInt(args, 3)
		if serr != nil {
			return value.Value{}, serr
		}
		stride = s
	}
	if len(args) == 5 {
		p, perr := argInt(args, 4)
		if perr != nil {
			return value.Value{}, perr
		}
		padding = p
	}
	result, terr := tensor.Conv2D(input, kernel, bias, stride, padding)
	if terr != nil {
		return value.Value{}, rtErr(errs.TypeMismatch, terr.Error())
	}
	return value.TensorVal(result), nil
}

func biTensorMaxPool2D(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 3, "TENSOR.MAXPOOL2D"); err != nil {
		return value.Value{}, err
	}
	input, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	pool, perr := argInt(args, 1)
	if perr != nil {
		return value.Value{}, perr
	}
	stride, serr := argInt(args, 2)
	if serr != nil {
		return value.Value{}, serr
	}
	result, terr := tensor.MaxPool2D(input, pool, stride)
	if terr != nil {
		return value.Value{}, rtErr(errs.TypeMismatch, terr.Error())
	}
	return value.TensorVal(result), nil
}

func biTensorBackward(_ interface{}, args []value.Value) (value.Value, error) {
	t, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	tensor.Backward(t)
	return value.Nil(), nil
}

func biTensorGrad(_ interface{}, args []value.Value) (value.Value, error) {
	t, err := argTensor(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if t.Grad == nil {
		return value.Nil(), nil
	}
	return value.TensorVal(t.Grad), nil
}

// --- optimizers (§5) ---

func biSGDNew(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "SGD.NEW"); err != nil {
		return value.Value{}, err
	}
	lr, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.OpaqueVal(value.NewOpaqueHandle("OPTIMIZER", tensor.NewSGD(lr), nil)), nil
}

func biAdamNew(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 1, "ADAM.NEW"); err != nil {
		return value.Value{}, err
	}
	lr, err := argNumber(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.OpaqueVal(value.NewOpaqueHandle("OPTIMIZER", tensor.NewAdam(lr), nil)), nil
}

// biOptimizerUpdate implements the §5 SGD.UPDATE/ADAM.UPDATE contract:
// every entry of the model map must be a tensor (any other entry is a
// TypeMismatch error); each one with a Grad has the optimizer's rule
// applied in place, then its Grad is cleared.
func biOptimizerUpdate(_ interface{}, args []value.Value) (value.Value, error) {
	if err := argCount(args, 2, "OPTIMIZER.UPDATE"); err != nil {
		return value.Value{}, err
	}
	h, ok := args[0].AsOpaque()
	if !ok || h.TypeTag != "OPTIMIZER" {
		return value.Value{}, rtErr(errs.TypeMismatch, "OPTIMIZER.UPDATE expects an optimizer handle")
	}
	opt, ok := h.Ptr.(*tensor.Optimizer)
	if !ok {
		return value.Value{}, rtErr(errs.TypeMismatch, "OPTIMIZER.UPDATE: corrupt optimizer handle")
	}
	m, ok := args[1].AsMap()
	if !ok {
		return value.Value{}, rtErr(errs.TypeMismatch, "OPTIMIZER.UPDATE expects a model map")
	}
	model := make(map[string]*tensor.Tensor, len(m.Keys))
	for _, k := range m.Keys {
		v, _ := m.Get(k)
		t, ok := v.AsTensor()
		if !ok {
			return value.Value{}, rtErr(errs.TypeMismatch, fmt.Sprintf("OPTIMIZER.UPDATE: model entry %q is not a tensor", k))
		}
		model[k] = t
	}
	opt.Update(model)
	return value.Nil(), nil
}
