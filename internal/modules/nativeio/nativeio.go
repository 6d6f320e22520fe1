// Package nativeio implements model persistence (§6 Persisted state, §5
// supplemented feature): SAVEMODEL writes a model map (including tensors)
// to a JSON file, LOADMODEL reads one back. Tensors are encoded inline as
// {"__type__":"tensor","shape":[...],"data":[...]}, the exact shape
// spec.md's §6 names, grounded on how the original's training scripts
// round-trip weights to disk between runs (original_source/source).
package nativeio

import (
	"encoding/json"
	"os"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/modules"
	"github.com/jdbasic/jdbasic/internal/tensor"
	"github.com/jdbasic/jdbasic/internal/value"
)

// Module registers SAVEMODEL/LOADMODEL.
type Module struct{}

func New() *Module { return &Module{} }

func (m *Module) Register(reg modules.RegisterFunc) {
	reg("SAVEMODEL", 2, saveModel)
	reg("LOADMODEL", 1, loadModel)
}

func ioErr(msg string) error { return errs.New(errs.IOGeneric, 0, msg) }

func saveModel(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, ioErr("SAVEMODEL expects a path and a model")
	}
	path := value.ToString(args[0])
	encoded, err := toJSON(args[1])
	if err != nil {
		return value.Value{}, ioErr("SAVEMODEL: " + err.Error())
	}
	data, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return value.Value{}, ioErr("SAVEMODEL: " + err.Error())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return value.Value{}, ioErr("SAVEMODEL: " + err.Error())
	}
	return value.Nil(), nil
}

func loadModel(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, ioErr("LOADMODEL expects a path")
	}
	path := value.ToString(args[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, ioErr("LOADMODEL: " + err.Error())
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return value.Value{}, ioErr("LOADMODEL: " + err.Error())
	}
	return fromJSON(decoded), nil
}

// toJSON converts a jdbasic Value into a plain interface{} tree that
// encoding/json can marshal, encoding tensors with the "__type__":"tensor"
// envelope (§6 Persisted state) and recursing through maps/arrays so a
// model can nest sub-maps of tensors.
func toJSON(v value.Value) (interface{}, error) {
	switch v.Kind {
	case value.KindNil:
		return nil, nil
	case value.KindBool:
		return v.Bool, nil
	case value.KindInt:
		return v.Int, nil
	case value.KindDouble:
		return v.Double, nil
	case value.KindString:
		return v.Str, nil
	case value.KindTensor:
		t, _ := v.AsTensor()
		return tensorEnvelope{Type: "tensor", Shape: t.Shape, Data: t.Data}, nil
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]interface{}, len(m.Keys))
		for _, k := range m.Keys {
			val, _ := m.Get(k)
			encoded, err := toJSON(val)
			if err != nil {
				return nil, err
			}
			out[k] = encoded
		}
		return out, nil
	case value.KindArray:
		a, _ := v.AsArray()
		out := make([]interface{}, len(a.Data))
		for i, elem := range a.Data {
			encoded, err := toJSON(elem)
			if err != nil {
				return nil, err
			}
			out[i] = encoded
		}
		return out, nil
	default:
		return value.ToString(v), nil
	}
}

type tensorEnvelope struct {
	Type  string    `json:"__type__"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// fromJSON is toJSON's inverse: it recognizes the "__type__":"tensor"
// envelope and rebuilds a *tensor.Tensor, otherwise maps JSON's own
// object/array/scalar shapes onto jdbasic Maps/Arrays/scalars.
func fromJSON(data interface{}) value.Value {
	switch d := data.(type) {
	case nil:
		return value.Nil()
	case bool:
		return value.Bool(d)
	case float64:
		if d == float64(int64(d)) {
			return value.Int(int64(d))
		}
		return value.Double(d)
	case string:
		return value.String(d)
	case map[string]interface{}:
		if typeTag, ok := d["__type__"].(string); ok && typeTag == "tensor" {
			return value.TensorVal(tensorFromMap(d))
		}
		m := value.NewMap()
		for k, v := range d {
			m.Set(k, fromJSON(v))
		}
		return value.MapVal(m)
	case []interface{}:
		elems := make([]value.Value, len(d))
		for i, v := range d {
			elems[i] = fromJSON(v)
		}
		return value.ArrayVal(&value.Array{Data: elems, Shape: []int{len(elems)}})
	default:
		return value.Nil()
	}
}

func tensorFromMap(d map[string]interface{}) *tensor.Tensor {
	var shape []int
	if rawShape, ok := d["shape"].([]interface{}); ok {
		shape = make([]int, len(rawShape))
		for i, s := range rawShape {
			if n, ok := s.(float64); ok {
				shape[i] = int(n)
			}
		}
	}
	var data []float64
	if rawData, ok := d["data"].([]interface{}); ok {
		data = make([]float64, len(rawData))
		for i, v := range rawData {
			if n, ok := v.(float64); ok {
				data[i] = n
			}
		}
	}
	return tensor.New(shape, data)
}
