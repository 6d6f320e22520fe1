// Package value implements the tagged-union runtime Value (§3 Data Model,
// §4.1 Value Model & Coercions). It is grounded on the teacher's stack-value
// encoding in _examples/funvibe-funxy/internal/vm/value.go (a Kind tag plus a
// scalar payload plus an Object pointer for heap types) and on the field
// layout of BasicValue in
// _examples/original_source/include/Types.hpp.
package value

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jdbasic/jdbasic/internal/tensor"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindDateTime
	KindFuncRef
	KindTaskRef
	KindThreadHandle
	KindArray
	KindMap
	KindJSON
	KindTensor
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "NIL"
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INTEGER"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindDateTime:
		return "DATETIME"
	case KindFuncRef:
		return "FUNCREF"
	case KindTaskRef:
		return "TASK"
	case KindThreadHandle:
		return "THREAD"
	case KindArray:
		return "ARRAY"
	case KindMap:
		return "MAP"
	case KindJSON:
		return "JSON"
	case KindTensor:
		return "TENSOR"
	case KindOpaque:
		return "HANDLE"
	default:
		return "?"
	}
}

// Value is the VM's tagged union. Scalars are stored inline; containers and
// reference types live behind Obj so arrays/maps/tensors/handles share by
// reference the way §3's invariants require.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Double float64
	Str    string
	Time   time.Time
	Obj    interface{} // *Array, *Map, *JSONObject, *Tensor, *OpaqueHandle, FuncRef, TaskRef, ThreadHandle
}

func Nil() Value                  { return Value{Kind: KindNil} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func Double(d float64) Value      { return Value{Kind: KindDouble, Double: d} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func DateTime(t time.Time) Value  { return Value{Kind: KindDateTime, Time: t} }
func FuncRef(name string) Value   { return Value{Kind: KindFuncRef, Obj: FuncRefData{Name: name}} }
func TaskRef(id int) Value        { return Value{Kind: KindTaskRef, Obj: TaskRefData{ID: id}} }
func ThreadHandle(id string) Value {
	return Value{Kind: KindThreadHandle, Obj: ThreadHandleData{ID: id}}
}
func ArrayVal(a *Array) Value           { return Value{Kind: KindArray, Obj: a} }
func MapVal(m *Map) Value               { return Value{Kind: KindMap, Obj: m} }
func JSONVal(j *JSONObject) Value       { return Value{Kind: KindJSON, Obj: j} }
func OpaqueVal(h *OpaqueHandle) Value   { return Value{Kind: KindOpaque, Obj: h} }
func TensorVal(t *tensor.Tensor) Value  { return Value{Kind: KindTensor, Obj: t} }

// AsTensor returns the wrapped *tensor.Tensor, or ok=false if v is not a tensor.
func (v Value) AsTensor() (*tensor.Tensor, bool) {
	if v.Kind != KindTensor {
		return nil, false
	}
	t, ok := v.Obj.(*tensor.Tensor)
	return t, ok
}

// FuncRefData names a function resolved, uppercased, in the active function
// table (§3 invariant 5).
type FuncRefData struct{ Name string }

// TaskRefData identifies a cooperative task (§4.9).
type TaskRefData struct{ ID int }

// ThreadHandleData identifies a detached OS thread spawned by BSYNC (§4.9).
type ThreadHandleData struct{ ID string }

// NewThreadHandleID mints a unique id for a BSYNC thread handle.
func NewThreadHandleID() string { return uuid.NewString() }

// Array is an n-dimensional dense container (§3 invariant 1: len(Data) ==
// product(Shape)).
type Array struct {
	Data  []Value
	Shape []int
}

func NewArray(shape []int, fill Value) *Array {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(shape) == 0 {
		n = 0
	}
	data := make([]Value, n)
	for i := range data {
		data[i] = fill
	}
	return &Array{Data: data, Shape: append([]int(nil), shape...)}
}

func (a *Array) Len() int {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	if len(a.Shape) == 0 {
		return 0
	}
	return n
}

// FlatIndex converts per-dimension indices to a flat offset, per
// original_source Array::get_flat_index.
func (a *Array) FlatIndex(idx []int) (int, error) {
	if len(idx) != len(a.Shape) {
		return 0, fmt.Errorf("mismatched number of dimensions for indexing")
	}
	flat := 0
	mult := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		if idx[i] < 0 || idx[i] >= a.Shape[i] {
			return 0, fmt.Errorf("array index out of bounds")
		}
		flat += idx[i] * mult
		mult *= a.Shape[i]
	}
	return flat, nil
}

// Map is an insertion-order-preserving string-keyed mapping (§3), optionally
// tagged with a UDT type name.
type Map struct {
	Keys    []string
	Values  map[string]Value
	UDTType string // "" when this is a plain map
}

func NewMap() *Map {
	return &Map{Values: make(map[string]Value)}
}

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.Values[key]
	return v, ok
}

func (m *Map) Set(key string, v Value) {
	if _, exists := m.Values[key]; !exists {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = v
}

func (m *Map) Delete(key string) {
	if _, exists := m.Values[key]; exists {
		delete(m.Values, key)
		for i, k := range m.Keys {
			if k == key {
				m.Keys = append(m.Keys[:i], m.Keys[i+1:]...)
				break
			}
		}
	}
}

// JSONObject wraps a parsed JSON tree, indexable by key or integer position.
type JSONObject struct {
	Data interface{} // map[string]interface{}, []interface{}, or scalar
}

// OpaqueHandle wraps an external resource with a caller-supplied dropper
// (§3 invariant 4), grounded on original_source/include/Types.hpp's
// OpaqueHandle (ptr + type_name + deleter).
type OpaqueHandle struct {
	ID      string
	TypeTag string
	Ptr     interface{}
	dropper func(interface{})
	dropped bool
}

func NewOpaqueHandle(typeTag string, ptr interface{}, dropper func(interface{})) *OpaqueHandle {
	return &OpaqueHandle{ID: uuid.NewString(), TypeTag: typeTag, Ptr: ptr, dropper: dropper}
}

// Drop invokes the dropper exactly once (§3 invariant 4).
func (h *OpaqueHandle) Drop() {
	if h.dropped {
		return
	}
	h.dropped = true
	if h.dropper != nil {
		h.dropper(h.Ptr)
	}
}

func (v Value) AsArray() (*Array, bool) {
	a, ok := v.Obj.(*Array)
	return a, ok && v.Kind == KindArray
}

func (v Value) AsMap() (*Map, bool) {
	m, ok := v.Obj.(*Map)
	return m, ok && v.Kind == KindMap
}

func (v Value) AsJSON() (*JSONObject, bool) {
	j, ok := v.Obj.(*JSONObject)
	return j, ok && v.Kind == KindJSON
}

func (v Value) AsOpaque() (*OpaqueHandle, bool) {
	h, ok := v.Obj.(*OpaqueHandle)
	return h, ok && v.Kind == KindOpaque
}

func (v Value) AsFuncRef() (string, bool) {
	f, ok := v.Obj.(FuncRefData)
	return f.Name, ok && v.Kind == KindFuncRef
}

func (v Value) AsTaskRef() (int, bool) {
	t, ok := v.Obj.(TaskRefData)
	return t.ID, ok && v.Kind == KindTaskRef
}

func (v Value) AsThreadHandle() (string, bool) {
	t, ok := v.Obj.(ThreadHandleData)
	return t.ID, ok && v.Kind == KindThreadHandle
}
