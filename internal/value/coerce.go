package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jdbasic/jdbasic/internal/errs"
	"github.com/jdbasic/jdbasic/internal/tensor"
)

// ToNumber implements §4.1's to-number coercion. Arrays/maps/json fail with
// errs.TypeMismatch unless the caller has already special-cased them.
func ToNumber(v Value) (float64, *errs.RuntimeError) {
	switch v.Kind {
	case KindNil:
		return 0, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindInt:
		return float64(v.Int), nil
	case KindDouble:
		return v.Double, nil
	case KindString:
		return parseLeadingNumber(v.Str), nil
	case KindDateTime:
		return float64(v.Time.Unix()), nil
	default:
		return 0, errs.New(errs.TypeMismatch, 0, "cannot convert "+v.Kind.String()+" to a number")
	}
}

// parseLeadingNumber parses a leading decimal number (optional sign, decimal
// point); unparseable strings fall back to 0 (§4.1 to-number).
func parseLeadingNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r == '+' || r == '-':
			if i != 0 {
				goto done
			}
		case r == '.':
			if seenDot {
				goto done
			}
			seenDot = true
		case r >= '0' && r <= '9':
			seenDigit = true
		default:
			goto done
		}
		end = i + 1
	}
done:
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

// ToBool implements §4.1's to-bool coercion.
func ToBool(v Value) bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindDouble:
		return v.Double != 0
	case KindString:
		return v.Str != ""
	case KindArray:
		a, _ := v.AsArray()
		return a.Len() != 0
	case KindMap:
		m, _ := v.AsMap()
		return len(m.Keys) != 0
	default:
		return true
	}
}

// ToString implements §4.1's to-string coercion: every variant produces a
// canonical textual form. Dates use local civil time "YYYY-MM-DD HH:MM:SS".
func ToString(v Value) string {
	switch v.Kind {
	case KindNil:
		return ""
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDouble:
		return formatDouble(v.Double)
	case KindString:
		return v.Str
	case KindDateTime:
		return v.Time.In(time.Local).Format("2006-01-02 15:04:05")
	case KindFuncRef:
		name, _ := v.AsFuncRef()
		return "@" + name
	case KindTaskRef:
		id, _ := v.AsTaskRef()
		return fmt.Sprintf("<task %d>", id)
	case KindThreadHandle:
		id, _ := v.AsThreadHandle()
		return fmt.Sprintf("<thread %s>", id)
	case KindArray:
		a, _ := v.AsArray()
		return arrayToString(a)
	case KindMap:
		m, _ := v.AsMap()
		return mapToString(m)
	case KindJSON:
		j, _ := v.AsJSON()
		return fmt.Sprintf("%v", j.Data)
	case KindTensor:
		t, _ := v.AsTensor()
		return tensorToString(t)
	case KindOpaque:
		h, _ := v.AsOpaque()
		return fmt.Sprintf("<handle %s:%s>", h.TypeTag, h.ID)
	default:
		return ""
	}
}

func formatDouble(d float64) string {
	s := strconv.FormatFloat(d, 'g', -1, 64)
	return s
}

func arrayToString(a *Array) string {
	if len(a.Shape) <= 1 {
		parts := make([]string, len(a.Data))
		for i, v := range a.Data {
			parts[i] = ToString(v)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	// Nested rendering for rank >= 2: recurse over the outermost dimension.
	outer := a.Shape[0]
	innerShape := a.Shape[1:]
	innerLen := 1
	for _, s := range innerShape {
		innerLen *= s
	}
	var rows []string
	for i := 0; i < outer; i++ {
		sub := &Array{Data: a.Data[i*innerLen : (i+1)*innerLen], Shape: innerShape}
		rows = append(rows, arrayToString(sub))
	}
	return "[" + strings.Join(rows, " ") + "]"
}

func mapToString(m *Map) string {
	var parts []string
	for _, k := range m.Keys {
		v := m.Values[k]
		rendered := ToString(v)
		if v.Kind == KindString {
			rendered = strconv.Quote(v.Str)
		}
		parts = append(parts, fmt.Sprintf("%q: %s", k, rendered))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func tensorToString(t *tensor.Tensor) string {
	return floatArrayToString(t.Data, t.Shape)
}

func floatArrayToString(data []float64, shape []int) string {
	if len(shape) <= 1 {
		parts := make([]string, len(data))
		for i, v := range data {
			parts[i] = formatDouble(v)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	outer := shape[0]
	innerShape := shape[1:]
	innerLen := 1
	for _, s := range innerShape {
		innerLen *= s
	}
	var rows []string
	for i := 0; i < outer; i++ {
		rows = append(rows, floatArrayToString(data[i*innerLen:(i+1)*innerLen], innerShape))
	}
	return "[" + strings.Join(rows, " ") + "]"
}
