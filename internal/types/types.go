// Package types implements the UDT registry (§3 User-defined types). A
// TypeInfo records a record type's member declarations and its methods;
// methods are stored under the mangled key TYPE_NAME.METHOD_NAME in the
// compiler's function table (§4.4).
package types

import (
	"strings"
	"time"

	"github.com/jdbasic/jdbasic/internal/value"
)

// MemberDecl is one declared member of a UDT.
type MemberDecl struct {
	Name         string
	DeclaredType string // "INTEGER", "DOUBLE", "STRING", "BOOL", "MAP", "DATETIME", or "" (DEFAULT)
}

// TypeInfo is a record type: name, ordered member declarations, and a list
// of method short names. The compiler's prescan fills Name and Members
// only; MethodNames is left empty.
type TypeInfo struct {
	Name        string
	Members     []MemberDecl
	MethodNames []string
}

// Registry maps uppercased type name to TypeInfo, built by the compiler's
// pre-scan pass (§4.4 Pass 0).
type Registry struct {
	types map[string]*TypeInfo
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeInfo)}
}

func (r *Registry) Define(name string) *TypeInfo {
	name = strings.ToUpper(name)
	t := &TypeInfo{Name: name}
	r.types[name] = t
	return t
}

func (r *Registry) Lookup(name string) (*TypeInfo, bool) {
	t, ok := r.types[strings.ToUpper(name)]
	return t, ok
}

// MangleMethod builds the TYPE.METHOD function-table key (§4.4).
func MangleMethod(typeName, methodName string) string {
	return strings.ToUpper(typeName) + "." + strings.ToUpper(methodName)
}

// Instantiate builds a fresh instance: a *value.Map tagged with udt-type-name
// whose members are zero-valued per their declared type (§3: numerics->0,
// strings->"", booleans->false, maps->empty, date-times->epoch).
func (r *Registry) Instantiate(name string) (*value.Map, bool) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	m := value.NewMap()
	m.UDTType = t.Name
	for _, member := range t.Members {
		m.Set(member.Name, zeroValue(member.DeclaredType))
	}
	return m, true
}

func zeroValue(declaredType string) value.Value {
	switch strings.ToUpper(declaredType) {
	case "INTEGER":
		return value.Int(0)
	case "DOUBLE":
		return value.Double(0)
	case "STRING":
		return value.String("")
	case "BOOL":
		return value.Bool(false)
	case "MAP":
		return value.MapVal(value.NewMap())
	case "DATETIME":
		return value.DateTime(time.Unix(0, 0))
	default:
		return value.Int(0)
	}
}
