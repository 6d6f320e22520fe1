package bytecode

import "github.com/jdbasic/jdbasic/internal/value"

// NativeFunc is an in-process native implementation (§3 Function record):
// "an in-process closure returning a value". vm is an opaque interface{}
// to avoid an import cycle; native implementations type-assert it to the
// VM facade they need (see internal/modules).
type NativeFunc func(vm interface{}, args []value.Value) (value.Value, error)

// FunctionInfo is the compiled description of one function/sub (§3 Function
// record).
type FunctionInfo struct {
	Name         string
	Arity        int // -1 = variadic
	IsProcedure  bool // SUB (no return value) vs FUNC
	IsExported   bool
	IsAsync      bool
	ModuleName   string
	StartOffset  int // offset into the owning Chunk
	ParamNames   []string
	Native       NativeFunc // nil unless this is a builtin/plugin function
}

// FunctionTable maps uppercased function name to its FunctionInfo (§3, §4.4).
type FunctionTable map[string]*FunctionInfo

// Program is the compiler's output for one compilation unit: the main
// chunk plus its function table, and any linked module programs (§4.4
// Module linking).
type Program struct {
	Chunk     *Chunk
	Functions FunctionTable
	Labels    map[string]int // label name -> bytecode offset (§4.4 GOTO)
	Modules   map[string]*Program
}

func NewProgram() *Program {
	return &Program{
		Chunk:     NewChunk(),
		Functions: make(FunctionTable),
		Labels:    make(map[string]int),
		Modules:   make(map[string]*Program),
	}
}
