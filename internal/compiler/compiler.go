// Package compiler implements the two-pass bytecode compiler (§4.4):
// Pass 0 pre-scans TYPE blocks and IMPORT/EXPORT directives; Pass 1 walks
// the source line by line, emitting a 2-byte line prefix then opcodes,
// using a fix-up-placeholder discipline for control flow.
//
// Grounded on the compiler shape of
// _examples/funvibe-funxy/internal/vm/compiler.go (a Compiler struct that
// owns the in-progress *Chunk plus scope/jump bookkeeping, split across
// compiler_statements.go/compiler_expressions.go/compiler_loops.go/
// compiler_scope.go) — jdbasic keeps that file split but drives a line-
// oriented BASIC grammar instead of funxy's expression language.
package compiler

import (
	"fmt"
	"strings"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/lexer"
	"github.com/jdbasic/jdbasic/internal/types"
)

// ifFrame tracks one IF/ELSEIF/ELSE/ENDIF block (§4.4).
type ifFrame struct {
	pendingCondJump int // offset of the placeholder for the still-unpatched conditional jump; -1 if none
	endJumps        []int // unconditional jumps (from ELSEIF/ELSE) to patch to ENDIF
	sourceLine      int
}

// forFrame tracks one FOR/NEXT loop (§4.4).
type forFrame struct {
	varName    string
	loopStart  int
	sourceLine int
	exitPatches []int
}

// doFrame tracks one DO/LOOP loop, pre- or post-test (§4.4).
type doFrame struct {
	loopStart   int
	sourceLine  int
	exitPatches []int
}

// pendingLambda is queued during compilation of a `LAMBDA params -> expr`
// expression and compiled after the main program body (§4.4 Lambdas).
type pendingLambda struct {
	name       string
	params     []string
	bodySource string
	sourceLine int
}

// Compiler holds all state for one compilation unit (main program or one
// imported module).
type Compiler struct {
	lex  *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token

	source string
	line   int // current source line number, 1-based

	prog  *bytecode.Program
	types *types.Registry

	ifStack  []*ifFrame
	forStack []*forFrame
	doStack  []*doFrame
	tryStack []*tryFrameFull

	exported map[string]bool

	lambdas      []pendingLambda
	lambdaSeq    int
	currentFunc  string // "" when compiling top-level code
	modulePrefix string // "" for main program; "MODNAME" while compiling an imported module

	imports []importDirective
	isModule bool
	moduleName string

	forwardJumps []forwardJump

	// funcStack tracks nested FUNC/SUB compilation: each entry remembers
	// where to patch the "jump past body" placeholder emitted by
	// OP_FUNC_DECL once ENDFUNC/ENDSUB is reached (§4.4).
	funcStack []*funcFrame

	tryHandlerDepth int

	errors []string
}

type importDirective struct {
	name string
	line int
}

// forwardJump is a GOTO/GOSUB to a label not yet seen; resolved once the
// whole compilation unit has been scanned (labels may appear after their
// first use in BASIC source).
type forwardJump struct {
	label   string
	patchAt int
}

type funcFrame struct {
	name        string
	skipPatch   int
	sourceLine  int
	isSub       bool
}

// New creates a Compiler for a single source string (one source file's
// contents, newline-split into logical program lines per §6).
func New(source string) *Compiler {
	c := &Compiler{
		source:   source,
		types:    types.NewRegistry(),
		prog:     bytecode.NewProgram(),
		exported: make(map[string]bool),
	}
	return c
}

// Errors returns syntax errors accumulated during compilation (§4.2 code 1).
func (c *Compiler) Errors() []string { return c.errors }

func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf("line %d: %s", c.line, fmt.Sprintf(format, args...)))
}

func (c *Compiler) resetLexer() {
	c.lex = lexer.New(c.source)
	c.line = 1
	c.next()
	c.next()
}

func (c *Compiler) next() {
	c.cur = c.peek
	c.peek = c.lex.NextToken()
	if c.cur.Line > 0 {
		c.line = c.cur.Line
	}
}

func (c *Compiler) curIs(k lexer.Kind) bool  { return c.cur.Kind == k }
func (c *Compiler) peekIs(k lexer.Kind) bool { return c.peek.Kind == k }

func (c *Compiler) curKeywordIs(kw string) bool {
	return c.cur.Kind == lexer.KEYWORD && strings.EqualFold(c.cur.Literal, kw)
}

func (c *Compiler) identUpper() string {
	return strings.ToUpper(trimIdentSuffix(c.cur.Literal))
}

func trimIdentSuffix(lit string) string {
	if n := len(lit); n > 0 && (lit[n-1] == '$' || lit[n-1] == '@') {
		return lit[:n-1]
	}
	return lit
}

// Compile runs Pass 0 then Pass 1 over the source and returns the finished
// Program (§4.4).
func (c *Compiler) Compile() (*bytecode.Program, error) {
	c.prescan()
	c.resetLexer()
	c.compileProgram()
	// The main program must halt here: lambda bodies are appended right
	// after it with no jump of their own, so without this marker execution
	// would fall straight off the end of the program into the first one.
	c.prog.Chunk.WriteOp(bytecode.OP_NOCMD, c.line)
	c.compileQueuedLambdas()
	c.resolveForwardJumps()
	c.prog.Chunk.WriteOp(bytecode.OP_NOCMD, c.line)

	if len(c.errors) > 0 {
		return nil, fmt.Errorf("compile errors:\n%s", strings.Join(c.errors, "\n"))
	}
	return c.prog, nil
}

// TypeRegistry exposes the UDT registry built during Pass 0, for linking
// into the VM (§3 UDT).
func (c *Compiler) TypeRegistry() *types.Registry { return c.types }

// compileProgram is Pass 1's top-level loop: one compileLine per source
// line until EOF (§4.4).
func (c *Compiler) compileProgram() {
	for !c.curIs(lexer.EOF) {
		if c.curIs(lexer.NEWLINE) {
			c.next()
			continue
		}
		c.prog.Chunk.WriteLinePrefix(c.line)
		c.compileLine()
		if !c.curIs(lexer.EOF) && !c.curIs(lexer.NEWLINE) {
			c.errorf("expected end of line, got %s %q", c.cur.Kind, c.cur.Literal)
			c.skipToNewline()
		}
		if c.curIs(lexer.NEWLINE) {
			c.next()
		}
		c.prog.Chunk.WriteOp(bytecode.OP_CR, c.line)
	}
	if len(c.ifStack) > 0 {
		c.errorf("unclosed IF block")
	}
	if len(c.forStack) > 0 {
		c.errorf("unclosed FOR/NEXT loop")
	}
}

// resolveForwardJumps patches GOTO/GOSUB targets that referenced a label
// appearing later in the source (§4.4 GOTO/label resolution).
func (c *Compiler) resolveForwardJumps() {
	for _, fj := range c.forwardJumps {
		addr, ok := c.prog.Labels[fj.label]
		if !ok {
			c.errorf("undefined label %s", fj.label)
			continue
		}
		c.prog.Chunk.PatchUint16(fj.patchAt, addr)
	}
}

func (c *Compiler) skipToNewline() {
	for !c.curIs(lexer.NEWLINE) && !c.curIs(lexer.EOF) {
		c.next()
	}
}

// compileLine compiles all `:`-separated statements on one logical source
// line (§4.5: "Statement boundaries within a line are `:`").
func (c *Compiler) compileLine() {
	c.compileStatement()
	for c.curIs(lexer.COLON) {
		c.next()
		c.compileStatement()
	}
}
