package compiler

import (
	"fmt"
	"strings"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/lexer"
)

// compileExpr is the expression compiler (§4.6): a precedence-climbing
// descent that emits postfix bytecode directly, so the VM's expression
// opcodes (ADD/SUB/.../INDEX/DOT_GET/CALL_FUNC) execute as a flat stack
// reduction instead of re-parsing tokens at run time. Precedence, loosest
// to tightest: OR, AND, NOT, comparison, additive, multiplicative, power,
// unary, postfix (index/map-key/dot), primary (including calls).
func (c *Compiler) compileExpr() {
	c.compileOr()
}

func (c *Compiler) compileOr() {
	c.compileAnd()
	for c.curKeywordIs("OR") {
		c.next()
		c.compileAnd()
		c.prog.Chunk.WriteOp(bytecode.OP_OR, c.line)
	}
}

func (c *Compiler) compileAnd() {
	c.compileNot()
	for c.curKeywordIs("AND") {
		c.next()
		c.compileNot()
		c.prog.Chunk.WriteOp(bytecode.OP_AND, c.line)
	}
}

func (c *Compiler) compileNot() {
	if c.curKeywordIs("NOT") {
		c.next()
		c.compileNot()
		c.prog.Chunk.WriteOp(bytecode.OP_NOT, c.line)
		return
	}
	c.compileComparison()
}

func (c *Compiler) compileComparison() {
	c.compileAdditive()
	for {
		var op bytecode.Op
		switch c.cur.Kind {
		case lexer.EQ:
			op = bytecode.OP_EQ
		case lexer.NE:
			op = bytecode.OP_NE
		case lexer.LT:
			op = bytecode.OP_LT
		case lexer.GT:
			op = bytecode.OP_GT
		case lexer.LE:
			op = bytecode.OP_LE
		case lexer.GE:
			op = bytecode.OP_GE
		default:
			return
		}
		c.next()
		c.compileAdditive()
		c.prog.Chunk.WriteOp(op, c.line)
	}
}

func (c *Compiler) compileAdditive() {
	c.compileMultiplicative()
	for c.curIs(lexer.PLUS) || c.curIs(lexer.MINUS) {
		op := bytecode.OP_ADD
		if c.curIs(lexer.MINUS) {
			op = bytecode.OP_SUB
		}
		c.next()
		c.compileMultiplicative()
		c.prog.Chunk.WriteOp(op, c.line)
	}
}

func (c *Compiler) compileMultiplicative() {
	c.compilePower()
	for {
		var op bytecode.Op
		switch {
		case c.curIs(lexer.STAR):
			op = bytecode.OP_MUL
		case c.curIs(lexer.SLASH):
			op = bytecode.OP_DIV
		case c.curIs(lexer.MOD):
			op = bytecode.OP_MOD
		default:
			return
		}
		c.next()
		c.compilePower()
		c.prog.Chunk.WriteOp(op, c.line)
	}
}

// compilePower is right-associative: 2^3^2 == 2^(3^2).
func (c *Compiler) compilePower() {
	c.compileUnary()
	if c.curIs(lexer.CARET) {
		c.next()
		c.compilePower()
		c.prog.Chunk.WriteOp(bytecode.OP_POW, c.line)
	}
}

func (c *Compiler) compileUnary() {
	if c.curIs(lexer.MINUS) {
		c.next()
		c.compileUnary()
		c.prog.Chunk.WriteOp(bytecode.OP_NEG, c.line)
		return
	}
	if c.curIs(lexer.PLUS) {
		c.next()
		c.compileUnary()
		return
	}
	c.compilePostfix()
}

// compilePostfix handles chained a[...]/a{...}/a.b after a primary; calls
// f(...) are parsed by compileIdentPrimary, not here.
func (c *Compiler) compilePostfix() {
	c.compilePrimary()
	for {
		switch {
		case c.curIs(lexer.LBRACKET):
			c.next()
			n := c.compileArgList(lexer.RBRACKET)
			c.expect(lexer.RBRACKET)
			c.prog.Chunk.WriteOp(bytecode.OP_INDEX, c.line)
			c.prog.Chunk.WriteByte(byte(n), c.line)
		case c.curIs(lexer.LBRACE):
			c.next()
			c.compileExpr()
			c.expect(lexer.RBRACE)
			c.prog.Chunk.WriteOp(bytecode.OP_MAP_KEY, c.line)
		case c.curIs(lexer.DOT) && c.peekIs(lexer.IDENT):
			c.next()
			member := c.cur.Literal
			c.next()
			c.prog.Chunk.WriteOp(bytecode.OP_DOT_GET, c.line)
			c.prog.Chunk.WriteCString(strings.ToUpper(member), c.line)
		default:
			return
		}
	}
}

func (c *Compiler) expect(k lexer.Kind) bool {
	if !c.curIs(k) {
		c.errorf("expected %s, got %s %q", k, c.cur.Kind, c.cur.Literal)
		return false
	}
	c.next()
	return true
}

// compileArgList compiles a comma-separated expression list terminated by
// `end`, leaving values pushed left-to-right, and returns the count.
func (c *Compiler) compileArgList(end lexer.Kind) int {
	n := 0
	if c.curIs(end) {
		return 0
	}
	c.compileExpr()
	n++
	for c.curIs(lexer.COMMA) {
		c.next()
		c.compileExpr()
		n++
	}
	return n
}

func (c *Compiler) compilePrimary() {
	switch c.cur.Kind {
	case lexer.INT:
		c.prog.Chunk.WriteOp(bytecode.OP_INTEGER_LITERAL, c.line)
		c.prog.Chunk.WriteInt64(c.cur.IntVal, c.line)
		c.next()
	case lexer.NUMBER:
		c.prog.Chunk.WriteOp(bytecode.OP_NUMBER, c.line)
		c.prog.Chunk.WriteFloat64(c.cur.NumVal, c.line)
		c.next()
	case lexer.STRING:
		c.prog.Chunk.WriteOp(bytecode.OP_STRING_CONST, c.line)
		c.prog.Chunk.WriteCString(c.cur.Literal, c.line)
		c.next()
	case lexer.LPAREN:
		c.next()
		c.compileExpr()
		c.expect(lexer.RPAREN)
	case lexer.LBRACKET:
		c.next()
		n := c.compileArgList(lexer.RBRACKET)
		c.expect(lexer.RBRACKET)
		c.prog.Chunk.WriteOp(bytecode.OP_MAKE_ARRAY, c.line)
		c.prog.Chunk.WriteUint16(uint16(n), c.line)
	case lexer.LBRACE:
		c.next()
		n := c.compileMapLiteral()
		c.expect(lexer.RBRACE)
		c.prog.Chunk.WriteOp(bytecode.OP_MAKE_MAP, c.line)
		c.prog.Chunk.WriteUint16(uint16(n), c.line)
	case lexer.AMP:
		c.next()
		name := c.cur.Literal
		c.next()
		c.prog.Chunk.WriteOp(bytecode.OP_FUNCREF, c.line)
		c.prog.Chunk.WriteCString(strings.ToUpper(name), c.line)
	case lexer.KEYWORD:
		c.compileKeywordPrimary()
	case lexer.IDENT:
		c.compileIdentPrimary()
	default:
		c.errorf("unexpected token %s %q in expression", c.cur.Kind, c.cur.Literal)
		c.next()
	}
}

func (c *Compiler) compileMapLiteral() int {
	n := 0
	if c.curIs(lexer.RBRACE) {
		return 0
	}
	for {
		if !c.curIs(lexer.STRING) && !c.curIs(lexer.IDENT) {
			c.errorf("expected map key, got %s", c.cur.Kind)
			return n
		}
		key := c.cur.Literal
		c.next()
		c.prog.Chunk.WriteOp(bytecode.OP_STRING_CONST, c.line)
		c.prog.Chunk.WriteCString(key, c.line)
		c.expect(lexer.COLON)
		c.compileExpr()
		n++
		if c.curIs(lexer.COMMA) {
			c.next()
			continue
		}
		break
	}
	return n
}

func (c *Compiler) compileKeywordPrimary() {
	switch strings.ToUpper(c.cur.Literal) {
	case "TRUE":
		c.prog.Chunk.WriteOp(bytecode.OP_TRUE, c.line)
		c.next()
	case "FALSE":
		c.prog.Chunk.WriteOp(bytecode.OP_FALSE, c.line)
		c.next()
	case "NIL", "NULL":
		c.prog.Chunk.WriteOp(bytecode.OP_NIL, c.line)
		c.next()
	case "LAMBDA":
		c.compileLambdaExpr()
	case "NEW":
		c.next()
		if !c.curIs(lexer.IDENT) {
			c.errorf("expected type name after NEW")
			return
		}
		typeName := strings.ToUpper(c.cur.Literal)
		c.next()
		c.prog.Chunk.WriteOp(bytecode.OP_CALL_FUNC, c.line)
		c.prog.Chunk.WriteCString("__NEW_"+typeName, c.line)
		c.prog.Chunk.WriteByte(0, c.line)
	default:
		// Constant-like keywords (e.g. ERR, PI) fall through to name lookup.
		name := strings.ToUpper(c.cur.Literal)
		c.next()
		c.prog.Chunk.WriteOp(bytecode.OP_LOAD_CONST_NAME, c.line)
		c.prog.Chunk.WriteCString(name, c.line)
	}
}

// compileIdentPrimary handles a bare identifier, a call `f(args)`, or a
// `MODULE.FUNC(args)` qualified call.
func (c *Compiler) compileIdentPrimary() {
	name := c.cur.Literal
	upper := strings.ToUpper(name)
	c.next()
	for c.curIs(lexer.DOT) && c.peekIs(lexer.IDENT) {
		c.next()
		upper = upper + "." + strings.ToUpper(c.cur.Literal)
		c.next()
	}
	if c.curIs(lexer.LPAREN) {
		c.next()
		n := c.compileArgList(lexer.RPAREN)
		c.expect(lexer.RPAREN)
		c.prog.Chunk.WriteOp(bytecode.OP_CALL_FUNC, c.line)
		c.prog.Chunk.WriteCString(upper, c.line)
		c.prog.Chunk.WriteByte(byte(n), c.line)
		return
	}
	c.prog.Chunk.WriteOp(bytecode.OP_LOAD_VAR, c.line)
	c.prog.Chunk.WriteCString(upper, c.line)
}

// compileLambdaExpr compiles `LAMBDA(params) -> expr` (§4.4 Lambdas): the
// body is queued and lifted into a synthetic FUNC compiled after the main
// program; the expression pushes a function-ref to the synthetic name.
func (c *Compiler) compileLambdaExpr() {
	c.next() // consume LAMBDA
	var params []string
	if c.curIs(lexer.LPAREN) {
		c.next()
		for !c.curIs(lexer.RPAREN) && !c.curIs(lexer.EOF) {
			if c.curIs(lexer.IDENT) {
				params = append(params, strings.ToUpper(c.cur.Literal))
				c.next()
			}
			if c.curIs(lexer.COMMA) {
				c.next()
			}
		}
		c.expect(lexer.RPAREN)
	}
	if !(c.cur.Kind == lexer.ARROW) {
		c.errorf("expected -> in LAMBDA expression")
		return
	}
	c.next()

	c.lambdaSeq++
	name := fmt.Sprintf("__LAMBDA_%d", c.lambdaSeq)

	depth := 0
	var body strings.Builder
	for {
		if c.curIs(lexer.EOF) {
			break
		}
		if depth == 0 && (c.curIs(lexer.NEWLINE) || c.curIs(lexer.COLON) || c.curIs(lexer.COMMA) || c.curIs(lexer.RPAREN) || c.curIs(lexer.RBRACKET)) {
			break
		}
		if c.curIs(lexer.LPAREN) {
			depth++
		}
		if c.curIs(lexer.RPAREN) {
			if depth == 0 {
				break
			}
			depth--
		}
		body.WriteString(tokenSource(c.cur))
		body.WriteByte(' ')
		c.next()
	}

	c.lambdas = append(c.lambdas, pendingLambda{
		name:       name,
		params:     params,
		bodySource: body.String(),
		sourceLine: c.line,
	})

	c.prog.Chunk.WriteOp(bytecode.OP_FUNCREF, c.line)
	c.prog.Chunk.WriteCString(name, c.line)
}

// tokenSource reconstructs a source-like fragment for a token so re-lexed
// lambda bodies round-trip through the same lexer as the rest of the program.
func tokenSource(t lexer.Token) string {
	switch t.Kind {
	case lexer.STRING:
		return "\"" + t.Literal + "\""
	case lexer.INT, lexer.NUMBER, lexer.IDENT, lexer.KEYWORD:
		return t.Literal
	default:
		return t.Literal
	}
}

// compileQueuedLambdas compiles each lifted lambda body as a synthetic
// single-expression FUNC appended after the main program (§4.4 Lambdas).
func (c *Compiler) compileQueuedLambdas() {
	for i := 0; i < len(c.lambdas); i++ {
		lam := c.lambdas[i]
		start := c.prog.Chunk.Len()
		c.prog.Functions[lam.name] = &bytecode.FunctionInfo{
			Name:        lam.name,
			Arity:       len(lam.params),
			IsProcedure: false,
			ParamNames:  lam.params,
			StartOffset: start,
		}
		sub := New(lam.bodySource + "\n")
		sub.types = c.types
		sub.resetLexer()
		sub.prog.Chunk.WriteLinePrefix(lam.sourceLine)
		sub.compileExpr()
		sub.prog.Chunk.WriteOp(bytecode.OP_RETURN, lam.sourceLine)
		c.prog.Chunk.Code = append(c.prog.Chunk.Code, sub.prog.Chunk.Code...)
		c.prog.Chunk.Lines = append(c.prog.Chunk.Lines, sub.prog.Chunk.Lines...)
		c.errors = append(c.errors, sub.errors...)
	}
}
