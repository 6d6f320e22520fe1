package compiler

import (
	"strings"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/lexer"
)

// compileStatement compiles exactly one statement (the unit between `:`
// separators or at start/end of line) per §4.4/§4.8.
func (c *Compiler) compileStatement() {
	if c.curIs(lexer.NEWLINE) || c.curIs(lexer.EOF) || c.curIs(lexer.COLON) {
		return // empty statement, e.g. trailing ':'
	}
	if c.curIs(lexer.KEYWORD) {
		switch strings.ToUpper(c.cur.Literal) {
		case "LET":
			c.next()
			c.compileAssignOrCall()
		case "DIM":
			c.compileDim()
		case "PRINT":
			c.compilePrint()
		case "INPUT":
			c.compileInput()
		case "IF":
			c.compileIf()
		case "ELSEIF", "ELSE", "ENDIF":
			c.compileIfContinuation()
		case "FOR":
			c.compileFor()
		case "NEXT":
			c.compileNext()
		case "DO":
			c.compileDo()
		case "LOOP":
			c.compileLoopEnd()
		case "EXIT":
			c.compileExit()
		case "TRY":
			c.compileTry()
		case "CATCH":
			c.compileCatch()
		case "FINALLY":
			c.compileFinally()
		case "ENDTRY":
			c.compileEndTry()
		case "FUNC":
			c.compileFuncDecl(false, false)
		case "SUB":
			c.compileFuncDecl(true, false)
		case "ASYNC":
			c.next()
			isSub := c.curKeywordIs("SUB")
			c.compileFuncDecl(isSub, true)
		case "ENDFUNC", "ENDSUB":
			c.compileEndFunc()
		case "RETURN":
			c.compileReturn()
		case "TYPE":
			c.skipTypeBlock()
		case "GOTO", "GOSUB":
			c.compileGoto()
		case "CALL":
			c.next()
			c.compileAssignOrCall()
		case "IMPORT":
			c.skipRestOfLine()
		case "EXPORT":
			c.compileExportModule()
		case "START":
			c.compileStartTask()
		case "AWAIT":
			c.compileAwait()
		case "BSYNC":
			c.compileBsync()
		case "ON":
			c.compileOnEvent()
		case "RAISE":
			c.compileRaiseEvent()
		case "STOP":
			c.next()
			c.prog.Chunk.WriteOp(bytecode.OP_NOCMD, c.line)
		case "OPTION":
			c.skipRestOfLine()
		default:
			c.errorf("unexpected keyword %s", c.cur.Literal)
			c.skipToStatementEnd()
		}
		return
	}
	if c.curIs(lexer.IDENT) {
		if lbl, ok := c.tryLabel(); ok {
			_ = lbl
			return
		}
		c.compileAssignOrCall()
		return
	}
	c.errorf("unexpected token %s %q at start of statement", c.cur.Kind, c.cur.Literal)
	c.skipToStatementEnd()
}

func (c *Compiler) skipToStatementEnd() {
	for !c.curIs(lexer.NEWLINE) && !c.curIs(lexer.EOF) && !c.curIs(lexer.COLON) {
		c.next()
	}
}

func (c *Compiler) skipRestOfLine() {
	for !c.curIs(lexer.NEWLINE) && !c.curIs(lexer.EOF) {
		c.next()
	}
}

// tryLabel recognizes a bare `NAME:` line-label statement (§4.4 GOTO).
func (c *Compiler) tryLabel() (string, bool) {
	if !c.peekIs(lexer.COLON) {
		return "", false
	}
	// Any identifier immediately followed by a colon is taken as a label;
	// nothing after the colon is inspected.
	name := strings.ToUpper(c.cur.Literal)
	c.next() // consume ident
	c.next() // consume colon
	c.prog.Chunk.WriteOp(bytecode.OP_LABEL, c.line)
	c.prog.Labels[name] = c.prog.Chunk.Len()
	return name, true
}

// compileAssignOrCall handles `NAME = expr`, `NAME[idx] = expr`,
// `NAME{key} = expr`, and bare `NAME(args)` call statements (§4.4/§4.8).
// Array/map indexing uses brackets/braces; parens are reserved for calls,
// so there is no compile-time ambiguity between the two.
func (c *Compiler) compileAssignOrCall() {
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected identifier, got %s %q", c.cur.Kind, c.cur.Literal)
		c.skipToStatementEnd()
		return
	}
	name := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	line := c.line
	c.next()

	switch {
	case c.curIs(lexer.LBRACKET):
		c.next()
		n := c.compileArgList(lexer.RBRACKET)
		c.expect(lexer.RBRACKET)
		if c.curIs(lexer.EQ) {
			c.next()
			c.compileExpr()
			c.prog.Chunk.WriteOp(bytecode.OP_INDEX_SET, line)
			c.prog.Chunk.WriteCString(name, line)
			c.prog.Chunk.WriteByte(byte(n), line)
			return
		}
		c.prog.Chunk.WriteOp(bytecode.OP_LOAD_VAR, line)
		c.prog.Chunk.WriteCString(name, line)
		c.prog.Chunk.WriteOp(bytecode.OP_INDEX, line)
		c.prog.Chunk.WriteByte(byte(n), line)
		c.prog.Chunk.WriteOp(bytecode.OP_POP, line)

	case c.curIs(lexer.LBRACE):
		c.next()
		c.compileExpr()
		c.expect(lexer.RBRACE)
		if c.curIs(lexer.EQ) {
			c.next()
			c.compileExpr()
			c.prog.Chunk.WriteOp(bytecode.OP_MAP_KEY_SET, line)
			c.prog.Chunk.WriteCString(name, line)
			return
		}
		c.prog.Chunk.WriteOp(bytecode.OP_LOAD_VAR, line)
		c.prog.Chunk.WriteCString(name, line)
		c.prog.Chunk.WriteOp(bytecode.OP_MAP_KEY, line)
		c.prog.Chunk.WriteOp(bytecode.OP_POP, line)

	case c.curIs(lexer.LPAREN):
		c.next()
		n := c.compileArgList(lexer.RPAREN)
		c.expect(lexer.RPAREN)
		c.prog.Chunk.WriteOp(bytecode.OP_CALL_FUNC, line)
		c.prog.Chunk.WriteCString(name, line)
		c.prog.Chunk.WriteByte(byte(n), line)
		c.prog.Chunk.WriteOp(bytecode.OP_POP, line)

	case c.curIs(lexer.EQ):
		c.next()
		c.compileExpr()
		c.prog.Chunk.WriteOp(bytecode.OP_STORE_VAR, line)
		c.prog.Chunk.WriteCString(name, line)

	default:
		// Bare name used as a statement: a zero-arg SUB/FUNC call.
		c.prog.Chunk.WriteOp(bytecode.OP_CALL_FUNC, line)
		c.prog.Chunk.WriteCString(name, line)
		c.prog.Chunk.WriteByte(0, line)
		c.prog.Chunk.WriteOp(bytecode.OP_POP, line)
	}
}

// compileDim compiles `DIM name[(dims)] [AS type]` (§4.4/§3 arrays & UDTs).
func (c *Compiler) compileDim() {
	line := c.line
	c.next() // DIM
	for {
		if !c.curIs(lexer.IDENT) {
			c.errorf("expected identifier after DIM")
			return
		}
		name := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
		c.next()
		ndims := 0
		if c.curIs(lexer.LBRACKET) || c.curIs(lexer.LPAREN) {
			closeKind := lexer.RBRACKET
			if c.curIs(lexer.LPAREN) {
				closeKind = lexer.RPAREN
			}
			c.next()
			ndims = c.compileArgList(closeKind)
			c.expect(closeKind)
		}
		typeName := ""
		if c.curKeywordIs("AS") {
			c.next()
			if c.curIs(lexer.IDENT) {
				typeName = strings.ToUpper(c.cur.Literal)
				c.next()
			}
		}
		c.prog.Chunk.WriteOp(bytecode.OP_DIM, line)
		c.prog.Chunk.WriteCString(name, line)
		c.prog.Chunk.WriteByte(byte(ndims), line)
		c.prog.Chunk.WriteCString(typeName, line)
		if !c.curIs(lexer.COMMA) {
			break
		}
		c.next()
	}
}

func (c *Compiler) compilePrint() {
	line := c.line
	c.next() // PRINT
	n := 0
	for !c.curIs(lexer.NEWLINE) && !c.curIs(lexer.EOF) && !c.curIs(lexer.COLON) {
		c.compileExpr()
		n++
		if c.curIs(lexer.COMMA) {
			c.next()
			continue
		}
		break
	}
	c.prog.Chunk.WriteOp(bytecode.OP_PRINT, line)
	c.prog.Chunk.WriteByte(byte(n), line)
}

func (c *Compiler) compileInput() {
	line := c.line
	c.next() // INPUT
	prompt := ""
	if c.curIs(lexer.STRING) {
		prompt = c.cur.Literal
		c.next()
		if c.curIs(lexer.COMMA) {
			c.next()
		}
	}
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected variable name after INPUT")
		return
	}
	name := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	c.next()
	c.prog.Chunk.WriteOp(bytecode.OP_INPUT, line)
	c.prog.Chunk.WriteCString(prompt, line)
	c.prog.Chunk.WriteCString(name, line)
}

// compileIf compiles `IF cond THEN` as a single-line statement chain or the
// opening of a block (§4.4): a conditional jump placeholder is pushed on
// ifStack and patched by the matching ELSEIF/ELSE/ENDIF.
func (c *Compiler) compileIf() {
	line := c.line
	c.next() // IF
	c.compileExpr()
	if !c.curKeywordIs("THEN") {
		c.errorf("expected THEN")
	} else {
		c.next()
	}
	jumpFalse := c.prog.Chunk.WriteOp(bytecode.OP_IF, line)
	addr := c.prog.Chunk.EmitPlaceholder(line)

	frame := &ifFrame{pendingCondJump: addr, sourceLine: line}
	c.ifStack = append(c.ifStack, frame)

	if !c.curIs(lexer.NEWLINE) && !c.curIs(lexer.EOF) {
		// Single-line form: compile the then-branch statements inline,
		// then immediately close the frame as if ENDIF followed.
		c.compileLine()
		if c.curKeywordIs("ELSE") {
			c.next()
			endJump := c.prog.Chunk.WriteOp(bytecode.OP_JUMP, c.line)
			endAddr := c.prog.Chunk.EmitPlaceholder(c.line)
			frame.endJumps = append(frame.endJumps, endAddr)
			c.prog.Chunk.PatchUint16(frame.pendingCondJump, c.prog.Chunk.Len())
			frame.pendingCondJump = -1
			c.compileLine()
			_ = endJump
		}
		c.closeIfFrame()
	}
	_ = jumpFalse
}

// compileIfContinuation handles ELSEIF/ELSE/ENDIF as their own statements,
// i.e. the block form of IF (§4.4).
func (c *Compiler) compileIfContinuation() {
	if len(c.ifStack) == 0 {
		c.errorf("%s without matching IF", strings.ToUpper(c.cur.Literal))
		c.skipRestOfLine()
		return
	}
	frame := c.ifStack[len(c.ifStack)-1]
	kw := strings.ToUpper(c.cur.Literal)
	line := c.line
	c.next()

	switch kw {
	case "ELSEIF":
		endJump := c.prog.Chunk.WriteOp(bytecode.OP_JUMP, line)
		endAddr := c.prog.Chunk.EmitPlaceholder(line)
		frame.endJumps = append(frame.endJumps, endAddr)
		_ = endJump
		if frame.pendingCondJump >= 0 {
			c.prog.Chunk.PatchUint16(frame.pendingCondJump, c.prog.Chunk.Len())
		}
		c.compileExpr()
		if c.curKeywordIs("THEN") {
			c.next()
		}
		c.prog.Chunk.WriteOp(bytecode.OP_IF, line)
		frame.pendingCondJump = c.prog.Chunk.EmitPlaceholder(line)

	case "ELSE":
		endJump := c.prog.Chunk.WriteOp(bytecode.OP_JUMP, line)
		endAddr := c.prog.Chunk.EmitPlaceholder(line)
		frame.endJumps = append(frame.endJumps, endAddr)
		_ = endJump
		if frame.pendingCondJump >= 0 {
			c.prog.Chunk.PatchUint16(frame.pendingCondJump, c.prog.Chunk.Len())
		}
		frame.pendingCondJump = -1

	case "ENDIF":
		c.closeIfFrame()
	}
}

func (c *Compiler) closeIfFrame() {
	if len(c.ifStack) == 0 {
		return
	}
	frame := c.ifStack[len(c.ifStack)-1]
	c.ifStack = c.ifStack[:len(c.ifStack)-1]
	if frame.pendingCondJump >= 0 {
		c.prog.Chunk.PatchUint16(frame.pendingCondJump, c.prog.Chunk.Len())
	}
	for _, j := range frame.endJumps {
		c.prog.Chunk.PatchUint16(j, c.prog.Chunk.Len())
	}
}

// compileFor compiles `FOR var = start TO end [STEP step]` (§4.4).
func (c *Compiler) compileFor() {
	line := c.line
	c.next() // FOR
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected loop variable after FOR")
		return
	}
	varName := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	c.next()
	if !c.expect(lexer.EQ) {
		return
	}
	c.compileExpr() // start value
	c.prog.Chunk.WriteOp(bytecode.OP_STORE_VAR, line)
	c.prog.Chunk.WriteCString(varName, line)

	if !c.curKeywordIs("TO") {
		c.errorf("expected TO in FOR")
		return
	}
	c.next()
	c.compileExpr() // limit

	hasStep := false
	if c.curKeywordIs("STEP") {
		c.next()
		hasStep = true
		c.compileExpr()
	}

	c.prog.Chunk.WriteOp(bytecode.OP_FOR_SETUP, line)
	c.prog.Chunk.WriteCString(varName, line)
	c.prog.Chunk.WriteByte(boolByte(hasStep), line)
	loopStart := c.prog.Chunk.Len() // FOR_NEXT jumps back to here, not to FOR_SETUP: the
	// limit/step values on the stack are consumed once, by FOR_SETUP, not re-evaluated.

	c.forStack = append(c.forStack, &forFrame{varName: varName, loopStart: loopStart, sourceLine: line})
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *Compiler) compileNext() {
	line := c.line
	c.next() // NEXT
	if c.curIs(lexer.IDENT) {
		c.next() // optional loop-variable name, informational only
	}
	if len(c.forStack) == 0 {
		c.errorf("NEXT without FOR")
		return
	}
	frame := c.forStack[len(c.forStack)-1]
	c.forStack = c.forStack[:len(c.forStack)-1]
	c.prog.Chunk.WriteOp(bytecode.OP_FOR_NEXT, line)
	c.prog.Chunk.WriteUint16(uint16(frame.loopStart), line)
	c.prog.Chunk.WriteCString(frame.varName, line)
	end := c.prog.Chunk.Len()
	for _, p := range frame.exitPatches {
		c.prog.Chunk.PatchUint16(p, end)
	}
}

// compileDo compiles `DO [WHILE|UNTIL cond]` (§4.4); a pre-test condition
// compiles directly at the loop head, a bare DO leaves the test to LOOP.
func (c *Compiler) compileDo() {
	line := c.line
	c.next() // DO
	loopStart := c.prog.Chunk.Len()
	frame := &doFrame{loopStart: loopStart, sourceLine: line}
	c.doStack = append(c.doStack, frame)

	if c.curKeywordIs("WHILE") || c.curKeywordIs("UNTIL") {
		negate := c.curKeywordIs("UNTIL")
		c.next()
		c.compileExpr()
		if negate {
			c.prog.Chunk.WriteOp(bytecode.OP_NOT, line)
		}
		c.prog.Chunk.WriteOp(bytecode.OP_IF, line)
		exitAddr := c.prog.Chunk.EmitPlaceholder(line)
		frame.exitPatches = append(frame.exitPatches, exitAddr)
	}
}

// compileLoopEnd compiles `LOOP [WHILE|UNTIL cond]` (§4.4): a post-test
// condition re-tests and jumps back to loopStart; a bare LOOP always loops.
func (c *Compiler) compileLoopEnd() {
	line := c.line
	c.next() // LOOP
	if len(c.doStack) == 0 {
		c.errorf("LOOP without DO")
		return
	}
	frame := c.doStack[len(c.doStack)-1]
	c.doStack = c.doStack[:len(c.doStack)-1]

	if c.curKeywordIs("WHILE") || c.curKeywordIs("UNTIL") {
		// OP_IF jumps when its operand is false, so WHILE is negated to
		// jump back while the condition holds; UNTIL jumps back while it
		// does not.
		negate := c.curKeywordIs("WHILE")
		c.next()
		c.compileExpr()
		if negate {
			c.prog.Chunk.WriteOp(bytecode.OP_NOT, line)
		}
		c.prog.Chunk.WriteOp(bytecode.OP_IF, line)
		backAddr := c.prog.Chunk.EmitPlaceholder(line)
		c.prog.Chunk.PatchUint16(backAddr, frame.loopStart)
	} else {
		c.prog.Chunk.WriteOp(bytecode.OP_JUMP, line)
		back := c.prog.Chunk.EmitPlaceholder(line)
		c.prog.Chunk.PatchUint16(back, frame.loopStart)
	}
	end := c.prog.Chunk.Len()
	for _, p := range frame.exitPatches {
		c.prog.Chunk.PatchUint16(p, end)
	}
}

// compileExit handles `EXIT FOR` and `EXIT DO` (§4.4).
func (c *Compiler) compileExit() {
	line := c.line
	c.next() // EXIT
	switch {
	case c.curKeywordIs("FOR"):
		c.next()
		if len(c.forStack) == 0 {
			c.errorf("EXIT FOR outside FOR loop")
			return
		}
		frame := c.forStack[len(c.forStack)-1]
		c.prog.Chunk.WriteOp(bytecode.OP_EXIT_FOR, line)
		p := c.prog.Chunk.EmitPlaceholder(line)
		frame.exitPatches = append(frame.exitPatches, p)
	case c.curKeywordIs("DO"):
		c.next()
		if len(c.doStack) == 0 {
			c.errorf("EXIT DO outside DO loop")
			return
		}
		frame := c.doStack[len(c.doStack)-1]
		c.prog.Chunk.WriteOp(bytecode.OP_EXIT_DO, line)
		p := c.prog.Chunk.EmitPlaceholder(line)
		frame.exitPatches = append(frame.exitPatches, p)
	default:
		c.errorf("expected FOR or DO after EXIT")
	}
}

func (c *Compiler) compileGoto() {
	line := c.line
	c.next() // GOTO/GOSUB
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected label after GOTO")
		return
	}
	label := strings.ToUpper(c.cur.Literal)
	c.next()
	c.prog.Chunk.WriteOp(bytecode.OP_JUMP, line)
	p := c.prog.Chunk.EmitPlaceholder(line)
	if addr, ok := c.prog.Labels[label]; ok {
		c.prog.Chunk.PatchUint16(p, addr)
	} else {
		// Forward reference: resolved in a final linking pass once every
		// label in the unit has been seen (see resolveForwardJumps).
		c.forwardJumps = append(c.forwardJumps, forwardJump{label: label, patchAt: p})
	}
}
