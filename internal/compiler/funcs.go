package compiler

import (
	"strings"

	"github.com/jdbasic/jdbasic/internal/bytecode"
	"github.com/jdbasic/jdbasic/internal/lexer"
)

// compileFuncDecl compiles `[ASYNC] FUNC|SUB name(params) [AS type]` (§4.4).
// The body that follows is compiled in place, guarded by a jump so normal
// control flow steps over it; OP_CALL_FUNC jumps directly to StartOffset.
func (c *Compiler) compileFuncDecl(isSub, isAsync bool) {
	line := c.line
	c.next() // FUNC/SUB
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected function name")
		return
	}
	name := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	c.next()

	var params []string
	if c.curIs(lexer.LPAREN) {
		c.next()
		for !c.curIs(lexer.RPAREN) && !c.curIs(lexer.EOF) {
			if c.curIs(lexer.IDENT) {
				params = append(params, strings.ToUpper(trimIdentSuffix(c.cur.Literal)))
				c.next()
			}
			if c.curKeywordIs("AS") {
				c.next()
				if c.curIs(lexer.IDENT) {
					c.next()
				}
			}
			if c.curIs(lexer.COMMA) {
				c.next()
			}
		}
		c.expect(lexer.RPAREN)
	}
	if c.curKeywordIs("AS") {
		c.next()
		if c.curIs(lexer.IDENT) {
			c.next() // return-type annotation, informational only
		}
	}

	c.prog.Chunk.WriteOp(bytecode.OP_FUNC_DECL, line)
	c.prog.Chunk.WriteCString(name, line)
	skipPatch := c.prog.Chunk.EmitPlaceholder(line)

	c.prog.Functions[name] = &bytecode.FunctionInfo{
		Name:        name,
		Arity:       len(params),
		IsProcedure: isSub,
		IsAsync:     isAsync,
		IsExported:  c.isExported(name),
		ModuleName:  c.moduleName,
		ParamNames:  params,
		StartOffset: c.prog.Chunk.Len(),
	}

	c.funcStack = append(c.funcStack, &funcFrame{name: name, skipPatch: skipPatch, sourceLine: line, isSub: isSub})
	c.currentFunc = name
}

// compileEndFunc closes the current FUNC/SUB body, supplying an implicit
// RETURN for code paths that fall off the end (§4.4).
func (c *Compiler) compileEndFunc() {
	line := c.line
	c.next() // ENDFUNC/ENDSUB
	if len(c.funcStack) == 0 {
		c.errorf("ENDFUNC/ENDSUB without matching FUNC/SUB")
		return
	}
	frame := c.funcStack[len(c.funcStack)-1]
	c.funcStack = c.funcStack[:len(c.funcStack)-1]

	c.prog.Chunk.WriteOp(bytecode.OP_NIL, line)
	c.prog.Chunk.WriteOp(bytecode.OP_RETURN, line)
	c.prog.Chunk.PatchUint16(frame.skipPatch, c.prog.Chunk.Len())

	if len(c.funcStack) > 0 {
		c.currentFunc = c.funcStack[len(c.funcStack)-1].name
	} else {
		c.currentFunc = ""
	}
}

// compileReturn compiles `RETURN [expr]` (§4.4).
func (c *Compiler) compileReturn() {
	line := c.line
	c.next() // RETURN
	if c.currentFunc == "" {
		c.errorf("RETURN outside FUNC/SUB")
	}
	if c.curIs(lexer.NEWLINE) || c.curIs(lexer.EOF) || c.curIs(lexer.COLON) {
		c.prog.Chunk.WriteOp(bytecode.OP_NIL, line)
	} else {
		c.compileExpr()
	}
	c.prog.Chunk.WriteOp(bytecode.OP_RETURN, line)
}

// skipTypeBlock consumes a TYPE...ENDTYPE block at Pass 1 time: member
// layout was already captured into the type registry during prescan (§3
// UDT), and methods are separate top-level `FUNC Type.Method(...)`
// declarations picked up by the lexer's dotted-identifier fusion, so the
// block itself carries no executable statements.
func (c *Compiler) skipTypeBlock() {
	c.next() // TYPE
	for !c.curKeywordIs("ENDTYPE") && !c.curIs(lexer.EOF) {
		c.next()
	}
	if c.curKeywordIs("ENDTYPE") {
		c.next()
	}
}

// compileExportModule handles `EXPORT MODULE` / `EXPORT FUNC name` markers;
// export status was already recorded during prescan, so Pass 1 just skips
// the directive line (§4.4 Module linking).
func (c *Compiler) compileExportModule() {
	c.skipRestOfLine()
}

func (c *Compiler) isExported(name string) bool {
	if c.isModule {
		return true
	}
	return c.exported[name]
}

// --- TRY/CATCH/FINALLY/ENDTRY (§4.4, §7 unwind-to-handler-depth) ---

func (c *Compiler) compileTry() {
	line := c.line
	c.next() // TRY
	c.prog.Chunk.WriteOp(bytecode.OP_PUSH_HANDLER, line)
	catchPatch := c.prog.Chunk.EmitPlaceholder(line)
	finallyPatch := c.prog.Chunk.EmitPlaceholder(line)
	c.tryStack = append(c.tryStack, &tryFrameFull{catchPatch: catchPatch, finallyPatch: finallyPatch, sourceLine: line})
	c.tryHandlerDepth++
}

// tryFrameFull tracks the bookkeeping needed to drive CATCH/FINALLY/ENDTRY
// correctly.
type tryFrameFull struct {
	catchPatch      int
	catchPatched    bool
	finallyPatch    int
	finallyPatched  bool
	finallyBodyAddr int // resolved address finallyPatch was patched to
	normalSkipJumps []int
	sawCatch        bool
	handlerPopped   bool // OP_POP_HANDLER already emitted on the normal-completion path
	sourceLine      int
}

func (c *Compiler) topTry() *tryFrameFull {
	if len(c.tryStack) == 0 {
		return nil
	}
	return c.tryStack[len(c.tryStack)-1]
}

func (c *Compiler) compileCatch() {
	line := c.line
	frame := c.topTry()
	if frame == nil {
		c.errorf("CATCH without matching TRY")
		c.next()
		return
	}
	c.next() // CATCH
	// Close the try body: on normal (non-exceptional) completion, deactivate
	// the handler and jump straight to FINALLY/ENDTRY.
	c.prog.Chunk.WriteOp(bytecode.OP_POP_HANDLER, line)
	c.prog.Chunk.WriteOp(bytecode.OP_JUMP, line)
	frame.normalSkipJumps = append(frame.normalSkipJumps, c.prog.Chunk.EmitPlaceholder(line))

	c.prog.Chunk.PatchUint16(frame.catchPatch, c.prog.Chunk.Len())
	frame.catchPatched = true
	frame.sawCatch = true
	frame.handlerPopped = true
	if c.tryHandlerDepth > 0 {
		c.tryHandlerDepth--
	}

	if c.curIs(lexer.IDENT) {
		errVar := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
		c.next()
		c.prog.Chunk.WriteOp(bytecode.OP_STORE_VAR, line)
		c.prog.Chunk.WriteCString(errVar, line)
	}
}

func (c *Compiler) compileFinally() {
	line := c.line
	frame := c.topTry()
	if frame == nil {
		c.errorf("FINALLY without matching TRY")
		c.next()
		return
	}
	c.next() // FINALLY
	// No CATCH ran before this: the try body falls straight through here on
	// normal completion, so deactivate the handler now. Unlike CATCH, FINALLY
	// needs no skip-jump of its own — its body follows immediately, and it's
	// exactly where an unhandled error (no CATCH) or a completed CATCH body
	// must land too.
	if !frame.sawCatch {
		c.prog.Chunk.WriteOp(bytecode.OP_POP_HANDLER, line)
		frame.handlerPopped = true
	}

	frame.finallyBodyAddr = c.prog.Chunk.Len()
	c.prog.Chunk.PatchUint16(frame.finallyPatch, frame.finallyBodyAddr)
	frame.finallyPatched = true
}

func (c *Compiler) compileEndTry() {
	line := c.line
	frame := c.topTry()
	if frame == nil {
		c.errorf("ENDTRY without matching TRY")
		c.next()
		return
	}
	c.next() // ENDTRY
	c.tryStack = c.tryStack[:len(c.tryStack)-1]

	if !frame.handlerPopped {
		c.prog.Chunk.WriteOp(bytecode.OP_POP_HANDLER, line)
	}

	pastEndtry := c.prog.Chunk.Len()

	// A skip that would otherwise land past ENDTRY must land in FINALLY
	// instead, when one exists, so it always runs (§4.4: "catch -> finally ->
	// past-endtry"): that covers both an unhandled error falling straight
	// into FINALLY with no CATCH, and CATCH's own normal-completion skip
	// jump landing in FINALLY rather than jumping over it.
	skipTarget := pastEndtry
	if frame.finallyPatched {
		skipTarget = frame.finallyBodyAddr
	}

	if !frame.catchPatched {
		c.prog.Chunk.PatchUint16(frame.catchPatch, skipTarget)
	}
	if !frame.finallyPatched {
		c.prog.Chunk.PatchUint16(frame.finallyPatch, pastEndtry)
	}
	for _, j := range frame.normalSkipJumps {
		c.prog.Chunk.PatchUint16(j, skipTarget)
	}
}

// --- Tasks & events (§4.9) ---

// compileStartTask compiles `START TASK name(args)` (§4.9): spawns a new
// cooperative task. It compiles only as a statement: the TaskRef the VM
// pushes is popped and discarded, so it cannot be assigned or awaited.
func (c *Compiler) compileStartTask() {
	line := c.line
	c.next() // START
	if c.curKeywordIs("TASK") {
		c.next()
	}
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected function name after START TASK")
		return
	}
	name := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	c.next()
	n := 0
	if c.curIs(lexer.LPAREN) {
		c.next()
		n = c.compileArgList(lexer.RPAREN)
		c.expect(lexer.RPAREN)
	}
	c.prog.Chunk.WriteOp(bytecode.OP_START_TASK, line)
	c.prog.Chunk.WriteCString(name, line)
	c.prog.Chunk.WriteByte(byte(n), line)
	c.prog.Chunk.WriteOp(bytecode.OP_POP, line)
}

// compileAwait compiles the `AWAIT taskExpr` statement (§4.9): the VM runs
// scheduler rounds until the task finishes and pushes its result, which is
// popped and discarded. AWAIT is compiled only at statement position, not
// inside an expression, so its result cannot be assigned.
func (c *Compiler) compileAwait() {
	line := c.line
	c.next() // AWAIT
	c.compileExpr()
	c.prog.Chunk.WriteOp(bytecode.OP_AWAIT, line)
	c.prog.Chunk.WriteOp(bytecode.OP_POP, line)
}

// compileBsync compiles `BSYNC name(args)` (§4.9/§5 Supplemented features):
// dispatches to a detached OS thread with a private VM clone, per
// original_source/jdb/async.cpp.
func (c *Compiler) compileBsync() {
	line := c.line
	c.next() // BSYNC
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected function name after BSYNC")
		return
	}
	name := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	c.next()
	n := 0
	if c.curIs(lexer.LPAREN) {
		c.next()
		n = c.compileArgList(lexer.RPAREN)
		c.expect(lexer.RPAREN)
	}
	c.prog.Chunk.WriteOp(bytecode.OP_BSYNC_CALL, line)
	c.prog.Chunk.WriteCString(name, line)
	c.prog.Chunk.WriteByte(byte(n), line)
	c.prog.Chunk.WriteOp(bytecode.OP_POP, line)
}

// compileOnEvent compiles `ON EVENT name CALL handler` (§4.9).
func (c *Compiler) compileOnEvent() {
	line := c.line
	c.next() // ON
	if c.curKeywordIs("EVENT") {
		c.next()
	}
	if !c.curIs(lexer.IDENT) && !c.curIs(lexer.STRING) {
		c.errorf("expected event name after ON EVENT")
		return
	}
	event := strings.ToUpper(c.cur.Literal)
	c.next()
	if c.curKeywordIs("CALL") {
		c.next()
	}
	if !c.curIs(lexer.IDENT) {
		c.errorf("expected handler function name")
		return
	}
	handler := strings.ToUpper(trimIdentSuffix(c.cur.Literal))
	c.next()
	c.prog.Chunk.WriteOp(bytecode.OP_ON_EVENT, line)
	c.prog.Chunk.WriteCString(event, line)
	c.prog.Chunk.WriteCString(handler, line)
}

// compileRaiseEvent compiles `RAISE EVENT name[, data]` and `RAISE errcode,
// "message"` (§4.9 events, §7 exception raising).
func (c *Compiler) compileRaiseEvent() {
	line := c.line
	c.next() // RAISE
	if c.curKeywordIs("EVENT") {
		c.next()
	}
	c.compileExpr()
	n := 1
	for c.curIs(lexer.COMMA) {
		c.next()
		c.compileExpr()
		n++
	}
	c.prog.Chunk.WriteOp(bytecode.OP_RAISE, line)
	c.prog.Chunk.WriteByte(byte(n), line)
}
