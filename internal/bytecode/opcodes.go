// Package bytecode implements the bytecode format (§4.5): a flat byte
// stream with a 2-byte line-number prefix per source line, opcode bytes,
// and inline operands (2-byte jump addresses, null-terminated identifier
// strings, fixed-width numeric payloads). Grounded on
// _examples/funvibe-funxy/internal/vm/chunk.go and opcodes.go (Opcode byte
// enum + OpcodeNames map + a Chunk that pairs Code with a parallel Lines
// slice), adapted to the statement-oriented opcode catalog of §4.5 instead
// of funxy's expression-VM opcode set.
package bytecode

type Op byte

const (
	OP_NOCMD Op = iota // end-of-program marker
	OP_CR              // line boundary

	// Literals & constants
	OP_INTEGER_LITERAL // followed by 8-byte int64
	OP_NUMBER           // followed by 8-byte float64
	OP_STRING_CONST     // followed by null-terminated string
	OP_TRUE
	OP_FALSE
	OP_NIL

	// Variables
	OP_LOAD_VAR  // followed by null-terminated name
	OP_STORE_VAR // followed by null-terminated name
	OP_LOAD_CONST_NAME // CONSTANT name lookup (PI, ERR, ...)

	// Arrays/maps/dot access
	OP_INDEX       // a[i,...] -> pops n index values + array/map
	OP_INDEX_SET
	OP_MAP_KEY     // a{key}
	OP_MAP_KEY_SET
	OP_DOT_GET     // a.member
	OP_DOT_SET

	OP_MAKE_ARRAY // followed by 2-byte element count (nested dims precomputed)
	OP_MAKE_MAP   // followed by 2-byte pair count
	OP_FUNCREF    // followed by null-terminated function name

	// Operators
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_NEG
	OP_NOT
	OP_AND
	OP_OR
	OP_EQ
	OP_NE
	OP_LT
	OP_GT
	OP_LE
	OP_GE

	// Control flow
	OP_IF            // followed by 2-byte placeholder/address (jump-if-false)
	OP_JUMP          // unconditional jump, followed by 2-byte address
	OP_FOR_SETUP     // followed by null-terminated var name
	OP_FOR_NEXT      // decrement-and-test, followed by 2-byte loop-start address
	OP_EXIT_FOR      // followed by 2-byte address (patched to after NEXT)
	OP_DO_TEST       // followed by flags byte + 2-byte address
	OP_LOOP          // back-jump, followed by 2-byte address + metadata byte
	OP_EXIT_DO

	// Calls
	OP_CALL_FUNC // followed by null-terminated name + 1-byte argc
	OP_CALL_SUB
	OP_CALL_VALUE // call a function-ref value already on the stack
	OP_RETURN
	OP_POP

	// Exceptions
	OP_PUSH_HANDLER // followed by 2-byte catch addr + 2-byte finally addr
	OP_POP_HANDLER
	OP_RAISE // RAISE EVENT name, data

	// Tasks
	OP_START_TASK // followed by null-terminated func name + 1-byte argc
	OP_AWAIT
	OP_ON_EVENT   // followed by null-terminated event + null-terminated handler func
	OP_BSYNC_CALL // followed by null-terminated func name + 1-byte argc

	// Declarations
	OP_FUNC_DECL // followed by null-terminated name + 2-byte jump-past-body placeholder
	OP_PRINT
	OP_INPUT
	OP_DIM
	OP_LABEL // no-op marker, carries no bytes; labels resolved at compile time
)

var names = map[Op]string{
	OP_NOCMD: "NOCMD", OP_CR: "CR",
	OP_INTEGER_LITERAL: "INTEGER_LITERAL", OP_NUMBER: "NUMBER", OP_STRING_CONST: "STRING_CONST",
	OP_TRUE: "TRUE", OP_FALSE: "FALSE", OP_NIL: "NIL",
	OP_LOAD_VAR: "LOAD_VAR", OP_STORE_VAR: "STORE_VAR", OP_LOAD_CONST_NAME: "LOAD_CONST_NAME",
	OP_INDEX: "INDEX", OP_INDEX_SET: "INDEX_SET", OP_MAP_KEY: "MAP_KEY", OP_MAP_KEY_SET: "MAP_KEY_SET",
	OP_DOT_GET: "DOT_GET", OP_DOT_SET: "DOT_SET",
	OP_MAKE_ARRAY: "MAKE_ARRAY", OP_MAKE_MAP: "MAKE_MAP", OP_FUNCREF: "FUNCREF",
	OP_ADD: "ADD", OP_SUB: "SUB", OP_MUL: "MUL", OP_DIV: "DIV", OP_MOD: "MOD", OP_POW: "POW", OP_NEG: "NEG",
	OP_NOT: "NOT", OP_AND: "AND", OP_OR: "OR",
	OP_EQ: "EQ", OP_NE: "NE", OP_LT: "LT", OP_GT: "GT", OP_LE: "LE", OP_GE: "GE",
	OP_IF: "IF", OP_JUMP: "JUMP", OP_FOR_SETUP: "FOR_SETUP", OP_FOR_NEXT: "FOR_NEXT",
	OP_EXIT_FOR: "EXIT_FOR", OP_DO_TEST: "DO_TEST", OP_LOOP: "LOOP", OP_EXIT_DO: "EXIT_DO",
	OP_CALL_FUNC: "CALL_FUNC", OP_CALL_SUB: "CALL_SUB", OP_CALL_VALUE: "CALL_VALUE",
	OP_RETURN: "RETURN", OP_POP: "POP",
	OP_PUSH_HANDLER: "PUSH_HANDLER", OP_POP_HANDLER: "POP_HANDLER", OP_RAISE: "RAISE",
	OP_START_TASK: "START_TASK", OP_AWAIT: "AWAIT", OP_ON_EVENT: "ON_EVENT", OP_BSYNC_CALL: "BSYNC_CALL",
	OP_FUNC_DECL: "FUNC_DECL", OP_PRINT: "PRINT", OP_INPUT: "INPUT", OP_DIM: "DIM", OP_LABEL: "LABEL",
}

func (o Op) String() string {
	if s, ok := names[o]; ok {
		return s
	}
	return "UNKNOWN_OP"
}
