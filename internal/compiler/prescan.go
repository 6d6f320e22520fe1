package compiler

import (
	"strings"

	"github.com/jdbasic/jdbasic/internal/lexer"
	"github.com/jdbasic/jdbasic/internal/types"
)

// prescan is Pass 0 (§4.4): a lightweight token walk over the whole source
// that registers TYPE...ENDTYPE member layouts into the type registry and
// records IMPORT/EXPORT directives, before Pass 1 emits any bytecode.
func (c *Compiler) prescan() {
	lx := lexer.New(c.source)
	cur := lx.NextToken()
	peek := lx.NextToken()
	adv := func() {
		cur = peek
		peek = lx.NextToken()
	}

	for cur.Kind != lexer.EOF {
		switch {
		case cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "TYPE"):
			adv()
			c.prescanType(&cur, &peek, adv)
		case cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "IMPORT"):
			adv()
			if cur.Kind == lexer.IDENT || cur.Kind == lexer.STRING {
				c.imports = append(c.imports, importDirective{name: strings.ToUpper(cur.Literal), line: cur.Line})
			}
			adv()
		case cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "EXPORT"):
			adv()
			switch {
			case cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "MODULE"):
				c.isModule = true
				adv()
				if cur.Kind == lexer.IDENT {
					c.moduleName = strings.ToUpper(cur.Literal)
					adv()
				}
			case cur.Kind == lexer.KEYWORD && (strings.EqualFold(cur.Literal, "FUNC") || strings.EqualFold(cur.Literal, "SUB")):
				adv()
				if cur.Kind == lexer.IDENT {
					c.exported[strings.ToUpper(trimIdentSuffix(cur.Literal))] = true
				}
				adv()
			}
		default:
			adv()
		}
	}
}

// prescanType consumes one TYPE...ENDTYPE block, registering its member
// declarations (`name AS type`, one per line) into the type registry (§3).
// Anything else inside the block, including a FUNC or SUB declaration, is
// skipped here and again by Pass 1's skipTypeBlock: it is not compiled and
// its name is not recorded in TypeInfo.MethodNames. A type's methods are
// compiled only when declared at top level as FUNC Type.Method(...).
func (c *Compiler) prescanType(cur, peek *lexer.Token, adv func()) {
	if cur.Kind != lexer.IDENT {
		return
	}
	name := strings.ToUpper(cur.Literal)
	info := c.types.Define(name)
	adv()

	for !(cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "ENDTYPE")) && cur.Kind != lexer.EOF {
		if cur.Kind == lexer.IDENT {
			memberName := strings.ToUpper(trimIdentSuffix(cur.Literal))
			adv()
			declType := ""
			if cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "AS") {
				adv()
				if cur.Kind == lexer.IDENT || cur.Kind == lexer.KEYWORD {
					declType = strings.ToUpper(cur.Literal)
					adv()
				}
			}
			info.Members = append(info.Members, types.MemberDecl{Name: memberName, DeclaredType: declType})
			continue
		}
		adv()
	}
	if cur.Kind == lexer.KEYWORD && strings.EqualFold(cur.Literal, "ENDTYPE") {
		adv()
	}
}
