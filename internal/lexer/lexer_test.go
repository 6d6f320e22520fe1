package lexer

import "testing"

func collectKinds(src string) []Kind {
	l := New(src)
	var kinds []Kind
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == EOF {
			return kinds
		}
	}
}

func TestNextTokenOperatorsAndPunctuation(t *testing.T) {
	l := New("+ - * / ^ & ~ | = <> <= >= < > -> |> ( ) [ ] { } , .")
	want := []Kind{
		PLUS, MINUS, STAR, SLASH, CARET, AMP, TILDE, PIPE, EQ, NE, LE, GE, LT, GT,
		ARROW, PIPEOP, LPAREN, RPAREN, LBRACKET, RBRACKET, LBRACE, RBRACE, COMMA, DOT, EOF,
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Kind != w {
			t.Fatalf("token %d: Kind = %v, want %v", i, tok.Kind, w)
		}
	}
}

func TestNextTokenKeywordVsIdent(t *testing.T) {
	l := New("IF x THEN")
	tok := l.NextToken()
	if tok.Kind != KEYWORD || tok.Literal != "IF" {
		t.Fatalf("got %v %q, want KEYWORD IF", tok.Kind, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Kind != IDENT || tok.Literal != "x" {
		t.Fatalf("got %v %q, want IDENT x", tok.Kind, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Kind != KEYWORD || tok.Literal != "THEN" {
		t.Fatalf("got %v %q, want KEYWORD THEN", tok.Kind, tok.Literal)
	}
}

func TestNextTokenStringIdentSuffix(t *testing.T) {
	l := New("NAME$")
	tok := l.NextToken()
	if !tok.IsStringIdent {
		t.Fatal("expected IsStringIdent to be true")
	}
	if tok.Literal != "NAME$" {
		t.Errorf("Literal = %q, want %q", tok.Literal, "NAME$")
	}
}

func TestNextTokenFuncRefSuffix(t *testing.T) {
	l := New("DOIT@")
	tok := l.NextToken()
	if !tok.IsFuncRefIdent {
		t.Fatal("expected IsFuncRefIdent to be true")
	}
}

func TestNextTokenQualifiedIdent(t *testing.T) {
	l := New("MATH.SQRT")
	tok := l.NextToken()
	if tok.Kind != IDENT || tok.Literal != "MATH.SQRT" {
		t.Fatalf("got %v %q, want IDENT MATH.SQRT", tok.Kind, tok.Literal)
	}
}

func TestNextTokenIntAndFloat(t *testing.T) {
	l := New("42 3.14")
	tok := l.NextToken()
	if tok.Kind != INT || tok.IntVal != 42 {
		t.Fatalf("got %v %d, want INT 42", tok.Kind, tok.IntVal)
	}
	tok = l.NextToken()
	if tok.Kind != NUMBER || tok.NumVal != 3.14 {
		t.Fatalf("got %v %v, want NUMBER 3.14", tok.Kind, tok.NumVal)
	}
}

func TestNextTokenHexAndBinLiterals(t *testing.T) {
	l := New("$FF %101")
	tok := l.NextToken()
	if tok.Kind != INT || tok.IntVal != 255 {
		t.Fatalf("hex literal: got %v %d, want INT 255", tok.Kind, tok.IntVal)
	}
	tok = l.NextToken()
	if tok.Kind != INT || tok.IntVal != 5 {
		t.Fatalf("bin literal: got %v %d, want INT 5", tok.Kind, tok.IntVal)
	}
}

func TestNextTokenStringLiteral(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.NextToken()
	if tok.Kind != STRING || tok.Literal != "hello world" {
		t.Fatalf("got %v %q, want STRING \"hello world\"", tok.Kind, tok.Literal)
	}
}

func TestNextTokenCommentsAreSkipped(t *testing.T) {
	kinds := collectKinds("X = 1 ' this is a comment\nY = 2")
	foundNewline := false
	for _, k := range kinds {
		if k == NEWLINE {
			foundNewline = true
		}
	}
	if !foundNewline {
		t.Fatal("expected a NEWLINE token to survive comment skipping")
	}
}

func TestNextTokenNewlineIsSignificant(t *testing.T) {
	l := New("X\nY")
	tok := l.NextToken() // X
	if tok.Kind != IDENT {
		t.Fatalf("got %v, want IDENT", tok.Kind)
	}
	tok = l.NextToken()
	if tok.Kind != NEWLINE {
		t.Fatalf("got %v, want NEWLINE", tok.Kind)
	}
}

func TestNextTokenTracksLineNumbers(t *testing.T) {
	l := New("X\nY\nZ")
	l.NextToken() // X, line 1
	l.NextToken() // NEWLINE
	tok := l.NextToken() // Y, line 2
	if tok.Line != 2 {
		t.Errorf("Line = %d, want 2", tok.Line)
	}
}
