package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jdbasic/jdbasic/internal/compiler"
	"github.com/jdbasic/jdbasic/internal/vm"
)

// run compiles and executes src, returning whatever it printed and any
// error from Run (a *errs.RuntimeError on an uncaught fault).
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	c := compiler.New(src)
	prog, err := c.Compile()
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := vm.New(prog, c.TypeRegistry())
	var buf bytes.Buffer
	machine.Out = &buf
	runErr := machine.Run()
	return buf.String(), runErr
}

func TestPrintLiteral(t *testing.T) {
	out, err := run(t, `PRINT "hello"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello\n" {
		t.Errorf("output = %q, want %q", out, "hello\n")
	}
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, "X = 2 + 3 * 4\nPRINT X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "14" {
		t.Errorf("output = %q, want 14", out)
	}
}

func TestIfElseBranching(t *testing.T) {
	src := `X = 5
IF X > 3 THEN
  PRINT "big"
ELSE
  PRINT "small"
ENDIF`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "big" {
		t.Errorf("output = %q, want big", out)
	}
}

func TestForNextLoop(t *testing.T) {
	src := `TOTAL = 0
FOR I = 1 TO 5
  TOTAL = TOTAL + I
NEXT I
PRINT TOTAL`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "15" {
		t.Errorf("output = %q, want 15", out)
	}
}

func TestFuncCallAndReturn(t *testing.T) {
	src := `FUNC DOUBLEIT(N)
  RETURN N * 2
ENDFUNC
PRINT DOUBLEIT(21)`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "42" {
		t.Errorf("output = %q, want 42", out)
	}
}

func TestRecursiveFunc(t *testing.T) {
	src := `FUNC FACT(N)
  IF N <= 1 THEN
    RETURN 1
  ENDIF
  RETURN N * FACT(N - 1)
ENDFUNC
PRINT FACT(5)`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "120" {
		t.Errorf("output = %q, want 120", out)
	}
}

func TestTryCatchCatchesRaisedError(t *testing.T) {
	src := `TRY
  RAISE 99, "custom"
CATCH E
  PRINT "caught"
ENDTRY`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "caught" {
		t.Errorf("output = %q, want caught", out)
	}
}

func TestDivisionByZeroUncaughtProducesRuntimeError(t *testing.T) {
	_, err := run(t, "X = 1 / 0")
	if err == nil {
		t.Fatal("expected a division-by-zero runtime error")
	}
}

func TestArrayDimAndIndex(t *testing.T) {
	src := `DIM A[3]
A[0] = 10
A[1] = 20
PRINT A[0] + A[1]`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "30" {
		t.Errorf("output = %q, want 30", out)
	}
}

func TestCallThroughFuncRefVariable(t *testing.T) {
	src := `FUNC DOUBLEIT(N)
  RETURN N * 2
ENDFUNC
F = &DOUBLEIT
PRINT F(21)`
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "42" {
		t.Errorf("output = %q, want 42", out)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `PRINT "foo" + "bar"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "foobar" {
		t.Errorf("output = %q, want foobar", out)
	}
}
