package compiler

import "testing"

func TestCompileSimpleProgramNoErrors(t *testing.T) {
	c := New("X = 1 + 2\nPRINT X")
	_, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if len(c.Errors()) != 0 {
		t.Errorf("Errors() = %v, want empty", c.Errors())
	}
}

func TestCompileUnclosedIfRecordsError(t *testing.T) {
	c := New("IF 1 > 0 THEN\nPRINT \"x\"")
	_, err := c.Compile()
	if err == nil {
		t.Fatal("expected a compile error for an unclosed IF block")
	}
	if len(c.Errors()) == 0 {
		t.Error("expected Errors() to be populated")
	}
}

func TestCompileNextWithoutForRecordsError(t *testing.T) {
	c := New("NEXT I")
	_, err := c.Compile()
	if err == nil {
		t.Fatal("expected a compile error for NEXT without a matching FOR")
	}
}

func TestPrescanRegistersTypeMembers(t *testing.T) {
	src := `TYPE POINT
  X AS INTEGER
  Y AS INTEGER
  LABEL AS STRING
ENDTYPE
PRINT "done"`
	c := New(src)
	if _, err := c.Compile(); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	info, ok := c.TypeRegistry().Lookup("POINT")
	if !ok {
		t.Fatal("expected POINT to be registered in the type registry")
	}
	if len(info.Members) != 3 {
		t.Fatalf("Members = %d, want 3", len(info.Members))
	}
	want := map[string]string{"X": "INTEGER", "Y": "INTEGER", "LABEL": "STRING"}
	for _, m := range info.Members {
		if wantType, ok := want[m.Name]; !ok || wantType != m.DeclaredType {
			t.Errorf("member %s AS %s, want AS %s", m.Name, m.DeclaredType, want[m.Name])
		}
	}
}

func TestPrescanSeesTypeDeclaredAfterItsFirstUse(t *testing.T) {
	// prescan (Pass 0) walks the whole source before Pass 1 compiles any
	// statement, so a TYPE block declared later in the file is already
	// registered by the time code using it (here, NEW LATER) compiles.
	src := `P = NEW LATER
PRINT "ok"
TYPE LATER
  N AS INTEGER
ENDTYPE`
	c := New(src)
	if _, err := c.Compile(); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if _, ok := c.TypeRegistry().Lookup("LATER"); !ok {
		t.Fatal("expected LATER to be registered regardless of declaration order")
	}
}
