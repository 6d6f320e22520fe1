package types

import "testing"

func TestDefineAndLookupUppercases(t *testing.T) {
	r := NewRegistry()
	r.Define("point")
	if _, ok := r.Lookup("POINT"); !ok {
		t.Fatal("expected lookup by uppercase name to succeed")
	}
	if _, ok := r.Lookup("point"); !ok {
		t.Fatal("expected lookup by original-case name to succeed")
	}
	if _, ok := r.Lookup("MISSING"); ok {
		t.Fatal("expected lookup of an undefined type to fail")
	}
}

func TestMangleMethod(t *testing.T) {
	got := MangleMethod("point", "distance")
	want := "POINT.DISTANCE"
	if got != want {
		t.Errorf("MangleMethod = %q, want %q", got, want)
	}
}

func TestInstantiateZeroValues(t *testing.T) {
	r := NewRegistry()
	info := r.Define("POINT")
	info.Members = []MemberDecl{
		{Name: "X", DeclaredType: "INTEGER"},
		{Name: "Y", DeclaredType: "DOUBLE"},
		{Name: "LABEL", DeclaredType: "STRING"},
		{Name: "VISIBLE", DeclaredType: "BOOL"},
		{Name: "TAGS", DeclaredType: "MAP"},
	}

	inst, ok := r.Instantiate("POINT")
	if !ok {
		t.Fatal("expected Instantiate to succeed for a defined type")
	}
	if inst.UDTType != "POINT" {
		t.Errorf("UDTType = %q, want %q", inst.UDTType, "POINT")
	}

	x, _ := inst.Get("X")
	if x.Int != 0 {
		t.Errorf("X = %v, want 0", x)
	}
	label, _ := inst.Get("LABEL")
	if label.Str != "" {
		t.Errorf("LABEL = %q, want empty string", label.Str)
	}
	visible, _ := inst.Get("VISIBLE")
	if visible.Bool != false {
		t.Errorf("VISIBLE = %v, want false", visible.Bool)
	}
	tags, ok := inst.Get("TAGS")
	if !ok {
		t.Fatal("expected TAGS member to be present")
	}
	if _, ok := tags.AsMap(); !ok {
		t.Errorf("TAGS is not a map: %#v", tags)
	}
}

func TestInstantiateUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Instantiate("NOPE"); ok {
		t.Fatal("expected Instantiate of an undefined type to fail")
	}
}
