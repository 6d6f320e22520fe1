package value

import "testing"

func TestToNumber(t *testing.T) {
	cases := []struct {
		in   Value
		want float64
	}{
		{Nil(), 0},
		{Bool(true), 1},
		{Bool(false), 0},
		{Int(42), 42},
		{Double(3.5), 3.5},
		{String("12.5abc"), 12.5},
		{String("abc"), 0},
		{String("-7"), -7},
	}
	for _, c := range cases {
		got, err := ToNumber(c.in)
		if err != nil {
			t.Fatalf("ToNumber(%v): unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ToNumber(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToNumberTypeMismatch(t *testing.T) {
	arr := ArrayVal(NewArray([]int{2}, Int(0)))
	if _, err := ToNumber(arr); err == nil {
		t.Fatal("expected a type-mismatch error converting an array to a number")
	}
}

func TestToBool(t *testing.T) {
	cases := []struct {
		in   Value
		want bool
	}{
		{Nil(), false},
		{Bool(true), true},
		{Int(0), false},
		{Int(5), true},
		{Double(0), false},
		{String(""), false},
		{String("x"), true},
	}
	for _, c := range cases {
		if got := ToBool(c.in); got != c.want {
			t.Errorf("ToBool(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	empty := ArrayVal(NewArray([]int{0}, Nil()))
	if ToBool(empty) {
		t.Error("ToBool(empty array) = true, want false")
	}
	full := ArrayVal(NewArray([]int{3}, Int(1)))
	if !ToBool(full) {
		t.Error("ToBool(non-empty array) = false, want true")
	}
}

func TestToStringScalars(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{Nil(), ""},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Int(7), "7"},
		{Double(2.5), "2.5"},
		{String("hi"), "hi"},
	}
	for _, c := range cases {
		if got := ToString(c.in); got != c.want {
			t.Errorf("ToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToStringArray(t *testing.T) {
	a := NewArray([]int{3}, Nil())
	a.Data[0], a.Data[1], a.Data[2] = Int(1), Int(2), Int(3)
	got := ToString(ArrayVal(a))
	want := "[1 2 3]"
	if got != want {
		t.Errorf("ToString(array) = %q, want %q", got, want)
	}
}

func TestToStringMapPreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(2))
	m.Set("a", Int(1))
	got := ToString(MapVal(m))
	want := `{"b": 2, "a": 1}`
	if got != want {
		t.Errorf("ToString(map) = %q, want %q", got, want)
	}
}

func TestToStringFuncRefAndTaskRef(t *testing.T) {
	if got := ToString(FuncRef("DOIT")); got != "@DOIT" {
		t.Errorf("ToString(FuncRef) = %q, want %q", got, "@DOIT")
	}
	if got := ToString(TaskRef(3)); got != "<task 3>" {
		t.Errorf("ToString(TaskRef) = %q, want %q", got, "<task 3>")
	}
}
