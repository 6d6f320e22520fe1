package value

import (
	"testing"

	"github.com/jdbasic/jdbasic/internal/tensor"
)

func TestArithScalar(t *testing.T) {
	cases := []struct {
		op   BinOp
		a, b Value
		want Value
	}{
		{OpAdd, Int(2), Int(3), Int(5)},
		{OpSub, Int(5), Int(2), Int(3)},
		{OpMul, Int(3), Int(4), Int(12)},
		{OpDiv, Int(10), Int(4), Double(2.5)},
		{OpMod, Int(10), Int(3), Int(1)},
		{OpPow, Int(2), Int(10), Int(1024)},
		{OpEq, Int(4), Int(4), Bool(true)},
		{OpLt, Int(3), Int(4), Bool(true)},
	}
	for _, c := range cases {
		got, err := Arith(c.op, c.a, c.b, 1)
		if err != nil {
			t.Fatalf("Arith(%v, %v, %v): unexpected error %v", c.op, c.a, c.b, err)
		}
		if got.Kind != c.want.Kind || ToString(got) != ToString(c.want) {
			t.Errorf("Arith(%v, %v, %v) = %v, want %v", c.op, c.a, c.b, got, c.want)
		}
	}
}

func TestArithDivByZero(t *testing.T) {
	if _, err := Arith(OpDiv, Int(1), Int(0), 7); err == nil {
		t.Fatal("expected a division-by-zero error")
	} else if err.Line != 7 {
		t.Errorf("error line = %d, want 7", err.Line)
	}
}

func TestArithModByZero(t *testing.T) {
	if _, err := Arith(OpMod, Int(1), Int(0), 1); err == nil {
		t.Fatal("expected a MOD-by-zero error")
	}
}

func TestArithStringConcat(t *testing.T) {
	got, err := Arith(OpAdd, String("foo"), String("bar"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ToString(got) != "foobar" {
		t.Errorf("got %q, want %q", ToString(got), "foobar")
	}
}

func TestArithStringComparison(t *testing.T) {
	got, err := Arith(OpLt, String("a"), String("b"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Bool {
		t.Error("expected \"a\" < \"b\" to be true")
	}
}

func TestArithStringMulFails(t *testing.T) {
	if _, err := Arith(OpMul, String("a"), String("b"), 1); err == nil {
		t.Fatal("expected an error multiplying two strings")
	}
}

func TestArithArrayBroadcastScalar(t *testing.T) {
	a := NewArray([]int{3}, Int(0))
	a.Data[0], a.Data[1], a.Data[2] = Int(1), Int(2), Int(3)
	got, err := Arith(OpAdd, ArrayVal(a), Int(10), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := got.AsArray()
	if !ok {
		t.Fatalf("result is not an array: %#v", got)
	}
	want := []int64{11, 12, 13}
	for i, w := range want {
		if result.Data[i].Int != w {
			t.Errorf("data[%d] = %d, want %d", i, result.Data[i].Int, w)
		}
	}
}

func TestArithArrayShapeMismatch(t *testing.T) {
	a := NewArray([]int{2}, Int(1))
	b := NewArray([]int{3}, Int(1))
	if _, err := Arith(OpAdd, ArrayVal(a), ArrayVal(b), 1); err == nil {
		t.Fatal("expected an incompatible-shape error")
	}
}

func TestArithTensorLiftsScalar(t *testing.T) {
	scalarTensor := TensorVal(tensor.Scalar(5))
	got, err := Arith(OpAdd, scalarTensor, Int(3), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tv, ok := got.AsTensor()
	if !ok {
		t.Fatalf("result is not a tensor: %#v", got)
	}
	if tv.Data[0] != 8 {
		t.Errorf("tensor value = %v, want 8", tv.Data[0])
	}
}
