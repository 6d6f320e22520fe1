package tensor

import "testing"

func TestAddBackward(t *testing.T) {
	a := New([]int{2}, []float64{1, 2})
	b := New([]int{2}, []float64{3, 4})
	out, err := Add(a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := []float64{4, 6}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("data[%d] = %v, want %v", i, out.Data[i], w)
		}
	}
	loss := Sum(out)
	Backward(loss)
	for i, g := range a.Grad.Data {
		if g != 1 {
			t.Errorf("a.Grad[%d] = %v, want 1", i, g)
		}
	}
	for i, g := range b.Grad.Data {
		if g != 1 {
			t.Errorf("b.Grad[%d] = %v, want 1", i, g)
		}
	}
}

func TestMulBackward(t *testing.T) {
	a := New([]int{2}, []float64{2, 3})
	b := New([]int{2}, []float64{5, 7})
	out, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	loss := Sum(out)
	Backward(loss)
	if a.Grad.Data[0] != 5 || a.Grad.Data[1] != 7 {
		t.Errorf("a.Grad = %v, want [5 7]", a.Grad.Data)
	}
	if b.Grad.Data[0] != 2 || b.Grad.Data[1] != 3 {
		t.Errorf("b.Grad = %v, want [2 3]", b.Grad.Data)
	}
}

func TestAddBroadcastRowAgainstMatrix(t *testing.T) {
	mat := New([]int{2, 2}, []float64{1, 2, 3, 4})
	row := New([]int{1, 2}, []float64{10, 20})
	out, err := Add(mat, row)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := []float64{11, 22, 13, 24}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("data[%d] = %v, want %v", i, out.Data[i], w)
		}
	}
}

func TestDivByZero(t *testing.T) {
	x := New([]int{1}, []float64{1})
	if _, err := Div(x, 0); err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestMatMul(t *testing.T) {
	a := New([]int{2, 2}, []float64{1, 2, 3, 4})
	b := New([]int{2, 2}, []float64{5, 6, 7, 8})
	out, err := MatMul(a, b)
	if err != nil {
		t.Fatalf("MatMul: %v", err)
	}
	want := []float64{19, 22, 43, 50}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("data[%d] = %v, want %v", i, out.Data[i], w)
		}
	}
}

func TestMatMulIncompatibleShapes(t *testing.T) {
	a := New([]int{2, 3}, make([]float64, 6))
	b := New([]int{2, 2}, make([]float64, 4))
	if _, err := MatMul(a, b); err == nil {
		t.Fatal("expected a shape-mismatch error")
	}
}

func TestReLU(t *testing.T) {
	x := New([]int{3}, []float64{-1, 0, 2})
	out := ReLU(x)
	want := []float64{0, 0, 2}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("data[%d] = %v, want %v", i, out.Data[i], w)
		}
	}
	loss := Sum(out)
	Backward(loss)
	wantGrad := []float64{0, 0, 1}
	for i, w := range wantGrad {
		if x.Grad.Data[i] != w {
			t.Errorf("grad[%d] = %v, want %v", i, x.Grad.Data[i], w)
		}
	}
}

func TestScalarAndSum(t *testing.T) {
	s := Scalar(5)
	if s.Len() != 1 || len(s.Shape) != 0 {
		t.Fatalf("Scalar(5) shape = %v, want rank 0", s.Shape)
	}
	x := New([]int{3}, []float64{1, 2, 3})
	sum := Sum(x)
	if sum.Data[0] != 6 {
		t.Errorf("Sum = %v, want 6", sum.Data[0])
	}
}
