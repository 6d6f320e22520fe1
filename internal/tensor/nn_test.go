package tensor

import (
	"math"
	"testing"
)

func TestSoftmaxRowsSumToOne(t *testing.T) {
	x := New([]int{2, 3}, []float64{1, 2, 3, 1, 1, 1})
	y, err := Softmax(x, false)
	if err != nil {
		t.Fatalf("Softmax: %v", err)
	}
	for r := 0; r < 2; r++ {
		var sum float64
		for c := 0; c < 3; c++ {
			sum += y.Data[r*3+c]
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v, want 1", r, sum)
		}
	}
}

func TestSoftmaxCausalMasksUpperTriangle(t *testing.T) {
	x := New([]int{2, 2}, []float64{1, 2, 3, 4})
	y, err := Softmax(x, true)
	if err != nil {
		t.Fatalf("Softmax: %v", err)
	}
	if y.Data[1] != 0 {
		t.Errorf("masked position = %v, want 0", y.Data[1])
	}
	if y.Data[0] != 1 {
		t.Errorf("row 0 col 0 = %v, want 1 (only unmasked entry)", y.Data[0])
	}
}

func TestSoftmaxWrongRank(t *testing.T) {
	x := New([]int{3}, []float64{1, 2, 3})
	if _, err := Softmax(x, false); err == nil {
		t.Fatal("expected a rank error")
	}
}

func TestCrossEntropyLossOneHot(t *testing.T) {
	logits := New([]int{1, 2}, []float64{0, 0})
	target := New([]int{1, 2}, []float64{1, 0})
	loss, err := CrossEntropyLoss(logits, target)
	if err != nil {
		t.Fatalf("CrossEntropyLoss: %v", err)
	}
	want := math.Log(2)
	if math.Abs(loss.Data[0]-want) > 1e-6 {
		t.Errorf("loss = %v, want %v", loss.Data[0], want)
	}
}

func TestLayerNormNormalizesRow(t *testing.T) {
	x := New([]int{1, 4}, []float64{1, 2, 3, 4})
	gain := New([]int{4}, []float64{1, 1, 1, 1})
	bias := New([]int{4}, []float64{0, 0, 0, 0})
	y, err := LayerNorm(x, gain, bias)
	if err != nil {
		t.Fatalf("LayerNorm: %v", err)
	}
	var mean, variance float64
	for _, v := range y.Data {
		mean += v
	}
	mean /= 4
	if math.Abs(mean) > 1e-6 {
		t.Errorf("normalized mean = %v, want ~0", mean)
	}
	for _, v := range y.Data {
		variance += (v - mean) * (v - mean)
	}
	variance /= 4
	if math.Abs(variance-1) > 1e-3 {
		t.Errorf("normalized variance = %v, want ~1", variance)
	}
}

func TestConv2DIdentityKernel(t *testing.T) {
	input := New([]int{1, 3, 3}, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	kernel := New([]int{1, 1, 1, 1}, []float64{1})
	out, err := Conv2D(input, kernel, nil, 1, 0)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}
	for i, v := range input.Data {
		if out.Data[i] != v {
			t.Errorf("data[%d] = %v, want %v", i, out.Data[i], v)
		}
	}
}

func TestMaxPool2D(t *testing.T) {
	input := New([]int{1, 2, 2}, []float64{1, 3, 2, 4})
	out, err := MaxPool2D(input, 2, 2)
	if err != nil {
		t.Fatalf("MaxPool2D: %v", err)
	}
	if len(out.Data) != 1 || out.Data[0] != 4 {
		t.Errorf("MaxPool2D result = %v, want [4]", out.Data)
	}
	Backward(Sum(out))
	wantGrad := []float64{0, 0, 0, 1}
	for i, w := range wantGrad {
		if input.Grad.Data[i] != w {
			t.Errorf("grad[%d] = %v, want %v", i, input.Grad.Data[i], w)
		}
	}
}

func TestOptimizerSGDUpdate(t *testing.T) {
	param := New([]int{2}, []float64{1, 1})
	param.Grad = New([]int{2}, []float64{0.5, 0.5})
	opt := NewSGD(0.1)
	opt.Update(map[string]*Tensor{"W": param})
	want := []float64{0.95, 0.95}
	for i, w := range want {
		if math.Abs(param.Data[i]-w) > 1e-9 {
			t.Errorf("data[%d] = %v, want %v", i, param.Data[i], w)
		}
	}
	if param.Grad != nil {
		t.Error("expected Grad to be cleared after SGD update")
	}
}

func TestOptimizerAdamUpdateMovesDownGradient(t *testing.T) {
	param := New([]int{1}, []float64{1})
	param.Grad = New([]int{1}, []float64{1})
	opt := NewAdam(0.1)
	opt.Update(map[string]*Tensor{"W": param})
	if param.Data[0] >= 1 {
		t.Errorf("expected Adam to decrease the parameter, got %v", param.Data[0])
	}
	if param.Grad != nil {
		t.Error("expected Grad to be cleared after Adam update")
	}
}
