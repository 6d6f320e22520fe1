package nativeio

import (
	"path/filepath"
	"testing"

	"github.com/jdbasic/jdbasic/internal/tensor"
	"github.com/jdbasic/jdbasic/internal/value"
)

func TestSaveLoadModelRoundTrip(t *testing.T) {
	model := value.NewMap()
	model.Set("W", value.TensorVal(tensor.New([]int{2, 2}, []float64{1, 2, 3, 4})))
	model.Set("EPOCH", value.Int(7))

	path := filepath.Join(t.TempDir(), "model.json")

	if _, err := saveModel(nil, []value.Value{value.String(path), value.MapVal(model)}); err != nil {
		t.Fatalf("SAVEMODEL: %v", err)
	}

	result, err := loadModel(nil, []value.Value{value.String(path)})
	if err != nil {
		t.Fatalf("LOADMODEL: %v", err)
	}

	loaded, ok := result.AsMap()
	if !ok {
		t.Fatalf("LOADMODEL result is not a map: %#v", result)
	}

	wVal, ok := loaded.Get("W")
	if !ok {
		t.Fatal("loaded model missing W")
	}
	wTensor, ok := wVal.AsTensor()
	if !ok {
		t.Fatalf("W is not a tensor: %#v", wVal)
	}
	if len(wTensor.Shape) != 2 || wTensor.Shape[0] != 2 || wTensor.Shape[1] != 2 {
		t.Fatalf("shape = %v, want [2 2]", wTensor.Shape)
	}
	for i, want := range []float64{1, 2, 3, 4} {
		if wTensor.Data[i] != want {
			t.Errorf("data[%d] = %v, want %v", i, wTensor.Data[i], want)
		}
	}

	epochVal, ok := loaded.Get("EPOCH")
	if !ok {
		t.Fatal("loaded model missing EPOCH")
	}
	if value.ToString(epochVal) != "7" {
		t.Errorf("EPOCH = %s, want 7", value.ToString(epochVal))
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	if _, err := loadModel(nil, []value.Value{value.String("/no/such/model.json")}); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestSaveModelWrongArity(t *testing.T) {
	if _, err := saveModel(nil, []value.Value{value.String("x.json")}); err == nil {
		t.Fatal("expected an arity error")
	}
}
