package tensor

import "math"

// Optimizer implements the optimizer contract of §4.10: SGD.UPDATE
// subtracts learning_rate*grad from every tensor found beneath a model and
// clears Grad; Adam additionally maintains m/v shadow state per parameter
// path and a step counter.
type Optimizer struct {
	Type         string // "SGD" or "ADAM"
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step int
	m    map[string][]float64
	v    map[string][]float64
}

func NewSGD(lr float64) *Optimizer {
	return &Optimizer{Type: "SGD", LearningRate: lr}
}

func NewAdam(lr float64) *Optimizer {
	return &Optimizer{
		Type: "ADAM", LearningRate: lr, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8,
		m: make(map[string][]float64), v: make(map[string][]float64),
	}
}

// Update applies this optimizer's rule to every named parameter tensor in
// model, then clears each parameter's Grad.
func (o *Optimizer) Update(model map[string]*Tensor) {
	switch o.Type {
	case "ADAM":
		o.step++
		for name, t := range model {
			if t.Grad == nil {
				continue
			}
			if _, ok := o.m[name]; !ok {
				o.m[name] = make([]float64, len(t.Data))
				o.v[name] = make([]float64, len(t.Data))
			}
			m, v := o.m[name], o.v[name]
			b1t := math.Pow(o.Beta1, float64(o.step))
			b2t := math.Pow(o.Beta2, float64(o.step))
			for i, g := range t.Grad.Data {
				m[i] = o.Beta1*m[i] + (1-o.Beta1)*g
				v[i] = o.Beta2*v[i] + (1-o.Beta2)*g*g
				mHat := m[i] / (1 - b1t)
				vHat := v[i] / (1 - b2t)
				t.Data[i] -= o.LearningRate * mHat / (math.Sqrt(vHat) + o.Epsilon)
			}
			t.Grad = nil
		}
	default: // SGD
		for _, t := range model {
			if t.Grad == nil {
				continue
			}
			for i, g := range t.Grad.Data {
				t.Data[i] -= o.LearningRate * g
			}
			t.Grad = nil
		}
	}
}
