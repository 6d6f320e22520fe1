package tensor

import "math"

// Softmax computes row-wise softmax over a [rows, cols] tensor. When causal
// is true, elements above the diagonal are zeroed out before the max/exp
// step (§4.10). Backward uses (g - dot(g,y))*y per row, respecting the mask.
func Softmax(x *Tensor, causal bool) (*Tensor, error) {
	if len(x.Shape) != 2 {
		return nil, errShape("softmax expects a rank-2 tensor")
	}
	rows, cols := x.Shape[0], x.Shape[1]
	y := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		maxv := math.Inf(-1)
		for c := 0; c < cols; c++ {
			v := x.Data[r*cols+c]
			if causal && c > r {
				v = math.Inf(-1)
			}
			if v > maxv {
				maxv = v
			}
		}
		var sum float64
		for c := 0; c < cols; c++ {
			v := x.Data[r*cols+c]
			if causal && c > r {
				y[r*cols+c] = 0
				continue
			}
			e := math.Exp(v - maxv)
			y[r*cols+c] = e
			sum += e
		}
		for c := 0; c < cols; c++ {
			if sum > 0 {
				y[r*cols+c] /= sum
			}
		}
	}
	out := &Tensor{Data: y, Shape: append([]int(nil), x.Shape...), Parents: []*Tensor{x}}
	out.Backward = func(g *Tensor) []*Tensor {
		gd := make([]float64, rows*cols)
		for r := 0; r < rows; r++ {
			var dot float64
			for c := 0; c < cols; c++ {
				dot += g.Data[r*cols+c] * y[r*cols+c]
			}
			for c := 0; c < cols; c++ {
				if causal && c > r {
					continue
				}
				gd[r*cols+c] = (g.Data[r*cols+c] - dot) * y[r*cols+c]
			}
		}
		return []*Tensor{{Data: gd, Shape: append([]int(nil), x.Shape...)}}
	}
	return out, nil
}

// CrossEntropyLoss computes softmax internally and returns the mean
// negative log-probability of the one-hot target class per row (§4.10).
// Backward returns [(softmax(logits)-target)/batch-size, nil] for target.
func CrossEntropyLoss(logits, target *Tensor) (*Tensor, error) {
	sm, err := Softmax(logits, false)
	if err != nil {
		return nil, err
	}
	rows, cols := logits.Shape[0], logits.Shape[1]
	var total float64
	const eps = 1e-12
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			t := target.Data[r*cols+c]
			if t != 0 {
				total += -t * math.Log(sm.Data[r*cols+c]+eps)
			}
		}
	}
	loss := total / float64(rows)
	out := &Tensor{Data: []float64{loss}, Shape: []int{}, Parents: []*Tensor{logits, target}}
	out.Backward = func(g *Tensor) []*Tensor {
		scale := g.Data[0] / float64(rows)
		gd := make([]float64, rows*cols)
		for i := range gd {
			gd[i] = (sm.Data[i] - target.Data[i]) * scale
		}
		return []*Tensor{{Data: gd, Shape: []int{rows, cols}}, nil}
	}
	return out, nil
}

// LayerNorm normalizes each row (mean 0, variance 1 with epsilon 1e-5) then
// applies an affine gain/bias (§4.10). Backward returns gradients for x,
// gain and bias.
func LayerNorm(x, gain, bias *Tensor) (*Tensor, error) {
	if len(x.Shape) != 2 {
		return nil, errShape("layer_norm expects a rank-2 tensor")
	}
	const eps = 1e-5
	rows, cols := x.Shape[0], x.Shape[1]
	y := make([]float64, rows*cols)
	means := make([]float64, rows)
	invstd := make([]float64, rows)
	norm := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		var mean float64
		for c := 0; c < cols; c++ {
			mean += x.Data[r*cols+c]
		}
		mean /= float64(cols)
		var variance float64
		for c := 0; c < cols; c++ {
			d := x.Data[r*cols+c] - mean
			variance += d * d
		}
		variance /= float64(cols)
		is := 1 / math.Sqrt(variance+eps)
		means[r] = mean
		invstd[r] = is
		for c := 0; c < cols; c++ {
			n := (x.Data[r*cols+c] - mean) * is
			norm[r*cols+c] = n
			y[r*cols+c] = n*gain.Data[c] + bias.Data[c]
		}
	}
	out := &Tensor{Data: y, Shape: []int{rows, cols}, Parents: []*Tensor{x, gain, bias}}
	out.Backward = func(g *Tensor) []*Tensor {
		gx := make([]float64, rows*cols)
		ggain := make([]float64, cols)
		gbias := make([]float64, cols)
		for r := 0; r < rows; r++ {
			var sumG, sumGN float64
			for c := 0; c < cols; c++ {
				dy := g.Data[r*cols+c]
				ggain[c] += dy * norm[r*cols+c]
				gbias[c] += dy
				dn := dy * gain.Data[c]
				sumG += dn
				sumGN += dn * norm[r*cols+c]
			}
			for c := 0; c < cols; c++ {
				dy := g.Data[r*cols+c]
				dn := dy * gain.Data[c]
				gx[r*cols+c] = invstd[r] / float64(cols) * (float64(cols)*dn - sumG - norm[r*cols+c]*sumGN)
			}
		}
		return []*Tensor{
			{Data: gx, Shape: []int{rows, cols}},
			{Data: ggain, Shape: []int{cols}},
			{Data: gbias, Shape: []int{cols}},
		}
	}
	return out, nil
}

type shapeError string

func (e shapeError) Error() string { return string(e) }
func errShape(msg string) error    { return shapeError(msg) }
