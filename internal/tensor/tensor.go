// Package tensor implements the autodiff Tensor Engine (§4.10). It records a
// dynamic computation graph — each forward op builds a new Tensor carrying
// strong references to its parents and a backward closure — and
// reverse-mode `Backward` walks it in topological order.
//
// Grounded on the graph/topological-sort shape in
// _examples/other_examples/1256f852_zerfoo-zerfoo__graph-graph.go.go (a
// generic autodiff Graph with Forward/Backward and a topologicalSort helper)
// and on the Tensor/FloatArray/GradFunc fields in
// _examples/original_source/include/Types.hpp.
package tensor

import (
	"fmt"
	"math"
)

// BackwardFn computes, from the incoming gradient, one gradient per parent
// in the same order as Parents (§4.10).
type BackwardFn func(grad *Tensor) []*Tensor

// Tensor is a differentiable dense float array (§3 Data Model).
type Tensor struct {
	Data  []float64
	Shape []int

	Grad *Tensor // set after Backward visits a node that contributed to loss

	Parents  []*Tensor
	Backward BackwardFn // nil for leaves (§3 invariant 3)
}

func New(shape []int, data []float64) *Tensor {
	return &Tensor{Data: data, Shape: append([]int(nil), shape...)}
}

// Scalar builds a rank-0 tensor, used to lift plain numbers into the graph
// when one operand of a tensor op is a scalar (§4.1).
func Scalar(v float64) *Tensor {
	return &Tensor{Data: []float64{v}, Shape: []int{}}
}

func (t *Tensor) Len() int {
	n := 1
	for _, s := range t.Shape {
		n *= s
	}
	if len(t.Shape) == 0 {
		return len(t.Data)
	}
	return n
}

func (t *Tensor) ShapeEqual(other []int) bool {
	if len(t.Shape) != len(other) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other[i] {
			return false
		}
	}
	return true
}

func zerosLike(t *Tensor) *Tensor {
	return &Tensor{Data: make([]float64, len(t.Data)), Shape: append([]int(nil), t.Shape...)}
}

func onesLike(t *Tensor) *Tensor {
	d := make([]float64, len(t.Data))
	for i := range d {
		d[i] = 1
	}
	return &Tensor{Data: d, Shape: append([]int(nil), t.Shape...)}
}

func addInPlace(dst, src *Tensor) {
	for i := range dst.Data {
		dst.Data[i] += src.Data[i]
	}
}

// reduceBroadcast sums a broadcasted gradient back down to targetShape,
// used by Add/Sub backward when one operand was broadcast forward (§4.10).
func reduceBroadcast(g *Tensor, targetShape []int) *Tensor {
	if g.ShapeEqual(targetShape) {
		return g
	}
	out := &Tensor{Data: make([]float64, product(targetShape)), Shape: append([]int(nil), targetShape...)}
	if len(targetShape) == 0 {
		sum := 0.0
		for _, v := range g.Data {
			sum += v
		}
		out.Data[0] = sum
		return out
	}
	// Row [1,C] against [R,C]: sum over rows.
	if len(targetShape) == 2 && targetShape[0] == 1 && len(g.Shape) == 2 {
		rows, cols := g.Shape[0], g.Shape[1]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out.Data[c] += g.Data[r*cols+c]
			}
		}
		return out
	}
	copy(out.Data, g.Data)
	return out
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(shape) == 0 {
		return 1
	}
	return n
}

func broadcastShape(a, b []int) ([]int, error) {
	switch {
	case len(a) == 0:
		return b, nil
	case len(b) == 0:
		return a, nil
	case len(a) == 2 && len(b) == 2 && b[0] == 1 && a[1] == b[1]:
		return a, nil
	case len(a) == 2 && len(b) == 2 && a[0] == 1 && a[1] == b[1]:
		return b, nil
	case len(a) == len(b):
		for i := range a {
			if a[i] != b[i] {
				return nil, fmt.Errorf("shape mismatch")
			}
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported tensor shape combination")
	}
}

func broadcastGet(t *Tensor, shape []int, i int) float64 {
	if len(t.Shape) == 0 {
		return t.Data[0]
	}
	if t.ShapeEqual(shape) {
		return t.Data[i]
	}
	if len(shape) == 2 && len(t.Shape) == 2 && t.Shape[0] == 1 {
		cols := shape[1]
		return t.Data[i%cols]
	}
	return t.Data[0]
}

// Add implements add(a,b): data = broadcasted sum, backward = [g, reduce(g,
// b.shape)] (§4.10).
func Add(a, b *Tensor) (*Tensor, error) {
	shape, err := broadcastShape(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	n := product(shape)
	data := make([]float64, n)
	for i := range data {
		data[i] = broadcastGet(a, shape, i) + broadcastGet(b, shape, i)
	}
	out := &Tensor{Data: data, Shape: shape, Parents: []*Tensor{a, b}}
	out.Backward = func(g *Tensor) []*Tensor {
		return []*Tensor{reduceBroadcast(g, a.Shape), reduceBroadcast(g, b.Shape)}
	}
	return out, nil
}

// Sub implements sub(a,b): backward = [g, -g].
func Sub(a, b *Tensor) (*Tensor, error) {
	shape, err := broadcastShape(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	n := product(shape)
	data := make([]float64, n)
	for i := range data {
		data[i] = broadcastGet(a, shape, i) - broadcastGet(b, shape, i)
	}
	out := &Tensor{Data: data, Shape: shape, Parents: []*Tensor{a, b}}
	out.Backward = func(g *Tensor) []*Tensor {
		neg := &Tensor{Data: make([]float64, len(g.Data)), Shape: g.Shape}
		for i, v := range g.Data {
			neg.Data[i] = -v
		}
		return []*Tensor{reduceBroadcast(g, a.Shape), reduceBroadcast(neg, b.Shape)}
	}
	return out, nil
}

// Mul implements element-wise mul(a,b): backward = [g*b, g*a].
func Mul(a, b *Tensor) (*Tensor, error) {
	shape, err := broadcastShape(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	n := product(shape)
	data := make([]float64, n)
	for i := range data {
		data[i] = broadcastGet(a, shape, i) * broadcastGet(b, shape, i)
	}
	out := &Tensor{Data: data, Shape: shape, Parents: []*Tensor{a, b}}
	out.Backward = func(g *Tensor) []*Tensor {
		ga := &Tensor{Data: make([]float64, n), Shape: shape}
		gb := &Tensor{Data: make([]float64, n), Shape: shape}
		for i := 0; i < n; i++ {
			ga.Data[i] = g.Data[i] * broadcastGet(b, shape, i)
			gb.Data[i] = g.Data[i] * broadcastGet(a, shape, i)
		}
		return []*Tensor{reduceBroadcast(ga, a.Shape), reduceBroadcast(gb, b.Shape)}
	}
	return out, nil
}

// Div implements div(x, scalar): backward = [g / scalar] (scalar
// denominators only, per §4.10).
func Div(x *Tensor, scalar float64) (*Tensor, error) {
	if scalar == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	data := make([]float64, len(x.Data))
	for i, v := range x.Data {
		data[i] = v / scalar
	}
	out := &Tensor{Data: data, Shape: x.Shape, Parents: []*Tensor{x}}
	out.Backward = func(g *Tensor) []*Tensor {
		gd := make([]float64, len(g.Data))
		for i, v := range g.Data {
			gd[i] = v / scalar
		}
		return []*Tensor{{Data: gd, Shape: g.Shape}}
	}
	return out, nil
}

// Pow implements pow(x, n) for scalar n: backward = [g * n * x^(n-1)].
func Pow(x *Tensor, n float64) *Tensor {
	data := make([]float64, len(x.Data))
	for i, v := range x.Data {
		data[i] = math.Pow(v, n)
	}
	out := &Tensor{Data: data, Shape: x.Shape, Parents: []*Tensor{x}}
	out.Backward = func(g *Tensor) []*Tensor {
		gd := make([]float64, len(x.Data))
		for i, v := range x.Data {
			gd[i] = g.Data[i] * n * math.Pow(v, n-1)
		}
		return []*Tensor{{Data: gd, Shape: x.Shape}}
	}
	return out
}

// Sum implements sum(x): backward fills a tensor shaped like x with the
// scalar gradient broadcast to every element.
func Sum(x *Tensor) *Tensor {
	total := 0.0
	for _, v := range x.Data {
		total += v
	}
	out := &Tensor{Data: []float64{total}, Shape: []int{}, Parents: []*Tensor{x}}
	out.Backward = func(g *Tensor) []*Tensor {
		gd := make([]float64, len(x.Data))
		for i := range gd {
			gd[i] = g.Data[0]
		}
		return []*Tensor{{Data: gd, Shape: x.Shape}}
	}
	return out
}

// Sigmoid: y = 1/(1+e^-x); backward = [g*y*(1-y)].
func Sigmoid(x *Tensor) *Tensor {
	y := make([]float64, len(x.Data))
	for i, v := range x.Data {
		y[i] = 1 / (1 + math.Exp(-v))
	}
	out := &Tensor{Data: y, Shape: x.Shape, Parents: []*Tensor{x}}
	out.Backward = func(g *Tensor) []*Tensor {
		gd := make([]float64, len(y))
		for i := range gd {
			gd[i] = g.Data[i] * y[i] * (1 - y[i])
		}
		return []*Tensor{{Data: gd, Shape: x.Shape}}
	}
	return out
}

// ReLU: backward = [g * (x>0)].
func ReLU(x *Tensor) *Tensor {
	data := make([]float64, len(x.Data))
	for i, v := range x.Data {
		if v > 0 {
			data[i] = v
		}
	}
	out := &Tensor{Data: data, Shape: x.Shape, Parents: []*Tensor{x}}
	out.Backward = func(g *Tensor) []*Tensor {
		gd := make([]float64, len(x.Data))
		for i, v := range x.Data {
			if v > 0 {
				gd[i] = g.Data[i]
			}
		}
		return []*Tensor{{Data: gd, Shape: x.Shape}}
	}
	return out
}

// MatMul: a[M,K] @ b[K,N] -> [M,N]; backward = [g @ bT, aT @ g].
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 || a.Shape[1] != b.Shape[0] {
		return nil, fmt.Errorf("matmul: incompatible shapes")
	}
	m, k, n := a.Shape[0], a.Shape[1], b.Shape[1]
	data := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for p := 0; p < k; p++ {
				sum += a.Data[i*k+p] * b.Data[p*n+j]
			}
			data[i*n+j] = sum
		}
	}
	out := &Tensor{Data: data, Shape: []int{m, n}, Parents: []*Tensor{a, b}}
	out.Backward = func(g *Tensor) []*Tensor {
		ga := make([]float64, m*k)
		for i := 0; i < m; i++ {
			for p := 0; p < k; p++ {
				var sum float64
				for j := 0; j < n; j++ {
					sum += g.Data[i*n+j] * b.Data[p*n+j]
				}
				ga[i*k+p] = sum
			}
		}
		gb := make([]float64, k*n)
		for p := 0; p < k; p++ {
			for j := 0; j < n; j++ {
				var sum float64
				for i := 0; i < m; i++ {
					sum += a.Data[i*k+p] * g.Data[i*n+j]
				}
				gb[p*n+j] = sum
			}
		}
		return []*Tensor{{Data: ga, Shape: []int{m, k}}, {Data: gb, Shape: []int{k, n}}}
	}
	return out, nil
}

// Backward drives the reverse topological traversal (§4.10 step 1-4):
// initialize loss.Grad to ones, visit parents in reverse topo order calling
// each node's Backward closure, accumulate into parent grads, then drop
// non-leaf grads so the graph can be reclaimed (§9 Cycles).
func Backward(loss *Tensor) {
	loss.Grad = onesLike(loss)

	order := topoSort(loss)
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if node.Backward == nil || node.Grad == nil {
			continue
		}
		grads := node.Backward(node.Grad)
		for i, p := range node.Parents {
			if i >= len(grads) || grads[i] == nil {
				continue
			}
			if p.Grad == nil {
				p.Grad = grads[i]
			} else {
				addInPlace(p.Grad, grads[i])
			}
		}
	}

	// Leaves (no parents) retain Grad; internal nodes drop it (§9).
	for _, node := range order {
		if len(node.Parents) > 0 {
			node.Grad = nil
		}
	}
}

func topoSort(root *Tensor) []*Tensor {
	visited := make(map[*Tensor]bool)
	var order []*Tensor
	var visit func(t *Tensor)
	visit = func(t *Tensor) {
		if visited[t] {
			return
		}
		visited[t] = true
		for _, p := range t.Parents {
			visit(p)
		}
		order = append(order, t)
	}
	visit(root)
	return order
}
