package tensor

import "math"

var negInf = math.Inf(-1)

// Conv2D/MaxPool2D operate on NCHW-free single-sample tensors shaped
// [channels, height, width] for input and [outChannels, inChannels, kh, kw]
// for the kernel, matching the minimal demonstrator in
// _examples/original_source (AIFunctions.cpp's tensor builtins) rather than
// a full batched conv — batching is layered on top by looping at the BASIC
// level (§1 Non-goals excludes AOT optimization, not batching ergonomics).

// Conv2D: standard cross-correlation forward; backward accumulates kernel
// gradients via correlation and input gradients via the 180-rotated kernel
// (§4.10).
func Conv2D(input, kernel, bias *Tensor, stride, padding int) (*Tensor, error) {
	if len(input.Shape) != 3 || len(kernel.Shape) != 4 {
		return nil, errShape("conv2d: expected input[C,H,W], kernel[O,C,KH,KW]")
	}
	c, h, w := input.Shape[0], input.Shape[1], input.Shape[2]
	o, kc, kh, kw := kernel.Shape[0], kernel.Shape[1], kernel.Shape[2], kernel.Shape[3]
	if kc != c {
		return nil, errShape("conv2d: channel mismatch")
	}
	oh := (h+2*padding-kh)/stride + 1
	ow := (w+2*padding-kw)/stride + 1
	at := func(t *Tensor, ch, y, x int) float64 {
		if y < 0 || y >= h || x < 0 || x >= w {
			return 0
		}
		return t.Data[ch*h*w+y*w+x]
	}
	out := make([]float64, o*oh*ow)
	for oc := 0; oc < o; oc++ {
		b := 0.0
		if bias != nil {
			b = bias.Data[oc]
		}
		for y := 0; y < oh; y++ {
			for x := 0; x < ow; x++ {
				var sum float64
				for ic := 0; ic < c; ic++ {
					for ky := 0; ky < kh; ky++ {
						for kx := 0; kx < kw; kx++ {
							iy := y*stride + ky - padding
							ix := x*stride + kx - padding
							sum += at(input, ic, iy, ix) * kernel.Data[((oc*kc+ic)*kh+ky)*kw+kx]
						}
					}
				}
				out[(oc*oh+y)*ow+x] = sum + b
			}
		}
	}
	parents := []*Tensor{input, kernel}
	if bias != nil {
		parents = append(parents, bias)
	}
	result := &Tensor{Data: out, Shape: []int{o, oh, ow}, Parents: parents}
	result.Backward = func(g *Tensor) []*Tensor {
		gInput := make([]float64, c*h*w)
		gKernel := make([]float64, o*kc*kh*kw)
		for oc := 0; oc < o; oc++ {
			for y := 0; y < oh; y++ {
				for x := 0; x < ow; x++ {
					gv := g.Data[(oc*oh+y)*ow+x]
					for ic := 0; ic < c; ic++ {
						for ky := 0; ky < kh; ky++ {
							for kx := 0; kx < kw; kx++ {
								iy := y*stride + ky - padding
								ix := x*stride + kx - padding
								if iy >= 0 && iy < h && ix >= 0 && ix < w {
									gInput[ic*h*w+iy*w+ix] += gv * kernel.Data[((oc*kc+ic)*kh+ky)*kw+kx]
									gKernel[((oc*kc+ic)*kh+ky)*kw+kx] += gv * input.Data[ic*h*w+iy*w+ix]
								}
							}
						}
					}
				}
			}
		}
		grads := []*Tensor{{Data: gInput, Shape: []int{c, h, w}}, {Data: gKernel, Shape: []int{o, kc, kh, kw}}}
		if bias != nil {
			gBias := make([]float64, o)
			for oc := 0; oc < o; oc++ {
				for y := 0; y < oh; y++ {
					for x := 0; x < ow; x++ {
						gBias[oc] += g.Data[(oc*oh+y)*ow+x]
					}
				}
			}
			grads = append(grads, &Tensor{Data: gBias, Shape: []int{o}})
		}
		return grads
	}
	return result, nil
}

// MaxPool2D: backward scatters the incoming gradient into the recorded
// argmax positions (§4.10).
func MaxPool2D(input *Tensor, pool, stride int) (*Tensor, error) {
	if len(input.Shape) != 3 {
		return nil, errShape("maxpool2d: expected input[C,H,W]")
	}
	c, h, w := input.Shape[0], input.Shape[1], input.Shape[2]
	oh := (h-pool)/stride + 1
	ow := (w-pool)/stride + 1
	out := make([]float64, c*oh*ow)
	argmax := make([]int, c*oh*ow)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < oh; y++ {
			for x := 0; x < ow; x++ {
				best := negInf
				bestIdx := -1
				for py := 0; py < pool; py++ {
					for px := 0; px < pool; px++ {
						iy := y*stride + py
						ix := x*stride + px
						idx := ch*h*w + iy*w + ix
						if input.Data[idx] > best {
							best = input.Data[idx]
							bestIdx = idx
						}
					}
				}
				out[(ch*oh+y)*ow+x] = best
				argmax[(ch*oh+y)*ow+x] = bestIdx
			}
		}
	}
	result := &Tensor{Data: out, Shape: []int{c, oh, ow}, Parents: []*Tensor{input}}
	result.Backward = func(g *Tensor) []*Tensor {
		gInput := make([]float64, c*h*w)
		for i, idx := range argmax {
			gInput[idx] += g.Data[i]
		}
		return []*Tensor{{Data: gInput, Shape: []int{c, h, w}}}
	}
	return result, nil
}
