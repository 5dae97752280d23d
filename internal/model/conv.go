package model

// conv2dSame is a stride-1 NCHW convolution with zero padding k/2 on every
// side, so the output keeps the input's height and width. Weights are laid
// out [outC, inC, k, k].
func conv2dSame(in []float32, batch, inC, h, w int, weights, bias []float32, outC, k int) []float32 {
	pad := k / 2
	plane := h * w
	out := make([]float32, batch*outC*plane)
	for b := 0; b < batch; b++ {
		for o := 0; o < outC; o++ {
			dst := out[(b*outC+o)*plane : (b*outC+o+1)*plane]
			for i := range dst {
				dst[i] = bias[o]
			}
			for c := 0; c < inC; c++ {
				src := in[(b*inC+c)*plane : (b*inC+c+1)*plane]
				kern := weights[(o*inC+c)*k*k : (o*inC+c+1)*k*k]
				for ky := 0; ky < k; ky++ {
					for kx := 0; kx < k; kx++ {
						wv := kern[ky*k+kx]
						if wv == 0 {
							continue
						}
						for y := 0; y < h; y++ {
							iy := y + ky - pad
							if iy < 0 || iy >= h {
								continue
							}
							for x := 0; x < w; x++ {
								ix := x + kx - pad
								if ix < 0 || ix >= w {
									continue
								}
								dst[y*w+x] += wv * src[iy*w+ix]
							}
						}
					}
				}
			}
		}
	}
	return out
}

// conv2dSameBackward accumulates weight and bias gradients into gradW and
// gradB and returns the gradient with respect to the input.
func conv2dSameBackward(in, gradOut []float32, batch, inC, h, w int, weights []float32, outC, k int, gradW, gradB []float32) []float32 {
	pad := k / 2
	plane := h * w
	gradIn := make([]float32, len(in))
	for b := 0; b < batch; b++ {
		for o := 0; o < outC; o++ {
			g := gradOut[(b*outC+o)*plane : (b*outC+o+1)*plane]
			for _, v := range g {
				gradB[o] += v
			}
			for c := 0; c < inC; c++ {
				src := in[(b*inC+c)*plane : (b*inC+c+1)*plane]
				gsrc := gradIn[(b*inC+c)*plane : (b*inC+c+1)*plane]
				base := (o*inC + c) * k * k
				for ky := 0; ky < k; ky++ {
					for kx := 0; kx < k; kx++ {
						wv := weights[base+ky*k+kx]
						var acc float32
						for y := 0; y < h; y++ {
							iy := y + ky - pad
							if iy < 0 || iy >= h {
								continue
							}
							for x := 0; x < w; x++ {
								ix := x + kx - pad
								if ix < 0 || ix >= w {
									continue
								}
								gv := g[y*w+x]
								acc += gv * src[iy*w+ix]
								gsrc[iy*w+ix] += gv * wv
							}
						}
						gradW[base+ky*k+kx] += acc
					}
				}
			}
		}
	}
	return gradIn
}
