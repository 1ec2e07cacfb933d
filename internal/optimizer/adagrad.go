package optimizer

import "math"

// DefaultInitialAccumulator matches the usual Adagrad starting value. A
// non-zero start keeps the first update finite.
const DefaultInitialAccumulator = 0.1

// Adagrad implements the Adagrad optimizer over a fixed set of parameter
// slices.
//
// Update rule:
//
//	acc[i] = acc[i] + g[i]²
//	w[i]   = w[i] - lr · g[i] / √acc[i]
type Adagrad struct {
	lr  float64
	acc [][]float64
}

// NewAdagrad creates an Adagrad optimizer for parameter slices of the given
// sizes.
func NewAdagrad(lr float64, sizes ...int) *Adagrad {
	acc := make([][]float64, len(sizes))
	for i, n := range sizes {
		acc[i] = make([]float64, n)
		for j := range acc[i] {
			acc[i][j] = DefaultInitialAccumulator
		}
	}
	return &Adagrad{lr: lr, acc: acc}
}

// Update applies one Adagrad step in place. params and grads must have the
// same shape as the sizes passed to NewAdagrad.
func (a *Adagrad) Update(params, grads [][]float64) {
	for p := range params {
		w, g, acc := params[p], grads[p], a.acc[p]
		for i := range w {
			acc[i] += g[i] * g[i]
			w[i] -= a.lr * g[i] / math.Sqrt(acc[i])
		}
	}
}
