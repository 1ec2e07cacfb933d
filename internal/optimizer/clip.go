package optimizer

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GlobalNorm returns the L2 norm of all slices taken together.
func GlobalNorm(grads [][]float64) float64 {
	sum := 0.0
	for _, g := range grads {
		n := floats.Norm(g, 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

// ClipByGlobalNorm rescales grads in place so their global norm is at most
// maxNorm, and returns the norm before clipping. maxNorm <= 0 disables
// clipping.
func ClipByGlobalNorm(grads [][]float64, maxNorm float64) float64 {
	norm := GlobalNorm(grads)
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	scale := maxNorm / norm
	for _, g := range grads {
		floats.Scale(scale, g)
	}
	return norm
}
