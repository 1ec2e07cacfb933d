package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"digits-forge/internal/optimizer"
)

const (
	DefaultNumClasses = 10
	DefaultInputSize  = 784
	probEpsilon       = 1e-15
)

// LinearOptions configures a LinearClassifier. Zero values fall back to
// MNIST-shaped defaults.
type LinearOptions struct {
	NumClasses   int
	InputSize    int
	LearningRate float64
	// ClipNorm bounds the global gradient norm per step. Zero disables it.
	ClipNorm float64
	Seed     int64
}

var _ Model = (*LinearClassifier)(nil)

// LinearClassifier is a multi-class linear model with softmax cross-entropy,
// trained with Adagrad.
type LinearClassifier struct {
	numClasses int
	clipNorm   float64

	weights *mat.Dense // inputSize x numClasses
	bias    []float64
	gradW   *mat.Dense
	gradB   []float64
	opt     *optimizer.Adagrad
}

// NewLinearClassifier constructs the model with small random weights.
func NewLinearClassifier(opts LinearOptions) *LinearClassifier {
	if opts.NumClasses <= 0 {
		opts.NumClasses = DefaultNumClasses
	}
	if opts.InputSize <= 0 {
		opts.InputSize = DefaultInputSize
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.03
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	data := make([]float64, opts.InputSize*opts.NumClasses)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * 0.01
	}
	return &LinearClassifier{
		numClasses: opts.NumClasses,
		clipNorm:   opts.ClipNorm,
		weights:    mat.NewDense(opts.InputSize, opts.NumClasses, data),
		bias:       make([]float64, opts.NumClasses),
		gradW:      mat.NewDense(opts.InputSize, opts.NumClasses, nil),
		gradB:      make([]float64, opts.NumClasses),
		opt:        optimizer.NewAdagrad(opts.LearningRate, opts.InputSize*opts.NumClasses, opts.NumClasses),
	}
}

// NumClasses reports the number of output classes.
func (m *LinearClassifier) NumClasses() int { return m.numClasses }

// Logits returns inputs·W + b, one row per example.
func (m *LinearClassifier) Logits(inputs *mat.Dense) *mat.Dense {
	rows, _ := inputs.Dims()
	out := mat.NewDense(rows, m.numClasses, nil)
	out.Mul(inputs, m.weights)
	for i := 0; i < rows; i++ {
		floats.Add(out.RawRowView(i), m.bias)
	}
	return out
}

// Probabilities returns the softmax of the logits, one row per example.
func (m *LinearClassifier) Probabilities(inputs *mat.Dense) *mat.Dense {
	out := m.Logits(inputs)
	rows, _ := out.Dims()
	for i := 0; i < rows; i++ {
		softmax(out.RawRowView(i))
	}
	return out
}

// Predict returns the most likely class per example.
func (m *LinearClassifier) Predict(inputs *mat.Dense) []int {
	logits := m.Logits(inputs)
	rows, _ := logits.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = floats.MaxIdx(logits.RawRowView(i))
	}
	return out
}

// TrainStep executes one Adagrad step on the batch mean loss and returns
// that loss. Examples whose label is outside [0, NumClasses) are skipped.
func (m *LinearClassifier) TrainStep(batch Batch) float64 {
	n := batch.Size()
	if n == 0 || batch.Inputs == nil {
		return 0
	}

	delta := m.Probabilities(batch.Inputs)
	totalLoss := 0.0
	valid := 0
	for i, label := range batch.Labels {
		row := delta.RawRowView(i)
		if label < 0 || label >= m.numClasses {
			for j := range row {
				row[j] = 0
			}
			continue
		}
		totalLoss += -math.Log(math.Max(row[label], probEpsilon))
		row[label] -= 1
		valid++
	}
	if valid == 0 {
		return 0
	}
	delta.Scale(1/float64(valid), delta)

	m.gradW.Mul(batch.Inputs.T(), delta)
	for j := range m.gradB {
		m.gradB[j] = 0
	}
	for i := 0; i < n; i++ {
		floats.Add(m.gradB, delta.RawRowView(i))
	}

	grads := [][]float64{m.gradW.RawMatrix().Data, m.gradB}
	optimizer.ClipByGlobalNorm(grads, m.clipNorm)
	m.opt.Update([][]float64{m.weights.RawMatrix().Data, m.bias}, grads)

	return totalLoss / float64(valid)
}

// softmax replaces logits with their softmax in place.
func softmax(logits []float64) {
	maxLogit := floats.Max(logits)
	sum := 0.0
	for i, v := range logits {
		exp := math.Exp(v - maxLogit)
		logits[i] = exp
		sum += exp
	}
	floats.Scale(1/sum, logits)
}
