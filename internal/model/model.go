package model

import "gonum.org/v1/gonum/mat"

// Batch represents a minibatch of features and labels.
type Batch struct {
	// Offset is the position of the first example within the pass that
	// produced the batch. For unshuffled input it is the source row index.
	Offset int
	Inputs *mat.Dense
	Labels []int
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int {
	return len(b.Labels)
}

// Model defines the minimal training functionality required by the trainer.
type Model interface {
	TrainStep(batch Batch) float64
	Probabilities(inputs *mat.Dense) *mat.Dense
	NumClasses() int
}
