package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"digits-forge/internal/model"
)

// InputOptions configures an input producer.
type InputOptions struct {
	BatchSize int
	// Epochs is the number of passes over the data. Zero repeats until the
	// context is cancelled.
	Epochs int
	Seed   int64
}

// StartTrainingInput streams shuffled batches of features and labels, one
// fresh permutation per epoch, repeating until opts.Epochs passes are done
// or ctx is cancelled. The last batch of each epoch may be short. The
// channel is closed when production stops.
func StartTrainingInput(ctx context.Context, features *mat.Dense, labels []int, opts InputOptions) (<-chan model.Batch, error) {
	return startInput(ctx, features, labels, opts, true)
}

// StartPredictInput streams the rows in order, once, in batches of
// batchSize. Batch.Offset is the source row of each batch's first example.
func StartPredictInput(ctx context.Context, features *mat.Dense, labels []int, batchSize int) (<-chan model.Batch, error) {
	return startInput(ctx, features, labels, InputOptions{BatchSize: batchSize, Epochs: 1}, false)
}

func startInput(ctx context.Context, features *mat.Dense, labels []int, opts InputOptions, shuffle bool) (<-chan model.Batch, error) {
	if features == nil || features.IsEmpty() {
		return nil, ErrEmpty
	}
	rows, _ := features.Dims()
	if rows != len(labels) {
		return nil, fmt.Errorf("input: %d feature rows but %d labels", rows, len(labels))
	}
	if opts.BatchSize <= 0 {
		return nil, errors.New("input: batch size must be > 0")
	}
	if opts.Epochs < 0 {
		return nil, errors.New("input: epochs must be >= 0")
	}

	out := make(chan model.Batch, 2)
	go func() {
		defer close(out)
		produceBatches(ctx, features, labels, opts, shuffle, out)
	}()

	return out, nil
}

func produceBatches(ctx context.Context, features *mat.Dense, labels []int, opts InputOptions, shuffle bool, out chan<- model.Batch) {
	rows := len(labels)
	rng := rand.New(rand.NewSource(opts.Seed))
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; opts.Epochs == 0 || epoch < opts.Epochs; epoch++ {
		if shuffle {
			rng.Shuffle(rows, func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		for start := 0; start < rows; start += opts.BatchSize {
			end := min(start+opts.BatchSize, rows)
			batch := gather(features, labels, order[start:end])
			batch.Offset = start
			select {
			case <-ctx.Done():
				return
			case out <- batch:
			}
		}
	}
}

// gather copies the selected rows so features and labels stay aligned.
func gather(features *mat.Dense, labels []int, idx []int) model.Batch {
	_, cols := features.Dims()
	inputs := mat.NewDense(len(idx), cols, nil)
	batchLabels := make([]int, len(idx))
	for k, row := range idx {
		inputs.SetRow(k, features.RawRowView(row))
		batchLabels[k] = labels[row]
	}
	return model.Batch{Inputs: inputs, Labels: batchLabels}
}
