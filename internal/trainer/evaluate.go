package trainer

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"golang.org/x/sync/errgroup"

	"digits-forge/internal/dataset"
	"digits-forge/internal/metrics"
	"digits-forge/internal/model"
)

// Evaluation holds the model's predictions over one partition.
type Evaluation struct {
	Probabilities *mat.Dense
	Predictions   []int
	LogLoss       float64
	Accuracy      float64
}

// Evaluate runs mdl over features in batches and scores it against labels.
// Batches are spread across workers goroutines.
func Evaluate(ctx context.Context, mdl model.Model, features *mat.Dense, labels []int, batchSize, workers int) (*Evaluation, error) {
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	stream, err := dataset.StartPredictInput(gctx, features, labels, batchSize)
	if err != nil {
		return nil, err
	}

	rows := len(labels)
	probs := mat.NewDense(rows, mdl.NumClasses(), nil)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case batch, ok := <-stream:
					if !ok {
						// The producer also closes the stream on cancellation.
						return gctx.Err()
					}
					// Batches cover disjoint rows, so workers never write the
					// same row.
					p := mdl.Probabilities(batch.Inputs)
					for r := 0; r < batch.Size(); r++ {
						probs.SetRow(batch.Offset+r, p.RawRowView(r))
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	eval := &Evaluation{Probabilities: probs, Predictions: make([]int, rows)}
	for i := range eval.Predictions {
		eval.Predictions[i] = floats.MaxIdx(probs.RawRowView(i))
	}
	if eval.LogLoss, err = metrics.LogLoss(probs, labels); err != nil {
		return nil, err
	}
	if eval.Accuracy, err = metrics.Accuracy(eval.Predictions, labels); err != nil {
		return nil, err
	}
	return eval, nil
}
