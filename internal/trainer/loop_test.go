package trainer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"digits-forge/internal/dataset"
)

// blockData builds rows examples where class c lights up its own band of
// pixels, plus a little noise everywhere.
func blockData(rows int, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	band := dataset.NumPixels / dataset.NumClasses
	features := mat.NewDense(rows, dataset.NumPixels, nil)
	labels := make([]int, rows)
	for i := 0; i < rows; i++ {
		c := i % dataset.NumClasses
		labels[i] = c
		row := features.RawRowView(i)
		for j := range row {
			row[j] = rng.Float64() * 0.1
		}
		for j := c * band; j < (c+1)*band; j++ {
			row[j] = 1
		}
	}
	return features, labels
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunLearnsSeparableData(t *testing.T) {
	trainX, trainY := blockData(200, 1)
	validX, validY := blockData(60, 2)
	var out bytes.Buffer

	res, err := Run(context.Background(), RunConfig{
		TrainFeatures:      trainX,
		TrainLabels:        trainY,
		ValidationFeatures: validX,
		ValidationLabels:   validY,
		LearningRate:       0.1,
		ClipNorm:           5,
		Steps:              103,
		BatchSize:          10,
		Periods:            5,
		NumWorkers:         3,
		Seed:               7,
		Out:                &out,
		Logger:             quietLogger(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	require.Len(t, res.History.Training, 5)
	require.Len(t, res.History.Validation, 5)
	require.Less(t, res.History.Validation[4], res.History.Validation[0])
	require.GreaterOrEqual(t, res.ValidationAccuracy, 0.9)

	total := 0
	for _, row := range res.Confusion.Counts {
		for _, v := range row {
			total += v
		}
	}
	require.Equal(t, len(validY), total)

	report := out.String()
	require.True(t, strings.HasPrefix(report, "Training model...\nLogLoss error (on validation data):\n"))
	require.Contains(t, report, "  period 00 : ")
	require.Contains(t, report, "  period 04 : ")
	require.Contains(t, report, "Model training finished.")
	require.Contains(t, report, "Final accuracy (on validation data): ")
}

func TestRunValidatesConfig(t *testing.T) {
	trainX, trainY := blockData(20, 1)
	base := RunConfig{
		TrainFeatures:      trainX,
		TrainLabels:        trainY,
		ValidationFeatures: trainX,
		ValidationLabels:   trainY,
		Steps:              10,
		BatchSize:          5,
		Periods:            2,
		Out:                io.Discard,
		Logger:             quietLogger(),
	}
	cases := map[string]func(c *RunConfig){
		"steps":      func(c *RunConfig) { c.Steps = 0 },
		"batch size": func(c *RunConfig) { c.BatchSize = 0 },
		"periods":    func(c *RunConfig) { c.Periods = 0 },
		"fill":       func(c *RunConfig) { c.Steps = 1 },
		"training":   func(c *RunConfig) { c.TrainLabels = nil },
		"validation": func(c *RunConfig) { c.ValidationFeatures = nil },
		"columns":    func(c *RunConfig) { c.TrainFeatures = mat.NewDense(20, 3, nil) },
	}
	for want, mutate := range cases {
		t.Run(want, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := Run(context.Background(), cfg)
			require.ErrorContains(t, err, want)
		})
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	trainX, trainY := blockData(20, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, RunConfig{
		TrainFeatures:      trainX,
		TrainLabels:        trainY,
		ValidationFeatures: trainX,
		ValidationLabels:   trainY,
		LearningRate:       0.1,
		Steps:              10,
		BatchSize:          5,
		Periods:            1,
		Out:                io.Discard,
		Logger:             quietLogger(),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHistoryCSV(&buf, History{
		Training:   []float64{1.5, 0.5},
		Validation: []float64{1.75, 0.25},
	})
	require.NoError(t, err)
	require.Equal(t,
		"period,training_log_loss,validation_log_loss\n0,1.500000,1.750000\n1,0.500000,0.250000\n",
		buf.String())
}
