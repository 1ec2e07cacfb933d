package trainer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"golang.org/x/sync/errgroup"

	"digits-forge/internal/dataset"
	"digits-forge/internal/metrics"
	"digits-forge/internal/model"
)

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	TrainFeatures      *mat.Dense
	TrainLabels        []int
	ValidationFeatures *mat.Dense
	ValidationLabels   []int

	LearningRate float64
	ClipNorm     float64
	Steps        int
	BatchSize    int
	Periods      int
	NumWorkers   int
	LogEvery     int
	Seed         int64

	// Out receives the progress report. Nil means os.Stdout.
	Out    io.Writer
	Logger *slog.Logger
}

// History records the log loss after each period.
type History struct {
	Training   []float64
	Validation []float64
}

// Result is the outcome of a training run.
type Result struct {
	RunID              string
	Model              *model.LinearClassifier
	History            History
	ValidationAccuracy float64
	Confusion          *metrics.ConfusionMatrix
}

// Run trains a linear classifier for cfg.Periods periods, reporting the
// training and validation log loss after each one.
func Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := cfg.Logger.With("run_id", runID)
	out := cfg.Out

	mdl := model.NewLinearClassifier(model.LinearOptions{
		NumClasses:   dataset.NumClasses,
		InputSize:    dataset.NumPixels,
		LearningRate: cfg.LearningRate,
		ClipNorm:     cfg.ClipNorm,
		Seed:         cfg.Seed,
	})
	logger.Info("training started",
		"train_examples", len(cfg.TrainLabels),
		"validation_examples", len(cfg.ValidationLabels),
		"steps", cfg.Steps,
		"periods", cfg.Periods,
		"batch_size", cfg.BatchSize,
		"learning_rate", cfg.LearningRate,
	)

	fmt.Fprintln(out, "Training model...")
	fmt.Fprintln(out, "LogLoss error (on validation data):")

	res := &Result{RunID: runID, Model: mdl}
	var (
		window     metrics.Window
		step       int
		validation *Evaluation
	)
	stepsPerPeriod := cfg.Steps / cfg.Periods
	for period := 0; period < cfg.Periods; period++ {
		steps := stepsPerPeriod
		if period == cfg.Periods-1 {
			steps = cfg.Steps - stepsPerPeriod*(cfg.Periods-1)
		}
		if err := trainPeriod(ctx, mdl, &cfg, period, steps, &step, &window, logger); err != nil {
			return nil, err
		}

		var training *Evaluation
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			training, err = Evaluate(gctx, mdl, cfg.TrainFeatures, cfg.TrainLabels, cfg.BatchSize, cfg.NumWorkers)
			return err
		})
		g.Go(func() (err error) {
			validation, err = Evaluate(gctx, mdl, cfg.ValidationFeatures, cfg.ValidationLabels, cfg.BatchSize, cfg.NumWorkers)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		res.History.Training = append(res.History.Training, training.LogLoss)
		res.History.Validation = append(res.History.Validation, validation.LogLoss)
		fmt.Fprintf(out, "  period %02d : %0.2f\n", period, validation.LogLoss)
		logger.Debug("period complete",
			"period", period,
			"training_log_loss", training.LogLoss,
			"validation_log_loss", validation.LogLoss,
		)
	}
	fmt.Fprintln(out, "Model training finished.")

	confusion, err := metrics.NewConfusionMatrix(cfg.ValidationLabels, validation.Predictions, dataset.NumClasses)
	if err != nil {
		return nil, err
	}
	res.Confusion = confusion
	res.ValidationAccuracy = validation.Accuracy
	fmt.Fprintf(out, "Final accuracy (on validation data): %0.2f\n", validation.Accuracy)
	logger.Info("training finished", "validation_accuracy", validation.Accuracy)

	return res, nil
}

func trainPeriod(ctx context.Context, mdl model.Model, cfg *RunConfig, period, steps int, step *int, window *metrics.Window, logger *slog.Logger) error {
	// Each period draws from a fresh input so short periods still sample
	// the whole training set.
	inputCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := dataset.StartTrainingInput(inputCtx, cfg.TrainFeatures, cfg.TrainLabels, dataset.InputOptions{
		BatchSize: cfg.BatchSize,
		Seed:      cfg.Seed + int64(period),
	})
	if err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		startData := time.Now()
		var batch model.Batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-stream:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errors.New("trainer: training input closed")
			}
			batch = b
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		loss := mdl.TrainStep(batch)
		computeTime := time.Since(startCompute)

		window.Record(batch.Size(), dataTime, computeTime, loss)
		*step++

		if *step%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			logger.Info("train",
				"step", *step,
				"examples_per_sec", fmt.Sprintf("%.1f", snap.ExamplesPerSec),
				"data_ms", fmt.Sprintf("%.2f", snap.AvgDataMS),
				"compute_ms", fmt.Sprintf("%.2f", snap.AvgComputeMS),
				"loss", fmt.Sprintf("%.4f", snap.AvgLoss),
			)
		}
	}
	return nil
}

func validate(cfg *RunConfig) error {
	if cfg.Steps <= 0 {
		return errors.New("trainer: steps must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("trainer: batch size must be > 0")
	}
	if cfg.Periods <= 0 {
		return errors.New("trainer: periods must be > 0")
	}
	if cfg.Steps < cfg.Periods {
		return fmt.Errorf("trainer: %d steps cannot fill %d periods", cfg.Steps, cfg.Periods)
	}
	if cfg.TrainFeatures == nil || len(cfg.TrainLabels) == 0 {
		return errors.New("trainer: no training examples")
	}
	if cfg.ValidationFeatures == nil || len(cfg.ValidationLabels) == 0 {
		return errors.New("trainer: no validation examples")
	}
	for name, features := range map[string]*mat.Dense{"training": cfg.TrainFeatures, "validation": cfg.ValidationFeatures} {
		if _, cols := features.Dims(); cols != dataset.NumPixels {
			return fmt.Errorf("trainer: %s features have %d columns, want %d", name, cols, dataset.NumPixels)
		}
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return nil
}

// WriteHistoryCSV writes one row per period with the training and
// validation log loss.
func WriteHistoryCSV(w io.Writer, h History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"period", "training_log_loss", "validation_log_loss"}); err != nil {
		return err
	}
	for i := range h.Validation {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(h.Training[i], 'f', 6, 64),
			strconv.FormatFloat(h.Validation[i], 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
