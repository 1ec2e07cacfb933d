package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/mat"

	"digits-forge/internal/config"
	"digits-forge/internal/trainer"
)

const samplePNGScale = 10

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier and report log loss per period",
		Args:  cobra.NoArgs,
		RunE:  trainHandler,
	}

	cmd.Flags().String("config", "", "Path to YAML config (defaults are used when empty)")
	cmd.Flags().String("data", "", "CSV file or directory of CSV files")
	cmd.Flags().Int("limit", 0, "Number of leading records to use")
	cmd.Flags().Int("train-rows", 0, "Number of records in the training partition")
	cmd.Flags().Float64("learning-rate", 0, "Adagrad learning rate")
	cmd.Flags().Int("steps", 0, "Total number of training steps")
	cmd.Flags().Int("batch-size", 0, "Batch size")
	cmd.Flags().Int("periods", 0, "Number of reporting periods")
	cmd.Flags().Float64("clip-norm", 0, "Gradient clipping norm")
	cmd.Flags().Int("num-workers", 0, "Number of evaluation workers")
	cmd.Flags().Int64("seed", 0, "PRNG seed")
	cmd.Flags().Int("log-every", 0, "Log throughput every N steps")
	cmd.Flags().String("sample-png", "", "Write the sample digit to this PNG file")
	cmd.Flags().String("history-csv", "", "Write per-period log loss to this CSV file")

	return cmd
}

func trainHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	frame, err := loadFrame(cmd.Context(), cfg.DataPath, cfg.Limit)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	parts, err := splitFrame(frame, cfg.TrainRows, rng)
	if err != nil {
		return err
	}

	pick := rng.Intn(len(parts.trainLabels))
	pixels := mat.Row(nil, pick, parts.trainFeatures)
	if err := showDigit(pixels, parts.trainLabels[pick], cfg.SamplePNG, samplePNGScale); err != nil {
		return err
	}

	res, err := trainer.Run(cmd.Context(), trainer.RunConfig{
		TrainFeatures:      parts.trainFeatures,
		TrainLabels:        parts.trainLabels,
		ValidationFeatures: parts.validationFeatures,
		ValidationLabels:   parts.validationLabels,
		LearningRate:       cfg.LearningRate,
		ClipNorm:           cfg.ClipNorm,
		Steps:              cfg.Steps,
		BatchSize:          cfg.BatchSize,
		Periods:            cfg.Periods,
		NumWorkers:         cfg.NumWorkers,
		LogEvery:           cfg.LogEvery,
		Seed:               cfg.Seed,
		Out:                os.Stdout,
		Logger:             slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Println("Normalized confusion matrix (validation):")
	res.Confusion.Render(os.Stdout)

	if cfg.HistoryCSV != "" {
		if err := writeHistory(cfg.HistoryCSV, res.History); err != nil {
			return err
		}
		slog.Info("history written", "path", cfg.HistoryCSV)
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	cfg.ApplyOverrides(config.Overrides{
		DataPath:     changed(f, "data", f.GetString),
		Limit:        changed(f, "limit", f.GetInt),
		TrainRows:    changed(f, "train-rows", f.GetInt),
		LearningRate: changed(f, "learning-rate", f.GetFloat64),
		Steps:        changed(f, "steps", f.GetInt),
		BatchSize:    changed(f, "batch-size", f.GetInt),
		Periods:      changed(f, "periods", f.GetInt),
		ClipNorm:     changed(f, "clip-norm", f.GetFloat64),
		NumWorkers:   changed(f, "num-workers", f.GetInt),
		Seed:         changed(f, "seed", f.GetInt64),
		LogEvery:     changed(f, "log-every", f.GetInt),
		SamplePNG:    changed(f, "sample-png", f.GetString),
		HistoryCSV:   changed(f, "history-csv", f.GetString),
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// changed returns the flag value only when the user set it on the command
// line, so explicit zeros still override the config file.
func changed[T any](f *pflag.FlagSet, name string, get func(string) (T, error)) *T {
	if !f.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return nil
	}
	return &v
}

func writeHistory(path string, h trainer.History) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	if err := trainer.WriteHistoryCSV(f, h); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}
