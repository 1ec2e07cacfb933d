package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"digits-forge/internal/dataset"
	"digits-forge/internal/render"
)

// partitions holds the scaled training and validation sets.
type partitions struct {
	trainLabels        []int
	trainFeatures      *mat.Dense
	validationLabels   []int
	validationFeatures *mat.Dense
}

func loadFrame(ctx context.Context, path string, limit int) (*dataset.Frame, error) {
	files, err := dataset.DiscoverCSV(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no csv files found under %s", path)
	}
	frame, err := dataset.LoadAll(ctx, files, limit)
	if err != nil {
		return nil, err
	}
	slog.Info("dataset loaded", "path", path, "files", len(files), "rows", frame.Rows())
	return frame, nil
}

// splitFrame shuffles the frame and cuts it into scaled training and
// validation partitions.
func splitFrame(frame *dataset.Frame, trainRows int, rng *rand.Rand) (*partitions, error) {
	train, validation, err := frame.Permute(rng).Split(trainRows)
	if err != nil {
		return nil, err
	}
	p := &partitions{}
	if p.trainLabels, p.trainFeatures, err = dataset.ParseLabelsAndFeatures(train); err != nil {
		return nil, fmt.Errorf("training partition: %w", err)
	}
	if p.validationLabels, p.validationFeatures, err = dataset.ParseLabelsAndFeatures(validation); err != nil {
		return nil, fmt.Errorf("validation partition: %w", err)
	}
	return p, nil
}

// showDigit prints one example to stdout and, if pngPath is set, writes it
// as a PNG.
func showDigit(pixels []float64, label int, pngPath string, scale int) error {
	if err := render.WriteASCII(os.Stdout, pixels, label); err != nil {
		return err
	}
	if pngPath == "" {
		return nil
	}
	f, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("create sample png: %w", err)
	}
	if err := render.WritePNG(f, pixels, scale); err != nil {
		f.Close()
		return fmt.Errorf("write sample png: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("sample written", "path", pngPath, "label", label)
	return nil
}
