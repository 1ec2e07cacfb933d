package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"digits-forge/internal/dataset"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render one digit from the dataset",
		Args:  cobra.NoArgs,
		RunE:  showHandler,
	}

	cmd.Flags().String("data", "mnist_train_small.csv", "CSV file or directory of CSV files")
	cmd.Flags().Int("index", -1, "Record to render (random when negative)")
	cmd.Flags().Int64("seed", 42, "PRNG seed for the random pick")
	cmd.Flags().String("out", "", "Also write the digit to this PNG file")
	cmd.Flags().Int("scale", samplePNGScale, "PNG upscaling factor")

	return cmd
}

func showHandler(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("data")
	index, _ := cmd.Flags().GetInt("index")
	seed, _ := cmd.Flags().GetInt64("seed")
	out, _ := cmd.Flags().GetString("out")
	scale, _ := cmd.Flags().GetInt("scale")

	limit := 0
	if index >= 0 {
		limit = index + 1
	}
	frame, err := loadFrame(cmd.Context(), path, limit)
	if err != nil {
		return err
	}
	if index < 0 {
		index = rand.New(rand.NewSource(seed)).Intn(frame.Rows())
	}
	if index >= frame.Rows() {
		return fmt.Errorf("index %d out of range: dataset has %d rows", index, frame.Rows())
	}

	labels, features, err := dataset.ParseLabelsAndFeatures(frame.Head(index + 1))
	if err != nil {
		return err
	}
	return showDigit(features.RawRowView(index), labels[index], out, scale)
}
