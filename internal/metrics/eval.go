package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/mat"
)

const logLossEpsilon = 1e-15

// ErrLengthMismatch is returned when predictions and labels disagree on the
// number of examples.
var ErrLengthMismatch = errors.New("metrics: predictions and labels differ in length")

// LogLoss returns the mean negative log probability assigned to the true
// label. Probabilities are clipped away from 0 and 1.
func LogLoss(probs mat.Matrix, labels []int) (float64, error) {
	rows, cols := probs.Dims()
	if rows != len(labels) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, rows, len(labels))
	}
	if rows == 0 {
		return 0, nil
	}
	total := 0.0
	for i, label := range labels {
		if label < 0 || label >= cols {
			return 0, fmt.Errorf("metrics: label %d at row %d outside [0,%d)", label, i, cols)
		}
		p := math.Min(math.Max(probs.At(i, label), logLossEpsilon), 1-logLossEpsilon)
		total -= math.Log(p)
	}
	return total / float64(rows), nil
}

// Accuracy returns the fraction of predictions that equal their label.
func Accuracy(pred, labels []int) (float64, error) {
	if len(pred) != len(labels) {
		return 0, fmt.Errorf("%w: %d predictions, %d labels", ErrLengthMismatch, len(pred), len(labels))
	}
	if len(pred) == 0 {
		return 0, nil
	}
	hits := 0
	for i := range pred {
		if pred[i] == labels[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(pred)), nil
}

// ConfusionMatrix counts predictions per true class: Counts[true][pred].
type ConfusionMatrix struct {
	Counts [][]int
}

// NewConfusionMatrix tallies labels against predictions for k classes.
// Out-of-range values are rejected.
func NewConfusionMatrix(labels, pred []int, k int) (*ConfusionMatrix, error) {
	if len(pred) != len(labels) {
		return nil, fmt.Errorf("%w: %d predictions, %d labels", ErrLengthMismatch, len(pred), len(labels))
	}
	counts := make([][]int, k)
	for i := range counts {
		counts[i] = make([]int, k)
	}
	for i := range labels {
		l, p := labels[i], pred[i]
		if l < 0 || l >= k || p < 0 || p >= k {
			return nil, fmt.Errorf("metrics: class out of range at row %d (label=%d pred=%d)", i, l, p)
		}
		counts[l][p]++
	}
	return &ConfusionMatrix{Counts: counts}, nil
}

// Normalize returns the row-wise fraction of each true class assigned to
// each prediction. Rows without examples stay zero.
func (c *ConfusionMatrix) Normalize() [][]float64 {
	out := make([][]float64, len(c.Counts))
	for i, row := range c.Counts {
		out[i] = make([]float64, len(row))
		total := 0
		for _, v := range row {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range row {
			out[i][j] = float64(v) / float64(total)
		}
	}
	return out
}

// Render writes the normalized matrix as a text table, true labels down
// the side and predicted labels across the top.
func (c *ConfusionMatrix) Render(w io.Writer) {
	k := len(c.Counts)
	header := make([]string, 0, k+1)
	header = append(header, "true\\pred")
	for j := 0; j < k; j++ {
		header = append(header, strconv.Itoa(j))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	for i, row := range c.Normalize() {
		line := make([]string, 0, k+1)
		line = append(line, strconv.Itoa(i))
		for _, v := range row {
			line = append(line, strconv.FormatFloat(v, 'f', 2, 64))
		}
		table.Append(line)
	}
	table.Render()
}
