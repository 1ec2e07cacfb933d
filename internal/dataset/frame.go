package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// ImageSide is the width and height of an MNIST digit.
	ImageSide = 28
	// NumPixels is the number of feature columns per row.
	NumPixels = ImageSide * ImageSide
	// NumColumns is the label column plus the pixel columns.
	NumColumns = NumPixels + 1
	// NumClasses is the number of distinct digit labels.
	NumClasses = 10

	maxPixel = 255.0
)

// ErrEmpty is returned when an operation would produce a frame without rows.
var ErrEmpty = errors.New("dataset: no rows")

// Frame is a row-major table of MNIST records: column 0 holds the label and
// columns 1..784 hold raw pixel intensities.
type Frame struct {
	data *mat.Dense
}

// NewFrame wraps data, which must have NumColumns columns.
func NewFrame(data *mat.Dense) (*Frame, error) {
	if data == nil || data.IsEmpty() {
		return nil, ErrEmpty
	}
	if _, cols := data.Dims(); cols != NumColumns {
		return nil, fmt.Errorf("dataset: frame has %d columns, want %d", cols, NumColumns)
	}
	return &Frame{data: data}, nil
}

// Rows returns the number of records.
func (f *Frame) Rows() int {
	rows, _ := f.data.Dims()
	return rows
}

// Row returns a copy of record i.
func (f *Frame) Row(i int) []float64 {
	return mat.Row(nil, i, f.data)
}

// Head returns the first n records. Non-positive n, or n beyond the frame,
// returns the whole frame.
func (f *Frame) Head(n int) *Frame {
	if n <= 0 || n >= f.Rows() {
		return f
	}
	return &Frame{data: f.data.Slice(0, n, 0, NumColumns).(*mat.Dense)}
}

// Permute returns a copy of f with its records in a random order drawn
// from rng. Each record stays intact.
func (f *Frame) Permute(rng *rand.Rand) *Frame {
	rows := f.Rows()
	out := mat.NewDense(rows, NumColumns, nil)
	for dst, src := range rng.Perm(rows) {
		out.SetRow(dst, f.data.RawRowView(src))
	}
	return &Frame{data: out}
}

// Split partitions f by position: the first trainRows records form the
// training frame and the remainder the validation frame.
func (f *Frame) Split(trainRows int) (train, validation *Frame, err error) {
	rows := f.Rows()
	if trainRows <= 0 || trainRows >= rows {
		return nil, nil, fmt.Errorf("dataset: split at %d leaves an empty partition of %d rows", trainRows, rows)
	}
	train = &Frame{data: f.data.Slice(0, trainRows, 0, NumColumns).(*mat.Dense)}
	validation = &Frame{data: f.data.Slice(trainRows, rows, 0, NumColumns).(*mat.Dense)}
	return train, validation, nil
}

// ParseLabelsAndFeatures extracts the label column and the pixel columns of
// f. Pixels are scaled from [0,255] to [0,1]. Row i of features belongs to
// labels[i].
func ParseLabelsAndFeatures(f *Frame) ([]int, *mat.Dense, error) {
	rows := f.Rows()
	labels := make([]int, rows)
	features := mat.NewDense(rows, NumPixels, nil)
	for i := 0; i < rows; i++ {
		record := f.data.RawRowView(i)
		label := record[0]
		if label != math.Trunc(label) || label < 0 || label >= NumClasses {
			return nil, nil, fmt.Errorf("dataset: row %d: label %v is not a digit", i, label)
		}
		labels[i] = int(label)

		pixels := record[1:]
		if floats.HasNaN(pixels) {
			return nil, nil, fmt.Errorf("dataset: row %d: pixel is NaN", i)
		}
		if lo, hi := floats.Min(pixels), floats.Max(pixels); lo < 0 || hi > maxPixel {
			return nil, nil, fmt.Errorf("dataset: row %d: pixel outside [0,%v] (min=%v max=%v)", i, maxPixel, lo, hi)
		}
		dst := features.RawRowView(i)
		for j, p := range pixels {
			dst[j] = p / maxPixel
		}
	}
	return labels, features, nil
}
