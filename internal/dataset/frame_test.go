package dataset

import (
	"context"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewFrameRejectsWrongWidth(t *testing.T) {
	_, err := NewFrame(mat.NewDense(1, 3, nil))
	require.Error(t, err)

	_, err = NewFrame(nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestHead(t *testing.T) {
	f := sequentialFrame(t, 20)
	require.Equal(t, 5, f.Head(5).Rows())
	require.Equal(t, 20, f.Head(0).Rows())
	require.Equal(t, 20, f.Head(100).Rows())
	require.Equal(t, f.Row(4), f.Head(5).Row(4))
}

func TestPermuteKeepsRecordsIntact(t *testing.T) {
	f := sequentialFrame(t, 50)
	p := f.Permute(rand.New(rand.NewSource(3)))
	require.Equal(t, f.Rows(), p.Rows())

	var seen []int
	moved := false
	for i := 0; i < p.Rows(); i++ {
		row := p.Row(i)
		first := int(row[1])
		require.Equal(t, float64(first%NumClasses), row[0], "label detached from pixels at row %d", i)
		seen = append(seen, first)
		if first != i {
			moved = true
		}
	}
	require.True(t, moved, "permutation left every row in place")
	sort.Ints(seen)
	for i, v := range seen {
		require.Equal(t, i, v)
	}
}

func TestSplitDisjointAndExhaustive(t *testing.T) {
	f := sequentialFrame(t, 40)
	train, validation, err := f.Split(30)
	require.NoError(t, err)
	require.Equal(t, 30, train.Rows())
	require.Equal(t, 10, validation.Rows())

	ids := map[int]int{}
	for _, part := range []*Frame{train, validation} {
		for i := 0; i < part.Rows(); i++ {
			ids[int(part.Row(i)[1])]++
		}
	}
	require.Len(t, ids, 40)
	for id, n := range ids {
		require.Equal(t, 1, n, "row %d appears %d times", id, n)
	}
	require.Equal(t, f.Row(30), validation.Row(0))
}

func TestSplitRejectsEmptyPartition(t *testing.T) {
	f := sequentialFrame(t, 10)
	for _, at := range []int{0, 10, 11, -1} {
		_, _, err := f.Split(at)
		require.Error(t, err, "split at %d", at)
	}
}

func TestParseLabelsAndFeaturesScales(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scale.csv")
	mustWrite(t, path, csvRow(3, 0, 255), csvRow(9, 255, 51))
	f, err := LoadCSV(context.Background(), path, 0)
	require.NoError(t, err)

	labels, features, err := ParseLabelsAndFeatures(f)
	require.NoError(t, err)
	require.Equal(t, []int{3, 9}, labels)

	rows, cols := features.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, NumPixels, cols)
	require.Equal(t, 0.0, features.At(0, 0))
	require.Equal(t, 1.0, features.At(0, 1))
	require.Equal(t, 1.0, features.At(1, 0))
	require.InDelta(t, 0.2, features.At(1, 1), 1e-12)
	for i := 0; i < rows; i++ {
		for _, v := range features.RawRowView(i) {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestParseLabelsAndFeaturesPreservesAlignment(t *testing.T) {
	f := sequentialFrame(t, 30).Permute(rand.New(rand.NewSource(9)))
	train, validation, err := f.Split(20)
	require.NoError(t, err)

	for _, part := range []*Frame{train, validation} {
		labels, features, err := ParseLabelsAndFeatures(part)
		require.NoError(t, err)
		got := make([]int, len(labels))
		want := make([]int, len(labels))
		for i := range labels {
			first := int(features.At(i, 0)*255 + 0.5)
			want[i] = first % NumClasses
			got[i] = labels[i]
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("labels misaligned with features (-want +got):\n%s", diff)
		}
	}
}

func TestParseLabelsAndFeaturesRejectsBadData(t *testing.T) {
	cases := map[string]string{
		"label range":    csvRow(10, 0, 0),
		"label fraction": "1.5" + csvRow(0, 0, 0)[1:],
		"pixel high":     csvRow(1, 256, 0),
		"pixel negative": csvRow(1, -1, 0),
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.csv")
			mustWrite(t, path, line)
			f, err := LoadCSV(context.Background(), path, 0)
			require.NoError(t, err)
			_, _, err = ParseLabelsAndFeatures(f)
			require.Error(t, err)
		})
	}
}
