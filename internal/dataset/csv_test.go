package dataset

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCSVRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv")
	mustWrite(t, path, csvRow(1, 0, 0), csvRow(2, 10, 20), csvRow(3, 255, 255))

	f, err := LoadCSV(context.Background(), path, 2)
	require.NoError(t, err)
	require.Equal(t, 2, f.Rows())
	require.Equal(t, 2.0, f.Row(1)[0])
	require.Equal(t, 10.0, f.Row(1)[1])
	require.Equal(t, 20.0, f.Row(1)[2])
}

func TestLoadCSVReadsAllWithoutLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv")
	mustWrite(t, path, csvRow(1, 0, 0), csvRow(2, 0, 0), csvRow(3, 0, 0))

	f, err := LoadCSV(context.Background(), path, 0)
	require.NoError(t, err)
	require.Equal(t, 3, f.Rows())
}

func TestLoadCSVGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv.gz")
	out, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(out)
	_, err = gz.Write([]byte(csvRow(7, 1, 2) + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, out.Close())

	f, err := LoadCSV(context.Background(), path, 0)
	require.NoError(t, err)
	require.Equal(t, 1, f.Rows())
	require.Equal(t, 7.0, f.Row(0)[0])
}

func TestLoadCSVWrongFieldCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	mustWrite(t, path, csvRow(1, 0, 0), "1,2,3")

	_, err := LoadCSV(context.Background(), path, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestLoadCSVNonNumeric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	mustWrite(t, path, strings.Replace(csvRow(1, 0, 0), "1", "x", 1))

	_, err := LoadCSV(context.Background(), path, 0)
	require.ErrorContains(t, err, "line 1, column 1")
}

func TestLoadCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := LoadCSV(context.Background(), path, 0)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), 0)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCSVCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv")
	mustWrite(t, path, csvRow(1, 0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadCSV(ctx, path, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadAllLimitSpansFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	mustWrite(t, a, csvRow(1, 0, 0), csvRow(2, 0, 0))
	mustWrite(t, b, csvRow(3, 0, 0), csvRow(4, 0, 0))

	f, err := LoadAll(context.Background(), []string{a, b}, 3)
	require.NoError(t, err)
	require.Equal(t, 3, f.Rows())
	require.Equal(t, 3.0, f.Row(2)[0])
}
