package dataset

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const ctxCheckEvery = 1024

// LoadCSV reads at most limit header-less MNIST records from path. A
// non-positive limit reads the whole file. Files ending in .gz are
// decompressed on the fly.
func LoadCSV(ctx context.Context, path string, limit int) (*Frame, error) {
	return LoadAll(ctx, []string{path}, limit)
}

// LoadAll reads the given files in order into one frame, stopping once
// limit records have been read across all of them.
func LoadAll(ctx context.Context, paths []string, limit int) (*Frame, error) {
	var data []float64
	rows := 0
	for _, path := range paths {
		if limit > 0 && rows >= limit {
			break
		}
		remaining := 0
		if limit > 0 {
			remaining = limit - rows
		}
		var n int
		var err error
		data, n, err = loadFile(ctx, path, remaining, data)
		if err != nil {
			return nil, err
		}
		rows += n
	}
	if rows == 0 {
		return nil, ErrEmpty
	}
	return NewFrame(mat.NewDense(rows, NumColumns, data))
}

func loadFile(ctx context.Context, path string, limit int, dst []float64) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, 0, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	dst, n, err := readRecords(ctx, r, limit, dst)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return dst, n, nil
}

func readRecords(ctx context.Context, r io.Reader, limit int, dst []float64) ([]float64, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = NumColumns
	cr.ReuseRecord = true

	rows := 0
	for limit <= 0 || rows < limit {
		if rows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return dst, rows, err
			}
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dst, rows, err
		}
		line, _ := cr.FieldPos(0)
		for col, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return dst, rows, fmt.Errorf("line %d, column %d: %w", line, col+1, err)
			}
			dst = append(dst, v)
		}
		rows++
	}
	return dst, rows, nil
}
