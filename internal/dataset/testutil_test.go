package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// csvRow builds a record whose label is label and whose pixels all equal
// pixel, except the first which is set to first.
func csvRow(label, first, pixel int) string {
	fields := make([]string, 0, NumColumns)
	fields = append(fields, fmt.Sprint(label), fmt.Sprint(first))
	for i := 1; i < NumPixels; i++ {
		fields = append(fields, fmt.Sprint(pixel))
	}
	return strings.Join(fields, ",")
}

func mustWrite(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

// sequentialFrame returns rows records where record i has label i%10 and
// first pixel i.
func sequentialFrame(t *testing.T, rows int) *Frame {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seq.csv")
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = csvRow(i%NumClasses, i%256, 128)
	}
	mustWrite(t, path, lines...)
	f, err := LoadCSV(context.Background(), path, 0)
	require.NoError(t, err)
	return f
}
