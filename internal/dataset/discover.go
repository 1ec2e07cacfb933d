package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

var csvRegexp = regexp.MustCompile(`(?i)\.csv(\.gz)?$`)

// DiscoverCSV returns the dataset files for root. A file is returned as is;
// a directory is walked for *.csv and *.csv.gz files, returned in sorted
// order.
func DiscoverCSV(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover csv: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	entries := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if csvRegexp.MatchString(d.Name()) {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover csv: %w", err)
	}
	sort.Strings(entries)
	return entries, nil
}
