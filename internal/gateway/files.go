package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/docgate/docgate/pkg/types"
)

// ExpandFiles resolves paths and doublestar patterns ("docs/**/*.pdf")
// into multi-file inputs, in pattern order with duplicates removed.
// A literal path that does not exist is an error; a pattern that
// matches nothing is not. Payloads are left empty for the adapter to
// read.
func ExpandFiles(patterns []string) ([]types.MultiFileInput, error) {
	var files []types.MultiFileInput
	seen := make(map[string]bool)

	add := func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if seen[abs] {
			return nil
		}
		seen[abs] = true
		files = append(files, types.MultiFileInput{Path: abs, DisplayName: filepath.Base(path)})
		return nil
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			if err := add(pattern); err != nil {
				return nil, err
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if err := add(m); err != nil {
				return nil, err
			}
		}
	}
	return files, nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
