// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package assignment

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/illinois/autograding/internal/patternmatch"
)

// MissingFiles reports required-file patterns that match no file under root.
// An empty result means the submission is complete.
func MissingFiles(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission %s: %w", root, err)
	}

	var missing []string
	for _, pattern := range patterns {
		found := false
		for _, f := range files {
			if matched, _ := patternmatch.Match(f, pattern); matched {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, pattern)
		}
	}
	return missing, nil
}
