// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package patternmatch matches submission files against manifest glob patterns.
package patternmatch

import (
	"path/filepath"
)

// Match checks if a file path matches a glob pattern.
// Also tries matching just the basename, so "go.mod" matches "sub/go.mod".
func Match(filePath, pattern string) (bool, error) {
	matched, err := filepath.Match(pattern, filePath)
	if err != nil {
		return false, err
	}
	if matched {
		return true, nil
	}

	basename := filepath.Base(filePath)
	return filepath.Match(pattern, basename)
}

// MatchAny checks if a path matches any of the given patterns.
func MatchAny(filePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := Match(filePath, pattern); matched {
			return true
		}
	}
	return false
}
