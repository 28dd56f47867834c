// Package files enumerates the source files a scan should consider.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListOptions filters which files under the root are returned.
type ListOptions struct {
	// Extensions selects files by suffix (e.g. ".c", ".h").
	Extensions []string

	// ExcludePatterns skips matching files and directories.
	ExcludePatterns []string
}

// List walks root and returns every matching file path, sorted for
// deterministic scan order. Returned paths are absolute.
func List(root string, opts ListOptions) ([]string, error) {
	var found []string

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}

		if ShouldExcludePath(filepath.ToSlash(relPath), info.IsDir(), opts.ExcludePatterns) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		for _, ext := range opts.Extensions {
			if strings.HasSuffix(path, ext) {
				found = append(found, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

// ShouldExcludePath checks if a slash-separated relative path matches any
// exclude patterns. Patterns can be:
//   - Directory prefixes: "ext/" matches "ext/foo.c"
//   - File suffixes: "_test.c" matches "dir/foo_test.c"
//   - Anywhere in path: ".git/" matches "src/.git/config"
func ShouldExcludePath(relPath string, isDir bool, patterns []string) bool {
	if isDir && !strings.HasSuffix(relPath, "/") {
		// Directory patterns end in "/"; make directories comparable.
		relPath += "/"
	}

	for _, pattern := range patterns {
		if strings.HasPrefix(relPath, pattern) {
			return true
		}
		if strings.Contains(relPath, "/"+pattern) {
			return true
		}
		if strings.HasSuffix(relPath, pattern) {
			return true
		}
	}
	return false
}
