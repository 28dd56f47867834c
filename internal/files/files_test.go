package files

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	dir := t.TempDir()

	tree := map[string]string{
		"src/core/main.c":    "int x;\n",
		"src/core/main.h":    "int x;\n",
		"src/ext/vendored.c": "int x;\n",
		"README.md":          "docs\n",
		"src/notes.txt":      "notes\n",
	}
	for name, content := range tree {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	found, err := List(dir, ListOptions{
		Extensions:      []string{".c", ".h"},
		ExcludePatterns: []string{"ext/"},
	})
	require.NoError(t, err)

	var rel []string
	for _, p := range found {
		r, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}

	assert.Equal(t, []string{"src/core/main.c", "src/core/main.h"}, rel)
	assert.True(t, sort.StringsAreSorted(found))
}

func TestList_EmptyTree(t *testing.T) {
	found, err := List(t.TempDir(), ListOptions{Extensions: []string{".c"}})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestList_MissingRoot(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"), ListOptions{Extensions: []string{".c"}})
	require.Error(t, err)
}

func TestShouldExcludePath(t *testing.T) {
	patterns := []string{"ext/", ".git/", "_test.c"}

	tests := []struct {
		path     string
		isDir    bool
		excluded bool
	}{
		{"ext", true, true},
		{"ext/foo.c", false, true},
		{"src/ext/foo.c", false, true},
		{"extras/foo.c", false, false},
		{"src/.git", true, true},
		{"src/foo_test.c", false, true},
		{"src/foo.c", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.excluded, ShouldExcludePath(tt.path, tt.isDir, patterns))
		})
	}
}
