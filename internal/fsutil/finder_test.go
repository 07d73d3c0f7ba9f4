package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "b.hcl", "a.yaml", "nested/c.yml", "notes.txt")

	files, err := FindFiles(root, ".hcl", ".yaml", ".yml")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.yaml"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.yml"),
	}, files)
}

func TestFindFiles_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "notes.txt")

	files, err := FindFiles(filepath.Join(root, "notes.txt"), ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "notes.txt")}, files)

	_, err = FindFiles(filepath.Join(root, "missing"), ".hcl")
	assert.Error(t, err)
}
