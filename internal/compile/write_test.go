package compile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFiles(t *testing.T) {
	res, err := Compile(mlp("generic"))
	require.NoError(t, err)
	dir := t.TempDir()
	files, err := res.WriteFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.ElementsMatch(t, []string{
		"mlp.h", "mlp.c", "mlp_globals.c", "mlp_flowfacts.json", "mlp.mk",
	}, dirNames(t, dir))
	h, err := os.ReadFile(filepath.Join(dir, "mlp.h"))
	require.NoError(t, err)
	assert.Equal(t, res.H, h)
	info, err := os.Stat(filepath.Join(dir, "mlp.c"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

// The makefile is renamed last. A directory in its place makes that rename
// fail after the other four files are already in place.
func TestWriteFilesLeavesNothingOnFailure(t *testing.T) {
	res, err := Compile(mlp("generic"))
	require.NoError(t, err)
	dir := t.TempDir()
	block := filepath.Join(dir, "mlp.mk")
	require.NoError(t, os.Mkdir(block, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(block, "keep"), nil, 0o644))

	_, err = res.WriteFiles(dir)
	require.Error(t, err)
	assert.Equal(t, []string{"mlp.mk"}, dirNames(t, dir))
}

func TestWriteFilesMissingDir(t *testing.T) {
	res, err := Compile(mlp("semi"))
	require.NoError(t, err)
	_, err = res.WriteFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
