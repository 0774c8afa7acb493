package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherAllMidiPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	for _, name := range []string{"a.mid", "b.MIDI", "notes.txt", "sub/c.midi"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	paths, err := GatherAllMidiPaths(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.mid"),
		filepath.Join(dir, "b.MIDI"),
		filepath.Join(dir, "sub", "c.midi"),
	}, paths)

	paths, err = GatherAllMidiPaths(dir, 2)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestGatherAllMidiPathsMissingDir(t *testing.T) {
	_, err := GatherAllMidiPaths(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, SortedKeys(map[int]string{3: "c", 1: "a", 2: "b"}))
}

func TestNumericHelpers(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(2, Min(2, 5))
	assert.Equal(5, Max(2, 5))
	assert.Equal(127, Clamp(130, 0, 127))
	assert.Equal(0, Clamp(-3, 0, 127))
	assert.Equal(3, Abs(-3))
	assert.Equal(0.5, Abs(-0.5))
	assert.Equal(6, Sum([]int{1, 2, 3}))
}
