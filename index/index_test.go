package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	ix, err := Open(path)
	require.NoError(t, err)
	return ix, path
}

func TestIndexSearch(t *testing.T) {
	ix, _ := openTemp(t)
	defer ix.Close()

	require.NoError(t, ix.Add("east", []float64{1, 0}))
	require.NoError(t, ix.Add("north", []float64{0, 1}))
	require.NoError(t, ix.Add("northeast", []float64{1, 1}))

	matches, err := ix.Search([]float64{0.9, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Name)
	assert.Equal(t, "northeast", matches[1].Name)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	all, err := ix.Search([]float64{1, 0}, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.InDelta(t, 0.0, all[2].Score, 1e-9)
}

func TestIndexSearchEmpty(t *testing.T) {
	ix, _ := openTemp(t)
	defer ix.Close()

	matches, err := ix.Search([]float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = ix.Search(nil, 1)
	assert.ErrorIs(t, err, ErrEmptyVector)
}

func TestIndexDimensions(t *testing.T) {
	ix, _ := openTemp(t)
	defer ix.Close()

	require.NoError(t, ix.Add("a", []float64{1, 0}))
	assert.ErrorIs(t, ix.Add("b", []float64{1, 0, 0}), ErrDimensionMismatch)
	assert.ErrorIs(t, ix.Add("c", nil), ErrEmptyVector)
	require.NoError(t, ix.Add("a", []float64{0, 1}), "replacing an entry keeps its dimension")

	_, err := ix.Search([]float64{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndexPersistence(t *testing.T) {
	ix, path := openTemp(t)
	require.NoError(t, ix.Reset("text-embedding-3-small", map[string][]float64{
		"calculate": {1, 0},
		"finalize":  {0, 1},
	}))
	require.NoError(t, ix.Add("sha256_of", []float64{0.5, 0.5}))
	require.NoError(t, ix.Remove("finalize"))
	require.NoError(t, ix.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "text-embedding-3-small", reopened.Model())
	assert.Equal(t, []string{"calculate", "sha256_of"}, reopened.Names())
	assert.Equal(t, 2, reopened.Len())

	matches, err := reopened.Search([]float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "calculate", matches[0].Name)
}

func TestIndexRemoveMissing(t *testing.T) {
	ix, _ := openTemp(t)
	defer ix.Close()
	assert.ErrorIs(t, ix.Remove("nope"), ErrNotFound)
}

func TestIndexResetValidates(t *testing.T) {
	ix, _ := openTemp(t)
	defer ix.Close()

	require.NoError(t, ix.Add("keep", []float64{1}))
	err := ix.Reset("m", map[string][]float64{"a": {1, 0}, "b": {1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, []string{"keep"}, ix.Names())

	require.NoError(t, ix.Reset("m", nil))
	assert.Zero(t, ix.Len())
	assert.Equal(t, "m", ix.Model())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{2, 0}, []float64{5, 0}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 0}))
}
