package tool

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEmbedder hashes the words of a text into a fixed number of buckets,
// so texts sharing words are close.
type wordEmbedder struct {
	model string
	fail  error

	mu    sync.Mutex
	calls int
	texts int
}

func (e *wordEmbedder) EmbeddingModel() string { return e.model }

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.texts += len(texts)
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, 64)
		for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			h := fnv.New32a()
			h.Write([]byte(w))
			vec[h.Sum32()%64]++
		}
		out[i] = vec
	}
	return out, nil
}

func (e *wordEmbedder) embeddedTexts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.texts
}

func openRegistry(t *testing.T, dir string, emb *wordEmbedder, opts ...Option) *Registry {
	t.Helper()
	reg, err := Open(context.Background(), dir, emb, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestOpenSeedsEmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tools")
	emb := &wordEmbedder{model: "words"}
	reg := openRegistry(t, dir, emb)

	assert.Equal(t, []string{"calculate", "finalize"}, reg.Names())
	assert.FileExists(t, filepath.Join(dir, "calculate.py"))
	assert.FileExists(t, filepath.Join(filepath.Dir(dir), "tools.index"))
	assert.Equal(t, 2, emb.embeddedTexts())

	code, err := reg.CodeOf("calculate")
	require.NoError(t, err)
	assert.Equal(t, Seeds()["calculate"], code)

	desc, err := reg.DescriptionOf("finalize")
	require.NoError(t, err)
	assert.Contains(t, desc, "final answer")

	schema, err := reg.SchemaOf("calculate")
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"required":["what"]`)

	_, err = reg.ToolOf("missing")
	assert.True(t, IsNotFound(err))
}

func TestOpenWithoutSeeds(t *testing.T) {
	reg := openRegistry(t, t.TempDir(), &wordEmbedder{model: "words"}, WithoutSeeds())
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Catalog())
}

func TestOpenReusesIndex(t *testing.T) {
	dir := t.TempDir()
	emb := &wordEmbedder{model: "words"}

	reg, err := Open(context.Background(), dir, emb)
	require.NoError(t, err)
	require.NoError(t, reg.Close())
	before := emb.embeddedTexts()

	reg = openRegistry(t, dir, emb)
	assert.Equal(t, before, emb.embeddedTexts(), "matching index must not be re-embedded")
	assert.Equal(t, 2, reg.Len())
}

func TestOpenRebuildsIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("out of band file", func(t *testing.T) {
		dir := t.TempDir()
		emb := &wordEmbedder{model: "words"}
		reg, err := Open(ctx, dir, emb)
		require.NoError(t, err)
		require.NoError(t, reg.Close())

		require.NoError(t, os.WriteFile(filepath.Join(dir, "sha256_of.py"), []byte(sha256Source), 0o644))
		before := emb.embeddedTexts()

		reg = openRegistry(t, dir, emb)
		assert.Equal(t, before+3, emb.embeddedTexts())
		matches, err := reg.Nearest(ctx, "Return the SHA-256 hex digest of a string.", 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "sha256_of", matches[0].Name)
	})

	t.Run("embedding model changed", func(t *testing.T) {
		dir := t.TempDir()
		reg, err := Open(ctx, dir, &wordEmbedder{model: "words"})
		require.NoError(t, err)
		require.NoError(t, reg.Close())

		emb := &wordEmbedder{model: "words-v2"}
		openRegistry(t, dir, emb)
		assert.Equal(t, 2, emb.embeddedTexts())
	})
}

func TestOpenSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.py"), []byte("def broken(:\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "renamed.py"), []byte(sha256Source), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_tmp.py"), []byte(sha256Source), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sha256_of.py"), []byte(sha256Source), 0o644))

	reg := openRegistry(t, dir, &wordEmbedder{model: "words"})
	assert.Equal(t, []string{"sha256_of"}, reg.Names())
}

func TestInstall(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := &wordEmbedder{model: "words"}
	reg := openRegistry(t, dir, emb)

	tl, err := reg.Install(ctx, sha256Source)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sha256_of.py"), tl.Path)

	data, err := os.ReadFile(tl.Path)
	require.NoError(t, err)
	assert.Equal(t, sha256Source, string(data))

	matches, err := reg.Nearest(ctx, tl.Description(), 1)
	require.NoError(t, err)
	assert.Equal(t, "sha256_of", matches[0].Name)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)

	_, err = reg.Install(ctx, sha256Source)
	assert.True(t, IsExists(err), "got %v", err)

	assert.Contains(t, reg.Catalog(), Entry{Name: "sha256_of", Description: "Return the SHA-256 hex digest of a string."})

	// A fresh registry sees the installed tool without rebuilding.
	require.NoError(t, reg.Close())
	before := emb.embeddedTexts()
	reopened, err := Open(ctx, dir, emb)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, before, emb.embeddedTexts())
	assert.Equal(t, []string{"calculate", "finalize", "sha256_of"}, reopened.Names())
}

func TestInstallRejects(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := &wordEmbedder{model: "words"}
	reg := openRegistry(t, dir, emb)

	_, err := reg.Install(ctx, "def f(x: int) -> int:\n    return x\n")
	assert.Error(t, err)

	_, err = reg.Install(ctx, strings.Replace(sha256Source, "sha256_of", "_hidden", 2))
	assert.ErrorIs(t, err, ErrReservedName)

	// An existing file that failed to load is still never overwritten.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sha256_of.py"), []byte("junk"), 0o644))
	_, err = reg.Install(ctx, sha256Source)
	assert.True(t, IsExists(err))
	data, _ := os.ReadFile(filepath.Join(dir, "sha256_of.py"))
	assert.Equal(t, "junk", string(data))
}

func TestInstallRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := &wordEmbedder{model: "words"}
	reg := openRegistry(t, dir, emb)

	emb.fail = errors.New("embedding service down")
	_, err := reg.Install(ctx, sha256Source)
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "sha256_of.py"))
	_, err = reg.ToolOf("sha256_of")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, []string{"calculate", "finalize"}, reg.Names())
}

func TestInstallTemp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := openRegistry(t, dir, &wordEmbedder{model: "words"})

	tl, err := reg.InstallTemp(ctx, sha256Source)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "_tmp.py"), tl.Path)

	out, err := tl.Call(ctx, map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.(string), "2cf24db"))

	_, err = reg.ToolOf("sha256_of")
	assert.True(t, IsNotFound(err), "temporary tools are not installed")

	_, err = reg.InstallTemp(ctx, "def bad(:\n")
	assert.Error(t, err)
	data, _ := os.ReadFile(filepath.Join(dir, "_tmp.py"))
	assert.Equal(t, "def bad(:\n", string(data))
}

func TestRemoveAndReindex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := &wordEmbedder{model: "words"}
	reg := openRegistry(t, dir, emb)

	_, err := reg.Install(ctx, sha256Source)
	require.NoError(t, err)
	require.NoError(t, reg.Remove("sha256_of"))
	assert.NoFileExists(t, filepath.Join(dir, "sha256_of.py"))
	assert.True(t, IsNotFound(reg.Remove("sha256_of")))

	matches, err := reg.Nearest(ctx, "Return the SHA-256 hex digest of a string.", 5)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, "sha256_of", m.Name)
	}

	before := emb.embeddedTexts()
	require.NoError(t, reg.Reindex(ctx))
	assert.Equal(t, before+2, emb.embeddedTexts())
}
