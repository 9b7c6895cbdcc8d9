package tool

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sha256Source = `def sha256_of(text: str) -> str:
    """Return the SHA-256 hex digest of a string.

    Args:
        text (str): Text to hash.

    Example:
        >>> sha256_of("hello")
    """
    return hashlib.sha256(text)
`

func TestSeeds(t *testing.T) {
	seeds := Seeds()
	require.Contains(t, seeds, "calculate")
	require.Contains(t, seeds, FinalizeName)

	ctx := context.Background()
	host := NewHost()
	for name, src := range seeds {
		tl, err := Load(ctx, host, src)
		require.NoError(t, err, name)
		assert.Equal(t, name, tl.Name)

		_, err = tl.Call(ctx, tl.Descriptor.ExampleArgs)
		assert.NoError(t, err, "example of %s should run", name)
	}
}

func TestCalculate(t *testing.T) {
	ctx := context.Background()
	tl, err := Load(ctx, NewHost(), Seeds()["calculate"])
	require.NoError(t, err)

	tests := []struct {
		what string
		want string
	}{
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"7 // 2", "3"},
		{"7 % 4", "3"},
		{"1 / 3", "0.333333"},
		{"sqrt(16)", "4.0"},
		{"pow(2, 10)", "1024.0"},
		{"-5 + abs(-2)", "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.what, func(t *testing.T) {
			out, err := tl.Call(ctx, map[string]any{"what": tt.what})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	t.Run("precision", func(t *testing.T) {
		out, err := tl.Call(ctx, map[string]any{"what": "2 / 3", "precision": float64(2)})
		require.NoError(t, err)
		assert.Equal(t, "0.67", out)
	})

	for _, bad := range []string{"1 / 0", "__import__('os')", "'a' * 3", "x + 1", "[1, 2]"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := tl.Call(ctx, map[string]any{"what": bad})
			var execErr *ErrToolExecution
			require.True(t, errors.As(err, &execErr), "got %v", err)
			assert.Equal(t, "calculate", execErr.Name)
		})
	}
}

func TestToolCall(t *testing.T) {
	ctx := context.Background()
	tl, err := Load(ctx, NewHost(), sha256Source)
	require.NoError(t, err)

	out, err := tl.Call(ctx, map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", out)

	_, err = tl.Call(ctx, map[string]any{"text": "hello", "salt": "x"})
	assert.Error(t, err)

	def := tl.Def()
	assert.Equal(t, "sha256_of", def.Name)
	assert.NotEmpty(t, def.Parameters)
}

func TestToolCallStructuredResult(t *testing.T) {
	ctx := context.Background()
	tl, err := Load(ctx, NewHost(), `LIMIT = 3

def first(items: list[int], n: int = LIMIT) -> list[int]:
    """Return the first items of a list.

    Args:
        items (list[int]): Input values.
        n (int): How many to keep.

    Example:
        >>> first([1, 2, 3, 4], 2)
    """
    return {"items": items[:n], "count": len(items[:n])}
`)
	require.Error(t, err, "defaults must be literals")

	tl, err = Load(ctx, NewHost(), `def first(items: list[int], n: int = 3) -> dict[str, Any]:
    """Return the first items of a list.

    Args:
        items (list[int]): Input values.
        n (int): How many to keep.

    Example:
        >>> first([1, 2, 3, 4], 2)
    """
    return {"items": items[:n], "count": len(items[:n])}
`)
	require.NoError(t, err)

	out, err := tl.Call(ctx, map[string]any{"items": []any{float64(5), float64(6), float64(7), float64(8)}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"items": []any{int64(5), int64(6), int64(7)}, "count": int64(3)}, out)
}

func TestToolCallNumericArguments(t *testing.T) {
	ctx := context.Background()
	repeat, err := Load(ctx, NewHost(), `def repeat(s: str, n: int) -> str:
    """Repeat a string.

    Args:
        s (str): Text to repeat.
        n (int): Number of copies.

    Example:
        >>> repeat("ab", 2)
    """
    return s * n
`)
	require.NoError(t, err)

	args := map[string]any{"s": "ab", "n": json.Number("3.0")}
	require.NoError(t, repeat.Descriptor.Validate(args))
	out, err := repeat.Call(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, "ababab", out)

	out, err = repeat.Call(ctx, map[string]any{"s": "x", "n": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "xx", out)

	scale, err := Load(ctx, NewHost(), `def scale(x: float, factor: float = 1.0) -> str:
    """Multiply a number and report its type.

    Args:
        x (float): Value to scale.
        factor (float): Multiplier.

    Example:
        >>> scale(2.5)
    """
    return type(x * factor) + " " + str(x * factor)
`)
	require.NoError(t, err)

	out, err = scale.Call(ctx, map[string]any{"x": json.Number("4")})
	require.NoError(t, err)
	assert.Equal(t, "float 4.0", out)

	out, err = scale.Call(ctx, map[string]any{"x": 3, "factor": json.Number("2")})
	require.NoError(t, err)
	assert.Equal(t, "float 6.0", out)
}

func TestToolCallFailure(t *testing.T) {
	ctx := context.Background()
	tl, err := Load(ctx, NewHost(), `def boom(msg: str) -> str:
    """Always fail.

    Args:
        msg (str): Failure message.

    Example:
        >>> boom("x")
    """
    fail(msg)
`)
	require.NoError(t, err)

	_, err = tl.Call(ctx, map[string]any{"msg": "disk on fire"})
	var execErr *ErrToolExecution
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Error(), "disk on fire")
}

func TestToolCallStepLimit(t *testing.T) {
	ctx := context.Background()
	tl, err := Load(ctx, NewHost(WithMaxSteps(1000)), `def spin(n: int) -> int:
    """Count up to n.

    Args:
        n (int): Upper bound.

    Example:
        >>> spin(10)
    """
    total = 0
    for i in range(n):
        total += i
    return total
`)
	require.NoError(t, err)

	out, err := tl.Call(ctx, map[string]any{"n": 10})
	require.NoError(t, err)
	assert.Equal(t, int64(45), out)

	_, err = tl.Call(ctx, map[string]any{"n": 1000000})
	assert.Error(t, err)
}

func TestToolCallCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tl, err := Load(ctx, NewHost(WithMaxSteps(0)), `def forever(x: int) -> int:
    """Loop forever.

    Args:
        x (int): Ignored.

    Example:
        >>> forever(1)
    """
    while True:
        x += 1
    return x
`)
	require.NoError(t, err)

	cancel()
	_, err = tl.Call(ctx, map[string]any{"x": 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilesModule(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	host := NewHost(WithBasePath(base), WithAllowedExtensions("txt"))

	tl, err := Load(ctx, host, `def note(name: str, text: str) -> str:
    """Append a line to a note and return the note.

    Args:
        name (str): File name.
        text (str): Line to append.

    Example:
        >>> note("a.txt", "hi")
    """
    files.write(name, text + "\n", append=True)
    return files.read(name)
`)
	require.NoError(t, err)

	_, err = tl.Call(ctx, map[string]any{"name": "notes/a.txt", "text": "one"})
	require.NoError(t, err)
	out, err := tl.Call(ctx, map[string]any{"name": "notes/a.txt", "text": "two"})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out)

	data, err := os.ReadFile(filepath.Join(base, "notes", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	_, err = tl.Call(ctx, map[string]any{"name": "../escape.txt", "text": "x"})
	assert.Error(t, err)
	_, err = tl.Call(ctx, map[string]any{"name": "a.sh", "text": "x"})
	assert.Error(t, err)
}

func TestHTTPModule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(r.Method + " " + r.URL.Path))
	}))
	defer srv.Close()

	src := `def fetch(url: str) -> dict[str, Any]:
    """Fetch a URL.

    Args:
        url (str): Address.

    Example:
        >>> fetch("http://localhost/")
    """
    resp = http.get(url)
    return {"status": resp.status, "body": resp.body}
`
	ctx := context.Background()
	tl, err := Load(ctx, NewHost(), src)
	require.NoError(t, err)

	out, err := tl.Call(ctx, map[string]any{"url": srv.URL + "/ping"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": int64(200), "body": "GET /ping"}, out)

	blocked, err := Load(ctx, NewHost(WithBlockedHosts("127.0.0.1")), src)
	require.NoError(t, err)
	_, err = blocked.Call(ctx, map[string]any{"url": srv.URL})
	assert.Error(t, err)

	_, err = tl.Call(ctx, map[string]any{"url": "file:///etc/passwd"})
	assert.Error(t, err)
}
