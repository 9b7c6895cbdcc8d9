package tool

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

var hashlibModule = &starlarkstruct.Module{
	Name: "hashlib",
	Members: starlark.StringDict{
		"md5":    hexDigest("hashlib.md5", md5.New),
		"sha1":   hexDigest("hashlib.sha1", sha1.New),
		"sha256": hexDigest("hashlib.sha256", sha256.New),
		"sha512": hexDigest("hashlib.sha512", sha512.New),
	},
}

// hexDigest returns a builtin hashing a string or bytes argument.
func hexDigest(name string, newHash func() hash.Hash) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var data starlark.Value
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &data); err != nil {
			return nil, err
		}
		h := newHash()
		switch v := data.(type) {
		case starlark.String:
			h.Write([]byte(v))
		case starlark.Bytes:
			h.Write([]byte(v))
		default:
			return nil, fmt.Errorf("%s: got %s, want string or bytes", fn.Name(), data.Type())
		}
		return starlark.String(hex.EncodeToString(h.Sum(nil))), nil
	})
}
