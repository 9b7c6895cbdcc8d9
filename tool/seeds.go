package tool

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FinalizeName is the tool whose successful call ends a session.
const FinalizeName = "finalize"

//go:embed seeds/*.py
var seedFS embed.FS

// Seeds returns the built-in tool sources keyed by tool name.
func Seeds() map[string]string {
	out := make(map[string]string)
	entries, _ := fs.ReadDir(seedFS, "seeds")
	for _, e := range entries {
		data, err := seedFS.ReadFile("seeds/" + e.Name())
		if err != nil {
			continue
		}
		out[e.Name()[:len(e.Name())-len(sourceExt)]] = string(data)
	}
	return out
}

// writeSeeds copies the built-in tools into dir, leaving existing files alone.
func writeSeeds(dir string) error {
	for name, src := range Seeds() {
		path := filepath.Join(dir, name+sourceExt)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		_, err = f.WriteString(src)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return nil
}
