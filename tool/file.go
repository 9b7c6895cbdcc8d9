package tool

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func (h *Host) filesModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "files",
		Members: starlark.StringDict{
			"read":   starlark.NewBuiltin("files.read", h.readFile),
			"write":  starlark.NewBuiltin("files.write", h.writeFile),
			"list":   starlark.NewBuiltin("files.list", h.listDir),
			"exists": starlark.NewBuiltin("files.exists", h.fileExists),
		},
	}
}

func (h *Host) resolvePath(path string) (string, error) {
	// Clean the path
	path = filepath.Clean(path)

	// If base path is set, resolve relative to it
	if h.basePath != "" {
		basePath := filepath.Clean(h.basePath)
		fullPath := filepath.Join(basePath, path)

		// Ensure the resolved path is still within the base path
		rel, err := filepath.Rel(basePath, fullPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("path %q is outside base path %q", path, basePath)
		}
		path = fullPath
	}

	return path, nil
}

func (h *Host) checkExtension(path string) error {
	if len(h.allowedExtensions) == 0 {
		return nil
	}

	ext := filepath.Ext(path)
	for _, allowed := range h.allowedExtensions {
		if ext == allowed || ext == "."+allowed {
			return nil
		}
	}

	return fmt.Errorf("extension %q not allowed", ext)
}

func (h *Host) readFile(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	full, err := h.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if err := h.checkExtension(full); err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > h.maxFileSize {
		return nil, fmt.Errorf("file size %d exceeds maximum %d", info.Size(), h.maxFileSize)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	return starlark.String(data), nil
}

func (h *Host) writeFile(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		path, content string
		appendMode    bool
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &path, "content", &content, "append?", &appendMode); err != nil {
		return nil, err
	}
	if int64(len(content)) > h.maxFileSize {
		return nil, fmt.Errorf("content size %d exceeds maximum %d", len(content), h.maxFileSize)
	}
	full, err := h.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if err := h.checkExtension(full); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		return nil, err
	}
	n, err := f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(n), nil
}

func (h *Host) listDir(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	path := "."
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path?", &path); err != nil {
		return nil, err
	}
	full, err := h.resolvePath(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.Type()&fs.ModeDir != 0 {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	elems := make([]starlark.Value, len(names))
	for i, name := range names {
		elems[i] = starlark.String(name)
	}
	return starlark.NewList(elems), nil
}

func (h *Host) fileExists(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	full, err := h.resolvePath(path)
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(full)
	return starlark.Bool(err == nil), nil
}
