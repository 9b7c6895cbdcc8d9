package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/spetersoncode/perpetual/index"
)

const (
	sourceExt = ".py"
	// TempName is the slot holding a synthesized tool while it is tried out.
	TempName = "_tmp"
)

// Embedder turns descriptions into vectors. *llm.Client implements it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	EmbeddingModel() string
}

// Entry is one line of the catalog shown to the synthesizer.
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Registry holds the installed tools of a directory, one source file per
// tool, together with a vector index of their descriptions.
// It is safe for concurrent use; installs and removals are serialized and
// complete before later lookups observe them.
type Registry struct {
	dir       string
	indexPath string
	embedder  Embedder
	host      *Host
	logger    *slog.Logger
	seed      bool

	mu    sync.RWMutex
	tools map[string]*Tool
	index *index.Index
}

// Option configures a Registry.
type Option func(*Registry)

// WithIndexPath sets the vector index file. The default is a sibling of the
// tool directory named after it with an ".index" suffix.
func WithIndexPath(path string) Option {
	return func(r *Registry) {
		r.indexPath = path
	}
}

// WithHost sets the environment tools run in.
func WithHost(h *Host) Option {
	return func(r *Registry) {
		r.host = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithoutSeeds keeps Open from writing the built-in tools into an empty
// directory.
func WithoutSeeds() Option {
	return func(r *Registry) {
		r.seed = false
	}
}

// Open loads every tool of dir and attaches the vector index. The index is
// reused when it holds exactly the loaded tool names and was built with the
// embedder's model; otherwise it is rebuilt from the descriptions.
// Files that fail to load are logged and skipped.
func Open(ctx context.Context, dir string, embedder Embedder, opts ...Option) (*Registry, error) {
	dir = filepath.Clean(dir)
	r := &Registry{
		dir:       dir,
		indexPath: filepath.Join(filepath.Dir(dir), filepath.Base(dir)+".index"),
		embedder:  embedder,
		logger:    slog.Default(),
		seed:      true,
		tools:     make(map[string]*Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.host == nil {
		r.host = NewHost(WithHostLogger(r.logger))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tool directory: %w", err)
	}
	files, err := toolFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 && r.seed {
		if err := writeSeeds(dir); err != nil {
			return nil, err
		}
		if files, err = toolFiles(dir); err != nil {
			return nil, err
		}
	}

	for _, path := range files {
		t, err := r.loadFile(ctx, path)
		if err != nil {
			r.logger.Warn("skipping tool file", "path", path, "error", err)
			continue
		}
		r.tools[t.Name] = t
	}

	ix, err := index.Open(r.indexPath)
	if err != nil {
		return nil, err
	}
	r.index = ix

	if r.indexCurrent() {
		r.logger.Debug("reusing tool index", "path", r.indexPath, "tools", len(r.tools))
		return r, nil
	}
	if err := r.rebuild(ctx); err != nil {
		ix.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the index.
func (r *Registry) Close() error {
	return r.index.Close()
}

// Dir returns the tool directory.
func (r *Registry) Dir() string { return r.dir }

// Host returns the environment tools run in.
func (r *Registry) Host() *Host { return r.host }

// Modules describes the host modules available to tool code.
func (r *Registry) Modules() map[string]string { return r.host.Modules() }

func toolFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tool directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sourceExt) || strings.HasPrefix(name, "_") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (r *Registry) loadFile(ctx context.Context, path string) (*Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Load(ctx, r.host, string(data))
	if err != nil {
		return nil, err
	}
	if want := strings.TrimSuffix(filepath.Base(path), sourceExt); t.Name != want {
		return nil, fmt.Errorf("file defines %s, want %s", t.Name, want)
	}
	t.Path = path
	return t, nil
}

// indexCurrent reports whether the persisted index matches the loaded tools.
// Caller holds r.mu or has exclusive access.
func (r *Registry) indexCurrent() bool {
	if r.index.Model() != r.embedder.EmbeddingModel() {
		return false
	}
	return slices.Equal(r.index.Names(), r.sortedNames())
}

// rebuild embeds every description and replaces the index.
// Caller holds r.mu or has exclusive access.
func (r *Registry) rebuild(ctx context.Context) error {
	names := r.sortedNames()
	r.logger.Info("rebuilding tool index", "path", r.indexPath, "tools", len(names), "model", r.embedder.EmbeddingModel())

	entries := make(map[string][]float64, len(names))
	if len(names) > 0 {
		texts := make([]string, len(names))
		for i, name := range names {
			texts[i] = r.tools[name].Description()
		}
		vectors, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed tool descriptions: %w", err)
		}
		if len(vectors) != len(names) {
			return fmt.Errorf("embed tool descriptions: got %d vectors for %d tools", len(vectors), len(names))
		}
		for i, name := range names {
			entries[name] = vectors[i]
		}
	}
	return r.index.Reset(r.embedder.EmbeddingModel(), entries)
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reindex rebuilds the vector index from the installed tools.
func (r *Registry) Reindex(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuild(ctx)
}

// All returns the installed tools by name.
func (r *Registry) All() map[string]*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Tool, len(r.tools))
	for name, t := range r.tools {
		out[name] = t
	}
	return out
}

// Names returns the installed tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// Len returns the number of installed tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToolOf returns an installed tool.
func (r *Registry) ToolOf(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &ErrToolNotFound{Name: name}
	}
	return t, nil
}

// SchemaOf returns the parameter schema of an installed tool.
func (r *Registry) SchemaOf(name string) (json.RawMessage, error) {
	t, err := r.ToolOf(name)
	if err != nil {
		return nil, err
	}
	return t.Descriptor.Schema, nil
}

// DescriptionOf returns the description of an installed tool.
func (r *Registry) DescriptionOf(name string) (string, error) {
	t, err := r.ToolOf(name)
	if err != nil {
		return "", err
	}
	return t.Description(), nil
}

// CodeOf returns the source of an installed tool.
func (r *Registry) CodeOf(name string) (string, error) {
	t, err := r.ToolOf(name)
	if err != nil {
		return "", err
	}
	return t.Source, nil
}

// Catalog lists the installed tools with their descriptions, sorted by name.
func (r *Registry) Catalog() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.sortedNames()
	out := make([]Entry, len(names))
	for i, name := range names {
		out[i] = Entry{Name: name, Description: r.tools[name].Description()}
	}
	return out
}

// Nearest returns up to k installed tools ordered by similarity of their
// description to text.
func (r *Registry) Nearest(ctx context.Context, text string, k int) ([]index.Match, error) {
	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Search(vectors[0], k)
}

// Install validates a source, writes it to the tool directory, embeds its
// description and adds it to the index. An existing tool of the same name
// is never overwritten. On failure nothing is left behind.
func (r *Registry) Install(ctx context.Context, source string) (*Tool, error) {
	t, err := Load(ctx, r.host, source)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(t.Name, "_") {
		return nil, ErrReservedName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[t.Name]; ok {
		return nil, &ErrToolExists{Name: t.Name}
	}
	path := filepath.Join(r.dir, t.Name+sourceExt)
	if err := writeExclusive(path, source); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, &ErrToolExists{Name: t.Name}
		}
		return nil, fmt.Errorf("write tool %s: %w", t.Name, err)
	}

	vectors, err := r.embedder.Embed(ctx, []string{t.Description()})
	if err == nil && len(vectors) != 1 {
		err = fmt.Errorf("got %d vectors", len(vectors))
	}
	if err == nil {
		err = r.index.Add(t.Name, vectors[0])
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			r.logger.Warn("failed to roll back tool file", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("index tool %s: %w", t.Name, err)
	}

	t.Path = path
	r.tools[t.Name] = t
	r.logger.Info("tool installed", "tool", t.Name, "path", path)
	return t, nil
}

// InstallTemp writes a source to the temporary slot and loads it without
// touching the index. The slot is overwritten by every call.
func (r *Registry) InstallTemp(ctx context.Context, source string) (*Tool, error) {
	path := filepath.Join(r.dir, TempName+sourceExt)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("write temporary tool: %w", err)
	}
	t, err := Load(ctx, r.host, source)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}

// Remove deletes an installed tool's file and index entry.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tools[name]
	if !ok {
		return &ErrToolNotFound{Name: name}
	}
	if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove tool %s: %w", name, err)
	}
	if err := r.index.Remove(name); err != nil && !errors.Is(err, index.ErrNotFound) {
		return err
	}
	delete(r.tools, name)
	r.logger.Info("tool removed", "tool", name)
	return nil
}

func writeExclusive(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, err = f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
	}
	return err
}
