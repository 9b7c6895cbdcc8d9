// Package index is a small persistent vector index. It maps tool names to
// embedding vectors and answers top-k cosine similarity queries. Entries live
// in a bbolt file next to the tool directory and are mirrored in memory.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	vectorsBucket = []byte("vectors")
	metaBucket    = []byte("meta")
	modelKey      = []byte("embedding_model")
)

// Errors returned by the index.
var (
	ErrNotFound          = errors.New("index: name not found")
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
	ErrEmptyVector       = errors.New("index: empty vector")
)

// Match is a search result.
type Match struct {
	Name  string
	Score float64
}

// Index is safe for concurrent use. Writes go to disk before they become
// visible to Search.
type Index struct {
	db *bolt.DB

	mu      sync.RWMutex
	vectors map[string][]float64
	model   string
}

// Open opens (or creates) the index file at path and loads it.
func Open(path string) (*Index, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}

	ix := &Index{db: db, vectors: make(map[string][]float64)}
	err = db.Update(func(tx *bolt.Tx) error {
		vb, err := tx.CreateBucketIfNotExists(vectorsBucket)
		if err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		ix.model = string(mb.Get(modelKey))
		return vb.ForEach(func(k, v []byte) error {
			var vec []float64
			if err := json.Unmarshal(v, &vec); err != nil {
				return fmt.Errorf("decode vector %q: %w", k, err)
			}
			ix.vectors[string(k)] = vec
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	return ix, nil
}

// Close releases the index file.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Model returns the embedding model the stored vectors were produced with.
func (ix *Index) Model() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.model
}

// Names returns the indexed names in sorted order.
func (ix *Index) Names() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	names := make([]string, 0, len(ix.vectors))
	for name := range ix.vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Add stores or replaces the vector for name.
func (ix *Index) Add(name string, vec []float64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.checkDim(name, vec); err != nil {
		return err
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	err = ix.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(vectorsBucket).Put([]byte(name), raw)
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", name, err)
	}
	ix.vectors[name] = append([]float64(nil), vec...)
	return nil
}

// Remove deletes the entry for name.
func (ix *Index) Remove(name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.vectors[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	err := ix.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(vectorsBucket).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("unindex %s: %w", name, err)
	}
	delete(ix.vectors, name)
	return nil
}

// Reset replaces every entry and the model name in one transaction.
func (ix *Index) Reset(model string, entries map[string][]float64) error {
	dim := -1
	for name, vec := range entries {
		if len(vec) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyVector, name)
		}
		if dim >= 0 && len(vec) != dim {
			return fmt.Errorf("%w: %s has %d, want %d", ErrDimensionMismatch, name, len(vec), dim)
		}
		dim = len(vec)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	err := ix.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(vectorsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		vb, err := tx.CreateBucket(vectorsBucket)
		if err != nil {
			return err
		}
		for name, vec := range entries {
			raw, err := json.Marshal(vec)
			if err != nil {
				return err
			}
			if err := vb.Put([]byte(name), raw); err != nil {
				return err
			}
		}
		return tx.Bucket(metaBucket).Put(modelKey, []byte(model))
	})
	if err != nil {
		return fmt.Errorf("reset index: %w", err)
	}

	ix.vectors = make(map[string][]float64, len(entries))
	for name, vec := range entries {
		ix.vectors[name] = append([]float64(nil), vec...)
	}
	ix.model = model
	return nil
}

// Search returns up to k entries ordered by descending cosine similarity to
// query. Ties are broken by name.
func (ix *Index) Search(query []float64, k int) ([]Match, error) {
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := make([]Match, 0, len(ix.vectors))
	for name, vec := range ix.vectors {
		if len(vec) != len(query) {
			return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), len(vec))
		}
		matches = append(matches, Match{Name: name, Score: Cosine(query, vec)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// checkDim requires vec to match the dimension of the other entries.
// Caller holds ix.mu.
func (ix *Index) checkDim(name string, vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyVector, name)
	}
	for other, v := range ix.vectors {
		if other == name {
			continue
		}
		if len(v) != len(vec) {
			return fmt.Errorf("%w: %s has %d, want %d", ErrDimensionMismatch, name, len(vec), len(v))
		}
		break
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero.
func Cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
