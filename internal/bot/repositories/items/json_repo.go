package items

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// JSONRepository keeps the catalog as a name-keyed JSON object:
//
//	{"Benchy": {"name": "Benchy", "url": "...", "model_id": "123", "visited": false}}
type JSONRepository struct {
	path string
	log  logging.Logger

	mu    sync.Mutex
	items map[string]Item
}

// OpenJSON loads path if it exists. A file that is not valid JSON is
// logged and the catalog starts empty; it is overwritten on the next Save.
func OpenJSON(path string, log logging.Logger) (*JSONRepository, error) {
	if log == nil {
		log = logging.Nop()
	}
	r := &JSONRepository{path: path, log: log, items: map[string]Item{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var raw map[string]Item
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn(context.Background(), "catalog unreadable, starting empty", "path", path, logging.KeyError, err)
		return r, nil
	}
	for name, it := range raw {
		if it.ModelID == "" {
			it.ModelID = modelIDFromURL(it.URL)
		}
		r.items[name] = it
	}
	return r, nil
}

func (r *JSONRepository) Add(_ context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.Name] = it
	return nil
}

func (r *JSONRepository) MarkVisited(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[name]
	if !ok {
		return false, nil
	}
	it.Visited = true
	r.items[name] = it
	return true, nil
}

func (r *JSONRepository) Get(_ context.Context, name string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[name]
	if !ok {
		return Item{}, fmt.Errorf("item %q: %w", name, common.ErrNotFound)
	}
	return it, nil
}

func (r *JSONRepository) Unvisited(_ context.Context) ([]Item, error) {
	return r.list(func(it Item) bool { return !it.Visited }), nil
}

func (r *JSONRepository) All(_ context.Context) ([]Item, error) {
	return r.list(func(Item) bool { return true }), nil
}

func (r *JSONRepository) Counts(_ context.Context) (Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Counts{Total: len(r.items)}
	for _, it := range r.items {
		if it.Visited {
			c.Visited++
		}
	}
	c.Unvisited = c.Total - c.Visited
	return c, nil
}

// Save writes the catalog with two-space indentation through a temporary
// file in the same directory.
func (r *JSONRepository) Save(_ context.Context) error {
	r.mu.Lock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(r.items)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".catalog-*")
	if err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

func (r *JSONRepository) Close() error { return nil }

func (r *JSONRepository) list(keep func(Item) bool) []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
