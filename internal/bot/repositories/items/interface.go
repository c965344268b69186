package items

import (
	"context"
	"strings"
)

// DetailURLPrefix is the public page of an item, followed by its id.
const DetailURLPrefix = "https://www.crealitycloud.com/model-detail/"

// Item is one known catalog item, keyed by Name.
type Item struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	ModelID string `json:"model_id"`
	Visited bool   `json:"visited"`
}

// NewItem builds an item and its detail URL.
func NewItem(name, modelID string, visited bool) Item {
	return Item{Name: name, URL: DetailURLPrefix + modelID, ModelID: modelID, Visited: visited}
}

// modelIDFromURL recovers the id of entries written before model_id was
// stored.
func modelIDFromURL(url string) string {
	const marker = "/model-detail/"
	i := strings.LastIndex(url, marker)
	if i < 0 {
		return ""
	}
	return url[i+len(marker):]
}

// Counts summarises the catalog.
type Counts struct {
	Total     int
	Visited   int
	Unvisited int
}

type Repository interface {
	// Add inserts or replaces the item with the same name.
	Add(ctx context.Context, it Item) error
	// MarkVisited flags name as processed. It reports false for unknown names.
	MarkVisited(ctx context.Context, name string) (bool, error)
	// Get returns common.ErrNotFound for unknown names.
	Get(ctx context.Context, name string) (Item, error)
	// Unvisited and All return items sorted by name.
	Unvisited(ctx context.Context) ([]Item, error)
	All(ctx context.Context) ([]Item, error)
	Counts(ctx context.Context) (Counts, error)
	// Save persists pending changes.
	Save(ctx context.Context) error
	Close() error
}
