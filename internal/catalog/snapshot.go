package catalog

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/holos-run/gamescout/internal/igdb"
)

// DefaultSearchLimit is used when a search does not specify a positive limit.
const DefaultSearchLimit = 20

var emptySnapshot = Snapshot{}

// Snapshot is an immutable view of a whole collection, sorted by name.
type Snapshot struct {
	FetchedAt time.Time

	items []igdb.CatalogItem
	// folded holds case-folded names parallel to items.
	folded []string
}

// NewSnapshot returns a snapshot holding a copy of items in the given order.
func NewSnapshot(items []igdb.CatalogItem, fetchedAt time.Time) *Snapshot {
	return newSnapshot(slices.Clone(items), fetchedAt)
}

// newSnapshot takes ownership of items.
func newSnapshot(items []igdb.CatalogItem, fetchedAt time.Time) *Snapshot {
	fold := cases.Fold()
	folded := make([]string, len(items))
	for i, item := range items {
		folded[i] = fold.String(item.Name)
	}
	return &Snapshot{
		FetchedAt: fetchedAt,
		items:     items,
		folded:    folded,
	}
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the snapshot's items. The result is never nil.
func (s *Snapshot) Items() []igdb.CatalogItem {
	if s.Len() == 0 {
		return []igdb.CatalogItem{}
	}
	return slices.Clone(s.items)
}

// Search returns the items whose name contains query, ignoring case, in
// snapshot order and truncated to limit.
func (s *Snapshot) Search(query string, limit int) []igdb.CatalogItem {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	fold := cases.Fold()
	needle := fold.String(query)

	var out []igdb.CatalogItem
	for i, item := range s.items {
		var name string
		if i < len(s.folded) {
			name = s.folded[i]
		} else {
			name = fold.String(item.Name)
		}
		if !strings.Contains(name, needle) {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	if out == nil {
		out = []igdb.CatalogItem{}
	}
	return out
}

// Search returns matching items from the current snapshot. Like GetAll it may
// trigger or await a refresh first.
func (c *Cache) Search(ctx context.Context, query string, limit int) ([]igdb.CatalogItem, error) {
	s, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.Search(query, limit), nil
}
