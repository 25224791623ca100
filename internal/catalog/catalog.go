// Package catalog holds the immutable set of technology cards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

//go:embed catalog.toml
var defaultCatalog []byte

// ErrUnknownItem is returned when an id does not resolve.
var ErrUnknownItem = errors.New("unknown catalog item")

// Catalog is a read-only, ordered set of items plus their notes.
type Catalog struct {
	items []model.TechnologyItem
	index map[string]int
	notes map[string]model.Note
}

// New builds a catalog. Ids must be unique; dangling alternatives are allowed.
func New(items []model.TechnologyItem, notes map[string]model.Note) (*Catalog, error) {
	c := &Catalog{
		items: make([]model.TechnologyItem, 0, len(items)),
		index: make(map[string]int, len(items)),
		notes: make(map[string]model.Note, len(notes)),
	}
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("item %q has an empty id", item.Name)
		}
		if _, dup := c.index[item.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", item.ID)
		}
		c.index[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	for id, note := range notes {
		c.notes[id] = note
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return decode(defaultCatalog, formatTOML)
}

// MustDefault is Default for callers that treat a broken embed as fatal.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns a copy of all items in catalog order.
func (c *Catalog) Items() []model.TechnologyItem {
	out := make([]model.TechnologyItem, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup resolves an item by id.
func (c *Catalog) Lookup(id string) (model.TechnologyItem, bool) {
	idx, ok := c.index[id]
	if !ok {
		return model.TechnologyItem{}, false
	}
	return c.items[idx], true
}

// Resolve maps ids to items, failing on the first id that does not resolve.
func (c *Catalog) Resolve(ids []string) ([]model.TechnologyItem, error) {
	out := make([]model.TechnologyItem, 0, len(ids))
	for _, id := range ids {
		item, ok := c.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
		}
		out = append(out, item)
	}
	return out, nil
}

// ByClassification returns items with the given classification.
func (c *Catalog) ByClassification(cl model.Classification) []model.TechnologyItem {
	return c.filter(func(item model.TechnologyItem) bool { return item.Classification == cl })
}

// ByPillar returns items tagged with the given pillar.
func (c *Catalog) ByPillar(p model.Pillar) []model.TechnologyItem {
	return c.filter(func(item model.TechnologyItem) bool { return item.Pillar == p })
}

// ByCategory returns items of a category, compared case-insensitively.
func (c *Catalog) ByCategory(category string) []model.TechnologyItem {
	return c.filter(func(item model.TechnologyItem) bool { return strings.EqualFold(item.Category, category) })
}

// Categories returns unique categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, item := range c.items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	return out
}

// Note returns the educational note registered for an item.
func (c *Catalog) Note(id string) (model.Note, bool) {
	n, ok := c.notes[id]
	return n, ok
}

// Notes returns a copy of every registered note.
func (c *Catalog) Notes() map[string]model.Note {
	out := make(map[string]model.Note, len(c.notes))
	for id, n := range c.notes {
		out[id] = n
	}
	return out
}

func (c *Catalog) filter(keep func(model.TechnologyItem) bool) []model.TechnologyItem {
	var out []model.TechnologyItem
	for _, item := range c.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
