package rules

import (
	"fmt"
	"sort"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// Defaults applied when an item type has no catalog entry
const (
	DefaultBasePoints       = 10
	DefaultDemandMultiplier = 1.0
)

// Catalog is the static item type lookup. Unknown item types resolve to a
// fallback entry built from the configured defaults.
type Catalog struct {
	entries           map[string]model.ItemCatalogEntry
	defaultBase       int
	defaultMultiplier float64
}

// NewCatalog builds a catalog. Item type keys are matched case-insensitively.
func NewCatalog(entries []model.ItemCatalogEntry, defaultBase int, defaultMultiplier float64) (*Catalog, error) {
	if defaultMultiplier <= 0 {
		return nil, fmt.Errorf("default demand multiplier must be positive, got %v", defaultMultiplier)
	}
	c := &Catalog{
		entries:           make(map[string]model.ItemCatalogEntry, len(entries)),
		defaultBase:       defaultBase,
		defaultMultiplier: defaultMultiplier,
	}
	for _, e := range entries {
		if e.ItemType == "" {
			return nil, fmt.Errorf("catalog entry with empty item type")
		}
		if e.BasePoints < 0 || e.DemandMultiplier <= 0 {
			return nil, fmt.Errorf("catalog entry %q: base points must be >= 0 and multiplier > 0", e.ItemType)
		}
		key := model.ItemKey(e.ItemType)
		if _, dup := c.entries[key]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.ItemType)
		}
		c.entries[key] = e
	}
	return c, nil
}

// Lookup returns the entry for itemType. The second result is false when
// the returned entry is the fallback.
func (c *Catalog) Lookup(itemType string) (model.ItemCatalogEntry, bool) {
	if e, ok := c.entries[model.ItemKey(itemType)]; ok {
		return e, true
	}
	return c.Fallback(itemType), false
}

// Resolve prefers a stored entry and otherwise falls back to Lookup
func (c *Catalog) Resolve(itemType string, stored *model.ItemCatalogEntry) (model.ItemCatalogEntry, bool) {
	if stored != nil {
		return *stored, true
	}
	return c.Lookup(itemType)
}

// Fallback builds the default entry for an unknown item type
func (c *Catalog) Fallback(itemType string) model.ItemCatalogEntry {
	return model.ItemCatalogEntry{
		ItemType:         itemType,
		BasePoints:       c.defaultBase,
		DemandMultiplier: c.defaultMultiplier,
	}
}

// HasSafeDefault reports whether unknown items can be scored at all
func (c *Catalog) HasSafeDefault() bool {
	return c.defaultBase > 0
}

// Entries returns the catalog sorted by item type
func (c *Catalog) Entries() []model.ItemCatalogEntry {
	out := make([]model.ItemCatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemType < out[j].ItemType })
	return out
}

// DefaultCatalogEntries is the built-in catalog
func DefaultCatalogEntries() []model.ItemCatalogEntry {
	return []model.ItemCatalogEntry{
		{ItemType: "Winter Coats", Category: "clothing", BasePoints: 25, DemandMultiplier: 2.0},
		{ItemType: "Canned Goods", Category: "food", BasePoints: 10, DemandMultiplier: 1.5},
		{ItemType: "Children's Books", Category: "education", BasePoints: 15, DemandMultiplier: 1.8},
		{ItemType: "Blankets", Category: "household", BasePoints: 20, DemandMultiplier: 2.2},
		{ItemType: "Toys", Category: "children", BasePoints: 12, DemandMultiplier: 1.3},
		{ItemType: "Baby Formula", Category: "food", BasePoints: 30, DemandMultiplier: 3.0},
		{ItemType: "Hygiene Kits", Category: "health", BasePoints: 18, DemandMultiplier: 1.9},
		{ItemType: "School Supplies", Category: "education", BasePoints: 14, DemandMultiplier: 1.6},
		{ItemType: "Warm Socks", Category: "clothing", BasePoints: 8, DemandMultiplier: 1.4},
		{ItemType: "First Aid Supplies", Category: "health", BasePoints: 25, DemandMultiplier: 2.5},
	}
}
