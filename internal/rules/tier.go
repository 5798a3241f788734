package rules

import (
	"errors"
	"fmt"
)

// Tier is one row of the threshold table
type Tier struct {
	Name       string  `json:"name" yaml:"name"`
	MinPoints  int     `json:"min_points" yaml:"min_points"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// TierChange is the outcome of re-evaluating a donor's tier
type TierChange struct {
	Old      string
	New      string
	Upgraded bool
}

// TierTable maps cumulative points to a tier label. The table is
// immutable once built, so evaluating the same total always yields the
// same label.
type TierTable struct {
	tiers []Tier
	rank  map[string]int
}

// DefaultTiers is the built-in threshold table. Every multiplier is 1.0.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "bronze", MinPoints: 0, Multiplier: 1.0},
		{Name: "silver", MinPoints: 2000, Multiplier: 1.0},
		{Name: "gold", MinPoints: 5000, Multiplier: 1.0},
		{Name: "platinum", MinPoints: 10000, Multiplier: 1.0},
	}
}

// NewTierTable validates and builds a table. Thresholds must be strictly
// ascending and start at zero.
func NewTierTable(tiers []Tier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, errors.New("tier table is empty")
	}
	if tiers[0].MinPoints != 0 {
		return nil, fmt.Errorf("first tier %q must start at 0 points", tiers[0].Name)
	}
	t := &TierTable{
		tiers: make([]Tier, len(tiers)),
		rank:  make(map[string]int, len(tiers)),
	}
	for i, tier := range tiers {
		if tier.Name == "" {
			return nil, fmt.Errorf("tier %d has no name", i)
		}
		if _, dup := t.rank[tier.Name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", tier.Name)
		}
		if i > 0 && tier.MinPoints <= tiers[i-1].MinPoints {
			return nil, fmt.Errorf("tier %q threshold must exceed %q", tier.Name, tiers[i-1].Name)
		}
		if tier.Multiplier == 0 {
			tier.Multiplier = 1
		}
		if tier.Multiplier < 0 {
			return nil, fmt.Errorf("tier %q multiplier cannot be negative", tier.Name)
		}
		t.tiers[i] = tier
		t.rank[tier.Name] = i
	}
	return t, nil
}

// For returns the highest tier whose threshold does not exceed points
func (t *TierTable) For(points int) Tier {
	current := t.tiers[0]
	for _, tier := range t.tiers[1:] {
		if points < tier.MinPoints {
			break
		}
		current = tier
	}
	return current
}

// Base returns the entry tier
func (t *TierTable) Base() Tier {
	return t.tiers[0]
}

// Multiplier returns the scoring multiplier for a tier label, 1.0 when
// the label is unknown.
func (t *TierTable) Multiplier(name string) float64 {
	if i, ok := t.rank[name]; ok {
		return t.tiers[i].Multiplier
	}
	return 1
}

// Evaluate recomputes the tier for total and compares it with the stored
// label. An empty stored label counts as the entry tier. Upgraded is set
// only when the new tier ranks above the stored one; a label missing from
// the table never yields an upgrade.
func (t *TierTable) Evaluate(stored string, total int) TierChange {
	if stored == "" {
		stored = t.tiers[0].Name
	}
	next := t.For(total).Name
	change := TierChange{Old: stored, New: next}
	if prev, ok := t.rank[stored]; ok {
		change.Upgraded = t.rank[next] > prev
	}
	return change
}

// Tiers returns a copy of the table
func (t *TierTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}
