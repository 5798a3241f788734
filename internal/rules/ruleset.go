package rules

import (
	"fmt"
	"time"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// Config is the raw rule data, typically loaded from the rules file
type Config struct {
	Tiers                   []Tier
	DefaultBasePoints       int
	DefaultDemandMultiplier float64
	Timezone                string
	Catalog                 []model.ItemCatalogEntry
	Achievements            []model.AchievementDefinition
}

// DefaultConfig returns the built-in rules
func DefaultConfig() Config {
	return Config{
		Tiers:                   DefaultTiers(),
		DefaultBasePoints:       DefaultBasePoints,
		DefaultDemandMultiplier: DefaultDemandMultiplier,
		Timezone:                "UTC",
		Catalog:                 DefaultCatalogEntries(),
		Achievements:            DefaultAchievements(),
	}
}

// RuleSet bundles the validated rule components
type RuleSet struct {
	Catalog      *Catalog
	Tiers        *TierTable
	Achievements *AchievementEngine
	Streaks      *StreakTracker
}

// New validates cfg and builds a RuleSet
func New(cfg Config) (*RuleSet, error) {
	catalog, err := NewCatalog(cfg.Catalog, cfg.DefaultBasePoints, cfg.DefaultDemandMultiplier)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	tiers, err := NewTierTable(cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("tiers: %w", err)
	}
	achievements, err := NewAchievementEngine(cfg.Achievements)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return &RuleSet{
		Catalog:      catalog,
		Tiers:        tiers,
		Achievements: achievements,
		Streaks:      NewStreakTracker(loc),
	}, nil
}

// Default builds the built-in RuleSet
func Default() *RuleSet {
	rs, err := New(DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("built-in rules invalid: %v", err))
	}
	return rs
}
