package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/rules"
)

// RulesFile is the YAML rules document loaded from RULES_PATH
type RulesFile struct {
	Tiers                   []rules.Tier                  `yaml:"tiers"`
	DefaultBasePoints       int                           `yaml:"default_base_points"`
	DefaultDemandMultiplier float64                       `yaml:"default_demand_multiplier"`
	Timezone                string                        `yaml:"timezone"`
	Catalog                 []CatalogItem                 `yaml:"catalog"`
	Achievements            []model.AchievementDefinition `yaml:"achievements"`
	Locations               []SeedLocation                `yaml:"locations,omitempty"`
}

// CatalogItem is one item catalog row in the rules file
type CatalogItem struct {
	ItemType         string  `yaml:"item_type"`
	Category         string  `yaml:"category,omitempty"`
	BasePoints       int     `yaml:"base_points"`
	DemandMultiplier float64 `yaml:"demand_multiplier"`
	Description      string  `yaml:"description,omitempty"`
}

// SeedLocation is a storage location created by cmd/seed
type SeedLocation struct {
	Name         string        `yaml:"name"`
	Address      string        `yaml:"address,omitempty"`
	Latitude     float64       `yaml:"latitude"`
	Longitude    float64       `yaml:"longitude"`
	MissingItems []SeedMissing `yaml:"missing_items,omitempty"`
}

// SeedMissing is a shortage opened at a seeded location
type SeedMissing struct {
	ItemType    string `yaml:"item_type"`
	Quantity    int    `yaml:"quantity"`
	BonusPoints int    `yaml:"bonus_points"`
	Urgency     int    `yaml:"urgency,omitempty"`
}

// DefaultRulesFile returns the built-in rules with no seed locations
func DefaultRulesFile() *RulesFile {
	def := rules.DefaultConfig()
	f := &RulesFile{
		Tiers:                   def.Tiers,
		DefaultBasePoints:       def.DefaultBasePoints,
		DefaultDemandMultiplier: def.DefaultDemandMultiplier,
		Timezone:                def.Timezone,
		Achievements:            def.Achievements,
	}
	for _, e := range def.Catalog {
		f.Catalog = append(f.Catalog, CatalogItem(e))
	}
	return f
}

// LoadRules reads the rules file at path. An empty path yields the
// built-in rules. Keys absent from the file keep their built-in values.
func LoadRules(path string) (*RulesFile, error) {
	if path == "" {
		return DefaultRulesFile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	f, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return f, nil
}

// ParseRules decodes a YAML rules document over the built-in defaults
// and validates the result.
func ParseRules(data []byte) (*RulesFile, error) {
	f := DefaultRulesFile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the rules file, reporting every problem found
func (f *RulesFile) Validate() error {
	var errs []error

	if len(f.Tiers) == 0 {
		errs = append(errs, errors.New("tiers: at least one tier is required"))
	} else if f.Tiers[0].MinPoints != 0 {
		errs = append(errs, fmt.Errorf("tiers: first tier %q must start at 0 points", f.Tiers[0].Name))
	}
	seenTier := make(map[string]bool, len(f.Tiers))
	for i, t := range f.Tiers {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("tiers[%d]: name is required", i))
		}
		if seenTier[t.Name] {
			errs = append(errs, fmt.Errorf("tiers[%d]: duplicate tier %q", i, t.Name))
		}
		seenTier[t.Name] = true
		if i > 0 && t.MinPoints <= f.Tiers[i-1].MinPoints {
			errs = append(errs, fmt.Errorf("tiers[%d]: min_points must ascend strictly", i))
		}
		if t.Multiplier < 0 {
			errs = append(errs, fmt.Errorf("tiers[%d]: multiplier cannot be negative", i))
		}
	}

	if f.DefaultDemandMultiplier <= 0 {
		errs = append(errs, errors.New("default_demand_multiplier must be positive"))
	}

	seenAch := make(map[string]bool, len(f.Achievements))
	for i, a := range f.Achievements {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("achievements[%d]: id is required", i))
		}
		if seenAch[a.ID] {
			errs = append(errs, fmt.Errorf("achievements[%d]: duplicate id %q", i, a.ID))
		}
		seenAch[a.ID] = true
		if !slices.Contains(model.AchievementRuleKinds, a.Rule.Kind) {
			errs = append(errs, fmt.Errorf("achievements[%d]: unknown rule kind %q", i, a.Rule.Kind))
		}
		if a.Reward < 0 {
			errs = append(errs, fmt.Errorf("achievements[%d]: reward cannot be negative", i))
		}
	}

	for i, loc := range f.Locations {
		req := model.ProvisionLocationRequest{Name: loc.Name, Latitude: loc.Latitude, Longitude: loc.Longitude}
		for _, fe := range req.Validate() {
			errs = append(errs, fmt.Errorf("locations[%d]: %s", i, fe.Message))
		}
		for j, m := range loc.MissingItems {
			for _, fe := range m.Request().Validate() {
				errs = append(errs, fmt.Errorf("locations[%d].missing_items[%d]: %s", i, j, fe.Message))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	// catalog and timezone checks live in the rules package
	if _, err := rules.New(f.RulesConfig()); err != nil {
		return err
	}
	return nil
}

// RulesConfig converts the file into rule component input
func (f *RulesFile) RulesConfig() rules.Config {
	return rules.Config{
		Tiers:                   slices.Clone(f.Tiers),
		DefaultBasePoints:       f.DefaultBasePoints,
		DefaultDemandMultiplier: f.DefaultDemandMultiplier,
		Timezone:                f.Timezone,
		Catalog:                 f.CatalogEntries(),
		Achievements:            slices.Clone(f.Achievements),
	}
}

// Build validates the file and returns the rule set
func (f *RulesFile) Build() (*rules.RuleSet, error) {
	return rules.New(f.RulesConfig())
}

// CatalogEntries returns the catalog as model entries
func (f *RulesFile) CatalogEntries() []model.ItemCatalogEntry {
	out := make([]model.ItemCatalogEntry, 0, len(f.Catalog))
	for _, c := range f.Catalog {
		out = append(out, model.ItemCatalogEntry(c))
	}
	return out
}

// Request converts the seed row into a service request
func (m SeedMissing) Request() *model.CreateMissingItemRequest {
	return &model.CreateMissingItemRequest{
		ItemType:    m.ItemType,
		Quantity:    m.Quantity,
		BonusPoints: m.BonusPoints,
		Urgency:     m.Urgency,
	}
}

// Request converts the seed row into a service request
func (l SeedLocation) Request() *model.ProvisionLocationRequest {
	return &model.ProvisionLocationRequest{
		Name:      l.Name,
		Address:   l.Address,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}
