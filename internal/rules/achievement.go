package rules

import (
	"fmt"
	"slices"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// Unlock is the result of one achievement evaluation
type Unlock struct {
	IDs    []string
	Reward int
}

// AchievementEngine evaluates the declarative achievement table
type AchievementEngine struct {
	defs  []model.AchievementDefinition
	index map[string]int
}

// NewAchievementEngine validates the definitions: ids must be unique,
// rule kinds known and rewards non-negative.
func NewAchievementEngine(defs []model.AchievementDefinition) (*AchievementEngine, error) {
	e := &AchievementEngine{
		defs:  slices.Clone(defs),
		index: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("achievement %d has no id", i)
		}
		if _, dup := e.index[d.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement %q", d.ID)
		}
		if !slices.Contains(model.AchievementRuleKinds, d.Rule.Kind) {
			return nil, fmt.Errorf("achievement %q: unknown rule kind %q", d.ID, d.Rule.Kind)
		}
		if d.Rule.Kind == model.RuleItemType && d.Rule.ItemType == "" {
			return nil, fmt.Errorf("achievement %q: item_type rule needs an item type", d.ID)
		}
		if d.Reward < 0 {
			return nil, fmt.Errorf("achievement %q: reward cannot be negative", d.ID)
		}
		e.index[d.ID] = i
	}
	return e, nil
}

// Evaluate walks the table once. Already unlocked ids are skipped; the
// snapshot must be captured before any reward from this call is applied,
// so a reward can never unlock another achievement in the same donation.
func (e *AchievementEngine) Evaluate(snap model.DonorSnapshot, trigger model.TriggeringDonation) Unlock {
	var u Unlock
	for _, d := range e.defs {
		if slices.Contains(snap.Unlocked, d.ID) {
			continue
		}
		if Matches(d.Rule, snap, trigger) {
			u.IDs = append(u.IDs, d.ID)
			u.Reward += d.Reward
		}
	}
	return u
}

// Definition returns the definition for id
func (e *AchievementEngine) Definition(id string) (model.AchievementDefinition, bool) {
	i, ok := e.index[id]
	if !ok {
		return model.AchievementDefinition{}, false
	}
	return e.defs[i], true
}

// RewardFor sums the rewards of the given unlocked ids. Ids no longer in
// the table contribute nothing.
func (e *AchievementEngine) RewardFor(ids []string) int {
	total := 0
	for _, id := range ids {
		if d, ok := e.Definition(id); ok {
			total += d.Reward
		}
	}
	return total
}

// Definitions returns a copy of the table
func (e *AchievementEngine) Definitions() []model.AchievementDefinition {
	return slices.Clone(e.defs)
}

// Matches evaluates a single rule
func Matches(rule model.AchievementRule, snap model.DonorSnapshot, trigger model.TriggeringDonation) bool {
	switch rule.Kind {
	case model.RuleDonationCount:
		return snap.DonationCount >= rule.Threshold
	case model.RuleStreakDays:
		return snap.StreakDays >= rule.Threshold
	case model.RuleTotalPoints:
		return snap.TotalPoints >= rule.Threshold
	case model.RuleItemsDonated:
		return snap.ItemsDonated >= rule.Threshold
	case model.RuleSingleDonationQuantity:
		return trigger.Quantity >= rule.Threshold
	case model.RuleSingleDonationPoints:
		return trigger.Points >= rule.Threshold
	case model.RuleMissingItemDonations:
		return snap.MissingItemDonations >= rule.Threshold
	case model.RuleItemType:
		return model.ItemKey(trigger.ItemType) == model.ItemKey(rule.ItemType) && trigger.Quantity >= rule.Threshold
	}
	return false
}

// DefaultAchievements is the built-in achievement table
func DefaultAchievements() []model.AchievementDefinition {
	return []model.AchievementDefinition{
		{
			ID: "first_steps", Name: "First Steps", Description: "Make your first donation",
			Rule:   model.AchievementRule{Kind: model.RuleDonationCount, Threshold: 1},
			Reward: 100,
		},
		{
			ID: "generous_giver", Name: "Generous Giver", Description: "Donate 10 or more items at once",
			Rule:   model.AchievementRule{Kind: model.RuleSingleDonationQuantity, Threshold: 10},
			Reward: 500,
		},
		{
			ID: "champion_donor", Name: "Champion Donor", Description: "Donate 100 items in total",
			Rule:   model.AchievementRule{Kind: model.RuleItemsDonated, Threshold: 100},
			Reward: 1000,
		},
		{
			ID: "consistent_supporter", Name: "Consistent Supporter", Description: "Make 10 donations",
			Rule:   model.AchievementRule{Kind: model.RuleDonationCount, Threshold: 10},
			Reward: 750,
		},
		{
			ID: "streak_master", Name: "Streak Master", Description: "Donate 7 days in a row",
			Rule:   model.AchievementRule{Kind: model.RuleStreakDays, Threshold: 7},
			Reward: 1500,
		},
		{
			ID: "shortage_hero", Name: "Shortage Hero", Description: "Fill 5 shortage requests",
			Rule:   model.AchievementRule{Kind: model.RuleMissingItemDonations, Threshold: 5},
			Reward: 750,
		},
	}
}
