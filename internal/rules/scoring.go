package rules

import (
	"github.com/shopspring/decimal"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// ScoreInput is everything the scoring rule needs for one donation
type ScoreInput struct {
	Entry          model.ItemCatalogEntry
	Quantity       int
	TierMultiplier float64
	// Missing is true when the item has at least one unfulfilled
	// shortage request at the target location.
	Missing bool
	// MissingBonus is the highest per-unit bonus among those requests.
	MissingBonus int
}

// Score is the point award for one donation
type Score struct {
	Base  int `json:"base_points"`
	Bonus int `json:"bonus_points"`
	Total int `json:"total_points"`
}

// ComputeScore applies base * quantity * demand multiplier * tier
// multiplier, rounded down, plus the missing-item bonus per unit.
// Multipliers are applied in decimal arithmetic.
func ComputeScore(in ScoreInput) Score {
	if in.Quantity <= 0 {
		return Score{}
	}

	tierMultiplier := in.TierMultiplier
	if tierMultiplier <= 0 {
		tierMultiplier = 1
	}

	base := decimal.NewFromInt(int64(in.Entry.BasePoints)).
		Mul(decimal.NewFromInt(int64(in.Quantity))).
		Mul(decimal.NewFromFloat(in.Entry.DemandMultiplier)).
		Mul(decimal.NewFromFloat(tierMultiplier)).
		Floor()

	s := Score{Base: int(base.IntPart())}
	if in.Missing && in.MissingBonus > 0 {
		s.Bonus = in.MissingBonus * in.Quantity
	}
	s.Total = s.Base + s.Bonus
	return s
}

// HighestOpenBonus returns the highest per-unit bonus among unfulfilled
// requests, and whether any unfulfilled request exists.
func HighestOpenBonus(requests []*model.MissingItemRequest) (int, bool) {
	best, found := 0, false
	for _, r := range requests {
		if r == nil || r.Fulfilled {
			continue
		}
		found = true
		if r.BonusPoints > best {
			best = r.BonusPoints
		}
	}
	return best, found
}
