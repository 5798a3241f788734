package model

import (
	"slices"
	"time"
)

// Tier labels used by the built-in tier table
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// User is a registered donor together with the progression state derived
// from their donations. Tier is a cached label; it is always recomputable
// from TotalPoints.
type User struct {
	ID                   string    `json:"id"`
	DisplayName          string    `json:"display_name"`
	TotalPoints          int       `json:"total_points"`
	Tier                 string    `json:"tier"`
	DonationCount        int       `json:"donation_count"`
	ItemsDonated         int       `json:"items_donated"`
	MissingItemDonations int       `json:"missing_item_donations"`
	StreakDays           int       `json:"streak_days"`
	LastActiveOn         string    `json:"last_active_on,omitempty"` // "2006-01-02"
	Achievements         []string  `json:"achievements"`
	Active               bool      `json:"active"`
	Version              int64     `json:"-"`
	CreatedOn            time.Time `json:"created_on"`
	UpdatedOn            time.Time `json:"updated_on"`
}

// HasAchievement reports whether the achievement id is already unlocked
func (u *User) HasAchievement(id string) bool {
	return slices.Contains(u.Achievements, id)
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Achievements = slices.Clone(u.Achievements)
	return &c
}

// RegisterUserRequest is the payload for donor registration
type RegisterUserRequest struct {
	DisplayName string `json:"display_name"`
}

// MaxDisplayNameLength bounds donor display names
const MaxDisplayNameLength = 80

// Validate checks the registration payload
func (r *RegisterUserRequest) Validate() []FieldError {
	var errs []FieldError
	if r.DisplayName == "" {
		errs = append(errs, FieldError{Field: "display_name", Message: "display_name is required"})
	} else if len(r.DisplayName) > MaxDisplayNameLength {
		errs = append(errs, FieldError{Field: "display_name", Message: "display_name is too long"})
	}
	return errs
}

// LedgerAudit compares a donor's stored total with the total implied by
// the donation ledger and unlocked achievement rewards.
type LedgerAudit struct {
	UserID             string `json:"user_id"`
	StoredTotal        int    `json:"stored_total"`
	LedgerPoints       int    `json:"ledger_points"`
	AchievementRewards int    `json:"achievement_rewards"`
	ExpectedTotal      int    `json:"expected_total"`
	StoredTier         string `json:"stored_tier"`
	ExpectedTier       string `json:"expected_tier"`
	Consistent         bool   `json:"consistent"`
}
