package model

import "time"

// Donation is one immutable ledger entry. PointsAwarded holds the base
// score (tier multiplier included); BonusPoints holds the missing-item
// bonus. The ledger is the source of truth for leaderboard aggregation.
type Donation struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	LocationID              string    `json:"location_id"`
	ItemType                string    `json:"item_type"`
	Quantity                int       `json:"quantity"`
	PointsAwarded           int       `json:"points_awarded"`
	BonusPoints             int       `json:"bonus_points"`
	MissingItemBonusApplied bool      `json:"missing_item_bonus_applied"`
	CreatedOn               time.Time `json:"created_on"`
}

// TotalPoints returns base plus bonus points
func (d *Donation) TotalPoints() int {
	return d.PointsAwarded + d.BonusPoints
}

// MaxDonationQuantity bounds a single donation
const MaxDonationQuantity = 10000

// DonationRequest is the input to ProcessDonation
type DonationRequest struct {
	UserID     string `json:"user_id"`
	LocationID string `json:"location_id"`
	ItemType   string `json:"item_type"`
	Quantity   int    `json:"quantity"`
}

// Validate checks the donation payload shape. Existence of the user and
// location is checked against the store.
func (r *DonationRequest) Validate() []FieldError {
	var errs []FieldError
	if r.UserID == "" {
		errs = append(errs, FieldError{Field: "user_id", Message: "user_id is required"})
	}
	if r.LocationID == "" {
		errs = append(errs, FieldError{Field: "location_id", Message: "location_id is required"})
	}
	if r.ItemType == "" {
		errs = append(errs, FieldError{Field: "item_type", Message: "item_type is required"})
	}
	if r.Quantity <= 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "quantity must be positive"})
	} else if r.Quantity > MaxDonationQuantity {
		errs = append(errs, FieldError{Field: "quantity", Message: "quantity exceeds maximum"})
	}
	return errs
}

// DonationStage is a state of the donation processing state machine
type DonationStage string

const (
	StageReceived           DonationStage = "received"
	StageValidated          DonationStage = "validated"
	StageScored             DonationStage = "scored"
	StagePersisted          DonationStage = "persisted"
	StageLeaderboardUpdated DonationStage = "leaderboard-updated"
	StageNotified           DonationStage = "notified"
	StageRejected           DonationStage = "rejected"
)

// DonationResult is returned for every committed donation
type DonationResult struct {
	DonationID              string   `json:"donation_id"`
	UserID                  string   `json:"user_id"`
	LocationID              string   `json:"location_id"`
	ItemType                string   `json:"item_type"`
	Quantity                int      `json:"quantity"`
	PointsAwarded           int      `json:"points_awarded"`
	BonusPoints             int      `json:"bonus_points"`
	AchievementPoints       int      `json:"achievement_points"`
	NewTotalPoints          int      `json:"new_total_points"`
	TierUpgraded            bool     `json:"tier_upgraded"`
	OldTier                 *string  `json:"old_tier,omitempty"`
	NewTier                 string   `json:"new_tier"`
	NewStreak               int      `json:"new_streak"`
	StreakExtended          bool     `json:"streak_extended"`
	NewAchievements         []string `json:"new_achievements"`
	MissingItemBonusApplied bool     `json:"missing_item_bonus_applied"`
	LeaderChanged           bool     `json:"leader_changed"`
	NewLeaderUserID         *string  `json:"new_leader_user_id,omitempty"`
	LeaderPoints            int      `json:"leader_points"`

	Stage    DonationStage `json:"stage"`
	Attempts int           `json:"attempts"`
	Message  string        `json:"message,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}
