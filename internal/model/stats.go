package model

// Leaderboard periods
const (
	PeriodAllTime = "all_time"
	PeriodMonthly = "monthly"
)

// Donor leaderboard limits
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// MonthlyWindowDays is how far back PeriodMonthly looks for activity
const MonthlyWindowDays = 30

// LeaderboardQuery selects rows of the donor leaderboard
type LeaderboardQuery struct {
	Period string
	Limit  int
}

// Validate checks the query after defaults are filled in
func (q *LeaderboardQuery) Validate() []FieldError {
	var errs []FieldError
	if q.Period != PeriodAllTime && q.Period != PeriodMonthly {
		errs = append(errs, FieldError{Field: "period", Message: "period must be all_time or monthly"})
	}
	if q.Limit < 1 || q.Limit > MaxLeaderboardLimit {
		errs = append(errs, FieldError{Field: "limit", Message: "limit out of range"})
	}
	return errs
}

// DonorRanking is one row of the donor leaderboard
type DonorRanking struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	TotalPoints   int    `json:"total_points"`
	Tier          string `json:"tier"`
	StreakDays    int    `json:"streak_days"`
	DonationCount int    `json:"donation_count"`
	ItemsDonated  int    `json:"items_donated"`
}

// DonorLeaderboard is the ranked donor list for a period
type DonorLeaderboard struct {
	Period   string         `json:"period"`
	Rankings []DonorRanking `json:"rankings"`
}

// LedgerSummary aggregates the whole donation ledger
type LedgerSummary struct {
	Donations int `json:"donations"`
	Points    int `json:"points"` // points_awarded + bonus_points
	Items     int `json:"items"`
}

// PlatformStats summarises donors, the ledger and open shortages
type PlatformStats struct {
	RegisteredUsers      int            `json:"registered_users"`
	ActiveUsers          int            `json:"active_users"`
	TotalDonations       int            `json:"total_donations"`
	TotalPoints          int            `json:"total_points"`
	ItemsDonated         int            `json:"items_donated"`
	TotalLocations       int            `json:"total_locations"`
	CriticalNeeds        int            `json:"critical_needs"`
	AchievementsUnlocked int            `json:"achievements_unlocked"`
	TierDistribution     map[string]int `json:"tier_distribution"`
}
