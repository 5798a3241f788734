package model

// AchievementRuleKind selects the statistic an achievement predicate reads
type AchievementRuleKind string

const (
	RuleDonationCount          AchievementRuleKind = "donation_count"
	RuleStreakDays             AchievementRuleKind = "streak_days"
	RuleTotalPoints            AchievementRuleKind = "total_points"
	RuleItemsDonated           AchievementRuleKind = "items_donated"
	RuleSingleDonationQuantity AchievementRuleKind = "single_donation_quantity"
	RuleSingleDonationPoints   AchievementRuleKind = "single_donation_points"
	RuleMissingItemDonations   AchievementRuleKind = "missing_item_donations"
	RuleItemType               AchievementRuleKind = "item_type"
)

// AchievementRuleKinds lists every supported rule kind
var AchievementRuleKinds = []AchievementRuleKind{
	RuleDonationCount,
	RuleStreakDays,
	RuleTotalPoints,
	RuleItemsDonated,
	RuleSingleDonationQuantity,
	RuleSingleDonationPoints,
	RuleMissingItemDonations,
	RuleItemType,
}

// AchievementRule is a tagged predicate: Kind picks the statistic, the
// predicate holds when it is >= Threshold. RuleItemType additionally
// requires the triggering donation to carry ItemType.
type AchievementRule struct {
	Kind      AchievementRuleKind `json:"kind" yaml:"kind"`
	Threshold int                 `json:"threshold" yaml:"threshold"`
	ItemType  string              `json:"item_type,omitempty" yaml:"item_type,omitempty"`
}

// AchievementDefinition is a static catalog entry
type AchievementDefinition struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Rule        AchievementRule `json:"rule" yaml:"rule"`
	Reward      int             `json:"reward" yaml:"reward"`
}

// DonorSnapshot is the statistics view achievement predicates read. It is
// captured after the donation is applied and before achievement rewards.
type DonorSnapshot struct {
	TotalPoints          int
	DonationCount        int
	ItemsDonated         int
	MissingItemDonations int
	StreakDays           int
	Unlocked             []string
}

// TriggeringDonation is the part of the current donation predicates read
type TriggeringDonation struct {
	ItemType string
	Quantity int
	Points   int
}

// AchievementStatus is a catalog entry with a donor's unlock state
type AchievementStatus struct {
	AchievementDefinition
	Unlocked bool `json:"unlocked"`
}

// AchievementCatalog lists the achievement catalog, optionally from one
// donor's point of view. UserID is empty for the plain catalog.
type AchievementCatalog struct {
	UserID         string              `json:"user_id,omitempty"`
	Achievements   []AchievementStatus `json:"achievements"`
	TotalUnlocked  int                 `json:"total_unlocked"`
	TotalAvailable int                 `json:"total_available"`
}
