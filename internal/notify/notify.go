// Package notify turns committed donation results into short messages for
// donors. A generative text service is tried first; deterministic
// templates are used when it is unavailable.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// Kind is the notification category chosen for a donation
type Kind string

const (
	KindDonation    Kind = "donation"
	KindMissingItem Kind = "missing_item"
	KindTierUpgrade Kind = "tier_upgrade"
	KindAchievement Kind = "achievement"
	KindStreak      Kind = "streak"
	KindGymLeader   Kind = "gym_leader"
)

// Notable streak lengths get their own message
const StreakMilestone = 3

// ErrEmptyMessage is returned when a composer produced no text
var ErrEmptyMessage = errors.New("notification message is empty")

// Composer writes the message for one donation
type Composer interface {
	Compose(ctx context.Context, kind Kind, result *model.DonationResult) (string, error)
}

// Classify picks the most significant event in a result. Leadership wins
// over tier upgrades, then achievements, shortages and streaks.
func Classify(result *model.DonationResult) Kind {
	switch {
	case result.LeaderChanged && result.NewLeaderUserID != nil && *result.NewLeaderUserID == result.UserID:
		return KindGymLeader
	case result.TierUpgraded:
		return KindTierUpgrade
	case len(result.NewAchievements) > 0:
		return KindAchievement
	case result.MissingItemBonusApplied:
		return KindMissingItem
	case result.StreakExtended && result.NewStreak >= StreakMilestone:
		return KindStreak
	}
	return KindDonation
}

// Chain tries each composer in order and returns the first message
type Chain struct {
	composers []Composer
}

// NewChain creates a chain; nil composers are skipped
func NewChain(composers ...Composer) *Chain {
	c := &Chain{}
	for _, comp := range composers {
		if comp != nil {
			c.composers = append(c.composers, comp)
		}
	}
	return c
}

// NotifyDonation implements the donation service's notifier
func (c *Chain) NotifyDonation(ctx context.Context, result *model.DonationResult) (string, error) {
	kind := Classify(result)
	var errs []error
	for _, comp := range c.composers {
		msg, err := comp.Compose(ctx, kind, result)
		if err == nil {
			msg = strings.TrimSpace(msg)
			if msg != "" {
				return msg, nil
			}
			err = ErrEmptyMessage
		}
		slog.Debug("notification composer failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrEmptyMessage
	}
	return "", errors.Join(errs...)
}
