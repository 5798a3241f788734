package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// TemplateComposer writes fixed, deterministic messages. It never fails.
type TemplateComposer struct{}

// Compose implements Composer
func (TemplateComposer) Compose(_ context.Context, kind Kind, r *model.DonationResult) (string, error) {
	points := r.PointsAwarded + r.BonusPoints
	item := displayItem(r.ItemType)

	switch kind {
	case KindGymLeader:
		return fmt.Sprintf("👑 You're the new leader of this location with %d points!", r.LeaderPoints), nil
	case KindTierUpgrade:
		return fmt.Sprintf("🌟 Welcome to %s tier! Your %s donation earned %d points.", titleCase(r.NewTier), item, points), nil
	case KindAchievement:
		return fmt.Sprintf("🏆 Achievement unlocked: %s! +%d bonus points.", humanize(r.NewAchievements), r.AchievementPoints), nil
	case KindMissingItem:
		return fmt.Sprintf("🚨 Thank you for filling a shortage! %s earned %d points, including a %d point bonus.", item, points, r.BonusPoints), nil
	case KindStreak:
		return fmt.Sprintf("🔥 %d days in a row! Keep the streak going.", r.NewStreak), nil
	}
	return fmt.Sprintf("🎁 Thanks for donating %d %s! You earned %d points.", r.Quantity, item, points), nil
}

func displayItem(itemType string) string {
	if itemType == "" {
		return "items"
	}
	return itemType
}

func humanize(ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = titleCase(strings.ReplaceAll(id, "_", " "))
	}
	return strings.Join(names, ", ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
