package service

import (
	"context"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
)

// Stats summarises donors, the ledger and open shortages in one read-only
// unit of work. Ledger totals come from the donation ledger, not from the
// cached donor totals, so achievement rewards are not included.
func (s *DonorService) Stats(ctx context.Context) (*model.PlatformStats, error) {
	stats := &model.PlatformStats{TierDistribution: make(map[string]int)}
	for _, tier := range s.rules.Tiers.Tiers() {
		stats.TierDistribution[tier.Name] = 0
	}

	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		stats.RegisteredUsers = len(users)
		for _, u := range users {
			if !u.Active {
				continue
			}
			stats.ActiveUsers++
			stats.TierDistribution[u.Tier]++
			stats.AchievementsUnlocked += len(u.Achievements)
		}

		ledger, err := tx.LedgerSummary()
		if err != nil {
			return err
		}
		stats.TotalDonations = ledger.Donations
		stats.TotalPoints = ledger.Points
		stats.ItemsDonated = ledger.Items

		locations, err := tx.ListLocations()
		if err != nil {
			return err
		}
		stats.TotalLocations = len(locations)
		for _, l := range locations {
			open, err := tx.ListUnfulfilledMissingRequests(l.ID, "")
			if err != nil {
				return err
			}
			stats.CriticalNeeds += len(open)
		}
		return nil
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return stats, nil
}
