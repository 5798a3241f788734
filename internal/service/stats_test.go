package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/testing/fixtures"
)

// ============================================================================
// List / Leaderboard Tests
// ============================================================================

func TestDonorList(t *testing.T) {
	t.Parallel()
	donors, _, f := newDonorHarness(t)

	f.CreateUser(t, fixtures.WithUserID("u2"))
	f.CreateUser(t, fixtures.WithUserID("u1"), fixtures.Inactive())

	users, err := donors.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.False(t, users[0].Active)
}

func TestDonorLeaderboard_RanksActiveDonorsByPoints(t *testing.T) {
	t.Parallel()
	donors, _, f := newDonorHarness(t)

	f.CreateUser(t, fixtures.WithUserID("ana"), fixtures.WithDisplayName("Ana"), fixtures.WithPoints(300), fixtures.WithStreak(2, "2025-03-01"))
	f.CreateUser(t, fixtures.WithUserID("ben"), fixtures.WithPoints(900), fixtures.WithDonationCount(4))
	f.CreateUser(t, fixtures.WithUserID("cara"), fixtures.WithPoints(300))
	f.CreateUser(t, fixtures.WithUserID("dan"), fixtures.WithPoints(5000), fixtures.Inactive())

	board, err := donors.Leaderboard(context.Background(), model.LeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, model.PeriodAllTime, board.Period)
	require.Len(t, board.Rankings, 3)

	assert.Equal(t, model.DonorRanking{Rank: 1, UserID: "ben", DisplayName: "Donor", TotalPoints: 900, Tier: model.TierBronze, DonationCount: 4}, board.Rankings[0])
	// equal points and equal registration time fall back to id order
	assert.Equal(t, "ana", board.Rankings[1].UserID)
	assert.Equal(t, 2, board.Rankings[1].Rank)
	assert.Equal(t, 2, board.Rankings[1].StreakDays)
	assert.Equal(t, "cara", board.Rankings[2].UserID)
	assert.Equal(t, 3, board.Rankings[2].Rank)

	top, err := donors.Leaderboard(context.Background(), model.LeaderboardQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, top.Rankings, 1)
	assert.Equal(t, "ben", top.Rankings[0].UserID)
}

func TestDonorLeaderboard_Monthly(t *testing.T) {
	t.Parallel()
	donors, _, f := newDonorHarness(t)

	// the harness clock is 2025-03-01; the window starts 2025-01-30
	f.CreateUser(t, fixtures.WithUserID("recent"), fixtures.WithPoints(100), fixtures.WithStreak(1, "2025-02-20"))
	f.CreateUser(t, fixtures.WithUserID("edge"), fixtures.WithPoints(50), fixtures.WithStreak(1, "2025-01-30"))
	f.CreateUser(t, fixtures.WithUserID("stale"), fixtures.WithPoints(9000), fixtures.WithStreak(1, "2024-12-01"))
	f.CreateUser(t, fixtures.WithUserID("never"), fixtures.WithPoints(10))

	board, err := donors.Leaderboard(context.Background(), model.LeaderboardQuery{Period: model.PeriodMonthly})
	require.NoError(t, err)
	require.Len(t, board.Rankings, 2)
	assert.Equal(t, "recent", board.Rankings[0].UserID)
	assert.Equal(t, "edge", board.Rankings[1].UserID)
}

func TestDonorLeaderboard_InvalidQuery(t *testing.T) {
	t.Parallel()
	donors, _, _ := newDonorHarness(t)

	_, err := donors.Leaderboard(context.Background(), model.LeaderboardQuery{Period: "weekly", Limit: model.MaxLeaderboardLimit + 1})

	var pd *model.ProblemDetails
	require.True(t, errors.As(err, &pd))
	fields := map[string]bool{}
	for _, fe := range pd.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["period"])
	assert.True(t, fields["limit"])
}

// ============================================================================
// Achievements Tests
// ============================================================================

func TestDonorAchievements_Catalog(t *testing.T) {
	t.Parallel()
	donors, _, _ := newDonorHarness(t)

	catalog, err := donors.Achievements(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, catalog.UserID)
	assert.Equal(t, 6, catalog.TotalAvailable)
	assert.Zero(t, catalog.TotalUnlocked)
	require.Len(t, catalog.Achievements, 6)
	assert.Equal(t, "first_steps", catalog.Achievements[0].ID)
	assert.Equal(t, 100, catalog.Achievements[0].Reward)
}

func TestDonorAchievements_ForDonor(t *testing.T) {
	t.Parallel()
	donors, donations, f := newDonorHarness(t)
	user := f.CreateUser(t)
	loc := f.CreateLocation(t)

	_, err := donations.ProcessDonation(context.Background(), donate(user.ID, loc.ID, "toys", 12))
	require.NoError(t, err)

	catalog, err := donors.Achievements(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, catalog.UserID)
	assert.Equal(t, 2, catalog.TotalUnlocked)

	unlocked := map[string]bool{}
	for _, a := range catalog.Achievements {
		unlocked[a.ID] = a.Unlocked
	}
	assert.True(t, unlocked["first_steps"])
	assert.True(t, unlocked["generous_giver"])
	assert.False(t, unlocked["streak_master"])

	_, err = donors.Achievements(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// ============================================================================
// Stats Tests
// ============================================================================

func TestDonorStats(t *testing.T) {
	t.Parallel()
	donors, donations, f := newDonorHarness(t)

	ana := f.CreateUser(t)
	ben := f.CreateUser(t)
	f.CreateUser(t, fixtures.Inactive(), fixtures.WithTier(model.TierGold))
	downtown := f.CreateLocation(t)
	uptown := f.CreateLocation(t)
	f.CreateMissingItem(t, downtown, "Blankets")
	f.CreateMissingItem(t, uptown, "Toys", fixtures.WithQuantity(2))
	f.CreateMissingItem(t, uptown, "Hygiene Kits")

	// fills the uptown toys shortage
	_, err := donations.ProcessDonation(context.Background(), donate(ana.ID, uptown.ID, "toys", 2))
	require.NoError(t, err)
	_, err = donations.ProcessDonation(context.Background(), donate(ben.ID, downtown.ID, "canned goods", 4))
	require.NoError(t, err)
	f.CreateDonation(t, ben, downtown, 40, time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC))

	stats, err := donors.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.RegisteredUsers)
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 3, stats.TotalDonations)
	assert.Equal(t, 7, stats.ItemsDonated)
	assert.Equal(t, 2, stats.TotalLocations)
	assert.Equal(t, 2, stats.CriticalNeeds)
	assert.Equal(t, 2, stats.AchievementsUnlocked)
	assert.Equal(t, map[string]int{"bronze": 2, "silver": 0, "gold": 0, "platinum": 0}, stats.TierDistribution)

	audit, err := donors.Audit(context.Background(), ana.ID)
	require.NoError(t, err)
	benAudit, err := donors.Audit(context.Background(), ben.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.LedgerPoints+benAudit.LedgerPoints, stats.TotalPoints)
}

func TestDonorStats_Empty(t *testing.T) {
	t.Parallel()
	donors, _, _ := newDonorHarness(t)

	stats, err := donors.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDonations)
	assert.Zero(t, stats.CriticalNeeds)
	assert.Len(t, stats.TierDistribution, 4)
}
