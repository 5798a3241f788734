package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
	"github.com/kashyap0729/good-will-hunting/internal/testing/fixtures"
)

func newLeaderboardHarness(t *testing.T) (*LeaderboardService, *fixtures.Factory) {
	t.Helper()
	store := repository.NewMemoryDonationRepository()
	clock := newTestClock()
	return NewLeaderboardService(LeaderboardServiceConfig{Store: store, Clock: clock.Now}), fixtures.New(store)
}

func TestLeaderboardRecompute_RepairsStaleLeader(t *testing.T) {
	t.Parallel()
	svc, f := newLeaderboardHarness(t)
	alice := f.CreateUser(t, fixtures.WithUserID("alice"))
	bob := f.CreateUser(t, fixtures.WithUserID("bob"))
	loc := f.CreateLocation(t, func(l *model.StorageLocation) {
		id := "alice"
		l.LeaderID = &id
		l.LeaderPoints = 10
	})
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.CreateDonation(t, alice, loc, 30, base)
	f.CreateDonation(t, bob, loc, 40, base.Add(time.Hour))

	change, err := svc.Recompute(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.True(t, change.Changed)
	require.NotNil(t, change.PreviousLeaderID)
	assert.Equal(t, "alice", *change.PreviousLeaderID)
	assert.Equal(t, "bob", *change.LeaderID)
	assert.Equal(t, 40, change.LeaderPoints)

	again, err := svc.Recompute(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed, "recomputing an up-to-date leader is a no-op")

	stored := f.LoadLocation(t, loc.ID)
	assert.Equal(t, "bob", stored.CurrentLeader())
	assert.Equal(t, 40, stored.LeaderPoints)
}

func TestLeaderboardRecompute_ClearsLeaderWithoutDonations(t *testing.T) {
	t.Parallel()
	svc, f := newLeaderboardHarness(t)
	loc := f.CreateLocation(t, func(l *model.StorageLocation) {
		id := "ghost"
		l.LeaderID = &id
		l.LeaderPoints = 99
	})

	change, err := svc.Recompute(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Nil(t, change.LeaderID)

	stored := f.LoadLocation(t, loc.ID)
	assert.Nil(t, stored.LeaderID)
	assert.Equal(t, 0, stored.LeaderPoints)
}

func TestLeaderboardRecompute_UnknownLocation(t *testing.T) {
	t.Parallel()
	svc, _ := newLeaderboardHarness(t)

	_, err := svc.Recompute(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestLeaderboardRecompute_TieGoesToFirstToReach(t *testing.T) {
	t.Parallel()
	svc, f := newLeaderboardHarness(t)
	early := f.CreateUser(t, fixtures.WithUserID("zed"))
	late := f.CreateUser(t, fixtures.WithUserID("amy"))
	loc := f.CreateLocation(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.CreateDonation(t, early, loc, 20, base)
	f.CreateDonation(t, early, loc, 30, base.Add(time.Minute))
	f.CreateDonation(t, late, loc, 50, base.Add(2*time.Minute))

	change, err := svc.Recompute(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "zed", *change.LeaderID)
	assert.Equal(t, 50, change.LeaderPoints)
}

func TestLeaderboardRecomputeAll(t *testing.T) {
	t.Parallel()
	svc, f := newLeaderboardHarness(t)
	user := f.CreateUser(t)
	first := f.CreateLocation(t)
	second := f.CreateLocation(t)
	empty := f.CreateLocation(t)
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.CreateDonation(t, user, first, 10, at)
	f.CreateDonation(t, user, second, 25, at)

	changes, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 3)

	byLocation := make(map[string]*model.LeaderChange)
	for _, c := range changes {
		byLocation[c.LocationID] = c
	}
	assert.True(t, byLocation[first.ID].Changed)
	assert.Equal(t, 10, byLocation[first.ID].LeaderPoints)
	assert.Equal(t, 25, byLocation[second.ID].LeaderPoints)
	assert.False(t, byLocation[empty.ID].Changed)
	assert.Nil(t, byLocation[empty.ID].LeaderID)
}

func TestLeaderboardStandings(t *testing.T) {
	t.Parallel()
	svc, f := newLeaderboardHarness(t)
	a := f.CreateUser(t, fixtures.WithUserID("a"))
	b := f.CreateUser(t, fixtures.WithUserID("b"))
	c := f.CreateUser(t, fixtures.WithUserID("c"))
	loc := f.CreateLocation(t, func(l *model.StorageLocation) { l.Name = "Downtown" })
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.CreateDonation(t, a, loc, 10, at)
	f.CreateDonation(t, b, loc, 70, at)
	f.CreateDonation(t, c, loc, 40, at)
	f.CreateDonation(t, a, loc, 30, at.Add(time.Hour))

	_, err := svc.Recompute(context.Background(), loc.ID)
	require.NoError(t, err)

	board, err := svc.Standings(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Downtown", board.LocationName)
	require.Len(t, board.Standings, 3)

	assert.Equal(t, "b", board.Standings[0].UserID)
	assert.True(t, board.Standings[0].IsLeader)
	assert.Equal(t, 1, board.Standings[0].Rank)

	// a and c both hold 40 but a reached it later
	assert.Equal(t, "c", board.Standings[1].UserID)
	assert.Equal(t, "a", board.Standings[2].UserID)
	assert.Equal(t, 2, board.Standings[2].Donations)
	assert.Equal(t, 3, board.Standings[2].Rank)

	require.NotNil(t, board.LeaderID)
	assert.Equal(t, "b", *board.LeaderID)
}

func TestLeaderboardStandings_UnknownLocation(t *testing.T) {
	t.Parallel()
	svc, _ := newLeaderboardHarness(t)

	_, err := svc.Standings(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}
