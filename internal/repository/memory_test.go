package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/model"
)

func seedMemory(t *testing.T) *MemoryDonationRepository {
	t.Helper()
	repo := NewMemoryDonationRepository()
	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.SaveUser(&model.User{ID: "u1", DisplayName: "Ada", Tier: "bronze", Active: true}))
		require.NoError(t, tx.SaveUser(&model.User{ID: "u2", DisplayName: "Grace", Tier: "bronze", Active: true}))
		require.NoError(t, tx.SaveLocation(&model.StorageLocation{ID: "loc1", Name: "Downtown"}))
		require.NoError(t, tx.SaveCatalogEntry(&model.ItemCatalogEntry{ItemType: "Winter Coats", BasePoints: 25, DemandMultiplier: 2}))
		return nil
	})
	require.NoError(t, err)
	return repo
}

// lockEntries counts the record locks currently tracked
func (r *MemoryDonationRepository) lockEntries() int {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	return len(r.locks)
}

func TestMemory_LoadAbsentReturnsNil(t *testing.T) {
	t.Parallel()
	repo := NewMemoryDonationRepository()

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		u, err := tx.LoadUser("nobody")
		require.NoError(t, err)
		assert.Nil(t, u)

		l, err := tx.LoadLocation("nowhere")
		require.NoError(t, err)
		assert.Nil(t, l)

		e, err := tx.LoadCatalogEntry("Unicorns")
		require.NoError(t, err)
		assert.Nil(t, e)
		return nil
	})
	require.NoError(t, err)
}

func TestMemory_RollbackDiscardsStagedWrites(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)
	boom := errors.New("boom")

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		u, _ := tx.LoadUser("u1")
		u.TotalPoints = 500
		require.NoError(t, tx.SaveUser(u))
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d1", UserID: "u1", LocationID: "loc1", Quantity: 1, PointsAwarded: 500}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = repo.WithinTx(context.Background(), func(tx DonationTx) error {
		u, _ := tx.LoadUser("u1")
		assert.Equal(t, 0, u.TotalPoints)
		totals, _ := tx.AggregateLocationPoints("loc1")
		assert.Empty(t, totals)
		return nil
	})
}

func TestMemory_ReadYourWritesAggregate(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d1", UserID: "u1", LocationID: "loc1", Quantity: 1, PointsAwarded: 50, CreatedOn: at}))
		return nil
	})
	require.NoError(t, err)

	err = repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d2", UserID: "u1", LocationID: "loc1", Quantity: 1, PointsAwarded: 30, BonusPoints: 20, CreatedOn: at.Add(time.Hour)}))
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d3", UserID: "u2", LocationID: "loc1", Quantity: 1, PointsAwarded: 10, CreatedOn: at}))

		totals, err := tx.AggregateLocationPoints("loc1")
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, model.DonorTotal{UserID: "u1", Points: 100, Donations: 2, ReachedOn: at.Add(time.Hour)}, totals[0])
		assert.Equal(t, 10, totals[1].Points)

		ds, err := tx.ListUserDonations("u1")
		require.NoError(t, err)
		assert.Len(t, ds, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestMemory_StaleVersionConflicts(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)

	var stale *model.User
	_ = repo.WithinTx(context.Background(), func(tx DonationTx) error {
		stale, _ = tx.LoadUser("u1")
		return nil
	})

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		u, _ := tx.LoadUser("u1")
		u.TotalPoints = 10
		return tx.SaveUser(u)
	}))

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		stale.TotalPoints = 99
		return tx.SaveUser(stale)
	})
	assert.ErrorIs(t, err, database.ErrConflict)
}

func TestMemory_LockWaitTimesOutAsConflict(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)
	repo.SetLockWait(20 * time.Millisecond)

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = repo.WithinTx(context.Background(), func(tx DonationTx) error {
			_, _ = tx.LoadUser("u1")
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		_, err := tx.LoadUser("u1")
		return err
	})
	close(done)
	assert.ErrorIs(t, err, database.ErrConflict)
}

func TestMemory_LockEntriesReleased(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)
	repo.SetLockWait(20 * time.Millisecond)

	// unknown ids from rejected donations
	for _, id := range []string{"ghost-1", "ghost-2", "ghost-3"} {
		err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
			u, err := tx.LoadUser(id)
			require.NoError(t, err)
			require.Nil(t, u)
			return errors.New("user not found")
		})
		require.Error(t, err)
	}
	assert.Zero(t, repo.lockEntries())

	// a waiter that times out drops its reference too
	holding := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = repo.WithinTx(context.Background(), func(tx DonationTx) error {
			_, _ = tx.LoadUser("u1")
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding
	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		_, err := tx.LoadUser("u1")
		return err
	})
	require.ErrorIs(t, err, database.ErrConflict)
	assert.Equal(t, 1, repo.lockEntries())

	close(done)
	<-finished
	assert.Zero(t, repo.lockEntries())
}

func TestMemory_ConcurrentIncrementsNoLostUpdate(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
				u, err := tx.LoadUser("u1")
				if err != nil {
					return err
				}
				u.TotalPoints += 5
				return tx.SaveUser(u)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_ = repo.WithinTx(context.Background(), func(tx DonationTx) error {
		u, _ := tx.LoadUser("u1")
		assert.Equal(t, 100, u.TotalPoints)
		assert.Equal(t, int64(21), u.Version)
		return nil
	})
}

func TestMemory_MissingRequestsFilterAndOverlay(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.SaveMissingRequest(&model.MissingItemRequest{ID: "m1", LocationID: "loc1", ItemType: "Winter Coats", OutstandingQuantity: 2, BonusPoints: 75, CreatedOn: base}))
		require.NoError(t, tx.SaveMissingRequest(&model.MissingItemRequest{ID: "m2", LocationID: "loc1", ItemType: "Blankets", OutstandingQuantity: 2, BonusPoints: 10, CreatedOn: base.Add(time.Hour)}))
		return tx.SaveMissingRequest(&model.MissingItemRequest{ID: "m3", LocationID: "loc2", ItemType: "Winter Coats", OutstandingQuantity: 1, CreatedOn: base})
	}))

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		open, err := tx.ListUnfulfilledMissingRequests("loc1", "winter coats")
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "m1", open[0].ID)

		open[0].Fulfilled = true
		require.NoError(t, tx.SaveMissingRequest(open[0]))

		open, err = tx.ListUnfulfilledMissingRequests("loc1", "")
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "m2", open[0].ID)
		return nil
	}))
}

func TestMemory_ListLocationsIncludesStaged(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.SaveLocation(&model.StorageLocation{ID: "loc0", Name: "Uptown"}))
		ls, err := tx.ListLocations()
		require.NoError(t, err)
		require.Len(t, ls, 2)
		assert.Equal(t, "loc0", ls[0].ID)
		return nil
	}))
}

func TestMemory_ListUsersIncludesStaged(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.SaveUser(&model.User{ID: "u0", DisplayName: "Linus", Active: true}))
		u1, err := tx.LoadUser("u1")
		require.NoError(t, err)
		u1.TotalPoints = 40
		require.NoError(t, tx.SaveUser(u1))

		users, err := tx.ListUsers()
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, []string{"u0", "u1", "u2"}, []string{users[0].ID, users[1].ID, users[2].ID})
		assert.Equal(t, 40, users[1].TotalPoints)
		return nil
	}))
}

func TestMemory_LedgerSummary(t *testing.T) {
	t.Parallel()
	repo := seedMemory(t)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		return tx.AppendDonation(&model.Donation{ID: "d1", UserID: "u1", LocationID: "loc1", Quantity: 2, PointsAwarded: 100})
	}))

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d2", UserID: "u2", LocationID: "loc1", Quantity: 3, PointsAwarded: 60, BonusPoints: 30}))
		sum, err := tx.LedgerSummary()
		require.NoError(t, err)
		assert.Equal(t, model.LedgerSummary{Donations: 2, Points: 190, Items: 5}, sum)
		return errors.New("discard")
	})
	require.Error(t, err)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		sum, err := tx.LedgerSummary()
		require.NoError(t, err)
		assert.Equal(t, model.LedgerSummary{Donations: 1, Points: 100, Items: 2}, sum)
		return nil
	}))
}
