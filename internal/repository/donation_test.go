package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// mockDB is a function-field database.Database
type mockDB struct {
	queryFunc func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)
	sent      []string
	sentVars  []map[string]interface{}
}

func (m *mockDB) Connect(ctx context.Context) error { return nil }
func (m *mockDB) Close() error                      { return nil }
func (m *mockDB) Ping(ctx context.Context) error    { return nil }

func (m *mockDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	m.sent = append(m.sent, query)
	m.sentVars = append(m.sentVars, vars)
	if m.queryFunc != nil {
		return m.queryFunc(ctx, query, vars)
	}
	return nil, nil
}

func (m *mockDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	results, err := m.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return database.FirstRecord(results)
}

func (m *mockDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := m.Query(ctx, query, vars)
	return err
}

func okResult(records ...interface{}) []interface{} {
	if records == nil {
		records = []interface{}{}
	}
	return []interface{}{map[string]interface{}{"status": "OK", "result": records}}
}

func TestSurrealDonation_LoadUserParsesRecord(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		return okResult(map[string]interface{}{
			"uid":          "u1",
			"display_name": "Ada",
			"total_points": float64(300),
			"tier":         "bronze",
			"achievements": []interface{}{"first_steps"},
			"active":       true,
			"version":      uint64(3),
		}), nil
	}}
	repo := NewDonationRepository(db)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		u, err := tx.LoadUser("u1")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, 300, u.TotalPoints)
		assert.Equal(t, int64(3), u.Version)
		assert.True(t, u.HasAchievement("first_steps"))
		return nil
	}))
	assert.Contains(t, db.sent[0], `type::thing("donor", $id)`)
	assert.Len(t, db.sent, 1, "read-only unit sends no commit batch")
}

func TestSurrealDonation_LoadAbsentReturnsNil(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		return okResult(), nil
	}}
	repo := NewDonationRepository(db)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		l, err := tx.LoadLocation("nowhere")
		assert.NoError(t, err)
		assert.Nil(t, l)
		return nil
	}))
}

func TestSurrealDonation_CommitBatchesGuardedWrites(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	repo := NewDonationRepository(db)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.SaveUser(&model.User{ID: "u1", TotalPoints: 100, Version: 2}))
		require.NoError(t, tx.SaveLocation(&model.StorageLocation{ID: "loc1", Version: 5}))
		return tx.AppendDonation(&model.Donation{ID: "d1", UserID: "u1", LocationID: "loc1", Quantity: 2, PointsAwarded: 100, CreatedOn: at})
	}))

	require.Len(t, db.sent, 1)
	batch := db.sent[0]
	assert.True(t, strings.HasPrefix(batch, "BEGIN TRANSACTION;"))
	assert.Equal(t, 2, strings.Count(batch, `THROW "version_conflict"`))
	assert.Contains(t, batch, `CREATE type::thing("donation"`)

	var expected []interface{}
	for name, v := range db.sentVars[0] {
		if strings.HasSuffix(name, "_expected") {
			expected = append(expected, v)
		}
	}
	assert.ElementsMatch(t, []interface{}{int64(2), int64(5)}, expected)
}

func TestSurrealDonation_CommitConflictSurfaces(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		if strings.HasPrefix(query, "BEGIN") {
			return nil, database.ErrConflict
		}
		return okResult(), nil
	}}
	repo := NewDonationRepository(db)

	err := repo.WithinTx(context.Background(), func(tx DonationTx) error {
		return tx.SaveUser(&model.User{ID: "u1"})
	})
	assert.ErrorIs(t, err, database.ErrConflict)
}

func TestSurrealDonation_AggregateMergesStagedDonations(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		return okResult(
			map[string]interface{}{"user_id": "u1", "points": float64(200), "donations": float64(2), "reached_on": at},
		), nil
	}}
	repo := NewDonationRepository(db)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d9", UserID: "u2", LocationID: "loc1", Quantity: 1, PointsAwarded: 150, BonusPoints: 75, CreatedOn: at.Add(time.Hour)}))
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d10", UserID: "u1", LocationID: "elsewhere", Quantity: 1, PointsAwarded: 999, CreatedOn: at}))

		totals, err := tx.AggregateLocationPoints("loc1")
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, 200, totals[0].Points)
		assert.Equal(t, "u2", totals[1].UserID)
		assert.Equal(t, 225, totals[1].Points)
		return nil
	}))
}

func TestSurrealDonation_ContentRoundTrip(t *testing.T) {
	t.Parallel()

	leader := "u7"
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	l := &model.StorageLocation{ID: "loc1", Name: "Downtown", Latitude: 1.5, Longitude: -2.5, LeaderID: &leader, LeaderPoints: 40, Version: 1, CreatedOn: at, UpdatedOn: at}

	content := locationContent(l)
	assert.Equal(t, int64(2), content["version"])

	parsed := parseLocation(content)
	assert.Equal(t, "u7", parsed.CurrentLeader())
	assert.Equal(t, at, parsed.CreatedOn)
	assert.Equal(t, 1.5, parsed.Latitude)
}

func TestSurrealDonation_ListUsersOverlaysStaged(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		return okResult(
			userContent(&model.User{ID: "u1", DisplayName: "Ada", TotalPoints: 10, Active: true, CreatedOn: at}),
			userContent(&model.User{ID: "u3", DisplayName: "Linus", Active: true, CreatedOn: at}),
		), nil
	}}
	repo := NewDonationRepository(db)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.SaveUser(&model.User{ID: "u1", DisplayName: "Ada", TotalPoints: 60, Active: true}))
		require.NoError(t, tx.SaveUser(&model.User{ID: "u2", DisplayName: "Grace", Active: true}))

		users, err := tx.ListUsers()
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, []string{"u1", "u2", "u3"}, []string{users[0].ID, users[1].ID, users[2].ID})
		assert.Equal(t, 60, users[0].TotalPoints)
		return nil
	}))
	assert.Contains(t, db.sent[0], "FROM donor")
}

func TestSurrealDonation_LedgerSummaryAddsStaged(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		return okResult(
			map[string]interface{}{"donations": float64(2), "points": float64(300), "items": float64(5)},
		), nil
	}}
	repo := NewDonationRepository(db)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		require.NoError(t, tx.AppendDonation(&model.Donation{ID: "d3", UserID: "u1", LocationID: "loc1", Quantity: 2, PointsAwarded: 50, BonusPoints: 25}))

		sum, err := tx.LedgerSummary()
		require.NoError(t, err)
		assert.Equal(t, model.LedgerSummary{Donations: 3, Points: 375, Items: 7}, sum)
		return nil
	}))
	assert.Contains(t, db.sent[0], "GROUP ALL")
}

func TestSurrealDonation_LedgerSummaryEmptyLedger(t *testing.T) {
	t.Parallel()

	repo := NewDonationRepository(&mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
		return okResult(), nil
	}})

	require.NoError(t, repo.WithinTx(context.Background(), func(tx DonationTx) error {
		sum, err := tx.LedgerSummary()
		require.NoError(t, err)
		assert.Zero(t, sum)
		return nil
	}))
}
