package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/service"
	"github.com/kashyap0729/good-will-hunting/internal/testing/helpers"
)

// ============================================================================
// Mock DonorManager
// ============================================================================

type mockDonorManager struct {
	registerFunc   func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
	getFunc        func(ctx context.Context, userID string) (*model.User, error)
	deactivateFunc func(ctx context.Context, userID string) (*model.User, error)
	donationsFunc  func(ctx context.Context, userID string) ([]*model.Donation, error)
	auditFunc      func(ctx context.Context, userID string) (*model.LedgerAudit, error)
	listFunc       func(ctx context.Context) ([]*model.User, error)
	boardFunc      func(ctx context.Context, q model.LeaderboardQuery) (*model.DonorLeaderboard, error)
	catalogFunc    func(ctx context.Context, userID string) (*model.AchievementCatalog, error)
	statsFunc      func(ctx context.Context) (*model.PlatformStats, error)
}

func (m *mockDonorManager) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockDonorManager) Get(ctx context.Context, userID string) (*model.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockDonorManager) Deactivate(ctx context.Context, userID string) (*model.User, error) {
	if m.deactivateFunc != nil {
		return m.deactivateFunc(ctx, userID)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockDonorManager) Donations(ctx context.Context, userID string) ([]*model.Donation, error) {
	if m.donationsFunc != nil {
		return m.donationsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockDonorManager) Audit(ctx context.Context, userID string) (*model.LedgerAudit, error) {
	if m.auditFunc != nil {
		return m.auditFunc(ctx, userID)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockDonorManager) List(ctx context.Context) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockDonorManager) Leaderboard(ctx context.Context, q model.LeaderboardQuery) (*model.DonorLeaderboard, error) {
	if m.boardFunc != nil {
		return m.boardFunc(ctx, q)
	}
	return &model.DonorLeaderboard{Period: model.PeriodAllTime}, nil
}

func (m *mockDonorManager) Achievements(ctx context.Context, userID string) (*model.AchievementCatalog, error) {
	if m.catalogFunc != nil {
		return m.catalogFunc(ctx, userID)
	}
	return &model.AchievementCatalog{}, nil
}

func (m *mockDonorManager) Stats(ctx context.Context) (*model.PlatformStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return &model.PlatformStats{}, nil
}

// ============================================================================
// Tests
// ============================================================================

func TestDonorHandler_Register(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		registerFunc: func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
			return &model.User{ID: "user-1", DisplayName: req.DisplayName, Tier: model.TierBronze, Active: true}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Register(rr, helpers.NewRequest(t, http.MethodPost, "/v1/users").
		WithBody(model.RegisterUserRequest{DisplayName: "Ana"}).
		Build())

	helpers.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, "/v1/users/user-1", rr.Header().Get("Location"))

	var user model.User
	helpers.DecodeData(t, rr, &user)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Equal(t, model.TierBronze, user.Tier)
}

func TestDonorHandler_Register_UnknownField(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{})
	rr := httptest.NewRecorder()
	h.Register(rr, helpers.NewRequest(t, http.MethodPost, "/v1/users").
		WithBody(map[string]any{"display_name": "Ana", "points": 9000}).
		Build())

	helpers.AssertProblemDetails(t, rr, http.StatusBadRequest, 0)
}

func TestDonorHandler_Register_ValidationError(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		registerFunc: func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
			return nil, model.NewValidationError(req.Validate())
		},
	})
	rr := httptest.NewRecorder()
	h.Register(rr, helpers.NewRequest(t, http.MethodPost, "/v1/users").
		WithBody(model.RegisterUserRequest{}).
		Build())

	helpers.AssertValidationError(t, rr, "display_name")
}

func TestDonorHandler_Get(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		getFunc: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-1" {
				return nil, service.ErrUserNotFound
			}
			return &model.User{ID: userID, TotalPoints: 2100, Tier: model.TierSilver}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Get(rr, helpers.NewRequest(t, http.MethodGet, "/v1/users/user-1").WithPathValue("userId", "user-1").Build())
	helpers.AssertStatus(t, rr, http.StatusOK)
	var user model.User
	helpers.DecodeData(t, rr, &user)
	assert.Equal(t, 2100, user.TotalPoints)

	rr = httptest.NewRecorder()
	h.Get(rr, helpers.NewRequest(t, http.MethodGet, "/v1/users/ghost").WithPathValue("userId", "ghost").Build())
	helpers.AssertProblemDetails(t, rr, http.StatusNotFound, model.ErrCodeNotFound)
}

func TestDonorHandler_Deactivate_Inactive(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		deactivateFunc: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, fmt.Errorf("deactivate %s: %w", userID, service.ErrUserInactive)
		},
	})

	rr := httptest.NewRecorder()
	h.Deactivate(rr, helpers.NewRequest(t, http.MethodPost, "/v1/users/user-1/deactivate").WithPathValue("userId", "user-1").Build())
	helpers.AssertProblemDetails(t, rr, http.StatusNotFound, model.ErrCodeInactive)
}

func TestDonorHandler_Donations_EmptyList(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{})
	rr := httptest.NewRecorder()
	h.Donations(rr, helpers.NewRequest(t, http.MethodGet, "/v1/users/user-1/donations").WithPathValue("userId", "user-1").Build())

	helpers.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"data":[],"count":0}`, rr.Body.String())
}

func TestDonorHandler_Audit(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		auditFunc: func(ctx context.Context, userID string) (*model.LedgerAudit, error) {
			return &model.LedgerAudit{UserID: userID, StoredTotal: 90, LedgerPoints: 100, ExpectedTotal: 100}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Audit(rr, helpers.NewRequest(t, http.MethodGet, "/v1/users/user-1/audit").WithPathValue("userId", "user-1").Build())

	helpers.AssertStatus(t, rr, http.StatusOK)
	var audit model.LedgerAudit
	helpers.DecodeData(t, rr, &audit)
	require.Equal(t, "user-1", audit.UserID)
	assert.False(t, audit.Consistent)
	assert.Equal(t, 100, audit.ExpectedTotal)
}

func TestDonorHandler_StoreUnavailable(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		getFunc: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, fmt.Errorf("%w: dial tcp: connection refused", service.ErrRepositoryUnavailable)
		},
	})

	rr := httptest.NewRecorder()
	h.Get(rr, helpers.NewRequest(t, http.MethodGet, "/v1/users/user-1").WithPathValue("userId", "user-1").Build())
	p := helpers.AssertProblemDetails(t, rr, http.StatusServiceUnavailable, 0)
	assert.True(t, p.Retryable)
}

func TestDonorHandler_List(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		listFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{{ID: "a"}, {ID: "b"}}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.List(rr, helpers.NewRequest(t, http.MethodGet, "/v1/users").Build())
	helpers.AssertStatus(t, rr, http.StatusOK)
	var users []model.User
	helpers.DecodeData(t, rr, &users)
	assert.Len(t, users, 2)
}

func TestDonorHandler_Leaderboard_ParsesQuery(t *testing.T) {
	t.Parallel()

	var got model.LeaderboardQuery
	h := NewDonorHandler(&mockDonorManager{
		boardFunc: func(ctx context.Context, q model.LeaderboardQuery) (*model.DonorLeaderboard, error) {
			got = q
			return &model.DonorLeaderboard{Period: q.Period, Rankings: []model.DonorRanking{{Rank: 1, UserID: "a"}}}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Leaderboard(rr, helpers.NewRequest(t, http.MethodGet, "/v1/leaderboard?period=monthly&limit=5").Build())
	helpers.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, model.LeaderboardQuery{Period: model.PeriodMonthly, Limit: 5}, got)

	var board model.DonorLeaderboard
	helpers.DecodeData(t, rr, &board)
	require.Len(t, board.Rankings, 1)
	assert.Equal(t, 1, board.Rankings[0].Rank)
}

func TestDonorHandler_Leaderboard_BadLimit(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		boardFunc: func(ctx context.Context, q model.LeaderboardQuery) (*model.DonorLeaderboard, error) {
			t.Fatal("service should not be called with an unparsable limit")
			return nil, nil
		},
	})

	for _, limit := range []string{"ten", "0", "-3"} {
		rr := httptest.NewRecorder()
		h.Leaderboard(rr, helpers.NewRequest(t, http.MethodGet, "/v1/leaderboard?limit="+limit).Build())
		helpers.AssertValidationError(t, rr, "limit")
	}
}

func TestDonorHandler_Achievements_UnknownDonor(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		catalogFunc: func(ctx context.Context, userID string) (*model.AchievementCatalog, error) {
			if userID == "" {
				return &model.AchievementCatalog{TotalAvailable: 6}, nil
			}
			return nil, service.ErrUserNotFound
		},
	})

	rr := httptest.NewRecorder()
	h.Achievements(rr, helpers.NewRequest(t, http.MethodGet, "/v1/achievements").Build())
	helpers.AssertStatus(t, rr, http.StatusOK)
	var catalog model.AchievementCatalog
	helpers.DecodeData(t, rr, &catalog)
	assert.Equal(t, 6, catalog.TotalAvailable)

	rr = httptest.NewRecorder()
	h.Achievements(rr, helpers.NewRequest(t, http.MethodGet, "/v1/achievements?user_id=ghost").Build())
	helpers.AssertProblemDetails(t, rr, http.StatusNotFound, model.ErrCodeNotFound)
}

func TestDonorHandler_Stats(t *testing.T) {
	t.Parallel()

	h := NewDonorHandler(&mockDonorManager{
		statsFunc: func(ctx context.Context) (*model.PlatformStats, error) {
			return &model.PlatformStats{RegisteredUsers: 3, CriticalNeeds: 1, TierDistribution: map[string]int{"bronze": 3}}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Stats(rr, helpers.NewRequest(t, http.MethodGet, "/v1/stats").Build())
	helpers.AssertStatus(t, rr, http.StatusOK)
	var stats model.PlatformStats
	helpers.DecodeData(t, rr, &stats)
	assert.Equal(t, 3, stats.RegisteredUsers)
	assert.Equal(t, 3, stats.TierDistribution["bronze"])
}
