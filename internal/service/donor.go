package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
	"github.com/kashyap0729/good-will-hunting/internal/rules"
)

// DonorService handles donor registration and lookups
type DonorService struct {
	store repository.DonationStore
	rules *rules.RuleSet
	now   func() time.Time
	newID func() string
}

// DonorServiceConfig holds configuration for the donor service
type DonorServiceConfig struct {
	Store       repository.DonationStore
	Rules       *rules.RuleSet
	Clock       func() time.Time
	IDGenerator func() string
}

// NewDonorService creates a new donor service
func NewDonorService(cfg DonorServiceConfig) *DonorService {
	s := &DonorService{store: cfg.Store, rules: cfg.Rules, now: cfg.Clock, newID: cfg.IDGenerator}
	if s.rules == nil {
		s.rules = rules.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Register creates an active donor at the entry tier
func (s *DonorService) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           s.newID(),
		DisplayName:  req.DisplayName,
		Tier:         s.rules.Tiers.Base().Name,
		Achievements: []string{},
		Active:       true,
		CreatedOn:    now,
		UpdatedOn:    now,
	}
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		return tx.SaveUser(user)
	})
	if err != nil {
		return nil, serviceError(err)
	}
	user.Version++

	slog.Info("donor registered", slog.String("user_id", user.ID))
	return user, nil
}

// Get returns a donor by id
func (s *DonorService) Get(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		user, err = tx.LoadUser(userID)
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Deactivate stops a donor from donating. Donors are never deleted.
func (s *DonorService) Deactivate(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		user, err = tx.LoadUser(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if !user.Active {
			return nil
		}
		user.Active = false
		user.UpdatedOn = s.now().UTC()
		return tx.SaveUser(user)
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return user, nil
}

// Donations lists a donor's ledger entries
func (s *DonorService) Donations(ctx context.Context, userID string) ([]*model.Donation, error) {
	var donations []*model.Donation
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		user, err := tx.LoadUser(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		donations, err = tx.ListUserDonations(userID)
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return donations, nil
}

// Audit recomputes a donor's total from the ledger plus unlocked
// achievement rewards and compares it with the stored total and tier.
func (s *DonorService) Audit(ctx context.Context, userID string) (*model.LedgerAudit, error) {
	var (
		user      *model.User
		donations []*model.Donation
	)
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		user, err = tx.LoadUser(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		donations, err = tx.ListUserDonations(userID)
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}

	audit := &model.LedgerAudit{
		UserID:             user.ID,
		StoredTotal:        user.TotalPoints,
		AchievementRewards: s.rules.Achievements.RewardFor(user.Achievements),
		StoredTier:         user.Tier,
	}
	for _, d := range donations {
		audit.LedgerPoints += d.TotalPoints()
	}
	audit.ExpectedTotal = audit.LedgerPoints + audit.AchievementRewards
	audit.ExpectedTier = s.rules.Tiers.For(audit.ExpectedTotal).Name
	audit.Consistent = audit.ExpectedTotal == audit.StoredTotal && audit.ExpectedTier == audit.StoredTier

	if !audit.Consistent {
		slog.Warn("donor ledger mismatch",
			slog.String("user_id", user.ID),
			slog.Int("stored_total", audit.StoredTotal),
			slog.Int("expected_total", audit.ExpectedTotal),
		)
	}
	return audit, nil
}

// List returns every donor, active or not, ordered by id
func (s *DonorService) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		users, err = tx.ListUsers()
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return users, nil
}

// Leaderboard ranks active donors by total points. Equal totals go to
// the donor who registered first. The monthly period keeps donors active
// within the last MonthlyWindowDays calendar days.
func (s *DonorService) Leaderboard(ctx context.Context, q model.LeaderboardQuery) (*model.DonorLeaderboard, error) {
	if q.Period == "" {
		q.Period = model.PeriodAllTime
	}
	if q.Limit == 0 {
		q.Limit = model.DefaultLeaderboardLimit
	}
	if errs := q.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	since := ""
	if q.Period == model.PeriodMonthly {
		since = s.rules.Streaks.Day(s.now().AddDate(0, 0, -model.MonthlyWindowDays))
	}
	eligible := users[:0]
	for _, u := range users {
		if !u.Active {
			continue
		}
		// day labels compare in calendar order
		if since != "" && (u.LastActiveOn == "" || u.LastActiveOn < since) {
			continue
		}
		eligible = append(eligible, u)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if !a.CreatedOn.Equal(b.CreatedOn) {
			return a.CreatedOn.Before(b.CreatedOn)
		}
		return a.ID < b.ID
	})
	if len(eligible) > q.Limit {
		eligible = eligible[:q.Limit]
	}

	board := &model.DonorLeaderboard{Period: q.Period, Rankings: make([]model.DonorRanking, len(eligible))}
	for i, u := range eligible {
		board.Rankings[i] = model.DonorRanking{
			Rank:          i + 1,
			UserID:        u.ID,
			DisplayName:   u.DisplayName,
			TotalPoints:   u.TotalPoints,
			Tier:          u.Tier,
			StreakDays:    u.StreakDays,
			DonationCount: u.DonationCount,
			ItemsDonated:  u.ItemsDonated,
		}
	}
	return board, nil
}

// Achievements returns the achievement catalog. With a userID each entry
// carries that donor's unlock state.
func (s *DonorService) Achievements(ctx context.Context, userID string) (*model.AchievementCatalog, error) {
	var user *model.User
	if userID != "" {
		var err error
		if user, err = s.Get(ctx, userID); err != nil {
			return nil, err
		}
	}

	defs := s.rules.Achievements.Definitions()
	catalog := &model.AchievementCatalog{
		Achievements:   make([]model.AchievementStatus, len(defs)),
		TotalAvailable: len(defs),
	}
	for i, def := range defs {
		catalog.Achievements[i] = model.AchievementStatus{AchievementDefinition: def}
		if user != nil && user.HasAchievement(def.ID) {
			catalog.Achievements[i].Unlocked = true
			catalog.TotalUnlocked++
		}
	}
	if user != nil {
		catalog.UserID = user.ID
	}
	return catalog, nil
}
