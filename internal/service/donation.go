package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
	"github.com/kashyap0729/good-will-hunting/internal/rules"
)

// DefaultMaxAttempts bounds how often a donation is re-run after a
// concurrency conflict
const DefaultMaxAttempts = 3

// DonationNotifier turns a committed donation into a human-readable message
type DonationNotifier interface {
	NotifyDonation(ctx context.Context, result *model.DonationResult) (string, error)
}

// DonationObserver receives one observation per finished ProcessDonation call
type DonationObserver interface {
	ObserveDonation(result *model.DonationResult, err error, elapsed time.Duration)
}

// DonationService turns donation requests into atomic state transitions
type DonationService struct {
	store       repository.DonationStore
	rules       *rules.RuleSet
	leaderboard *LeaderboardService
	notifier    DonationNotifier
	observer    DonationObserver
	now         func() time.Time
	newID       func() string
	maxAttempts int
}

// DonationServiceConfig holds configuration for the donation service
type DonationServiceConfig struct {
	Store       repository.DonationStore
	Rules       *rules.RuleSet
	Leaderboard *LeaderboardService // optional, built from Store when nil
	Notifier    DonationNotifier    // optional
	Observer    DonationObserver    // optional
	Clock       func() time.Time
	IDGenerator func() string
	MaxAttempts int
}

// NewDonationService creates a new donation service
func NewDonationService(cfg DonationServiceConfig) *DonationService {
	s := &DonationService{
		store:       cfg.Store,
		rules:       cfg.Rules,
		leaderboard: cfg.Leaderboard,
		notifier:    cfg.Notifier,
		observer:    cfg.Observer,
		now:         cfg.Clock,
		newID:       cfg.IDGenerator,
		maxAttempts: cfg.MaxAttempts,
	}
	if s.rules == nil {
		s.rules = rules.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.leaderboard == nil {
		s.leaderboard = NewLeaderboardService(LeaderboardServiceConfig{Store: cfg.Store, Clock: s.now})
	}
	return s
}

// ProcessDonation records one donation. Either every effect of the
// donation commits together or nothing does; a rejection is returned as
// *DonationError. Conflicting attempts are re-run from scratch.
func (s *DonationService) ProcessDonation(ctx context.Context, req *model.DonationRequest) (*model.DonationResult, error) {
	started := time.Now()
	result, err := s.process(ctx, req)
	if s.observer != nil {
		s.observer.ObserveDonation(result, err, time.Since(started))
	}
	return result, err
}

func (s *DonationService) process(ctx context.Context, req *model.DonationRequest) (*model.DonationResult, error) {
	if err := validateDonation(req); err != nil {
		logRejected(req, err, 0)
		return nil, err
	}

	var (
		result *model.DonationResult
		err    error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err = s.attempt(ctx, req)
		if err == nil {
			result.Attempts = attempt
			break
		}
		var de *DonationError
		if !errors.As(err, &de) || de.Kind != KindConcurrencyConflict || attempt == s.maxAttempts {
			logRejected(req, err, attempt)
			return nil, err
		}
		slog.Debug("retrying donation after conflict",
			slog.String("user_id", req.UserID),
			slog.String("location_id", req.LocationID),
			slog.Int("attempt", attempt),
		)
	}

	s.notify(ctx, result)

	slog.Info("donation processed",
		slog.String("donation_id", result.DonationID),
		slog.String("user_id", result.UserID),
		slog.String("location_id", result.LocationID),
		slog.Int("points", result.PointsAwarded+result.BonusPoints),
		slog.String("stage", string(result.Stage)),
		slog.Int("attempts", result.Attempts),
	)
	return result, nil
}

// attempt runs one state-machine instance inside one unit of work
func (s *DonationService) attempt(ctx context.Context, req *model.DonationRequest) (*model.DonationResult, error) {
	stage := model.StageReceived
	var result *model.DonationResult

	fail := func(err error) error {
		wrapped := storeError(err)
		return rejectf(classify(wrapped), stage, wrapped)
	}

	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		user, err := tx.LoadUser(req.UserID)
		if err != nil {
			return fail(err)
		}
		if user == nil {
			return rejectf(KindNotFound, stage, ErrUserNotFound)
		}
		if !user.Active {
			return rejectf(KindNotFound, stage, ErrUserInactive)
		}
		location, err := tx.LoadLocation(req.LocationID)
		if err != nil {
			return fail(err)
		}
		if location == nil {
			return rejectf(KindNotFound, stage, ErrLocationNotFound)
		}
		stored, err := tx.LoadCatalogEntry(model.ItemKey(req.ItemType))
		if err != nil {
			return fail(err)
		}
		entry, known := s.rules.Catalog.Resolve(req.ItemType, stored)
		if !known && !s.rules.Catalog.HasSafeDefault() {
			return rejectf(KindInvalidInput, stage, fmt.Errorf("%w: %q", ErrUnknownItem, req.ItemType))
		}
		stage = model.StageValidated

		open, err := tx.ListUnfulfilledMissingRequests(location.ID, model.ItemKey(req.ItemType))
		if err != nil {
			return fail(err)
		}
		bonus, missing := rules.HighestOpenBonus(open)
		score := rules.ComputeScore(rules.ScoreInput{
			Entry:          entry,
			Quantity:       req.Quantity,
			TierMultiplier: s.rules.Tiers.Multiplier(user.Tier),
			Missing:        missing,
			MissingBonus:   bonus,
		})
		stage = model.StageScored

		now := s.now().UTC()
		outcome := s.applyToDonor(user, req, score, missing, now)

		donation := &model.Donation{
			ID:                      s.newID(),
			UserID:                  user.ID,
			LocationID:              location.ID,
			ItemType:                model.ItemKey(req.ItemType),
			Quantity:                req.Quantity,
			PointsAwarded:           score.Base,
			BonusPoints:             score.Bonus,
			MissingItemBonusApplied: missing,
			CreatedOn:               now,
		}
		if err := tx.AppendDonation(donation); err != nil {
			return fail(err)
		}
		if err := tx.SaveUser(user); err != nil {
			return fail(err)
		}
		if missing {
			for _, changed := range rules.AllocateFulfilment(open, req.Quantity, now) {
				if err := tx.SaveMissingRequest(changed); err != nil {
					return fail(err)
				}
			}
		}
		stage = model.StagePersisted

		change, err := s.leaderboard.recompute(tx, location, now)
		if err != nil {
			return fail(err)
		}
		stage = model.StageLeaderboardUpdated

		result = &model.DonationResult{
			DonationID:              donation.ID,
			UserID:                  user.ID,
			LocationID:              location.ID,
			ItemType:                donation.ItemType,
			Quantity:                donation.Quantity,
			PointsAwarded:           score.Base,
			BonusPoints:             score.Bonus,
			AchievementPoints:       outcome.reward,
			NewTotalPoints:          user.TotalPoints,
			TierUpgraded:            outcome.tier.Upgraded,
			NewTier:                 outcome.tier.New,
			NewStreak:               user.StreakDays,
			StreakExtended:          outcome.streakExtended,
			NewAchievements:         outcome.unlocked,
			MissingItemBonusApplied: missing,
			LeaderChanged:           change.Changed,
			NewLeaderUserID:         change.LeaderID,
			LeaderPoints:            change.LeaderPoints,
			Stage:                   stage,
		}
		if outcome.tier.Upgraded {
			old := outcome.tier.Old
			result.OldTier = &old
		}
		return nil
	})
	if err != nil {
		var de *DonationError
		if errors.As(err, &de) {
			return nil, de
		}
		// commit failures surface here, after every stage ran
		return nil, fail(err)
	}
	return result, nil
}

type donorOutcome struct {
	tier           rules.TierChange
	unlocked       []string
	reward         int
	streakExtended bool
}

// applyToDonor folds the scored donation into the donor record. The
// achievement table is evaluated once on statistics captured before any
// reward is added; the tier is derived from the final total.
func (s *DonationService) applyToDonor(user *model.User, req *model.DonationRequest, score rules.Score, missing bool, now time.Time) donorOutcome {
	storedTier := user.Tier

	streak := s.rules.Streaks.Record(user.LastActiveOn, user.StreakDays, now)
	user.StreakDays = streak.Streak
	user.LastActiveOn = streak.Today
	user.TotalPoints += score.Total
	user.DonationCount++
	user.ItemsDonated += req.Quantity
	if missing {
		user.MissingItemDonations++
	}

	unlock := s.rules.Achievements.Evaluate(model.DonorSnapshot{
		TotalPoints:          user.TotalPoints,
		DonationCount:        user.DonationCount,
		ItemsDonated:         user.ItemsDonated,
		MissingItemDonations: user.MissingItemDonations,
		StreakDays:           user.StreakDays,
		Unlocked:             user.Achievements,
	}, model.TriggeringDonation{
		ItemType: model.ItemKey(req.ItemType),
		Quantity: req.Quantity,
		Points:   score.Total,
	})
	for _, id := range unlock.IDs {
		if !user.HasAchievement(id) {
			user.Achievements = append(user.Achievements, id)
		}
	}
	user.TotalPoints += unlock.Reward

	tier := s.rules.Tiers.Evaluate(storedTier, user.TotalPoints)
	user.Tier = tier.New
	user.UpdatedOn = now

	unlocked := unlock.IDs
	if unlocked == nil {
		unlocked = []string{}
	}
	return donorOutcome{
		tier:           tier,
		unlocked:       unlocked,
		reward:         unlock.Reward,
		streakExtended: streak.Extended,
	}
}

// notify runs after commit; a failing notifier only adds a warning
func (s *DonationService) notify(ctx context.Context, result *model.DonationResult) {
	if s.notifier == nil {
		result.Stage = model.StageNotified
		return
	}
	msg, err := s.notifier.NotifyDonation(ctx, result)
	if err != nil {
		slog.Warn("donation notification failed",
			slog.String("donation_id", result.DonationID),
			slog.String("error", err.Error()),
		)
		result.Warnings = append(result.Warnings, "notification unavailable: "+err.Error())
	} else {
		result.Message = msg
	}
	result.Stage = model.StageNotified
}

func validateDonation(req *model.DonationRequest) error {
	if req == nil {
		return rejectf(KindInvalidInput, model.StageReceived, ErrInvalidRequest)
	}
	fields := req.Validate()
	if len(fields) == 0 {
		return nil
	}
	sentinel := ErrInvalidRequest
	switch fields[0].Field {
	case "user_id", "location_id":
		sentinel = ErrInvalidReference
	case "item_type":
		sentinel = ErrInvalidItemType
	case "quantity":
		sentinel = ErrInvalidQuantity
	}
	de := rejectf(KindInvalidInput, model.StageReceived, sentinel)
	de.Fields = fields
	return de
}

func logRejected(req *model.DonationRequest, err error, attempts int) {
	attrs := []any{
		slog.String("kind", string(classify(err))),
		slog.String("error", err.Error()),
		slog.Int("attempts", attempts),
	}
	var de *DonationError
	if errors.As(err, &de) {
		attrs = append(attrs, slog.String("stage", string(de.Stage)))
	}
	if req != nil {
		attrs = append(attrs, slog.String("user_id", req.UserID), slog.String("location_id", req.LocationID))
	}
	slog.Warn("donation rejected", attrs...)
}
