package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
	"github.com/kashyap0729/good-will-hunting/internal/rules"
)

// LeaderboardService keeps each location's cached leader in line with
// its donation ledger. The leader is always recomputed from the ledger
// aggregate, never patched from a delta.
type LeaderboardService struct {
	store repository.DonationStore
	now   func() time.Time
}

// LeaderboardServiceConfig holds configuration for the leaderboard service
type LeaderboardServiceConfig struct {
	Store repository.DonationStore
	Clock func() time.Time
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(cfg LeaderboardServiceConfig) *LeaderboardService {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &LeaderboardService{store: cfg.Store, now: now}
}

// recompute selects the leader from the ledger as seen by tx and saves
// the location. The location must have been loaded through tx.
func (s *LeaderboardService) recompute(tx repository.DonationTx, location *model.StorageLocation, now time.Time) (*model.LeaderChange, error) {
	totals, err := tx.AggregateLocationPoints(location.ID)
	if err != nil {
		return nil, err
	}

	previous := location.CurrentLeader()
	change := &model.LeaderChange{LocationID: location.ID}
	if previous != "" {
		change.PreviousLeaderID = &previous
	}

	if leader, ok := rules.SelectLeader(totals); ok {
		id := leader.UserID
		location.LeaderID = &id
		location.LeaderPoints = leader.Points
		change.LeaderID = &id
		change.LeaderPoints = leader.Points
		change.Changed = id != previous
	} else {
		location.LeaderID = nil
		location.LeaderPoints = 0
		change.Changed = previous != ""
	}
	location.UpdatedOn = now

	if err := tx.SaveLocation(location); err != nil {
		return nil, err
	}
	return change, nil
}

// Recompute forces a leader recomputation for one location
func (s *LeaderboardService) Recompute(ctx context.Context, locationID string) (*model.LeaderChange, error) {
	var change *model.LeaderChange
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		location, err := tx.LoadLocation(locationID)
		if err != nil {
			return storeError(err)
		}
		if location == nil {
			return ErrLocationNotFound
		}
		change, err = s.recompute(tx, location, s.now().UTC())
		if err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return change, nil
}

// RecomputeAll recomputes every location, each in its own unit of work.
// A failing location does not stop the others; the failures are joined.
func (s *LeaderboardService) RecomputeAll(ctx context.Context) ([]*model.LeaderChange, error) {
	var locations []*model.StorageLocation
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		locations, err = tx.ListLocations()
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	var (
		changes []*model.LeaderChange
		errs    []error
	)
	for _, loc := range locations {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		change, err := s.Recompute(ctx, loc.ID)
		if errors.Is(err, ErrConcurrencyConflict) {
			// a donation raced us and recomputed the leader itself
			change, err = s.Recompute(ctx, loc.ID)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("location %s: %w", loc.ID, err))
			continue
		}
		if change.Changed {
			slog.Info("location leader reconciled",
				slog.String("location_id", loc.ID),
				slog.Int("leader_points", change.LeaderPoints),
			)
		}
		changes = append(changes, change)
	}
	return changes, errors.Join(errs...)
}

// Standings returns the ranked donor totals for a location
func (s *LeaderboardService) Standings(ctx context.Context, locationID string) (*model.Leaderboard, error) {
	var board *model.Leaderboard
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		location, err := tx.LoadLocation(locationID)
		if err != nil {
			return storeError(err)
		}
		if location == nil {
			return ErrLocationNotFound
		}
		totals, err := tx.AggregateLocationPoints(locationID)
		if err != nil {
			return storeError(err)
		}
		board = &model.Leaderboard{
			LocationID:   location.ID,
			LocationName: location.Name,
			LeaderID:     location.LeaderID,
			LeaderPoints: location.LeaderPoints,
			Standings:    rules.Standings(totals),
		}
		return nil
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return board, nil
}
