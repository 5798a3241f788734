package fixtures

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
)

// Factory creates test entities through a DonationStore
type Factory struct {
	store repository.DonationStore
	now   time.Time
}

// New creates a new fixture factory
func New(store repository.DonationStore) *Factory {
	return &Factory{store: store, now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Store returns the underlying store
func (f *Factory) Store() repository.DonationStore {
	return f.store
}

// Now returns the fixed time fixtures are stamped with
func (f *Factory) Now() time.Time {
	return f.now
}

// randomID generates a short random ID with a readable prefix
func randomID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8])
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	ID            string
	DisplayName   string
	TotalPoints   int
	Tier          string
	DonationCount int
	ItemsDonated  int
	StreakDays    int
	LastActiveOn  string
	Achievements  []string
	Active        bool
}

// WithUserID sets the user id
func WithUserID(id string) func(*UserOpts) {
	return func(o *UserOpts) { o.ID = id }
}

// WithDisplayName sets the display name
func WithDisplayName(name string) func(*UserOpts) {
	return func(o *UserOpts) { o.DisplayName = name }
}

// WithPoints sets the starting point total
func WithPoints(points int) func(*UserOpts) {
	return func(o *UserOpts) { o.TotalPoints = points }
}

// WithTier sets the stored tier label
func WithTier(tier string) func(*UserOpts) {
	return func(o *UserOpts) { o.Tier = tier }
}

// WithStreak sets the streak and last active day
func WithStreak(days int, lastActiveOn string) func(*UserOpts) {
	return func(o *UserOpts) {
		o.StreakDays = days
		o.LastActiveOn = lastActiveOn
	}
}

// WithAchievements marks achievements as already unlocked
func WithAchievements(ids ...string) func(*UserOpts) {
	return func(o *UserOpts) { o.Achievements = ids }
}

// WithDonationCount sets the prior donation count
func WithDonationCount(n int) func(*UserOpts) {
	return func(o *UserOpts) { o.DonationCount = n }
}

// Inactive creates a deactivated user
func Inactive() func(*UserOpts) {
	return func(o *UserOpts) { o.Active = false }
}

// CreateUser stores a donor with optional customizations
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	o := &UserOpts{
		ID:          randomID("user"),
		Tier:        model.TierBronze,
		Active:      true,
		DisplayName: "Donor",
	}
	for _, fn := range opts {
		fn(o)
	}

	user := &model.User{
		ID:            o.ID,
		DisplayName:   o.DisplayName,
		TotalPoints:   o.TotalPoints,
		Tier:          o.Tier,
		DonationCount: o.DonationCount,
		ItemsDonated:  o.ItemsDonated,
		StreakDays:    o.StreakDays,
		LastActiveOn:  o.LastActiveOn,
		Achievements:  append([]string{}, o.Achievements...),
		Active:        o.Active,
		CreatedOn:     f.now,
		UpdatedOn:     f.now,
	}
	f.save(t, "user", func(tx repository.DonationTx) error { return tx.SaveUser(user) })
	user.Version = 1
	return user
}

// ============================================================================
// Location Fixtures
// ============================================================================

// CreateLocation stores a storage location with no leader
func (f *Factory) CreateLocation(t *testing.T, opts ...func(*model.StorageLocation)) *model.StorageLocation {
	t.Helper()

	loc := &model.StorageLocation{
		ID:        randomID("loc"),
		Name:      "Community Center",
		Latitude:  40.7128,
		Longitude: -74.006,
		CreatedOn: f.now,
		UpdatedOn: f.now,
	}
	for _, fn := range opts {
		fn(loc)
	}
	f.save(t, "location", func(tx repository.DonationTx) error { return tx.SaveLocation(loc) })
	loc.Version = 1
	return loc
}

// ============================================================================
// Catalog Fixtures
// ============================================================================

// CreateCatalogEntry stores a catalog entry
func (f *Factory) CreateCatalogEntry(t *testing.T, itemType string, basePoints int, multiplier float64) *model.ItemCatalogEntry {
	t.Helper()

	entry := &model.ItemCatalogEntry{
		ItemType:         model.ItemKey(itemType),
		BasePoints:       basePoints,
		DemandMultiplier: multiplier,
	}
	f.save(t, "catalog entry", func(tx repository.DonationTx) error { return tx.SaveCatalogEntry(entry) })
	return entry
}

// MissingOpts customizes missing item request creation
type MissingOpts struct {
	Quantity int
	Bonus    int
	Urgency  int
	Created  time.Time
}

// WithBonus sets the per-unit bonus
func WithBonus(bonus int) func(*MissingOpts) {
	return func(o *MissingOpts) { o.Bonus = bonus }
}

// WithQuantity sets the outstanding quantity
func WithQuantity(qty int) func(*MissingOpts) {
	return func(o *MissingOpts) { o.Quantity = qty }
}

// CreatedAt sets the request creation time
func CreatedAt(ts time.Time) func(*MissingOpts) {
	return func(o *MissingOpts) { o.Created = ts }
}

// CreateMissingItem stores an open shortage request at loc
func (f *Factory) CreateMissingItem(t *testing.T, loc *model.StorageLocation, itemType string, opts ...func(*MissingOpts)) *model.MissingItemRequest {
	t.Helper()

	o := &MissingOpts{Quantity: 10, Bonus: 50, Urgency: 2, Created: f.now}
	for _, fn := range opts {
		fn(o)
	}
	req := &model.MissingItemRequest{
		ID:                  randomID("missing"),
		LocationID:          loc.ID,
		ItemType:            model.ItemKey(itemType),
		Urgency:             o.Urgency,
		OutstandingQuantity: o.Quantity,
		BonusPoints:         o.Bonus,
		CreatedOn:           o.Created,
	}
	f.save(t, "missing item request", func(tx repository.DonationTx) error { return tx.SaveMissingRequest(req) })
	return req
}

// ============================================================================
// Ledger Fixtures
// ============================================================================

// CreateDonation appends a ledger entry directly, bypassing scoring.
// Donor and location caches are left untouched.
func (f *Factory) CreateDonation(t *testing.T, user *model.User, loc *model.StorageLocation, points int, at time.Time) *model.Donation {
	t.Helper()

	d := &model.Donation{
		ID:            randomID("donation"),
		UserID:        user.ID,
		LocationID:    loc.ID,
		ItemType:      "canned goods",
		Quantity:      1,
		PointsAwarded: points,
		CreatedOn:     at,
	}
	f.save(t, "donation", func(tx repository.DonationTx) error { return tx.AppendDonation(d) })
	return d
}

// LoadUser reads a user back from the store
func (f *Factory) LoadUser(t *testing.T, id string) *model.User {
	t.Helper()
	var user *model.User
	f.save(t, "user load", func(tx repository.DonationTx) error {
		var err error
		user, err = tx.LoadUser(id)
		return err
	})
	return user
}

// LoadLocation reads a location back from the store
func (f *Factory) LoadLocation(t *testing.T, id string) *model.StorageLocation {
	t.Helper()
	var loc *model.StorageLocation
	f.save(t, "location load", func(tx repository.DonationTx) error {
		var err error
		loc, err = tx.LoadLocation(id)
		return err
	})
	return loc
}

// OpenMissing lists open requests at a location for an item ("" for all)
func (f *Factory) OpenMissing(t *testing.T, locationID, itemType string) []*model.MissingItemRequest {
	t.Helper()
	var out []*model.MissingItemRequest
	f.save(t, "missing item load", func(tx repository.DonationTx) error {
		var err error
		out, err = tx.ListUnfulfilledMissingRequests(locationID, itemType)
		return err
	})
	return out
}

func (f *Factory) save(t *testing.T, what string, fn func(tx repository.DonationTx) error) {
	t.Helper()
	if err := f.store.WithinTx(ctx(t), fn); err != nil {
		t.Fatalf("fixtures: failed to write %s: %v", what, err)
	}
}
