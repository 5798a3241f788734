package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
	"github.com/kashyap0729/good-will-hunting/internal/rules"
	"github.com/kashyap0729/good-will-hunting/internal/testing/fixtures"
)

func newLocationHarness(t *testing.T) (*LocationService, *testClock, *fixtures.Factory) {
	t.Helper()
	store := repository.NewMemoryDonationRepository()
	clock := newTestClock()
	svc := NewLocationService(LocationServiceConfig{Store: store, Rules: rules.Default(), Clock: clock.Now})
	return svc, clock, fixtures.New(store)
}

func TestLocationProvision(t *testing.T) {
	t.Parallel()
	svc, _, _ := newLocationHarness(t)
	ctx := context.Background()

	loc, err := svc.Provision(ctx, &model.ProvisionLocationRequest{Name: "Westside Shelter", Latitude: 40.7, Longitude: -74})
	require.NoError(t, err)
	assert.NotEmpty(t, loc.ID)
	assert.Nil(t, loc.LeaderID)

	_, err = svc.Provision(ctx, &model.ProvisionLocationRequest{Name: "Eastside Pantry", Latitude: 40.8, Longitude: -73.9})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Eastside Pantry", list[0].Name)

	got, err := svc.Get(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Westside Shelter", got.Name)
}

func TestLocationProvision_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newLocationHarness(t)

	_, err := svc.Provision(context.Background(), &model.ProvisionLocationRequest{Name: "", Latitude: 120})
	var pd *model.ProblemDetails
	require.True(t, errors.As(err, &pd))
	assert.Len(t, pd.Errors, 2)
}

func TestLocationGet_NotFound(t *testing.T) {
	t.Parallel()
	svc, _, _ := newLocationHarness(t)

	_, err := svc.Get(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestLocationMissingItems(t *testing.T) {
	t.Parallel()
	svc, clock, f := newLocationHarness(t)
	loc := f.CreateLocation(t)
	ctx := context.Background()

	low, err := svc.OpenMissingItem(ctx, loc.ID, &model.CreateMissingItemRequest{ItemType: "Toys", Quantity: 5, BonusPoints: 10})
	require.NoError(t, err)
	assert.Equal(t, "toys", low.ItemType)
	assert.Equal(t, 1, low.Urgency, "urgency defaults to 1")

	clock.Advance(time.Hour)
	high, err := svc.OpenMissingItem(ctx, loc.ID, &model.CreateMissingItemRequest{ItemType: "Baby Formula", Quantity: 3, BonusPoints: 40, Urgency: 3})
	require.NoError(t, err)

	list, err := svc.MissingItems(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, high.ID, list[0].ID)
	assert.Equal(t, low.ID, list[1].ID)
}

func TestLocationMissingItems_Errors(t *testing.T) {
	t.Parallel()
	svc, _, f := newLocationHarness(t)
	loc := f.CreateLocation(t)
	ctx := context.Background()

	_, err := svc.OpenMissingItem(ctx, "nowhere", &model.CreateMissingItemRequest{ItemType: "toys", Quantity: 1})
	assert.ErrorIs(t, err, ErrLocationNotFound)

	_, err = svc.OpenMissingItem(ctx, loc.ID, &model.CreateMissingItemRequest{ItemType: "toys", Quantity: 0})
	var pd *model.ProblemDetails
	assert.True(t, errors.As(err, &pd))

	_, err = svc.MissingItems(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestLocationCatalog(t *testing.T) {
	t.Parallel()
	svc, _, _ := newLocationHarness(t)
	ctx := context.Background()

	entry, known, err := svc.CatalogEntry(ctx, "Winter Coats")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 25, entry.BasePoints)

	entry, known, err = svc.CatalogEntry(ctx, "kites")
	require.NoError(t, err)
	assert.False(t, known)
	assert.Equal(t, rules.DefaultBasePoints, entry.BasePoints)

	err = svc.ImportCatalog(ctx, []model.ItemCatalogEntry{{ItemType: "Kites", BasePoints: 7, DemandMultiplier: 1.2}})
	require.NoError(t, err)

	entry, known, err = svc.CatalogEntry(ctx, "KITES")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 7, entry.BasePoints)

	err = svc.ImportCatalog(ctx, []model.ItemCatalogEntry{{ItemType: "", BasePoints: 1}})
	assert.Error(t, err)
}
