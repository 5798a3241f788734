package repository

import (
	"context"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// DonationStore runs units of work against the donation ledger and the
// records derived from it.
//
// WithinTx executes fn as one atomic unit: every write staged through tx
// is committed when fn returns nil and discarded otherwise. A commit that
// loses a race with a concurrent writer returns database.ErrConflict and
// applies nothing.
type DonationStore interface {
	WithinTx(ctx context.Context, fn func(tx DonationTx) error) error
}

// DonationTx is the view of the store inside one unit of work. Load and
// List methods return (nil, nil) for absent records. Reads observe writes
// already staged in the same unit.
type DonationTx interface {
	LoadUser(id string) (*model.User, error)
	LoadLocation(id string) (*model.StorageLocation, error)
	LoadCatalogEntry(itemType string) (*model.ItemCatalogEntry, error)
	// ListUnfulfilledMissingRequests lists open requests at a location;
	// an empty itemType lists every item.
	ListUnfulfilledMissingRequests(locationID, itemType string) ([]*model.MissingItemRequest, error)

	AppendDonation(d *model.Donation) error
	SaveUser(u *model.User) error
	SaveLocation(l *model.StorageLocation) error
	SaveCatalogEntry(e *model.ItemCatalogEntry) error
	SaveMissingRequest(r *model.MissingItemRequest) error

	// AggregateLocationPoints sums points_awarded + bonus_points per donor
	// over the ledger at a location, including donations appended in this
	// unit.
	AggregateLocationPoints(locationID string) ([]model.DonorTotal, error)
	ListUserDonations(userID string) ([]*model.Donation, error)
	ListLocations() ([]*model.StorageLocation, error)
	// ListUsers lists every donor, active or not, ordered by id. Donors
	// are not locked.
	ListUsers() ([]*model.User, error)
	// LedgerSummary counts donations and sums points and items over the
	// whole ledger, including donations appended in this unit.
	LedgerSummary() (model.LedgerSummary, error)
}
