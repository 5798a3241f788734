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

// LocationService handles storage locations, their shortage requests and
// the stored item catalog
type LocationService struct {
	store repository.DonationStore
	rules *rules.RuleSet
	now   func() time.Time
	newID func() string
}

// LocationServiceConfig holds configuration for the location service
type LocationServiceConfig struct {
	Store       repository.DonationStore
	Rules       *rules.RuleSet
	Clock       func() time.Time
	IDGenerator func() string
}

// NewLocationService creates a new location service
func NewLocationService(cfg LocationServiceConfig) *LocationService {
	s := &LocationService{store: cfg.Store, rules: cfg.Rules, now: cfg.Clock, newID: cfg.IDGenerator}
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

// Provision creates a storage location with no leader
func (s *LocationService) Provision(ctx context.Context, req *model.ProvisionLocationRequest) (*model.StorageLocation, error) {
	req.Name = strings.TrimSpace(req.Name)
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	now := s.now().UTC()
	location := &model.StorageLocation{
		ID:        s.newID(),
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		CreatedOn: now,
		UpdatedOn: now,
	}
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		return tx.SaveLocation(location)
	})
	if err != nil {
		return nil, serviceError(err)
	}
	location.Version++

	slog.Info("location provisioned", slog.String("location_id", location.ID), slog.String("name", location.Name))
	return location, nil
}

// Get returns a location by id
func (s *LocationService) Get(ctx context.Context, locationID string) (*model.StorageLocation, error) {
	var location *model.StorageLocation
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		location, err = tx.LoadLocation(locationID)
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}
	if location == nil {
		return nil, ErrLocationNotFound
	}
	return location, nil
}

// List returns every location ordered by name
func (s *LocationService) List(ctx context.Context) ([]*model.StorageLocation, error) {
	var locations []*model.StorageLocation
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		locations, err = tx.ListLocations()
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Name < locations[j].Name
	})
	return locations, nil
}

// OpenMissingItem records a shortage at a location. Donations of the item
// earn the request's bonus until its quantity is covered.
func (s *LocationService) OpenMissingItem(ctx context.Context, locationID string, req *model.CreateMissingItemRequest) (*model.MissingItemRequest, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	urgency := req.Urgency
	if urgency == 0 {
		urgency = 1
	}

	var request *model.MissingItemRequest
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		location, err := tx.LoadLocation(locationID)
		if err != nil {
			return err
		}
		if location == nil {
			return ErrLocationNotFound
		}
		request = &model.MissingItemRequest{
			ID:                  s.newID(),
			LocationID:          location.ID,
			ItemType:            model.ItemKey(req.ItemType),
			Urgency:             urgency,
			OutstandingQuantity: req.Quantity,
			BonusPoints:         req.BonusPoints,
			CreatedOn:           s.now().UTC(),
		}
		return tx.SaveMissingRequest(request)
	})
	if err != nil {
		return nil, serviceError(err)
	}

	slog.Info("missing item requested",
		slog.String("location_id", locationID),
		slog.String("item_type", request.ItemType),
		slog.Int("quantity", request.OutstandingQuantity),
		slog.Int("bonus_points", request.BonusPoints),
	)
	return request, nil
}

// MissingItems lists open shortage requests, most urgent first
func (s *LocationService) MissingItems(ctx context.Context, locationID string) ([]*model.MissingItemRequest, error) {
	var requests []*model.MissingItemRequest
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		location, err := tx.LoadLocation(locationID)
		if err != nil {
			return err
		}
		if location == nil {
			return ErrLocationNotFound
		}
		requests, err = tx.ListUnfulfilledMissingRequests(locationID, "")
		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}
	sort.SliceStable(requests, func(i, j int) bool {
		if requests[i].Urgency != requests[j].Urgency {
			return requests[i].Urgency > requests[j].Urgency
		}
		return requests[i].CreatedOn.Before(requests[j].CreatedOn)
	})
	return requests, nil
}

// ImportCatalog stores catalog entries, replacing existing ones with the
// same item key
func (s *LocationService) ImportCatalog(ctx context.Context, entries []model.ItemCatalogEntry) error {
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		for i := range entries {
			entry := entries[i]
			entry.ItemType = model.ItemKey(entry.ItemType)
			if entry.ItemType == "" || entry.BasePoints < 0 || entry.DemandMultiplier < 0 {
				return model.NewBadRequestError("invalid catalog entry " + entries[i].ItemType)
			}
			if err := tx.SaveCatalogEntry(&entry); err != nil {
				return err
			}
		}
		return nil
	})
	return serviceError(err)
}

// CatalogEntry returns the scoring data used for an item type, falling
// back to the built-in catalog and then to the default values
func (s *LocationService) CatalogEntry(ctx context.Context, itemType string) (model.ItemCatalogEntry, bool, error) {
	var stored *model.ItemCatalogEntry
	err := s.store.WithinTx(ctx, func(tx repository.DonationTx) error {
		var err error
		stored, err = tx.LoadCatalogEntry(model.ItemKey(itemType))
		return err
	})
	if err != nil {
		return model.ItemCatalogEntry{}, false, serviceError(err)
	}
	entry, known := s.rules.Catalog.Resolve(itemType, stored)
	return entry, known, nil
}
