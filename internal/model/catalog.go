package model

import (
	"strings"
	"time"
)

// ItemCatalogEntry is static reference data for one item type
type ItemCatalogEntry struct {
	ItemType         string  `json:"item_type"`
	Category         string  `json:"category,omitempty"`
	BasePoints       int     `json:"base_points"`
	DemandMultiplier float64 `json:"demand_multiplier"`
	Description      string  `json:"description,omitempty"`
}

// ItemKey normalizes an item type for catalog and shortage lookups
func ItemKey(itemType string) string {
	return strings.ToLower(strings.TrimSpace(itemType))
}

// MissingItemRequest records a shortage at a location. Requests are never
// deleted; fulfilment only flips the Fulfilled flag.
type MissingItemRequest struct {
	ID                  string     `json:"id"`
	LocationID          string     `json:"location_id"`
	ItemType            string     `json:"item_type"`
	Urgency             int        `json:"urgency"`
	OutstandingQuantity int        `json:"outstanding_quantity"`
	BonusPoints         int        `json:"bonus_points"`
	Fulfilled           bool       `json:"fulfilled"`
	CreatedOn           time.Time  `json:"created_on"`
	FulfilledOn         *time.Time `json:"fulfilled_on,omitempty"`
}

// Clone returns a copy of the request
func (m *MissingItemRequest) Clone() *MissingItemRequest {
	if m == nil {
		return nil
	}
	c := *m
	if m.FulfilledOn != nil {
		t := *m.FulfilledOn
		c.FulfilledOn = &t
	}
	return &c
}

// CreateMissingItemRequest is the payload for opening a shortage request
type CreateMissingItemRequest struct {
	ItemType    string `json:"item_type"`
	Quantity    int    `json:"quantity"`
	BonusPoints int    `json:"bonus_points"`
	Urgency     int    `json:"urgency,omitempty"`
}

// Validate checks the shortage payload
func (r *CreateMissingItemRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ItemType == "" {
		errs = append(errs, FieldError{Field: "item_type", Message: "item_type is required"})
	}
	if r.Quantity <= 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "quantity must be positive"})
	}
	if r.BonusPoints < 0 {
		errs = append(errs, FieldError{Field: "bonus_points", Message: "bonus_points cannot be negative"})
	}
	if r.Urgency < 0 || r.Urgency > 3 {
		errs = append(errs, FieldError{Field: "urgency", Message: "urgency must be between 0 and 3"})
	}
	return errs
}
