package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// LocationManager is the location service surface used by LocationHandler
type LocationManager interface {
	Provision(ctx context.Context, req *model.ProvisionLocationRequest) (*model.StorageLocation, error)
	Get(ctx context.Context, locationID string) (*model.StorageLocation, error)
	List(ctx context.Context) ([]*model.StorageLocation, error)
	Nearby(ctx context.Context, q model.NearbyQuery) ([]*model.NearbyLocation, error)
	OpenMissingItem(ctx context.Context, locationID string, req *model.CreateMissingItemRequest) (*model.MissingItemRequest, error)
	MissingItems(ctx context.Context, locationID string) ([]*model.MissingItemRequest, error)
}

// LeaderboardManager reads standings and forces leader recomputation
type LeaderboardManager interface {
	Standings(ctx context.Context, locationID string) (*model.Leaderboard, error)
	Recompute(ctx context.Context, locationID string) (*model.LeaderChange, error)
}

// LocationHandler handles storage location HTTP requests
type LocationHandler struct {
	locations   LocationManager
	leaderboard LeaderboardManager
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locations LocationManager, leaderboard LeaderboardManager) *LocationHandler {
	return &LocationHandler{locations: locations, leaderboard: leaderboard}
}

func locationLinks(id string) map[string]string {
	return map[string]string{
		"self":          "/v1/locations/" + id,
		"leaderboard":   "/v1/locations/" + id + "/leaderboard",
		"missing_items": "/v1/locations/" + id + "/missing-items",
	}
}

// List handles GET /v1/locations. With lat and lng it lists the locations
// within radius_km, nearest first.
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Has("lat") || query.Has("lng") {
		h.nearby(w, r)
		return
	}

	locations, err := h.locations.List(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list locations"))
		return
	}

	WriteCollection(w, http.StatusOK, locations, nil)
}

func (h *LocationHandler) nearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		q    model.NearbyQuery
		errs []model.FieldError
	)
	parse := func(field string, dst *float64) {
		v := query.Get(field)
		if v == "" {
			if field != "radius_km" {
				errs = append(errs, model.FieldError{Field: field, Message: field + " is required"})
			}
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, model.FieldError{Field: field, Message: field + " must be a number"})
			return
		}
		*dst = f
	}
	parse("lat", &q.Latitude)
	parse("lng", &q.Longitude)
	parse("radius_km", &q.RadiusKm)
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, model.FieldError{Field: "limit", Message: "limit must be a positive integer"})
		}
		q.Limit = n
	}
	if len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return
	}

	locations, err := h.locations.Nearby(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "nearby locations"))
		return
	}

	WriteCollection(w, http.StatusOK, locations, nil)
}

// Create handles POST /v1/locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ProvisionLocationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	loc, err := h.locations.Provision(r.Context(), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "provision location"))
		return
	}

	w.Header().Set("Location", "/v1/locations/"+loc.ID)
	WriteData(w, http.StatusCreated, loc, locationLinks(loc.ID))
}

// Get handles GET /v1/locations/{locationId}
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc, err := h.locations.Get(r.Context(), r.PathValue("locationId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get location"))
		return
	}

	WriteData(w, http.StatusOK, loc, locationLinks(loc.ID))
}

// Leaderboard handles GET /v1/locations/{locationId}/leaderboard
func (h *LocationHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.leaderboard.Standings(r.Context(), r.PathValue("locationId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "leaderboard"))
		return
	}

	WriteData(w, http.StatusOK, board, nil)
}

// RecomputeLeader handles POST /v1/locations/{locationId}/leader/recompute
func (h *LocationHandler) RecomputeLeader(w http.ResponseWriter, r *http.Request) {
	change, err := h.leaderboard.Recompute(r.Context(), r.PathValue("locationId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "recompute leader"))
		return
	}

	WriteData(w, http.StatusOK, change, nil)
}

// MissingItems handles GET /v1/locations/{locationId}/missing-items
func (h *LocationHandler) MissingItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.locations.MissingItems(r.Context(), r.PathValue("locationId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list missing items"))
		return
	}

	WriteCollection(w, http.StatusOK, items, nil)
}

// OpenMissingItem handles POST /v1/locations/{locationId}/missing-items
func (h *LocationHandler) OpenMissingItem(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMissingItemRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	item, err := h.locations.OpenMissingItem(r.Context(), r.PathValue("locationId"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "open missing item"))
		return
	}

	WriteData(w, http.StatusCreated, item, nil)
}
