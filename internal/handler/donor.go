package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// DonorManager is the donor service surface used by DonorHandler
type DonorManager interface {
	Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	Deactivate(ctx context.Context, userID string) (*model.User, error)
	Donations(ctx context.Context, userID string) ([]*model.Donation, error)
	Audit(ctx context.Context, userID string) (*model.LedgerAudit, error)
	List(ctx context.Context) ([]*model.User, error)
	Leaderboard(ctx context.Context, q model.LeaderboardQuery) (*model.DonorLeaderboard, error)
	Achievements(ctx context.Context, userID string) (*model.AchievementCatalog, error)
	Stats(ctx context.Context) (*model.PlatformStats, error)
}

// DonorHandler handles donor HTTP requests
type DonorHandler struct {
	donors DonorManager
}

// NewDonorHandler creates a new donor handler
func NewDonorHandler(donors DonorManager) *DonorHandler {
	return &DonorHandler{donors: donors}
}

func userLinks(id string) map[string]string {
	return map[string]string{
		"self":      "/v1/users/" + id,
		"donations": "/v1/users/" + id + "/donations",
		"audit":     "/v1/users/" + id + "/audit",
	}
}

// Register handles POST /v1/users
func (h *DonorHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	user, err := h.donors.Register(r.Context(), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "register donor"))
		return
	}

	w.Header().Set("Location", "/v1/users/"+user.ID)
	WriteData(w, http.StatusCreated, user, userLinks(user.ID))
}

// Get handles GET /v1/users/{userId}
func (h *DonorHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	user, err := h.donors.Get(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get donor"))
		return
	}

	WriteData(w, http.StatusOK, user, userLinks(user.ID))
}

// Deactivate handles POST /v1/users/{userId}/deactivate
func (h *DonorHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	user, err := h.donors.Deactivate(r.Context(), r.PathValue("userId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "deactivate donor"))
		return
	}

	WriteData(w, http.StatusOK, user, nil)
}

// Donations handles GET /v1/users/{userId}/donations
func (h *DonorHandler) Donations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donors.Donations(r.Context(), r.PathValue("userId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list donations"))
		return
	}

	WriteCollection(w, http.StatusOK, donations, nil)
}

// Audit handles GET /v1/users/{userId}/audit
func (h *DonorHandler) Audit(w http.ResponseWriter, r *http.Request) {
	audit, err := h.donors.Audit(r.Context(), r.PathValue("userId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "audit donor"))
		return
	}

	WriteData(w, http.StatusOK, audit, nil)
}

// List handles GET /v1/users
func (h *DonorHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.donors.List(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list donors"))
		return
	}

	WriteCollection(w, http.StatusOK, users, nil)
}

// Leaderboard handles GET /v1/leaderboard?period=all_time|monthly&limit=N
func (h *DonorHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := model.LeaderboardQuery{Period: query.Get("period")}
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, model.NewValidationError([]model.FieldError{
				{Field: "limit", Message: "limit must be a positive integer"},
			}))
			return
		}
		q.Limit = n
	}

	board, err := h.donors.Leaderboard(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "donor leaderboard"))
		return
	}

	WriteData(w, http.StatusOK, board, nil)
}

// Achievements handles GET /v1/achievements. With user_id each entry
// reports whether that donor has unlocked it.
func (h *DonorHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.donors.Achievements(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list achievements"))
		return
	}

	WriteData(w, http.StatusOK, catalog, nil)
}

// Stats handles GET /v1/stats
func (h *DonorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.donors.Stats(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "platform stats"))
		return
	}

	WriteData(w, http.StatusOK, stats, nil)
}
