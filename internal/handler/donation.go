package handler

import (
	"context"
	"net/http"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// DonationProcessor is the donation service surface used by DonationHandler
type DonationProcessor interface {
	ProcessDonation(ctx context.Context, req *model.DonationRequest) (*model.DonationResult, error)
}

// DonationHandler handles donation HTTP requests
type DonationHandler struct {
	processor DonationProcessor
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(processor DonationProcessor) *DonationHandler {
	return &DonationHandler{processor: processor}
}

// Create handles POST /v1/donations. Clients may repeat the request with
// the same Idempotency-Key to retrieve the original result.
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.DonationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.processor.ProcessDonation(r.Context(), &req)
	if err != nil {
		p := MapServiceError(err)
		if p.Retryable {
			w.Header().Set("Retry-After", "1")
		}
		WriteError(w, p)
		return
	}

	WriteData(w, http.StatusCreated, result, map[string]string{
		"donor":       "/v1/users/" + result.UserID,
		"leaderboard": "/v1/locations/" + result.LocationID + "/leaderboard",
	})
}
