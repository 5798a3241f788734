package handler

import "net/http"

// Router bundles the handlers mounted by NewRouter. Nil handlers leave
// their routes unmounted.
type Router struct {
	Donors    *DonorHandler
	Donations *DonationHandler
	Locations *LocationHandler
	Health    *HealthHandler
	Metrics   http.Handler
}

// NewRouter registers every route on a ServeMux
func NewRouter(rt Router) *http.ServeMux {
	mux := http.NewServeMux()

	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.Health)
	}
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	if h := rt.Donors; h != nil {
		mux.HandleFunc("GET /v1/users", h.List)
		mux.HandleFunc("POST /v1/users", h.Register)
		mux.HandleFunc("GET /v1/users/{userId}", h.Get)
		mux.HandleFunc("POST /v1/users/{userId}/deactivate", h.Deactivate)
		mux.HandleFunc("GET /v1/users/{userId}/donations", h.Donations)
		mux.HandleFunc("GET /v1/users/{userId}/audit", h.Audit)
		mux.HandleFunc("GET /v1/leaderboard", h.Leaderboard)
		mux.HandleFunc("GET /v1/achievements", h.Achievements)
		mux.HandleFunc("GET /v1/stats", h.Stats)
	}

	if h := rt.Donations; h != nil {
		mux.HandleFunc("POST /v1/donations", h.Create)
	}

	if h := rt.Locations; h != nil {
		mux.HandleFunc("GET /v1/locations", h.List)
		mux.HandleFunc("POST /v1/locations", h.Create)
		mux.HandleFunc("GET /v1/locations/{locationId}", h.Get)
		mux.HandleFunc("GET /v1/locations/{locationId}/leaderboard", h.Leaderboard)
		mux.HandleFunc("POST /v1/locations/{locationId}/leader/recompute", h.RecomputeLeader)
		mux.HandleFunc("GET /v1/locations/{locationId}/missing-items", h.MissingItems)
		mux.HandleFunc("POST /v1/locations/{locationId}/missing-items", h.OpenMissingItem)
	}

	return mux
}
