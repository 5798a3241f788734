// Package handler provides the HTTP surface of the donation engine.
//
// Handlers are thin: decode the request, call one service method, and
// write either a data envelope or an RFC 9457 problem response. Each
// handler depends on a narrow interface (DonorManager, DonationProcessor,
// LocationManager, LeaderboardManager) that the service types satisfy.
//
// # Response Format
//
//   - WriteData: single resource with optional HATEOAS links
//   - WriteCollection: list with count
//   - WriteError: application/problem+json
//
// Every service error goes through MapServiceError. Rejected donations
// carry the processing stage they reached and whether a retry may help:
//
//	404 NotFound               unknown or deactivated donor, unknown location
//	422 InvalidInput           bad quantity, item type or references
//	409 ConcurrencyConflict    retries exhausted; safe to resend
//	503 RepositoryUnavailable  store failure; safe to resend
//
// # Routes
//
//	router := handler.NewRouter(handler.Router{
//	    Donors:    handler.NewDonorHandler(donorService),
//	    Donations: handler.NewDonationHandler(donationService),
//	    Locations: handler.NewLocationHandler(locationService, leaderboardService),
//	})
package handler
