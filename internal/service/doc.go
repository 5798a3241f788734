// Package service implements the donation engine's business logic.
//
// DonationService validates a donation, scores it, applies progression
// and commits the result as one unit of work through a
// repository.DonationStore. LeaderboardService owns per-location leader
// selection. DonorService and LocationService cover registration,
// provisioning and lookups.
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts a config struct
//   - Clock and IDGenerator fields may be set for deterministic tests
//   - Context is passed through for cancellation and request-scoped values
//
// # Error Handling
//
// Lookups return sentinel errors (ErrUserNotFound, ErrLocationNotFound,
// ...). A rejected donation returns *DonationError, which records the
// error kind and the last stage reached and unwraps to the sentinel:
//
//	var de *DonationError
//	if errors.As(err, &de) && de.Retryable() {
//	    // safe to resubmit
//	}
//
// # Example Usage
//
//	svc := NewDonationService(DonationServiceConfig{
//	    Store: store,
//	    Rules: rules.Default(),
//	})
//	result, err := svc.ProcessDonation(ctx, &model.DonationRequest{
//	    UserID: "u1", LocationID: "loc1", ItemType: "Winter Coats", Quantity: 2,
//	})
package service
