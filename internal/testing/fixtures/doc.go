// Package fixtures provides test data factories for the donation engine.
//
// Create a factory over any DonationStore:
//
//	f := fixtures.New(repository.NewMemoryDonationRepository())
//
// # Creating Test Data
//
//	user := f.CreateUser(t)
//	loc := f.CreateLocation(t)
//	f.CreateMissingItem(t, loc, "winter coats", WithBonus(75))
//
// # Customization
//
// Option functions adjust the defaults:
//
//	user := f.CreateUser(t, WithPoints(1900), WithTier("bronze"))
//
// Unique identifiers are generated automatically.
package fixtures
