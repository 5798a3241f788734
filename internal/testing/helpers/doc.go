// Package helpers provides test utilities for the HTTP surface and the
// SurrealDB store.
//
// # Request Helpers
//
//	req := helpers.NewRequest(t, http.MethodPost, "/v1/donations").
//		WithBody(body).
//		WithIdempotencyKey("k1").
//		Build()
//
// # Assertion Helpers
//
//	helpers.AssertProblemDetails(t, rr, http.StatusNotFound, model.ErrCodeNotFound)
//	helpers.AssertValidationError(t, rr, "quantity")
//	helpers.AssertRecordExists(t, db, "donation", id)
package helpers
