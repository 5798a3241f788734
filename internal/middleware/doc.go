// Package middleware provides HTTP middleware for the donation API.
//
// # Available Middleware
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Logger: one structured log line per request
//   - Recovery: converts panics into a 500 problem response
//   - CORS: origin allow-list and preflight handling
//   - RateLimit: per-client token buckets (golang.org/x/time/rate)
//   - Idempotency: replays completed POST responses by Idempotency-Key
//   - Compress: gzip for clients that accept it
//
// Clients are identified by ClientKey: the X-Client-ID header when sent,
// otherwise the remote host.
//
// # Ordering
//
//	handler := middleware.Chain(mux,
//	    middleware.RequestID,
//	    middleware.Logger,
//	    middleware.Recovery,
//	    middleware.CORS(origins),
//	    middleware.RateLimit(limiter),
//	    middleware.Idempotency(store),
//	    middleware.Compress,
//	)
//
// Replays served by Idempotency count against the caller's rate limit.
package middleware
