// Package model defines the records, request/response types and error
// payloads shared by every layer.
//
// Domain records:
//
//   - User: a donor and their progression state (points, tier, streak, achievements)
//   - StorageLocation: a collection point with its cached leader
//   - Donation: an immutable ledger entry
//   - ItemCatalogEntry: base points and demand multiplier per item type
//   - MissingItemRequest: an outstanding shortage at a location
//   - AchievementDefinition: a declarative unlock rule and its reward
//
// Errors returned over HTTP are RFC 9457 ProblemDetails (errors.go).
package model
