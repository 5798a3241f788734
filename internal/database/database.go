// Package database provides the storage connections used by the
// repositories: a SurrealDB client with batch transactions, and a
// PostgreSQL handle with embedded schema migrations.
//
// # Interface Design
//
// The Database interface provides three query methods:
//   - Query: Returns multiple results (for SELECT queries returning lists)
//   - QueryOne: Returns a single result (for SELECT by ID)
//   - Execute: No return value (for CREATE/UPDATE/DELETE mutations)
//
// # Transaction Support
//
// IMPORTANT: SurrealDB transactions in this package are BATCH-BASED, not
// connection-level. Statements are accumulated in memory and sent wrapped in
// BEGIN TRANSACTION / COMMIT TRANSACTION. Reads issued before the batch are
// not isolated from concurrent writers, so batches that depend on earlier
// reads carry version guards that THROW "version_conflict"; that failure is
// surfaced as ErrConflict.
//
// PostgreSQL uses ordinary database/sql transactions; serialization and
// deadlock failures are surfaced as ErrConflict as well.
//
// # Error Handling
//
// Standard errors are defined for common failure cases:
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Unique constraint violation
//   - ErrConnection: Database connection issues
//   - ErrQuery: Query execution failures
//   - ErrConflict: A concurrent write invalidated the transaction
//
// Use errors.Is() to check error types:
//
//	if errors.Is(err, database.ErrConflict) {
//	    // retry from scratch
//	}
package database

import (
	"context"
	"errors"
	"strings"
)

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure (syntax error, invalid reference, etc.).
	ErrQuery = errors.New("query error")

	// ErrLimitExceeded indicates a result set exceeded the maximum allowed size.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrConflict indicates the transaction lost a race with a concurrent
	// write and was not applied.
	ErrConflict = errors.New("transaction conflict")
)

// ConflictMarker is the message thrown by version guards
const ConflictMarker = "version_conflict"

// Database defines the interface for database operations
type Database interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns results
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns a single result
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds SurrealDB configuration
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// classifyQueryError maps a failed statement message to a sentinel
func classifyQueryError(msg string) error {
	switch {
	case strings.Contains(msg, ConflictMarker):
		return ErrConflict
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "already contains"):
		return ErrDuplicate
	// SurrealDB reports a write-write race between two transactions this way
	case strings.Contains(msg, "can be retried"), strings.Contains(msg, "Transaction conflict"):
		return ErrConflict
	}
	return ErrQuery
}
