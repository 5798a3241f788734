package service

import (
	"errors"
	"fmt"

	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Lookup Errors =====
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserInactive     = errors.New("user is deactivated")
	ErrLocationNotFound = errors.New("storage location not found")
)

// ===== Input Errors =====
var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidItemType  = errors.New("item type is required")
	ErrInvalidReference = errors.New("user and location are required")
	ErrUnknownItem      = errors.New("unknown item type and no default scoring configured")
	ErrInvalidRequest   = errors.New("invalid request")
)

// ===== Store Errors =====
var (
	ErrConcurrencyConflict   = errors.New("concurrent update conflict")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)

// ErrorKind classifies a rejected donation
type ErrorKind string

const (
	KindNotFound              ErrorKind = "NotFound"
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindConcurrencyConflict   ErrorKind = "ConcurrencyConflict"
	KindRepositoryUnavailable ErrorKind = "RepositoryUnavailable"
)

// DonationError is returned when a donation is rejected. Nothing from a
// rejected donation is persisted.
type DonationError struct {
	Kind   ErrorKind
	Stage  model.DonationStage // last stage reached before rejection
	Err    error
	Fields []model.FieldError
}

func (e *DonationError) Error() string {
	return fmt.Sprintf("donation rejected at %s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *DonationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-running the whole donation may succeed
func (e *DonationError) Retryable() bool {
	return e.Kind == KindConcurrencyConflict || e.Kind == KindRepositoryUnavailable
}

func rejectf(kind ErrorKind, stage model.DonationStage, err error) *DonationError {
	return &DonationError{Kind: kind, Stage: stage, Err: err}
}

// storeError converts a repository failure into a service sentinel
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
}

// classify maps any error escaping a donation unit of work to a kind
func classify(err error) ErrorKind {
	var de *DonationError
	switch {
	case errors.As(err, &de):
		return de.Kind
	case errors.Is(err, database.ErrConflict), errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrLocationNotFound), errors.Is(err, ErrUserInactive):
		return KindNotFound
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidItemType),
		errors.Is(err, ErrInvalidReference), errors.Is(err, ErrUnknownItem), errors.Is(err, ErrInvalidRequest):
		return KindInvalidInput
	}
	return KindRepositoryUnavailable
}

// serviceError passes service sentinels through and converts anything
// else escaping a unit of work with storeError
func serviceError(err error) error {
	if err == nil || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserInactive) ||
		errors.Is(err, ErrLocationNotFound) || errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrRepositoryUnavailable) {
		return err
	}
	var pd *model.ProblemDetails
	if errors.As(err, &pd) {
		return err
	}
	return storeError(err)
}
