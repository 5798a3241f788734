package handler

import (
	"errors"
	"net/http"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	// Services validate non-donation payloads with problem details directly
	var pd *model.ProblemDetails
	if errors.As(err, &pd) {
		return pd
	}

	var de *service.DonationError
	if errors.As(err, &de) {
		p := mapDonationError(de)
		p.Stage = string(de.Stage)
		p.Retryable = de.Retryable()
		return p
	}

	return mapSentinel(err)
}

func mapDonationError(de *service.DonationError) *model.ProblemDetails {
	switch de.Kind {
	case service.KindNotFound:
		return mapSentinel(de.Err)
	case service.KindInvalidInput:
		if len(de.Fields) > 0 {
			return model.NewValidationError(de.Fields)
		}
		if errors.Is(de.Err, service.ErrUnknownItem) {
			return model.NewUnprocessableError(model.ErrCodeUnknownItem, de.Err.Error())
		}
		return model.NewUnprocessableError(model.ErrCodeInvalidInput, de.Err.Error())
	case service.KindConcurrencyConflict:
		return model.NewConflictError("the donation conflicted with a concurrent update; retry the request")
	default:
		return model.NewServiceUnavailableError("donation storage is temporarily unavailable")
	}
}

func mapSentinel(err error) *model.ProblemDetails {
	switch {
	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")
	case errors.Is(err, service.ErrLocationNotFound):
		return model.NewNotFoundError("storage location")

	// ===== Inactive donor → 404 with its own code =====
	case errors.Is(err, service.ErrUserInactive):
		p := model.NewNotFoundError("active user")
		p.Code = model.ErrCodeInactive
		return p

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidQuantity):
		return model.NewValidationError([]model.FieldError{{Field: "quantity", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidItemType):
		return model.NewValidationError([]model.FieldError{{Field: "item_type", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidReference):
		return model.NewValidationError([]model.FieldError{{Field: "reference", Message: err.Error()}})
	case errors.Is(err, service.ErrUnknownItem):
		return model.NewUnprocessableError(model.ErrCodeUnknownItem, err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		return model.NewBadRequestError(err.Error())

	// ===== Store Errors → 409 / 503 =====
	case errors.Is(err, service.ErrConcurrencyConflict):
		return model.NewConflictError("the request conflicted with a concurrent update; retry the request")
	case errors.Is(err, service.ErrRepositoryUnavailable):
		return model.NewServiceUnavailableError("storage is temporarily unavailable")

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == http.StatusInternalServerError {
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
