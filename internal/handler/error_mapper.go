package handler

import (
	"errors"

	"github.com/tempohq/tempo/api/internal/model"
	"github.com/tempohq/tempo/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	switch {
	// ===== Booking Conflicts → 400 =====
	// Conflicts are part of the request contract, not a server-side race,
	// so they report as a bad request naming the busy email.
	case errors.Is(err, service.ErrBookingConflict):
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			return model.NewBookingConflictError(conflict.Subject)
		}
		return model.NewBookingConflictError("")

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrNotAllowed):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrEventNotFound):
		return model.NewNotFoundError("event")
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")

	// ===== Validation Errors → 400 =====
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTitleTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "title", Message: err.Error()}})
	case errors.Is(err, service.ErrDescriptionTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "description", Message: err.Error()}})
	case errors.Is(err, service.ErrStartTimeRequired),
		errors.Is(err, service.ErrEndTimeRequired),
		errors.Is(err, service.ErrInvalidTimeRange):
		return model.NewValidationError([]model.FieldError{{Field: "time_range", Message: err.Error()}})
	case errors.Is(err, service.ErrTooManyParticipants),
		errors.Is(err, service.ErrInvalidParticipantEmail):
		return model.NewValidationError([]model.FieldError{{Field: "participants", Message: err.Error()}})
	case errors.Is(err, service.ErrRecurringDatesRequired):
		return model.NewValidationError([]model.FieldError{{Field: "recurring_dates", Message: err.Error()}})
	case errors.Is(err, service.ErrNoFieldsToUpdate),
		errors.Is(err, service.ErrEventCanceled),
		errors.Is(err, service.ErrAuthCodeRequired),
		errors.Is(err, service.ErrInvalidAuthCode):
		return model.NewBadRequestError(err.Error())

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}
