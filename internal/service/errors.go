package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Validation Errors =====
var (
	ErrTitleRequired           = errors.New("title is required")
	ErrTitleTooLong            = errors.New("title exceeds maximum length")
	ErrDescriptionTooLong      = errors.New("description exceeds maximum length")
	ErrStartTimeRequired       = errors.New("start time is required")
	ErrEndTimeRequired         = errors.New("end time is required")
	ErrInvalidTimeRange        = errors.New("end time must be after start time")
	ErrTooManyParticipants     = errors.New("participant limit exceeded")
	ErrInvalidParticipantEmail = errors.New("invalid participant email")
	ErrRecurringDatesRequired  = errors.New("recurring events require recurring dates")
	ErrNoFieldsToUpdate        = errors.New("no fields to update")
	ErrAuthCodeRequired        = errors.New("authorization code is required")
	ErrInvalidAuthCode         = errors.New("authorization code rejected by provider")
)

// ===== Booking Errors =====
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrEventCanceled   = errors.New("event is canceled")
	ErrBookingConflict = errors.New("booking conflict")
)

// ===== Authorization Errors =====
var (
	ErrUserNotFound = errors.New("user not found")
	ErrNotAllowed   = errors.New("not authorized to perform this action")
)

// ConflictError reports which email's schedule blocked a booking. It matches
// ErrBookingConflict under errors.Is, so handlers can branch on the sentinel
// and still extract the subject with errors.As.
type ConflictError struct {
	Subject string
}

func (e *ConflictError) Error() string {
	return "booking conflict for " + e.Subject
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrBookingConflict
}
