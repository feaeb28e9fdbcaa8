package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the review-assignment services. Controllers map
// these onto HTTP status codes; batch paths record them per item instead of
// aborting siblings.
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateInvitation = errors.New("an active invitation already exists for this reviewer and manuscript")
	ErrInvitationExpired   = errors.New("invitation response deadline has passed")
	ErrInvitationResolved  = errors.New("invitation has already been resolved")
	ErrFieldUnknown        = errors.New("cannot determine manuscript field")
	ErrNotInvitable        = errors.New("manuscript is not in an invitable status")
)

// ValidationError marks caller-correctable input problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
