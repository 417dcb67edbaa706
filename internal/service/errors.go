package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a request without a usable identity.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden marks a caller whose role lacks the capability.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrNotFound marks an absent target entity.
	ErrNotFound = errors.New("resource not found")
	// ErrUserBanned marks an actor that is currently banned.
	ErrUserBanned = errors.New("user is banned")
	// ErrInvalidTransition marks a review transition the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConsistency marks a failed post-write verification. Never retried.
	ErrConsistency = errors.New("consistency check failed")
	// ErrStore marks a failure of the underlying database.
	ErrStore = errors.New("store operation failed")
)

// BannedError carries the ban that blocked an actor.
type BannedError struct {
	Ban models.BanEntry
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("user %s is banned (%s)", e.Ban.UserID, e.Ban.BanType)
}

// Is lets callers match BannedError with errors.Is(err, ErrUserBanned).
func (e *BannedError) Is(target error) bool {
	return target == ErrUserBanned
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func wrapValidation(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func storeError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, operation, err)
}
