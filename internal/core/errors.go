package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfiguration        = errors.New("service misconfigured")
	ErrUpstream             = errors.New("upstream provider failure")
	ErrStorageDisabled      = errors.New("object storage not configured")
	ErrOrganizationNotFound = fmt.Errorf("organization %w", ErrNotFound)
	ErrSessionNotFound      = fmt.Errorf("session %w", ErrNotFound)
	ErrInteractionNotFound  = fmt.Errorf("interaction %w", ErrNotFound)
	ErrArtifactNotFound     = fmt.Errorf("artifact %w", ErrNotFound)
)

// ValidationError reports a bad request field. It matches ErrInvalidInput.
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

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
