// studybuddy/types/errors.go
package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration         = errors.New("configuration error")
	ErrAuthenticationFailure = errors.New("incorrect username or password")
	ErrDuplicateUser         = errors.New("username already exists")
	ErrInvalidInput          = errors.New("invalid input")
	ErrStorageParse          = errors.New("storage parse error")
	ErrExternalService       = errors.New("external service error")
	ErrNoActiveConversation  = errors.New("no active conversation")
	ErrSessionExpired        = errors.New("session expired")
	ErrNotFound              = errors.New("not found")
	ErrVersionConflict       = errors.New("version conflict")
)

// ExternalServiceError wraps a failed call to the model or calendar API.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}

func NewExternalServiceError(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}
