package service

import "errors"

// ErrorCode taxonomy of caller-visible failures. Every core operation fails fast
// with exactly one of these; storage rollback guarantees no partial side effects.
type ErrorCode string

const (
	ErrorInvalid              ErrorCode = "invalid"
	ErrorInvalidCredentials   ErrorCode = "invalid_credentials"
	ErrorWeakPassword         ErrorCode = "weak_password"
	ErrorConfirmationMismatch ErrorCode = "confirmation_mismatch"
	ErrorConflict             ErrorCode = "conflict"
	ErrorNotFound             ErrorCode = "not_found"
	ErrorInvalidState         ErrorCode = "invalid_state"
	ErrorUnauthenticated      ErrorCode = "unauthenticated"
	ErrorUnauthorized         ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error { return &ServiceError{Code: ErrorInvalid, Message: msg} }

func NewInvalidCredentialsError() error {
	// Deliberately uniform: never reveals whether the account exists, the secret
	// was wrong, or the platform was not permitted.
	return &ServiceError{Code: ErrorInvalidCredentials, Message: "incorrect username or password"}
}

func NewWeakPasswordError(reason string) error {
	return &ServiceError{Code: ErrorWeakPassword, Message: reason}
}

func NewConfirmationMismatchError() error {
	return &ServiceError{Code: ErrorConfirmationMismatch, Message: "password confirmation does not match"}
}

func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }

// NewNotFoundError covers both "does not exist" and "exists but not owned by the
// caller"; the two must stay indistinguishable to prevent enumeration.
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }

func NewInvalidStateError(msg string) error {
	return &ServiceError{Code: ErrorInvalidState, Message: msg}
}

func NewUnauthenticatedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthenticated, Message: msg}
}

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCode reports whether err is a ServiceError with the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}
