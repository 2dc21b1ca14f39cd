package engine

import (
	"errors"
	"fmt"

	"github.com/officeswitcher/officeswitcher/internal/capability"
)

// ErrAlreadyRan is returned by Run when the engine has already completed a pass.
var ErrAlreadyRan = errors.New("engine: pass already ran")

// PassError represents a problem detected during a pass. Pass errors are
// diagnostics: they are recorded in the Report and never abort the pass.
type PassError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Integration identifies the affected integration, if any.
	Integration string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes pass errors.
type ErrorCode string

const (
	// ErrCodeSourceUnavailable indicates the capability source reported nothing.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeMalformedData indicates the source data could not be parsed.
	ErrCodeMalformedData ErrorCode = "MALFORMED_DATA"

	// ErrCodeIconFetchFailed indicates the integration icon could not be fetched.
	ErrCodeIconFetchFailed ErrorCode = "ICON_FETCH_FAILED"

	// ErrCodeRegistrationFailed indicates the host rejected an action.
	ErrCodeRegistrationFailed ErrorCode = "REGISTRATION_FAILED"

	// ErrCodeActionLookupMiss indicates a configured native or legacy action is absent.
	ErrCodeActionLookupMiss ErrorCode = "ACTION_LOOKUP_MISS"
)

// Error implements the error interface.
func (e *PassError) Error() string {
	if e.Integration != "" {
		return fmt.Sprintf("%s: %s (integration=%s)", e.Code, e.Detail(), e.Integration)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail())
}

// Detail returns the message and cause without the code.
func (e *PassError) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *PassError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a PassError with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// sourceError classifies a capability resolution error.
func sourceError(id capability.IntegrationID, err error) *PassError {
	code := ErrCodeSourceUnavailable
	if errors.Is(err, capability.ErrMalformedData) {
		code = ErrCodeMalformedData
	}
	return &PassError{
		Code:        code,
		Integration: string(id),
		Message:     "no mime types resolved",
		Err:         err,
	}
}
