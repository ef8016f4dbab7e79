package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a TransferIntent failed
type ErrorKind string

const (
	// Validation, never reaches the network
	KindEmptyDestination  ErrorKind = "EMPTY_DESTINATION"
	KindInvalidAmount     ErrorKind = "INVALID_AMOUNT"
	KindNonPositiveAmount ErrorKind = "NON_POSITIVE_AMOUNT"

	// Resolution
	KindNoSession             ErrorKind = "NO_SESSION"
	KindNoEligibleAccount     ErrorKind = "NO_ELIGIBLE_ACCOUNT"
	KindRecipientNotFound     ErrorKind = "RECIPIENT_NOT_FOUND"
	KindRecipientHasNoAccount ErrorKind = "RECIPIENT_HAS_NO_ACCOUNT"
	KindSessionError          ErrorKind = "SESSION_ERROR"

	// Resolution or submission
	KindNetworkError ErrorKind = "NETWORK_ERROR"

	// Submission
	KindServerRejected ErrorKind = "SERVER_REJECTED"

	// Confirmation gate
	KindUserCancelled ErrorKind = "USER_CANCELLED"

	// Caller context cancelled before the mutating call was dispatched
	KindCancelled ErrorKind = "CANCELLED"
)

// Stage is the workflow step an error originated from
type Stage string

const (
	StageValidation   Stage = "VALIDATION"
	StageResolution   Stage = "RESOLUTION"
	StageConfirmation Stage = "CONFIRMATION"
	StageSubmission   Stage = "SUBMISSION"
)

// Error is the terminal failure attached to a TransferIntent
type Error struct {
	Kind       ErrorKind
	Stage      Stage
	StatusCode int    // set for API failures that produced a response
	Body       string // response body text, if any
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so sentinels like ErrRecipientNotFound work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// OutcomeUnknown reports whether the mutating call may or may not have been applied.
// Only a transport failure after dispatch has that property.
func (e *Error) OutcomeUnknown() bool {
	return e.Stage == StageSubmission && e.Kind == KindNetworkError && !errors.Is(e.Err, ErrRequestNotSent)
}

// NewError builds an Error for the given stage and kind
func NewError(stage Stage, kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: cause}
}

// Sentinels for errors.Is comparisons. Only Kind is compared.
var (
	ErrEmptyDestination      = &Error{Kind: KindEmptyDestination}
	ErrInvalidAmount         = &Error{Kind: KindInvalidAmount}
	ErrNonPositiveAmount     = &Error{Kind: KindNonPositiveAmount}
	ErrNoSession             = &Error{Kind: KindNoSession}
	ErrNoEligibleAccount     = &Error{Kind: KindNoEligibleAccount}
	ErrRecipientNotFound     = &Error{Kind: KindRecipientNotFound}
	ErrRecipientHasNoAccount = &Error{Kind: KindRecipientHasNoAccount}
	ErrSessionError          = &Error{Kind: KindSessionError}
	ErrNetworkError          = &Error{Kind: KindNetworkError}
	ErrServerRejected        = &Error{Kind: KindServerRejected}
	ErrUserCancelled         = &Error{Kind: KindUserCancelled}
	ErrCancelled             = &Error{Kind: KindCancelled}
)

// KindOf extracts the ErrorKind of err, or "" if err is not a domain Error
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// APIError is what collaborator APIs return on failure.
// StatusCode is 0 when no response was received.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api request failed: %v", e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrRequestNotSent marks failures that happened before a request left the client
var ErrRequestNotSent = errors.New("request not sent")

// AsAPIError extracts an APIError from err
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
