package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Wire codes returned to clients as plain text. The legacy client treats
// any non-2xx status as failure and surfaces these strings verbatim, so
// they must stay stable.
const (
	WireBadAuth         = "BAD AUTH"
	WireBadToken        = "BAD TOKEN"
	WireBadFilename     = "BAD FILENAME"
	WireBadContent      = "BAD CONTENT"
	WireBadData         = "BAD DATA"
	WireTooMuchFeedback = "TOO MUCH FEEDBACK"
	WireStoreFail       = "FIRESTORE FAIL"
	WireChannelFail     = "PUBSUB FAIL"
	WireConfigFail      = "CONFIG FAIL"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	WireCode   string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, wireCode, message string, status int) *DomainError {
	return &DomainError{Code: code, WireCode: wireCode, Message: message, HTTPStatus: status}
}

// NewAuthError reports a credential/identity mismatch. Not retryable.
func NewAuthError(message string) error {
	return NewDomainError("AUTH_FAILED", WireBadAuth, message, http.StatusBadRequest)
}

// NewSecretError reports a missing or wrong shared secret. Not retryable.
func NewSecretError(message string) error {
	return NewDomainError("AUTH_FAILED", WireBadToken, message, http.StatusBadRequest)
}

// NewValidationError reports malformed or missing input. The wire code
// tells the client which input was bad.
func NewValidationError(wireCode, message string) error {
	return NewDomainError("VALIDATION_FAILED", wireCode, message, http.StatusBadRequest)
}

// NewQuotaExceeded reports too many open submissions for one email.
func NewQuotaExceeded(email string) error {
	return NewDomainError("QUOTA_EXCEEDED", WireTooMuchFeedback,
		fmt.Sprintf("too much feedback from %s", email), http.StatusBadRequest)
}

// NewStoreError wraps a record store failure. The caller may retry the
// whole call.
func NewStoreError(err error) error {
	return &DomainError{
		Code:       "STORE_FAILED",
		WireCode:   WireStoreFail,
		Message:    "record store operation failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewChannelError wraps a publish failure that happened after the store
// mutation succeeded. The record is left un-notified for the caretaker.
func NewChannelError(err error) error {
	return &DomainError{
		Code:       "CHANNEL_FAILED",
		WireCode:   WireChannelFail,
		Message:    "notification publish failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewTransportError wraps an outbound email failure. The record is not
// mutated, so reconciliation can reattempt delivery.
func NewTransportError(err error) error {
	return &DomainError{
		Code:       "TRANSPORT_FAILED",
		WireCode:   WireStoreFail,
		Message:    "email transport failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewConfigError reports missing runtime configuration.
func NewConfigError(message string) error {
	return NewDomainError("CONFIG_MISSING", WireConfigFail, message, http.StatusBadRequest)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "STORE_FAILED",
		WireCode:   WireStoreFail,
		Message:    "internal error",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// IsCode reports whether err carries the given machine code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
