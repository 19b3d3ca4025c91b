package service

import (
	"context"
	"errors"
	"fmt"
)

// Failure classes. Outbound and storage errors are wrapped with one of the first three.
var (
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrProviderFailure      = errors.New("provider failure")
	ErrStorageFailure       = errors.New("storage failure")
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnknownField       = errors.New("unknown field")
	ErrPaymentRequired    = errors.New("payment required")
	ErrAlreadyPaid        = errors.New("session already paid")
	ErrSelfReportDisabled = errors.New("self-reported payment confirmation is disabled")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrInvalidCallback    = errors.New("invalid payment callback")
	ErrOrderNotFound      = errors.New("order not found")
	ErrJobInProgress      = errors.New("generation already in progress")
	ErrJobNotFound        = errors.New("generation job not found")
)

func wrap(class error, err error) error {
	return fmt.Errorf("%w: %w", class, err)
}

// ErrorKind names the failure class of err, or "" when it has none.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration"
	case errors.Is(err, ErrProviderFailure):
		return "provider"
	case errors.Is(err, ErrStorageFailure):
		return "storage"
	case errors.Is(err, ErrPaymentRequired):
		return "payment_required"
	default:
		return "internal"
	}
}

// UserMessage is the one line shown on the page for a failed action.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Generation was canceled."
	case errors.Is(err, ErrConfigurationMissing):
		return "The service is not fully configured yet. Please contact the operator."
	case errors.Is(err, ErrProviderFailure):
		return "An external provider could not complete the request. Please try again."
	case errors.Is(err, ErrStorageFailure):
		return "The plan could not be saved. Please try again."
	case errors.Is(err, ErrPaymentRequired):
		return "Please complete payment before generating a plan."
	case errors.Is(err, ErrAlreadyPaid):
		return "Payment already received."
	case errors.Is(err, ErrSelfReportDisabled):
		return "Payment is confirmed automatically once the provider reports it."
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrInvalidCallback):
		return "Payment could not be verified."
	case errors.Is(err, ErrJobInProgress):
		return "A plan is already being generated."
	case errors.Is(err, ErrSessionNotFound):
		return "Your session has expired. Please reload the page."
	default:
		return "Something went wrong. Please try again."
	}
}
