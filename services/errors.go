package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	ErrQuoteNotApproved    = NewDomainError("quote must be approved before conversion")
	ErrQuoteConverted      = NewDomainError("quote has already been converted and can no longer change")
	ErrCustomerNoEmail     = NewDomainError("customer has no email address")
	ErrCheckoutUnavailable = NewDomainError("payment provider did not return a checkout url")
	ErrInvoiceClosed       = NewDomainError("invoice is already paid or cancelled")
	ErrOverpayment         = NewDomainError("payment exceeds the outstanding balance")
	ErrJobCompleted        = NewDomainError("job is already completed")
)

// DomainError is a business-rule violation that the caller can act on.
type DomainError struct {
	Message string
}

func NewDomainError(msg string) *DomainError {
	return &DomainError{Message: msg}
}

func (e *DomainError) Error() string { return e.Message }

// ValidationError reports malformed or missing input on one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// CollaboratorError wraps a failure of an external service (mail, payments, storage).
type CollaboratorError struct {
	Service string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return err
}
