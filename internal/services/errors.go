// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindValidation
	KindUnauthorized
	KindConflict
)

// Sentinels for errors.Is. A *ServiceError matches the sentinel of its kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Error codes returned to API clients.
const (
	CodeExchangeNotFound         = "EXCHANGE_NOT_FOUND"
	CodeExchangeAlreadyProcessed = "EXCHANGE_ALREADY_PROCESSED"
	CodeExchangeDuplicate        = "EXCHANGE_DUPLICATE"
	CodeProductNotFound          = "PRODUCT_NOT_FOUND"
	CodeProductUnavailable       = "PRODUCT_UNAVAILABLE"
	CodeUserNotFound             = "USER_NOT_FOUND"
	CodeOrderNotFound            = "ORDER_NOT_FOUND"
	CodeInvalidTransition        = "INVALID_STATUS_TRANSITION"
	CodeInvalidStatus            = "INVALID_STATUS"
	CodeNotParticipant           = "NOT_ORDER_PARTICIPANT"
	CodeNotProductOwner          = "NOT_PRODUCT_OWNER"
	CodeSelfPurchase             = "SELF_PURCHASE"
	CodeValidationFailed         = "VALIDATION_ERROR"
	CodeInvalidCredentials       = "INVALID_CREDENTIALS"
	CodeUserExists               = "USER_EXISTS"
	CodeAccountInactive          = "ACCOUNT_INACTIVE"
	CodePaymentNotSucceeded      = "PAYMENT_NOT_SUCCEEDED"
	CodePaymentAmountMismatch    = "PAYMENT_AMOUNT_MISMATCH"
	CodePaymentOrderMismatch     = "PAYMENT_ORDER_MISMATCH"
	CodeShippingNotEditable      = "SHIPPING_NOT_EDITABLE"
	CodeConcurrentModification   = "CONCURRENT_MODIFICATION"
	CodeSwapSiblingNotFound      = "SWAP_SIBLING_NOT_FOUND"
	CodeInsufficientPermission   = "INSUFFICIENT_PERMISSIONS"
	CodePaymentRequired          = "PAYMENT_REQUIRED"
)

// ServiceError carries the kind the handlers map to an HTTP status, a stable
// client-facing code, and the underlying cause if there is one.
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

func notFound(code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalid(code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// invalidInput wraps a struct validation failure so handlers can report the
// offending fields.
func invalidInput(message string, err error) *ServiceError {
	return &ServiceError{Kind: KindValidation, Code: CodeValidationFailed, Message: message, Err: err}
}

func unauthorized(code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindUnauthorized, Code: code, Message: fmt.Sprintf(format, args...)}
}

func conflict(code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsServiceError returns the *ServiceError in err's chain, if any.
func AsServiceError(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}
