package errors

import "fmt"

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	if ve, ok := err.(*ValidationError); ok {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	if nfe, ok := err.(*NotFoundError); ok {
		return nfe, true
	}
	return nil, false
}

// InvalidStateError covers operations that are not legal in the order's
// current status, including lost-update conflicts detected at commit time.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

func NewInvalidStateError(message string) *InvalidStateError {
	return &InvalidStateError{Message: message}
}

func IsInvalidStateError(err error) (*InvalidStateError, bool) {
	if ise, ok := err.(*InvalidStateError); ok {
		return ise, true
	}
	return nil, false
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found or inactive: %s", e.ProductID)
}

func NewProductNotFoundError(productID string) *ProductNotFoundError {
	return &ProductNotFoundError{ProductID: productID}
}

func IsProductNotFoundError(err error) (*ProductNotFoundError, bool) {
	if pnf, ok := err.(*ProductNotFoundError); ok {
		return pnf, true
	}
	return nil, false
}

type InsufficientPaymentError struct {
	Message string
}

func (e *InsufficientPaymentError) Error() string {
	return e.Message
}

func NewInsufficientPaymentError(message string) *InsufficientPaymentError {
	return &InsufficientPaymentError{Message: message}
}

func IsInsufficientPaymentError(err error) (*InsufficientPaymentError, bool) {
	if ipe, ok := err.(*InsufficientPaymentError); ok {
		return ipe, true
	}
	return nil, false
}

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

func IsUnauthorizedError(err error) (*UnauthorizedError, bool) {
	if ue, ok := err.(*UnauthorizedError); ok {
		return ue, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
