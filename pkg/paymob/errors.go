package paymob

import "fmt"

// GatewayError carries the details shared by every failed gateway call.
type GatewayError struct {
	Message  string // category text shown to callers, e.g. "Auth failed"
	Status   int    // upstream HTTP status, 0 when the request never got a response
	Upstream string // gateway's own error message, if the body had one
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Details is the underlying failure text without the category prefix.
func (e *GatewayError) Details() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

// Gateway exposes the shared details of any category error to errors.As.
func (e *GatewayError) Gateway() *GatewayError { return e }

// Unauthorized reports whether the gateway rejected the session token.
func (e *GatewayError) Unauthorized() bool {
	return e.Status == 401
}

// CategoryError is implemented by AuthError, OrderError and PaymentKeyError.
type CategoryError interface {
	error
	Gateway() *GatewayError
}

// AuthError is returned when the gateway refuses or cannot be reached for authentication.
type AuthError struct{ GatewayError }

// OrderError is returned when order registration fails.
type OrderError struct{ GatewayError }

// PaymentKeyError is returned when payment key issuance fails.
type PaymentKeyError struct{ GatewayError }

// ValidationError is returned when an inbound payload cannot be translated.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const (
	MsgAuthFailed       = "Auth failed"
	MsgOrderFailed      = "Order creation failed"
	MsgPaymentKeyFailed = "Payment key failed"
)

func newAuthError(status int, upstream string, err error) *AuthError {
	return &AuthError{GatewayError{Message: MsgAuthFailed, Status: status, Upstream: upstream, Err: err}}
}

func newOrderError(status int, upstream string, err error) *OrderError {
	return &OrderError{GatewayError{Message: MsgOrderFailed, Status: status, Upstream: upstream, Err: err}}
}

func newPaymentKeyError(status int, upstream string, err error) *PaymentKeyError {
	return &PaymentKeyError{GatewayError{Message: MsgPaymentKeyFailed, Status: status, Upstream: upstream, Err: err}}
}
