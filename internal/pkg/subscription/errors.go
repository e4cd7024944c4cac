package subscription

import "errors"

// Code is the machine-readable classification surfaced to callers instead of
// raw store or provider errors.
type Code string

const (
	CodeAuthFailed          Code = "auth_failed"
	CodeNotAuthenticated    Code = "not_authenticated"
	CodeStoreQueryFailed    Code = "store_query_failed"
	CodeCheckoutFailed      Code = "checkout_failed"
	CodeCancelFailed        Code = "cancel_failed"
	CodePaymentUpdateFailed Code = "payment_update_failed"
	CodeUnknown             Code = "unknown"
)

// Error carries a classification code alongside the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps an underlying error with a classification code.
func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the classification from any error in the chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
