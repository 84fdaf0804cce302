package routing

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "validation_error"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeNoSellersAvailable ErrorCode = "no_sellers_available"
	ErrorCodeInternal           ErrorCode = "internal_error"
)

// ErrNoSellersAvailable is returned by Assign when no active seller is registered.
// Callers should retry later or queue the conversation.
var ErrNoSellersAvailable = errors.New("no sellers available")

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
