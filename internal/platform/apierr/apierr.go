package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Payment error codes surfaced to API clients.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidPayerVPA     = "INVALID_PAYER_VPA"
	CodeInvalidPayeeVPA     = "INVALID_PAYEE_VPA"
	CodeSameVPA             = "SAME_VPA"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeTxnNotFound         = "TXN_NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidBody         = "INVALID_REQUEST_BODY"
	CodeUnsupportedMedia    = "UNSUPPORTED_MEDIA_TYPE"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Status int
	Code   string
	Err    error
	Fields []FieldError
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Payment builds a client error for a rejected payment. Lookups that miss map to 404.
func Payment(code, msg string) *Error {
	status := http.StatusBadRequest
	switch code {
	case CodeTxnNotFound:
		status = http.StatusNotFound
	case CodeIdempotencyConflict:
		status = http.StatusConflict
	}
	return New(status, code, errors.New(msg))
}

func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Err: errors.New(msg), Fields: fields}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
