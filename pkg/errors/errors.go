package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for clients and for the HTTP status it maps to.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeStateConflict       Code = "STATE_CONFLICT"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeReconciliation      Code = "RECONCILIATION_ERROR"
	CodePayment             Code = "PAYMENT_ERROR"
	CodeGateway             Code = "GATEWAY_ERROR"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered on the wire.
//
// ExposeMessage marks codes whose error message is written for the end user
// (usually Korean copy from the domain layer). Other codes always answer with
// PublicMessage so driver and gateway text never leaks.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

type flag uint8

const (
	retryable flag = 1 << iota
	details
	expose
)

func describe(status int, public string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&details != 0,
		ExposeMessage:  flags&expose != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:          describe(http.StatusBadRequest, "validation failed", details|expose),
	CodeUnauthorized:        describe(http.StatusUnauthorized, "authentication required", expose),
	CodeForbidden:           describe(http.StatusForbidden, "access denied", expose),
	CodeNotFound:            describe(http.StatusNotFound, "resource not found", expose),
	CodeConflict:            describe(http.StatusConflict, "conflict detected", expose),
	CodeStateConflict:       describe(http.StatusUnprocessableEntity, "state transition disallowed", details|expose),
	CodeInsufficientBalance: describe(http.StatusUnprocessableEntity, "insufficient balance", details|expose),
	CodeReconciliation:      describe(http.StatusBadRequest, "payment return could not be reconciled", details|expose),
	CodePayment:             describe(http.StatusPaymentRequired, "payment could not be recorded", expose),
	CodeGateway:             describe(http.StatusBadGateway, "payment gateway error", retryable|details),
	CodeIdempotency:         describe(http.StatusConflict, "idempotency key reused", details|expose),
	CodeRateLimit:           describe(http.StatusTooManyRequests, "rate limit exceeded", expose),
	CodeInternal:            describe(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:          describe(http.StatusServiceUnavailable, "dependency unavailable", retryable|details),
}

// MetadataFor returns the rendering rules for code. Unknown codes are
// treated as internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure that the HTTP layer knows how to render.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// PublicMessage is the text a client may see for e.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if meta.ExposeMessage && e.Message() != "" {
		return e.message
	}
	return meta.PublicMessage
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
