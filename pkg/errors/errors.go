package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Settlement and fulfillment codes. Clients branch on these, so the
	// strings are part of the API contract.
	CodeInsufficientStock    Code = "INSUFFICIENT_STOCK"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodePaymentVerification  Code = "PAYMENT_VERIFICATION_FAILED"
	CodeAmountMismatch       Code = "AMOUNT_MISMATCH"
	CodeDuplicateTransaction Code = "DUPLICATE_TRANSACTION"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeUnsupportedPayment   Code = "UNSUPPORTED_PAYMENT_METHOD"
	CodeReturnWindowExpired  Code = "RETURN_WINDOW_EXPIRED"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:     http.StatusUnauthorized,
		Retryable:      false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeForbidden: {
		HTTPStatus:     http.StatusForbidden,
		Retryable:      false,
		PublicMessage:  "access denied",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "conflict detected",
		DetailsAllowed: false,
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      false,
		PublicMessage:  "rate limit exceeded",
		DetailsAllowed: false,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeInsufficientFunds: {
		HTTPStatus:     http.StatusPaymentRequired,
		Retryable:      false,
		PublicMessage:  "insufficient wallet balance",
		DetailsAllowed: true,
	},
	CodePaymentVerification: {
		HTTPStatus:     http.StatusPaymentRequired,
		Retryable:      true,
		PublicMessage:  "payment could not be verified",
		DetailsAllowed: true,
	},
	CodeAmountMismatch: {
		HTTPStatus:     http.StatusPaymentRequired,
		Retryable:      false,
		PublicMessage:  "paid amount does not cover the order total",
		DetailsAllowed: true,
	},
	CodeDuplicateTransaction: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "transaction reference already used",
		DetailsAllowed: true,
	},
	CodeInvalidAmount: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "amount does not cover the order total",
		DetailsAllowed: true,
	},
	CodeUnsupportedPayment: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "unsupported payment method",
		DetailsAllowed: true,
	},
	CodeReturnWindowExpired: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "return window has expired",
		DetailsAllowed: true,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "tracking transition disallowed",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
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

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
