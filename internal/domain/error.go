package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// Kind is the closed classification of failures this core can produce.
// Every error crossing a component boundary is constructed with its kind at
// the point of failure; callers switch on the kind, never on field presence.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindNetwork        Kind = "NETWORK_ERROR"
	KindGateway        Kind = "GATEWAY_ERROR"
	KindConflict       Kind = "CONFLICT_ERROR"
	KindRateLimit      Kind = "RATE_LIMIT_ERROR"
	KindPrecondition   Kind = "PRECONDITION_ERROR"
	KindReconciliation Kind = "RECONCILIATION_GAP"
	KindNotFound       Kind = "NOT_FOUND"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Error is the tagged error type for the payment/entitlement core.
type Error struct {
	Kind       Kind
	Message    string
	Retryable  bool
	RetryAfter time.Duration // hint for retryable errors; zero means "no hint"

	// Upstream diagnostics, populated for KindGateway only.
	GatewayStatus int
	GatewayBody   string

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps the kind to the status the web layer reports.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNetwork:
		return http.StatusServiceUnavailable
	case KindGateway:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindPrecondition:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewAuthenticationError(msg string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Message: msg, Cause: cause}
}

// NewNetworkError wraps a transport-level failure. Retryable by the caller;
// the core itself does not retry these.
func NewNetworkError(op string, cause error) *Error {
	return &Error{
		Kind:       KindNetwork,
		Message:    fmt.Sprintf("network failure during %s", op),
		Retryable:  true,
		RetryAfter: 5 * time.Second,
		Cause:      cause,
	}
}

// NewGatewayError captures an upstream rejection. Retryable only when the
// upstream marks it as a server-side failure.
func NewGatewayError(status int, msg, body string) *Error {
	e := &Error{
		Kind:          KindGateway,
		Message:       msg,
		GatewayStatus: status,
		GatewayBody:   body,
	}
	if status >= 500 {
		e.Retryable = true
		e.RetryAfter = 10 * time.Second
	}
	return e
}

func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewRateLimitError is retryable by construction: the caller is told how long
// to back off before the window resets.
func NewRateLimitError(retryAfter time.Duration, format string, args ...any) *Error {
	return &Error{
		Kind:       KindRateLimit,
		Message:    fmt.Sprintf(format, args...),
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

func NewPreconditionError(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewReconciliationGap marks the highest-severity condition: the gateway
// confirms money moved but no purchase metadata identifies the intent.
func NewReconciliationGap(paymentIntentID string) *Error {
	return &Error{
		Kind:    KindReconciliation,
		Message: fmt.Sprintf("gateway reports success for payment intent %s but no purchase metadata exists", paymentIntentID),
	}
}

func NewInternalError(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// KindOf extracts the kind from any error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether the caller may safely retry the failed operation.
func Retryable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}
