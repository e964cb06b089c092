package platformerrors

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorType classifies platform errors for HTTP mapping and retry decisions.
type ErrorType int

const (
	ErrorTypeInternal ErrorType = iota
	ErrorTypeValidation
	ErrorTypeNotFound
	ErrorTypeConflict
	ErrorTypeUnauthorized
	ErrorTypeForbidden
	ErrorTypeNotImplemented
	ErrorTypeExpired
	ErrorTypeRateLimited
	ErrorTypeTimeout
	ErrorTypeExternal
	ErrorTypeTooManyRecords
	ErrorTypeDatabaseError
)

// Layer identifies where in the stack an error originated.
type Layer string

const (
	LayerRepository Layer = "repository"
	LayerService    Layer = "service"
	LayerHandler    Layer = "handler"
	LayerGateway    Layer = "gateway"
	LayerInfra      Layer = "infrastructure"
)

// RequestIDContextKey is the context key under which middleware stores the request ID.
type contextKey string

const RequestIDContextKey contextKey = "request_id"

// PlatformError is the error type carried across layers. It wraps the underlying
// cause and carries a stable code for log correlation.
type PlatformError struct {
	Type      ErrorType
	Layer     Layer
	Message   string
	UUID      string
	RequestID string
	Err       error
}

// NewError constructs a PlatformError, pulling the request ID from context when present.
func NewError(ctx context.Context, layer Layer, errType ErrorType, message string, cause error, code string) *PlatformError {
	requestID := ""
	if ctx != nil {
		if v, ok := ctx.Value(RequestIDContextKey).(string); ok {
			requestID = v
		}
	}
	return &PlatformError{
		Type:      errType,
		Layer:     layer,
		Message:   message,
		UUID:      code,
		RequestID: requestID,
		Err:       cause,
	}
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// Code returns the stable error code for wire responses.
func (e *PlatformError) Code() string {
	return e.UUID
}

// GetPlatformError returns the PlatformError in err's chain, or nil.
func GetPlatformError(err error) *PlatformError {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// IsType reports whether err carries a PlatformError of the given type.
func IsType(err error, t ErrorType) bool {
	pe := GetPlatformError(err)
	return pe != nil && pe.Type == t
}

// IsRetryable reports whether the error is a transient storage failure worth one retry.
func IsRetryable(err error) bool {
	pe := GetPlatformError(err)
	if pe == nil {
		return false
	}
	return pe.Type == ErrorTypeTimeout || pe.Type == ErrorTypeDatabaseError
}

// LogError emits the error with its layer, code and request ID attached.
func LogError(log zerolog.Logger, err *PlatformError) {
	if err == nil {
		return
	}
	event := log.Error().
		Str("layer", string(err.Layer)).
		Str("error_type", errorTypeToString(err.Type)).
		Str("code", err.UUID)
	if err.RequestID != "" {
		event = event.Str("request_id", err.RequestID)
	}
	if err.Err != nil {
		event = event.Err(err.Err)
	}
	event.Msg(err.Message)
}

// ErrorTypeToHTTPStatus maps an ErrorType to its HTTP status code.
func ErrorTypeToHTTPStatus(t ErrorType) int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeNotImplemented:
		return http.StatusNotImplemented
	case ErrorTypeExpired:
		return http.StatusGone
	case ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeExternal:
		return http.StatusBadGateway
	case ErrorTypeTooManyRecords:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeDatabaseError, ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}
