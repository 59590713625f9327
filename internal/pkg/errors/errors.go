package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

var (
	// ErrNotFound is returned when a stored record does not exist.
	ErrNotFound = stderrors.New("not found")

	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = stderrors.New("missing signature")

	// ErrInvalidSignature is returned when the signature does not match the body.
	ErrInvalidSignature = stderrors.New("invalid signature")

	// ErrInactive is returned when the webhook configuration is disabled.
	ErrInactive = stderrors.New("webhook is inactive")

	// ErrUnsupportedProvider is returned when the configured provider is not registered.
	ErrUnsupportedProvider = stderrors.New("unsupported provider")

	// ErrInvalidPayload is returned for malformed or incomplete request bodies.
	ErrInvalidPayload = stderrors.New("invalid payload")

	// ErrConflict is returned when creating a record whose id is taken.
	ErrConflict = stderrors.New("already exists")
)

// Is and As re-export the standard helpers so callers importing this package
// under the name "errors" keep access to them.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// Status maps a sentinel error to its HTTP status and error code.
func Status(err error) (int, string) {
	switch {
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case stderrors.Is(err, ErrMissingSignature):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case stderrors.Is(err, ErrInvalidSignature), stderrors.Is(err, ErrInactive):
		return http.StatusForbidden, ErrCodeForbidden
	case stderrors.Is(err, ErrUnsupportedProvider):
		return http.StatusBadRequest, ErrCodeUnsupportedProvider
	case stderrors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest, ErrCodeInvalidInput
	case stderrors.Is(err, ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
