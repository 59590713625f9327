package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("load webhook: %w", ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"missing signature", ErrMissingSignature, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"invalid signature", ErrInvalidSignature, http.StatusForbidden, ErrCodeForbidden},
		{"inactive", ErrInactive, http.StatusForbidden, ErrCodeForbidden},
		{"provider", fmt.Errorf("%w: foo", ErrUnsupportedProvider), http.StatusBadRequest, ErrCodeUnsupportedProvider},
		{"payload", ErrInvalidPayload, http.StatusBadRequest, ErrCodeInvalidInput},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Status(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("Status() = %d %s, want %d %s", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusForbidden, ErrCodeForbidden, "Webhook is inactive", nil)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("got status %d", rr.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Forbidden" || body.Code != ErrCodeForbidden {
		t.Errorf("unexpected body %+v", body)
	}
}
