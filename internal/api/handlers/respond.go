package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	apiContext "passrelay/internal/api/context"
	"passrelay/internal/pkg/errors"
)

func param(r *http.Request, name string) string {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName(name)
}

// readBody reads at most limit bytes; larger bodies are rejected.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", errors.ErrInvalidPayload, limit)
	}
	return body, nil
}

func decodeJSON(r *http.Request, limit int64, dst any) error {
	body, err := readBody(r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// writeServiceError maps err to its HTTP status. Unknown errors are logged and
// answered with a generic 500.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status, code := errors.Status(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Internal error")
		errors.WriteError(w, status, code, "Internal server error", nil)
		return
	}
	errors.WriteError(w, status, code, err.Error(), nil)
}
