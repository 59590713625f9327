package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"passrelay/internal/platform/models"
)

const (
	maxResponseBytes = 64 * 1024
	excerptLen       = 200
	userAgent        = "passrelay/1.0"
)

// NewHTTPClient returns the client shared by all providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

type response struct {
	Status int
	Body   []byte
}

func (r *response) ok() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r *response) failure() Result {
	return failuref("HTTP %d: %s", r.Status, excerpt(r.Body))
}

// doJSON sends payload as JSON. A []byte or string payload is sent verbatim.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload any) (*response, error) {
	var body []byte
	switch p := payload.(type) {
	case nil:
	case []byte:
		body = p
	case string:
		body = []byte(p)
	default:
		var err error
		if body, err = json.Marshal(p); err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return &response{Status: resp.StatusCode, Body: respBody}, nil
}

func excerpt(b []byte) string {
	s, cut := models.TruncateRunes(strings.TrimSpace(string(b)), excerptLen)
	if cut {
		s += "..."
	}
	return s
}
