package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"passrelay/internal/platform/models"
)

const CustomHTTPName = "custom_http"

type customHTTPConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	Method       string `mapstructure:"method" validate:"omitempty,oneof=POST PUT PATCH"`
	Headers      any    `mapstructure:"headers"`
	BodyTemplate string `mapstructure:"bodyTemplate"`
}

// CustomHTTP sends the enriched event, or a rendered body template, to any URL.
type CustomHTTP struct {
	client *http.Client
}

func NewCustomHTTP(client *http.Client) *CustomHTTP {
	return &CustomHTTP{client: client}
}

func (c *CustomHTTP) Definition() Definition {
	return Definition{
		Name:        CustomHTTPName,
		Label:       "Custom HTTP",
		Description: "Send the event to any HTTP endpoint",
		ConfigSchema: []ConfigField{
			{Key: "url", Label: "URL", Type: "url", Required: true, Placeholder: "https://example.com/hooks/passes"},
			{Key: "method", Label: "Method", Type: "select", Placeholder: http.MethodPost, Help: "POST, PUT or PATCH"},
			{Key: "headers", Label: "Headers", Type: "json", Placeholder: `{"X-Api-Key":"..."}`},
			{Key: "bodyTemplate", Label: "Body Template", Type: "textarea", Help: "JSON with {{placeholders}}; defaults to the enriched event"},
		},
	}
}

func (c *CustomHTTP) Execute(ctx context.Context, event models.InboundEvent, raw map[string]any, meta Metadata) Result {
	var cfg customHTTPConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return failure(err.Error())
	}
	headers, err := parseHeaders(cfg.Headers)
	if err != nil {
		return failure(err.Error())
	}
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	payload := enrich(event, meta)
	headers["X-Relay-Delivery"] = payload.Source.DeliveryID

	var body any = payload
	if cfg.BodyTemplate != "" {
		body = renderJSON(cfg.BodyTemplate, templateVars(event, meta))
	}
	return send(ctx, c.client, method, cfg.URL, headers, body, "Delivered to "+cfg.URL)
}

// parseHeaders accepts a JSON object or a string holding one.
func parseHeaders(v any) (map[string]string, error) {
	headers := map[string]string{}
	switch h := v.(type) {
	case nil:
	case map[string]any:
		for k, val := range h {
			headers[k] = models.StringValue(val)
		}
	case string:
		if strings.TrimSpace(h) == "" {
			break
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(h), &m); err != nil {
			return nil, fmt.Errorf("invalid headers: %w", err)
		}
		for k, val := range m {
			headers[k] = models.StringValue(val)
		}
	default:
		return nil, fmt.Errorf("invalid headers: expected object, got %T", v)
	}
	return headers, nil
}

func send(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any, okMessage string) Result {
	resp, err := doJSON(ctx, client, method, url, headers, body)
	if err != nil {
		return failure(err.Error())
	}
	if !resp.ok() {
		return resp.failure()
	}
	return Result{Success: true, Message: okMessage, Data: map[string]any{"status": resp.Status}}
}
