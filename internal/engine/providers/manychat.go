package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"passrelay/internal/platform/models"
)

const (
	ManyChatName           = "manychat"
	defaultManyChatBaseURL = "https://api.manychat.com"
	defaultLookupField     = "passSerialNumber"
)

type manyChatConfig struct {
	APIToken      string `mapstructure:"apiToken" validate:"required"`
	CustomFieldID string `mapstructure:"customFieldId" validate:"required"`
	FlowID        string `mapstructure:"flowId" validate:"required"`
	LookupField   string `mapstructure:"lookupField"`
	BaseURL       string `mapstructure:"baseUrl" validate:"omitempty,url"`
}

// ManyChat finds a subscriber by custom field and triggers a flow for them.
type ManyChat struct {
	client *http.Client
	cache  *expirable.LRU[string, string]
}

// NewManyChat caches subscriber lookups for ttl; cacheSize <= 0 disables the cache.
func NewManyChat(client *http.Client, cacheSize int, ttl time.Duration) *ManyChat {
	m := &ManyChat{client: client}
	if cacheSize > 0 {
		m.cache = expirable.NewLRU[string, string](cacheSize, nil, ttl)
	}
	return m
}

func (m *ManyChat) Definition() Definition {
	return Definition{
		Name:        ManyChatName,
		Label:       "ManyChat",
		Description: "Find a ManyChat subscriber by custom field and trigger a flow",
		ConfigSchema: []ConfigField{
			{Key: "apiToken", Label: "API Token", Type: "password", Required: true},
			{Key: "customFieldId", Label: "Custom Field ID", Type: "text", Required: true, Help: "Field holding the pass serial number"},
			{Key: "flowId", Label: "Flow ID", Type: "text", Required: true, Placeholder: "content20240101000000_000000"},
			{Key: "lookupField", Label: "Lookup Field", Type: "text", Placeholder: defaultLookupField, Help: "Event data field matched against the custom field"},
			{Key: "baseUrl", Label: "API Base URL", Type: "url", Placeholder: defaultManyChatBaseURL},
		},
	}
}

type manyChatEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (m *ManyChat) Execute(ctx context.Context, event models.InboundEvent, raw map[string]any, _ Metadata) Result {
	var cfg manyChatConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return failure(err.Error())
	}
	if cfg.LookupField == "" {
		cfg.LookupField = defaultLookupField
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultManyChatBaseURL
	}

	value := models.StringValue(event.Data[cfg.LookupField])
	if value == "" {
		return failuref("event data has no %s", cfg.LookupField)
	}

	subscriberID, res, ok := m.findSubscriber(ctx, base, cfg, value)
	if !ok {
		return res
	}

	var subscriber any = subscriberID
	if n, err := strconv.ParseInt(subscriberID, 10, 64); err == nil {
		subscriber = n
	}
	resp, err := doJSON(ctx, m.client, http.MethodPost, base+"/fb/sending/sendFlow", bearer(cfg.APIToken),
		map[string]any{"subscriber_id": subscriber, "flow_ns": cfg.FlowID})
	if err != nil {
		return failure(err.Error())
	}
	if !resp.ok() {
		return resp.failure()
	}
	var env manyChatEnvelope
	if err := json.Unmarshal(resp.Body, &env); err == nil && env.Status != "" && env.Status != "success" {
		return failuref("ManyChat sendFlow failed: %s", env.Message)
	}

	return Result{
		Success: true,
		Message: "Triggered flow " + cfg.FlowID + " for subscriber " + subscriberID,
		Data:    map[string]any{"subscriberId": subscriberID},
	}
}

func (m *ManyChat) findSubscriber(ctx context.Context, base string, cfg manyChatConfig, value string) (string, Result, bool) {
	key := cfg.APIToken + "|" + cfg.CustomFieldID + "|" + value
	if m.cache != nil {
		if id, ok := m.cache.Get(key); ok {
			return id, Result{}, true
		}
	}

	q := url.Values{}
	q.Set("field_id", cfg.CustomFieldID)
	q.Set("field_value", value)
	resp, err := doJSON(ctx, m.client, http.MethodGet, base+"/fb/subscriber/findByCustomField?"+q.Encode(), bearer(cfg.APIToken), nil)
	if err != nil {
		return "", failure(err.Error()), false
	}
	if !resp.ok() {
		return "", resp.failure(), false
	}

	var env manyChatEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return "", failuref("invalid ManyChat response: %v", err), false
	}
	var subscribers []struct {
		ID any `json:"id"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &subscribers); err != nil {
			return "", failuref("invalid ManyChat response: %v", err), false
		}
	}
	var id string
	if len(subscribers) > 0 {
		id = models.StringValue(subscribers[0].ID)
	}
	if id == "" {
		return "", failuref("no ManyChat subscriber with %s = %s", cfg.LookupField, value), false
	}

	if m.cache != nil {
		m.cache.Add(key, id)
	}
	return id, Result{}, true
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
