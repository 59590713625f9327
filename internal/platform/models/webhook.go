package models

// Log statuses written to event logs and to WebhookConfig.LastEventStatus.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusBlocked = "blocked"
)

// HandshakeEventType is the event type PassSlot sends to verify a new endpoint.
const HandshakeEventType = "webhook.verify"

// LegacyProvider is assumed for configs created before providers existed.
const LegacyProvider = "manychat"

// WebhookConfig is one business's routing configuration, stored at webhook:{id}.
type WebhookConfig struct {
	ID              string         `json:"id"`
	BusinessName    string         `json:"businessName"`
	SecretKey       string         `json:"secretKey"`
	Provider        string         `json:"provider,omitempty"`
	ProviderConfig  map[string]any `json:"providerConfig,omitempty"`
	IsActive        bool           `json:"isActive"`
	LastEventAt     string         `json:"lastEventAt,omitempty"`
	LastEventType   string         `json:"lastEventType,omitempty"`
	LastEventStatus string         `json:"lastEventStatus,omitempty"`
	CreatedAt       string         `json:"createdAt,omitempty"`
	UpdatedAt       string         `json:"updatedAt,omitempty"`

	// Legacy top-level ManyChat fields
	APIToken      string `json:"apiToken,omitempty"`
	CustomFieldID string `json:"customFieldId,omitempty"`
	FlowID        string `json:"flowId,omitempty"`
}

// ResolvedProvider returns the provider name and its configuration, falling
// back to the legacy ManyChat fields when no provider is set.
func (c *WebhookConfig) ResolvedProvider() (string, map[string]any) {
	if c.Provider != "" {
		cfg := c.ProviderConfig
		if cfg == nil {
			cfg = map[string]any{}
		}
		return c.Provider, cfg
	}
	return LegacyProvider, map[string]any{
		"apiToken":      c.APIToken,
		"customFieldId": c.CustomFieldID,
		"flowId":        c.FlowID,
	}
}

// Summary is the public view of a config; it never carries the secret.
type Summary struct {
	ID              string `json:"id"`
	BusinessName    string `json:"businessName"`
	Provider        string `json:"provider"`
	IsActive        bool   `json:"isActive"`
	LastEventAt     string `json:"lastEventAt,omitempty"`
	LastEventType   string `json:"lastEventType,omitempty"`
	LastEventStatus string `json:"lastEventStatus,omitempty"`
}

func (c *WebhookConfig) Summary() Summary {
	provider, _ := c.ResolvedProvider()
	return Summary{
		ID:              c.ID,
		BusinessName:    c.BusinessName,
		Provider:        provider,
		IsActive:        c.IsActive,
		LastEventAt:     c.LastEventAt,
		LastEventType:   c.LastEventType,
		LastEventStatus: c.LastEventStatus,
	}
}

// EventLogEntry is one element of the bounded per-webhook log at logs:{id}.
type EventLogEntry struct {
	Time       string `json:"time"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Provider   string `json:"provider,omitempty"`
	PassSerial string `json:"passSerial,omitempty"`
}

// InboundEvent is the PassSlot callback envelope.
type InboundEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// IsHandshake reports whether the event is a verification handshake:
// an explicit webhook.verify type, or no type at all but a token in data.
func (e *InboundEvent) IsHandshake() bool {
	if e.Type == HandshakeEventType {
		return true
	}
	if e.Type == "" {
		_, ok := e.Data["token"]
		return ok
	}
	return false
}

// Token returns data.token rendered as a string.
func (e *InboundEvent) Token() string {
	return StringValue(e.Data["token"])
}

// PassSerial returns data.passSerialNumber when present.
func (e *InboundEvent) PassSerial() string {
	return StringValue(e.Data["passSerialNumber"])
}

// LogType is the event type written to logs, "unknown" when absent.
func (e *InboundEvent) LogType() string {
	if e.Type == "" {
		return "unknown"
	}
	return e.Type
}
