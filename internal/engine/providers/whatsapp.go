package providers

import (
	"context"
	"net/http"
	"strings"

	"passrelay/internal/platform/models"
)

const (
	WhatsAppName            = "whatsapp"
	defaultWhatsAppTemplate = "{{businessName}}: {{event}} for pass {{passSerial}}"
)

type whatsAppConfig struct {
	APIURL          string `mapstructure:"apiUrl" validate:"required,url"`
	APIToken        string `mapstructure:"apiToken" validate:"required"`
	Recipient       string `mapstructure:"recipient" validate:"required"`
	MessageTemplate string `mapstructure:"messageTemplate"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// WhatsApp sends a text message through a WhatsApp Business messaging API.
type WhatsApp struct {
	client *http.Client
}

func NewWhatsApp(client *http.Client) *WhatsApp {
	return &WhatsApp{client: client}
}

func (w *WhatsApp) Definition() Definition {
	return Definition{
		Name:        WhatsAppName,
		Label:       "WhatsApp",
		Description: "Send a WhatsApp text message",
		ConfigSchema: []ConfigField{
			{Key: "apiUrl", Label: "Messages API URL", Type: "url", Required: true, Placeholder: "https://graph.facebook.com/v19.0/<phone-id>/messages"},
			{Key: "apiToken", Label: "Access Token", Type: "password", Required: true},
			{Key: "recipient", Label: "Recipient", Type: "text", Required: true, Placeholder: "{{event.phone}}", Help: "Phone number or {{event.<field>}}"},
			{Key: "messageTemplate", Label: "Message", Type: "textarea", Placeholder: defaultWhatsAppTemplate},
		},
	}
}

func (w *WhatsApp) Execute(ctx context.Context, event models.InboundEvent, raw map[string]any, meta Metadata) Result {
	var cfg whatsAppConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return failure(err.Error())
	}
	vars := templateVars(event, meta)

	to := strings.TrimSpace(Render(cfg.Recipient, vars))
	if to == "" {
		return failuref("recipient %q resolved to an empty value", cfg.Recipient)
	}
	tpl := cfg.MessageTemplate
	if tpl == "" {
		tpl = defaultWhatsAppTemplate
	}

	msg := whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{Body: Render(tpl, vars)},
	}
	return send(ctx, w.client, http.MethodPost, cfg.APIURL, bearer(cfg.APIToken), msg, "Sent WhatsApp message to "+to)
}
