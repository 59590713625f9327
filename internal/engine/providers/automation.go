package providers

import (
	"context"
	"net/http"

	"passrelay/internal/platform/models"
)

const (
	ZapierName = "zapier"
	MakeName   = "make"
)

// Automation posts the enriched event to a catch-hook URL. Zapier and Make
// differ only in the name of that field.
type Automation struct {
	client   *http.Client
	def      Definition
	urlField string
}

func NewZapier(client *http.Client) *Automation {
	return newAutomation(client, ZapierName, "Zapier", "zapierWebhookUrl", "https://hooks.zapier.com/hooks/catch/...")
}

func NewMake(client *http.Client) *Automation {
	return newAutomation(client, MakeName, "Make", "makeWebhookUrl", "https://hook.eu1.make.com/...")
}

func newAutomation(client *http.Client, name, label, urlField, placeholder string) *Automation {
	return &Automation{
		client:   client,
		urlField: urlField,
		def: Definition{
			Name:        name,
			Label:       label,
			Description: "Trigger a " + label + " scenario with the enriched event",
			ConfigSchema: []ConfigField{
				{Key: urlField, Label: label + " Webhook URL", Type: "url", Required: true, Placeholder: placeholder},
			},
		},
	}
}

func (a *Automation) Definition() Definition {
	return a.def
}

func (a *Automation) Execute(ctx context.Context, event models.InboundEvent, raw map[string]any, meta Metadata) Result {
	target := models.StringValue(raw[a.urlField])
	if err := validate.Var(target, "required,url"); err != nil {
		return failuref("invalid provider config: %s must be a valid URL", a.urlField)
	}
	payload := enrich(event, meta)
	headers := map[string]string{"X-Relay-Delivery": payload.Source.DeliveryID}
	return send(ctx, a.client, http.MethodPost, target, headers, payload, "Delivered to "+a.def.Label)
}
