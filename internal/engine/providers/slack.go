package providers

import (
	"context"
	"net/http"
	"strings"

	"passrelay/internal/platform/models"
)

const (
	SlackName              = "slack"
	defaultSlackTemplate   = "New *{{event}}* event for {{businessName}}"
	slackColorDefault      = "#439FE0"
	slackColorRegistration = "good"
	slackColorRemoval      = "danger"
)

type slackConfig struct {
	WebhookURL      string `mapstructure:"slackWebhookUrl" validate:"required,url"`
	MessageTemplate string `mapstructure:"messageTemplate"`
	Channel         string `mapstructure:"channel"`
	Username        string `mapstructure:"username"`
	IconEmoji       string `mapstructure:"iconEmoji"`
}

// SlackMessage is a Slack incoming-webhook payload.
type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type SlackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Title  string       `json:"title,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type Slack struct {
	client *http.Client
}

func NewSlack(client *http.Client) *Slack {
	return &Slack{client: client}
}

func (s *Slack) Definition() Definition {
	return Definition{
		Name:        SlackName,
		Label:       "Slack",
		Description: "Post a notification to a Slack channel",
		ConfigSchema: []ConfigField{
			{Key: "slackWebhookUrl", Label: "Incoming Webhook URL", Type: "url", Required: true, Placeholder: "https://hooks.slack.com/services/..."},
			{Key: "messageTemplate", Label: "Message", Type: "textarea", Placeholder: defaultSlackTemplate},
			{Key: "channel", Label: "Channel", Type: "text", Placeholder: "#passes"},
			{Key: "username", Label: "Username", Type: "text"},
			{Key: "iconEmoji", Label: "Icon Emoji", Type: "text", Placeholder: ":ticket:"},
		},
	}
}

func (s *Slack) Execute(ctx context.Context, event models.InboundEvent, raw map[string]any, meta Metadata) Result {
	var cfg slackConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return failure(err.Error())
	}
	return send(ctx, s.client, http.MethodPost, cfg.WebhookURL, nil, formatSlackMessage(cfg, event, meta), "Posted to Slack")
}

// formatSlackMessage renders the message text and an attachment describing the event.
func formatSlackMessage(cfg slackConfig, event models.InboundEvent, meta Metadata) SlackMessage {
	tpl := cfg.MessageTemplate
	if tpl == "" {
		tpl = defaultSlackTemplate
	}

	fields := []SlackField{
		{Title: "Event", Value: event.LogType(), Short: true},
	}
	if serial := event.PassSerial(); serial != "" {
		fields = append(fields, SlackField{Title: "Pass Serial", Value: serial, Short: true})
	}
	if meta.BusinessName != "" {
		fields = append(fields, SlackField{Title: "Business", Value: meta.BusinessName, Short: true})
	}
	if p := extractPerson(event.Data); p.Email != "" {
		fields = append(fields, SlackField{Title: "Email", Value: p.Email, Short: true})
	}

	return SlackMessage{
		Text:      Render(tpl, templateVars(event, meta)),
		Channel:   cfg.Channel,
		Username:  cfg.Username,
		IconEmoji: cfg.IconEmoji,
		Attachments: []SlackAttachment{{
			Color:  eventColor(event.Type),
			Title:  event.LogType(),
			Fields: fields,
			Footer: "passrelay",
			Ts:     meta.ReceivedAt.Unix(),
		}},
	}
}

func eventColor(eventType string) string {
	switch {
	case strings.HasSuffix(eventType, ".registered"), strings.HasSuffix(eventType, ".created"):
		return slackColorRegistration
	case strings.HasSuffix(eventType, ".unregistered"), strings.HasSuffix(eventType, ".deleted"):
		return slackColorRemoval
	default:
		return slackColorDefault
	}
}
