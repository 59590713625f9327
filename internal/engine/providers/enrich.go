package providers

import (
	"time"

	"github.com/google/uuid"

	"passrelay/internal/platform/models"
)

// Person holds contact fields found in event data.
type Person struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PassSerial string `json:"passSerial,omitempty"`
}

// EnrichedEvent is the body sent by custom_http, zapier and make.
type EnrichedEvent struct {
	Event  EventInfo      `json:"event"`
	Person Person         `json:"person"`
	Source SourceInfo     `json:"source"`
	Data   map[string]any `json:"data"`
}

type EventInfo struct {
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	PassSerial string `json:"passSerial,omitempty"`
}

type SourceInfo struct {
	System       string `json:"system"`
	WebhookID    string `json:"webhookId,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
	DeliveryID   string `json:"deliveryId"`
}

var personKeys = map[string][]string{
	"firstName": {"firstName", "first_name", "firstname", "givenName"},
	"lastName":  {"lastName", "last_name", "lastname", "familyName"},
	"email":     {"email", "emailAddress", "email_address"},
	"phone":     {"phone", "phoneNumber", "phone_number", "mobile"},
}

// extractPerson looks for contact fields at the top level of data, then in
// data.passValues and data.person.
func extractPerson(data map[string]any) Person {
	sources := []map[string]any{data}
	for _, nested := range []string{"passValues", "person", "values"} {
		if m, ok := data[nested].(map[string]any); ok {
			sources = append(sources, m)
		}
	}

	lookup := func(field string) string {
		for _, src := range sources {
			for _, k := range personKeys[field] {
				if v := models.StringValue(src[k]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	return Person{
		FirstName:  lookup("firstName"),
		LastName:   lookup("lastName"),
		Email:      lookup("email"),
		Phone:      lookup("phone"),
		PassSerial: models.StringValue(data["passSerialNumber"]),
	}
}

func enrich(event models.InboundEvent, meta Metadata) EnrichedEvent {
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}
	system := meta.Source
	if system == "" {
		system = SourcePassSlot
	}
	return EnrichedEvent{
		Event: EventInfo{
			Type:       event.Type,
			Timestamp:  meta.ReceivedAt.UTC().Format(time.RFC3339),
			PassSerial: event.PassSerial(),
		},
		Person: extractPerson(data),
		Source: SourceInfo{
			System:       system,
			WebhookID:    meta.WebhookID,
			BusinessName: meta.BusinessName,
			DeliveryID:   uuid.NewString(),
		},
		Data: data,
	}
}
