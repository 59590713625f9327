package providers

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"passrelay/internal/platform/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Render substitutes {{name}} placeholders from vars. Unknown names render empty.
func Render(tpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// renderJSON is Render for templates that produce a JSON document; values are
// escaped for use inside JSON string literals.
func renderJSON(tpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		b, _ := json.Marshal(vars[name])
		return string(b[1 : len(b)-1])
	})
}

// templateVars flattens an event into placeholder values.
//
//	{{event}}, {{eventType}}      event type
//	{{event.x}}, {{data.x}}       event data value x (nested keys joined by dots)
//	{{person.firstName}} ...      extracted person fields
//	{{passSerial}}, {{businessName}}, {{webhookId}}, {{source}}, {{timestamp}}
func templateVars(event models.InboundEvent, meta Metadata) map[string]string {
	vars := map[string]string{
		"event":        event.Type,
		"eventType":    event.Type,
		"passSerial":   event.PassSerial(),
		"businessName": meta.BusinessName,
		"webhookId":    meta.WebhookID,
		"source":       meta.Source,
		"timestamp":    meta.ReceivedAt.UTC().Format(time.RFC3339),
	}
	flatten(vars, "", event.Data)

	p := extractPerson(event.Data)
	vars["person.firstName"] = p.FirstName
	vars["person.lastName"] = p.LastName
	vars["person.fullName"] = strings.TrimSpace(p.FirstName + " " + p.LastName)
	vars["person.email"] = p.Email
	vars["person.phone"] = p.Phone
	return vars
}

func flatten(vars map[string]string, prefix string, data map[string]any) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(vars, key, t)
		case []any:
			b, _ := json.Marshal(t)
			vars["event."+key] = string(b)
			vars["data."+key] = string(b)
		default:
			vars["event."+key] = models.StringValue(t)
			vars["data."+key] = models.StringValue(t)
		}
	}
}
