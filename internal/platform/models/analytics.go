package models

import (
	"fmt"
	"strconv"
)

// AnalyticsEvent is one anonymous AppWallet telemetry event.
type AnalyticsEvent struct {
	EventName string         `json:"eventName" validate:"required"`
	DeviceID  string         `json:"deviceId" validate:"required"`
	Timestamp string         `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DeviceHistory is stored at appwallet:device:{id}.
type DeviceHistory struct {
	DeviceID    string           `json:"deviceId"`
	Events      []AnalyticsEvent `json:"events"`
	FirstSeen   string           `json:"firstSeen"`
	LastSeen    string           `json:"lastSeen"`
	TotalEvents int              `json:"totalEvents"`
}

// GlobalStats is stored at appwallet:stats.
type GlobalStats struct {
	TotalEvents   int            `json:"totalEvents"`
	EventCounts   map[string]int `json:"eventCounts"`
	UniqueDevices []string       `json:"uniqueDevices"`
	LastEventAt   string         `json:"lastEventAt,omitempty"`
}

// RecentEvent is an element of appwallet:recent with a redacted device id.
type RecentEvent struct {
	EventName string         `json:"eventName"`
	DeviceID  string         `json:"deviceId"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ForwardConfig is stored at appwallet:config.
type ForwardConfig struct {
	IsActive       bool           `json:"isActive"`
	BusinessName   string         `json:"businessName,omitempty"`
	Provider       string         `json:"provider"`
	ProviderConfig map[string]any `json:"providerConfig,omitempty"`
	UpdatedAt      string         `json:"updatedAt,omitempty"`
}

// ForwardLogEntry is an element of appwallet:logs.
type ForwardLogEntry struct {
	Time      string `json:"time"`
	EventName string `json:"eventName"`
	DeviceID  string `json:"deviceId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Provider  string `json:"provider,omitempty"`
}

// RedactDeviceID keeps the first eight characters of a device id.
func RedactDeviceID(id string) string {
	head, _ := TruncateRunes(id, 8)
	return head + "..."
}

// TruncateRunes cuts s to at most n characters without splitting a multi-byte
// one. The second result reports whether anything was cut.
func TruncateRunes(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// StringValue renders a decoded JSON scalar as text.
func StringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
