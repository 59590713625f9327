package providers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"passrelay/internal/platform/models"
)

// Sources recorded in Metadata.Source.
const (
	SourcePassSlot  = "passslot"
	SourceAppWallet = "appwallet"
)

// Metadata describes where an event came from. It is passed to every Execute call.
type Metadata struct {
	WebhookID    string
	BusinessName string
	Source       string
	ReceivedAt   time.Time
}

// Result is the outcome of one provider execution. Integration failures are
// reported here, never as a Go error.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Message: msg}
}

func failuref(format string, args ...any) Result {
	return failure(fmt.Sprintf(format, args...))
}

// ConfigField documents one providerConfig key for the admin catalog.
type ConfigField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
	Help        string `json:"help,omitempty"`
}

type Definition struct {
	Name         string        `json:"name"`
	Label        string        `json:"label"`
	Description  string        `json:"description"`
	ConfigSchema []ConfigField `json:"configSchema"`
}

// Provider forwards an event to one downstream integration.
type Provider interface {
	Definition() Definition
	Execute(ctx context.Context, event models.InboundEvent, cfg map[string]any, meta Metadata) Result
}

// Registry is built once at startup and read concurrently afterwards.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Definition().Name] = p
	}
	return r
}

// Get returns the provider registered under name. A missing provider is a
// normal outcome for the caller to handle.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// List returns every definition ordered by name.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.providers))
	for _, p := range r.providers {
		defs = append(defs, p.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// SafeExecute runs p and converts a panic into a failed result. panicked
// reports whether that happened.
func SafeExecute(ctx context.Context, p Provider, event models.InboundEvent, cfg map[string]any, meta Metadata) (res Result, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			res = failuref("provider panic: %v", r)
			panicked = true
		}
	}()
	return p.Execute(ctx, event, cfg, meta), false
}
