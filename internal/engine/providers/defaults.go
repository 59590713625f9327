package providers

import (
	"net/http"

	"passrelay/internal/platform/config"
)

// NewDefaultRegistry registers every built-in provider around one shared client.
func NewDefaultRegistry(cfg config.ProvidersConfig) *Registry {
	client := NewHTTPClient(cfg.HTTPTimeout)
	return newRegistryWithClient(client, cfg)
}

func newRegistryWithClient(client *http.Client, cfg config.ProvidersConfig) *Registry {
	return NewRegistry(
		NewManyChat(client, cfg.SubscriberCacheSize, cfg.SubscriberCacheTTL),
		NewCustomHTTP(client),
		NewZapier(client),
		NewMake(client),
		NewSlack(client),
		NewWhatsApp(client),
	)
}
