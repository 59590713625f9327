package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "passrelay/internal/api/context"
	"passrelay/internal/api/handlers"
	"passrelay/internal/api/middleware"
	"passrelay/internal/pkg/errors"
)

type Dependencies struct {
	WebhookHandler   *handlers.WebhookHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	AdminHandler     *handlers.AdminHandler
	AuthHandler      *handlers.AuthHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	AuthMiddleware   *middleware.AuthMiddleware
	LoginLimiter     *middleware.RateLimiter
	CORS             func(http.HandlerFunc) http.HandlerFunc
}

// NewRouter registers every route and wraps the router with request logging
// and panic recovery.
func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()
	router.HandleOPTIONS = false
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	// Operational
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// PassSlot callbacks
	router.POST("/api/v1/webhook/:webhookId", wrap(deps.WebhookHandler.Receive))
	router.GET("/api/v1/webhook/:webhookId", wrap(deps.WebhookHandler.Describe))

	// AppWallet analytics
	cors := deps.CORS
	router.POST("/api/v1/appwallet/analytics", chain(deps.AnalyticsHandler.Ingest, cors))
	router.GET("/api/v1/appwallet/analytics", chain(deps.AnalyticsHandler.Stats, cors))
	router.OPTIONS("/api/v1/appwallet/analytics", chain(deps.AnalyticsHandler.Preflight, cors))
	router.GET("/api/v1/appwallet/analytics/device/:deviceId", chain(deps.AnalyticsHandler.Device, cors))

	// Admin
	authMid := deps.AuthMiddleware
	router.POST("/api/v1/admin/login", chain(deps.AuthHandler.Login, deps.LoginLimiter.Handle))

	router.GET("/api/v1/admin/webhooks", chain(deps.AdminHandler.ListWebhooks, authMid.Handle))
	router.POST("/api/v1/admin/webhooks", chain(deps.AdminHandler.CreateWebhook, authMid.Handle))
	router.GET("/api/v1/admin/webhooks/:webhookId", chain(deps.AdminHandler.GetWebhook, authMid.Handle))
	router.PUT("/api/v1/admin/webhooks/:webhookId", chain(deps.AdminHandler.UpdateWebhook, authMid.Handle))
	router.DELETE("/api/v1/admin/webhooks/:webhookId", chain(deps.AdminHandler.DeleteWebhook, authMid.Handle))
	router.GET("/api/v1/admin/webhooks/:webhookId/logs", chain(deps.AdminHandler.WebhookLogs, authMid.Handle))

	router.GET("/api/v1/admin/providers", chain(deps.AdminHandler.ListProviders, authMid.Handle))

	router.GET("/api/v1/admin/appwallet/config", chain(deps.AdminHandler.GetAppWalletConfig, authMid.Handle))
	router.PUT("/api/v1/admin/appwallet/config", chain(deps.AdminHandler.UpdateAppWalletConfig, authMid.Handle))
	router.GET("/api/v1/admin/appwallet/logs", chain(deps.AdminHandler.AppWalletLogs, authMid.Handle))

	return middleware.RequestLogger(middleware.Recover(router))
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
