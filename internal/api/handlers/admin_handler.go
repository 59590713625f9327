package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"passrelay/internal/engine/analytics"
	"passrelay/internal/engine/providers"
	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/models"
	"passrelay/internal/platform/repositories"
)

// AdminHandler manages webhook configs and AppWallet forwarding.
type AdminHandler struct {
	repo      *repositories.WebhookRepository
	registry  *providers.Registry
	analytics *analytics.Service
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewAdminHandler(repo *repositories.WebhookRepository, registry *providers.Registry, analyticsSvc *analytics.Service) *AdminHandler {
	return &AdminHandler{
		repo:      repo,
		registry:  registry,
		analytics: analyticsSvc,
		validate:  validator.New(),
		logger:    logger.Component("admin_handler"),
	}
}

const adminBodyLimit = 64 * 1024

// WebhookView is the admin representation of a config. It never includes the secret.
type WebhookView struct {
	models.Summary
	ProviderConfig map[string]any `json:"providerConfig,omitempty"`
	CreatedAt      string         `json:"createdAt,omitempty"`
	UpdatedAt      string         `json:"updatedAt,omitempty"`
}

// CreatedWebhook is returned once, on creation, so the secret can be copied.
type CreatedWebhook struct {
	WebhookView
	SecretKey string `json:"secretKey"`
}

func viewOf(cfg *models.WebhookConfig) WebhookView {
	_, providerCfg := cfg.ResolvedProvider()
	return WebhookView{
		Summary:        cfg.Summary(),
		ProviderConfig: providerCfg,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

type CreateWebhookRequest struct {
	BusinessName   string         `json:"businessName" validate:"required"`
	Provider       string         `json:"provider" validate:"required"`
	ProviderConfig map[string]any `json:"providerConfig"`
	IsActive       *bool          `json:"isActive"`
}

type UpdateWebhookRequest struct {
	BusinessName   *string        `json:"businessName"`
	Provider       *string        `json:"provider"`
	ProviderConfig map[string]any `json:"providerConfig"`
	IsActive       *bool          `json:"isActive"`
	RotateSecret   bool           `json:"rotateSecret"`
}

func (h *AdminHandler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	configs, err := h.repo.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	views := make([]WebhookView, 0, len(configs))
	for _, cfg := range configs {
		views = append(views, viewOf(cfg))
	}
	errors.WriteJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req CreateWebhookRequest
	if err := decodeJSON(r, adminBodyLimit, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "businessName and provider are required", nil)
		return
	}
	if _, ok := h.registry.Get(req.Provider); !ok {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeUnsupportedProvider, "Unsupported provider: "+req.Provider, nil)
		return
	}

	cfg := &models.WebhookConfig{
		BusinessName:   req.BusinessName,
		Provider:       req.Provider,
		ProviderConfig: req.ProviderConfig,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := h.repo.Create(r.Context(), cfg); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info().Str("webhook_id", cfg.ID).Str("provider", cfg.Provider).Msg("Webhook created")
	errors.WriteJSON(w, http.StatusCreated, CreatedWebhook{WebhookView: viewOf(cfg), SecretKey: cfg.SecretKey})
}

func (h *AdminHandler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.repo.GetByID(r.Context(), param(r, "webhookId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, viewOf(cfg))
}

func (h *AdminHandler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.repo.GetByID(r.Context(), param(r, "webhookId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var req UpdateWebhookRequest
	if err := decodeJSON(r, adminBodyLimit, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if req.BusinessName != nil {
		cfg.BusinessName = *req.BusinessName
	}
	if req.Provider != nil {
		if _, ok := h.registry.Get(*req.Provider); !ok {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeUnsupportedProvider, "Unsupported provider: "+*req.Provider, nil)
			return
		}
		cfg.Provider = *req.Provider
	}
	if req.ProviderConfig != nil {
		cfg.ProviderConfig = req.ProviderConfig
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.RotateSecret {
		cfg.SecretKey = ""
		repositories.AssignSecret(cfg)
	}

	if err := h.repo.Update(r.Context(), cfg); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if req.RotateSecret {
		errors.WriteJSON(w, http.StatusOK, CreatedWebhook{WebhookView: viewOf(cfg), SecretKey: cfg.SecretKey})
		return
	}
	errors.WriteJSON(w, http.StatusOK, viewOf(cfg))
}

func (h *AdminHandler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := param(r, "webhookId")
	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info().Str("webhook_id", id).Msg("Webhook deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) WebhookLogs(w http.ResponseWriter, r *http.Request) {
	id := param(r, "webhookId")
	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	logs, err := h.repo.GetLogs(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, logs)
}

func (h *AdminHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	errors.WriteJSON(w, http.StatusOK, h.registry.List())
}

func (h *AdminHandler) GetAppWalletConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.analytics.ForwardConfig(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, cfg)
}

func (h *AdminHandler) UpdateAppWalletConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.ForwardConfig
	if err := decodeJSON(r, adminBodyLimit, &cfg); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.analytics.UpdateForwardConfig(r.Context(), &cfg); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, cfg)
}

func (h *AdminHandler) AppWalletLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.analytics.ForwardLogs(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, logs)
}
