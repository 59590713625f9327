package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"passrelay/internal/engine/analytics"
	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/models"
)

type AnalyticsHandler struct {
	svc          *analytics.Service
	maxBodyBytes int64
	logger       zerolog.Logger
}

func NewAnalyticsHandler(svc *analytics.Service, maxBodyBytes int64) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Component("analytics_handler"),
	}
}

func (h *AnalyticsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var event models.AnalyticsEvent
	if err := decodeJSON(r, h.maxBodyBytes, &event); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	ack, err := h.svc.Ingest(r.Context(), event)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, ack)
}

func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, overview)
}

func (h *AnalyticsHandler) Device(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.Device(r.Context(), param(r, "deviceId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, history)
}

// Preflight answers CORS preflight requests; the headers come from the CORS middleware.
func (h *AnalyticsHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
