package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"passrelay/internal/engine/webhooks"
	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/logger"
)

// WebhookHandler serves the inbound PassSlot endpoint.
type WebhookHandler struct {
	dispatcher   *webhooks.Dispatcher
	maxBodyBytes int64
	logger       zerolog.Logger
}

func NewWebhookHandler(dispatcher *webhooks.Dispatcher, maxBodyBytes int64) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:   dispatcher,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Component("webhook_handler"),
	}
}

// Receive handles POST /api/v1/webhook/:webhookId. The raw body is passed on
// untouched so the signature can be checked against the exact bytes sent.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp, err := h.dispatcher.Handle(r.Context(), webhooks.Request{
		WebhookID: param(r, "webhookId"),
		Body:      body,
		Signature: r.Header.Get(webhooks.SignatureHeader),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if resp.Handshake {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(resp.Status)
		io.WriteString(w, resp.Token)
		return
	}
	errors.WriteJSON(w, resp.Status, resp.Body)
}

// Describe handles GET /api/v1/webhook/:webhookId.
func (h *WebhookHandler) Describe(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dispatcher.Describe(r.Context(), param(r, "webhookId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, summary)
}
