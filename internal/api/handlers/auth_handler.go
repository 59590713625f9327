package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog"

	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/auth"
)

type AuthHandler struct {
	tokenSvc *auth.TokenService
	logger   zerolog.Logger
}

func NewAuthHandler(tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc, logger: logger.Component("auth_handler")}
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, 4096, &req); err != nil || req.Password == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	token, err := h.tokenSvc.Login(req.Password)
	switch {
	case stderrors.Is(err, auth.ErrAdminDisabled):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Admin login is not configured", nil)
		return
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		h.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Failed admin login")
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	case err != nil:
		writeServiceError(w, h.logger, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "Bearer"})
}
