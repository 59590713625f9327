package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passrelay/internal/api/handlers"
	"passrelay/internal/api/middleware"
	"passrelay/internal/engine/analytics"
	"passrelay/internal/engine/providers"
	"passrelay/internal/engine/webhooks"
	"passrelay/internal/platform/auth"
	"passrelay/internal/platform/config"
	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/metrics"
	"passrelay/internal/platform/models"
	"passrelay/internal/platform/repositories"
	"passrelay/internal/workers"
)

type testServer struct {
	*httptest.Server
	repo   *repositories.WebhookRepository
	runner *workers.Runner
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheus(reg, "passrelay")
	store := kv.NewInstrumented(kv.NewMemoryStore(), rec)
	repo := repositories.NewWebhookRepository(store)
	runner := workers.NewRunner(time.Second, rec)

	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(downstream.Close)
	registry := providers.NewRegistry(providers.NewCustomHTTP(downstream.Client()), providers.NewZapier(downstream.Client()))

	hash, err := auth.HashPassword("admin-pass")
	require.NoError(t, err)
	tokenSvc := auth.NewTokenService(config.AdminConfig{PasswordHash: hash, JWTSecret: "s3cret", AccessTokenTTL: time.Hour})

	dispatcher := webhooks.NewDispatcher(repo, registry, runner, webhooks.Options{Background: true, Metrics: rec})
	analyticsSvc := analytics.NewService(repositories.NewAnalyticsRepository(store), registry, runner, rec)
	limiter := middleware.NewRateLimiter(100)
	t.Cleanup(limiter.Close)

	router := NewRouter(&Dependencies{
		WebhookHandler:   handlers.NewWebhookHandler(dispatcher, 1<<16),
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsSvc, 1<<16),
		AdminHandler:     handlers.NewAdminHandler(repo, registry, analyticsSvc),
		AuthHandler:      handlers.NewAuthHandler(tokenSvc),
		HealthHandler:    handlers.NewHealthHandler(store),
		MetricsHandler:   handlers.NewMetricsHandler(reg),
		AuthMiddleware:   middleware.NewAuthMiddleware(tokenSvc),
		LoginLimiter:     limiter,
		CORS:             middleware.CORS(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST", "OPTIONS"}, AllowedHeaders: []string{"Content-Type"}}),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	token, err := tokenSvc.GenerateAccessToken()
	require.NoError(t, err)
	return &testServer{Server: srv, repo: repo, runner: runner, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func (s *testServer) admin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t)
	cfg := &models.WebhookConfig{BusinessName: "Coffee Club", Provider: providers.ZapierName, IsActive: true,
		ProviderConfig: map[string]any{"zapierWebhookUrl": "http://127.0.0.1:1/unused"}}
	require.NoError(t, s.repo.Create(t.Context(), cfg))

	t.Run("handshake echoes token as text", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPost, "/api/v1/webhook/"+cfg.ID, `{"type":"webhook.verify","data":{"token":"abc123"}}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "abc123", body)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	})

	t.Run("signed event is accepted", func(t *testing.T) {
		payload := `{"type":"pass.updated","data":{"passSerialNumber":"SER-1"}}`
		resp, body := s.do(t, http.MethodPost, "/api/v1/webhook/"+cfg.ID, payload,
			map[string]string{"x-passslot-signature": webhooks.Sign(cfg.SecretKey, []byte(payload))})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true,"message":"Event accepted"}`, body)
	})

	t.Run("missing signature", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/api/v1/webhook/"+cfg.ID, `{"type":"pass.updated","data":{}}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad signature", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/api/v1/webhook/"+cfg.ID, `{"type":"pass.updated","data":{}}`,
			map[string]string{"x-passslot-signature": "sha1=0000"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown webhook", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPost, "/api/v1/webhook/nope", `{"type":"pass.updated","data":{}}`, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body, `"code":"NOT_FOUND"`)
	})

	t.Run("diagnostic hides secret", func(t *testing.T) {
		resp, body := s.do(t, http.MethodGet, "/api/v1/webhook/"+cfg.ID, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"businessName":"Coffee Club"`)
		assert.Contains(t, body, `"provider":"zapier"`)
		assert.NotContains(t, body, cfg.SecretKey)
	})

	require.True(t, s.runner.Flush(time.Second))
}

func TestAnalyticsEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/appwallet/analytics", `{"eventName":"pass_added"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/v1/appwallet/analytics", `{"eventName":"pass_added","deviceId":"0123456789"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"deviceId":"01234567..."}`, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.True(t, s.runner.Flush(time.Second))

	resp, body = s.do(t, http.MethodGet, "/api/v1/appwallet/analytics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var overview analytics.Overview
	require.NoError(t, json.Unmarshal([]byte(body), &overview))
	assert.Equal(t, 1, overview.TotalEvents)
	assert.Equal(t, 1, overview.UniqueDevices)

	resp, _ = s.do(t, http.MethodOptions, "/api/v1/appwallet/analytics", "", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, body = s.do(t, http.MethodGet, "/api/v1/appwallet/analytics/device/0123456789", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"totalEvents":1`)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/api/v1/admin/webhooks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/admin/login", `{"password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/v1/admin/login", `{"password":"admin-pass"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login handlers.LoginResponse
	require.NoError(t, json.Unmarshal([]byte(body), &login))
	assert.NotEmpty(t, login.AccessToken)

	resp, body = s.do(t, http.MethodPost, "/api/v1/admin/webhooks",
		`{"businessName":"Gym","provider":"custom_http","providerConfig":{"url":"https://example.com/hook"}}`, s.admin())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created handlers.CreatedWebhook
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.True(t, strings.HasPrefix(created.SecretKey, "whsec_"))
	assert.True(t, created.IsActive)

	resp, body = s.do(t, http.MethodGet, "/api/v1/admin/webhooks/"+created.ID, "", s.admin())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, created.SecretKey)

	resp, body = s.do(t, http.MethodPut, "/api/v1/admin/webhooks/"+created.ID, `{"isActive":false}`, s.admin())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"isActive":false`)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/admin/webhooks", `{"businessName":"Gym","provider":"telegraph"}`, s.admin())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/v1/admin/providers", "", s.admin())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"custom_http"`)

	resp, _ = s.do(t, http.MethodPut, "/api/v1/admin/appwallet/config", `{"isActive":true,"provider":"zapier","providerConfig":{"zapierWebhookUrl":"https://hooks.zapier.com/x"}}`, s.admin())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = s.do(t, http.MethodGet, "/api/v1/admin/appwallet/config", "", s.admin())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"provider":"zapier"`)

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/admin/webhooks/"+created.ID, "", s.admin())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/v1/admin/webhooks/"+created.ID, "", s.admin())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"kv":"healthy"`)

	s.do(t, http.MethodPost, "/api/v1/webhook/unknown", `{}`, nil)
	resp, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "passrelay_storage_operation_duration_seconds")
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, s.URL+"/health", bytes.NewReader(nil))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))
}
