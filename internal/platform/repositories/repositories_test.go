package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passrelay/internal/pkg/errors"
	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/models"
)

func TestWebhookRepository_CreateGetListDelete(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := NewWebhookRepository(store)

	cfg := &models.WebhookConfig{BusinessName: "Coffee Club", Provider: "slack", IsActive: true}
	require.NoError(t, repo.Create(ctx, cfg))
	assert.True(t, strings.HasPrefix(cfg.ID, "wh_"))
	assert.True(t, strings.HasPrefix(cfg.SecretKey, "whsec_"))

	fetched, err := repo.GetByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee Club", fetched.BusinessName)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.AppendLog(ctx, cfg.ID, models.EventLogEntry{Type: "pass.updated", Status: models.StatusOK}))
	require.NoError(t, repo.Delete(ctx, cfg.ID))

	_, err = repo.GetByID(ctx, cfg.ID)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.Get(ctx, "logs:"+cfg.ID)
	assert.ErrorIs(t, err, kv.ErrNotFound, "log history must be deleted with the config")

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWebhookRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookRepository(kv.NewMemoryStore())

	require.NoError(t, repo.Create(ctx, &models.WebhookConfig{ID: "abc"}))
	err := repo.Create(ctx, &models.WebhookConfig{ID: "abc"})
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestWebhookRepository_LogsBounded(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookRepository(kv.NewMemoryStore())

	for i := 1; i <= 11; i++ {
		entry := models.EventLogEntry{Type: fmt.Sprintf("event.%d", i), Status: models.StatusOK}
		require.NoError(t, repo.AppendLog(ctx, "abc", entry))
	}

	logs, err := repo.GetLogs(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, logs, MaxWebhookLogs)
	assert.Equal(t, "event.11", logs[0].Type)
	assert.Equal(t, "event.2", logs[9].Type)
}

func TestWebhookRepository_UpdateLastEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookRepository(kv.NewMemoryStore())
	require.NoError(t, repo.Create(ctx, &models.WebhookConfig{ID: "abc", SecretKey: "s"}))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.UpdateLastEvent(ctx, "abc", "pass.updated", models.StatusError, at))

	cfg, err := repo.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05Z", cfg.LastEventAt)
	assert.Equal(t, "pass.updated", cfg.LastEventType)
	assert.Equal(t, models.StatusError, cfg.LastEventStatus)
	assert.Equal(t, "s", cfg.SecretKey)
}

func TestWebhookRepository_StoredLayout(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := NewWebhookRepository(store)
	require.NoError(t, repo.Create(ctx, &models.WebhookConfig{ID: "abc", BusinessName: "B"}))

	raw, err := store.Get(ctx, "webhook:abc")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "B", doc["businessName"])

	raw, err = store.Get(ctx, "webhooks:index")
	require.NoError(t, err)
	assert.JSONEq(t, `["abc"]`, string(raw))
}

func TestAnalyticsRepository_Buffers(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalyticsRepository(kv.NewMemoryStore())
	now := time.Now()

	for i := 0; i < 120; i++ {
		event := models.AnalyticsEvent{EventName: "pass_added", DeviceID: "device-1234567890", Timestamp: now.Format(time.RFC3339)}
		require.NoError(t, repo.AppendDeviceEvent(ctx, event, now))
		require.NoError(t, repo.RecordStats(ctx, event, now))
		require.NoError(t, repo.AppendRecent(ctx, event))
	}

	history, err := repo.GetDevice(ctx, "device-1234567890")
	require.NoError(t, err)
	assert.Len(t, history.Events, MaxDeviceEvents)
	assert.Equal(t, 120, history.TotalEvents)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalEvents)
	assert.Equal(t, 120, stats.EventCounts["pass_added"])
	assert.Equal(t, []string{"device-1234567890"}, stats.UniqueDevices)

	recent, err := repo.GetRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, MaxRecentEvents)
	assert.Equal(t, "device-1...", recent[0].DeviceID)
}

func TestAnalyticsRepository_ForwardConfigAndLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalyticsRepository(kv.NewMemoryStore())

	_, err := repo.GetForwardConfig(ctx)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, repo.PutForwardConfig(ctx, &models.ForwardConfig{IsActive: true, Provider: "zapier"}))
	cfg, err := repo.GetForwardConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.IsActive)
	assert.NotEmpty(t, cfg.UpdatedAt)

	for i := 0; i < 60; i++ {
		require.NoError(t, repo.AppendForwardLog(ctx, models.ForwardLogEntry{EventName: fmt.Sprint(i), Status: models.StatusOK}))
	}
	logs, err := repo.GetForwardLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, MaxForwardLogs)
	assert.Equal(t, "59", logs[0].EventName)
}
