package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/models"
)

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := kv.NewMemoryStore()
	dst := kv.NewMemoryStore()

	webhooks := NewWebhookRepository(src)
	cfg := &models.WebhookConfig{BusinessName: "Gym", Provider: "zapier", IsActive: true}
	require.NoError(t, webhooks.Create(ctx, cfg))
	require.NoError(t, webhooks.AppendLog(ctx, cfg.ID, models.EventLogEntry{Type: "pass.created", Status: models.StatusOK}))

	analytics := NewAnalyticsRepository(src)
	event := models.AnalyticsEvent{EventName: "pass_added", DeviceID: "device-1"}
	now := time.Now()
	require.NoError(t, analytics.AppendDeviceEvent(ctx, event, now))
	require.NoError(t, analytics.RecordStats(ctx, event, now))
	require.NoError(t, analytics.AppendRecent(ctx, event))

	copied, err := Copy(ctx, src, dst)
	require.NoError(t, err)
	// index, config, logs, stats, recent, device
	assert.Equal(t, 6, copied)
	assert.Equal(t, src.Len(), dst.Len())

	got, err := NewWebhookRepository(dst).GetByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.SecretKey, got.SecretKey)

	history, err := NewAnalyticsRepository(dst).GetDevice(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, 1, history.TotalEvents)
}

func TestCopy_Empty(t *testing.T) {
	copied, err := Copy(context.Background(), kv.NewMemoryStore(), kv.NewMemoryStore())
	require.NoError(t, err)
	assert.Zero(t, copied)
}
