package repositories

import (
	"context"
	"time"

	"passrelay/internal/pkg/ring"
	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/models"
)

// AnalyticsRepository owns the appwallet:* keys.
type AnalyticsRepository struct {
	store kv.Store
}

func NewAnalyticsRepository(store kv.Store) *AnalyticsRepository {
	return &AnalyticsRepository{store: store}
}

func (r *AnalyticsRepository) GetDevice(ctx context.Context, deviceID string) (*models.DeviceHistory, error) {
	var history models.DeviceHistory
	if err := getJSON(ctx, r.store, deviceKeyPrefix+deviceID, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// AppendDeviceEvent records event at the front of the device's history.
func (r *AnalyticsRepository) AppendDeviceEvent(ctx context.Context, event models.AnalyticsEvent, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)

	history, err := r.GetDevice(ctx, event.DeviceID)
	if err != nil {
		if !kvNotFound(err) {
			return err
		}
		history = &models.DeviceHistory{DeviceID: event.DeviceID, FirstSeen: ts}
	}

	history.Events = ring.Prepend(history.Events, event, MaxDeviceEvents)
	history.LastSeen = ts
	history.TotalEvents++
	return putJSON(ctx, r.store, deviceKeyPrefix+event.DeviceID, history)
}

func (r *AnalyticsRepository) GetStats(ctx context.Context) (*models.GlobalStats, error) {
	stats := &models.GlobalStats{}
	if err := getJSON(ctx, r.store, appwalletStatsKey, stats); err != nil && !kvNotFound(err) {
		return nil, err
	}
	if stats.EventCounts == nil {
		stats.EventCounts = map[string]int{}
	}
	if stats.UniqueDevices == nil {
		stats.UniqueDevices = []string{}
	}
	return stats, nil
}

// RecordStats bumps the global counters for one event.
func (r *AnalyticsRepository) RecordStats(ctx context.Context, event models.AnalyticsEvent, now time.Time) error {
	stats, err := r.GetStats(ctx)
	if err != nil {
		return err
	}
	stats.TotalEvents++
	stats.EventCounts[event.EventName]++
	stats.UniqueDevices, _ = ring.AppendUnique(stats.UniqueDevices, event.DeviceID, MaxUniqueDevices)
	stats.LastEventAt = now.UTC().Format(time.RFC3339)
	return putJSON(ctx, r.store, appwalletStatsKey, stats)
}

func (r *AnalyticsRepository) GetRecent(ctx context.Context) ([]models.RecentEvent, error) {
	return getList[models.RecentEvent](ctx, r.store, appwalletRecentKey)
}

// AppendRecent stores event in the global recent buffer with a redacted device id.
func (r *AnalyticsRepository) AppendRecent(ctx context.Context, event models.AnalyticsEvent) error {
	recent, err := r.GetRecent(ctx)
	if err != nil {
		return err
	}
	entry := models.RecentEvent{
		EventName: event.EventName,
		DeviceID:  models.RedactDeviceID(event.DeviceID),
		Timestamp: event.Timestamp,
		Metadata:  event.Metadata,
	}
	return putJSON(ctx, r.store, appwalletRecentKey, ring.Prepend(recent, entry, MaxRecentEvents))
}

// GetForwardConfig returns kv.ErrNotFound when forwarding was never configured.
func (r *AnalyticsRepository) GetForwardConfig(ctx context.Context) (*models.ForwardConfig, error) {
	var cfg models.ForwardConfig
	if err := getJSON(ctx, r.store, appwalletConfigKey, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *AnalyticsRepository) PutForwardConfig(ctx context.Context, cfg *models.ForwardConfig) error {
	cfg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return putJSON(ctx, r.store, appwalletConfigKey, cfg)
}

func (r *AnalyticsRepository) AppendForwardLog(ctx context.Context, entry models.ForwardLogEntry) error {
	logs, err := r.GetForwardLogs(ctx)
	if err != nil {
		return err
	}
	return putJSON(ctx, r.store, appwalletLogsKey, ring.Prepend(logs, entry, MaxForwardLogs))
}

func (r *AnalyticsRepository) GetForwardLogs(ctx context.Context) ([]models.ForwardLogEntry, error) {
	return getList[models.ForwardLogEntry](ctx, r.store, appwalletLogsKey)
}
