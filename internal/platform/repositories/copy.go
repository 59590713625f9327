package repositories

import (
	"context"
	"fmt"

	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/models"
)

// Copy writes every relay document reachable from src into dst and returns
// the number of keys copied. Keys are discovered through the webhook index
// and the analytics device list, so orphaned documents are left behind.
func Copy(ctx context.Context, src, dst kv.Store) (int, error) {
	keys := []string{
		webhookIndexKey,
		appwalletConfigKey,
		appwalletStatsKey,
		appwalletRecentKey,
		appwalletLogsKey,
	}

	ids, err := getList[string](ctx, src, webhookIndexKey)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		keys = append(keys, webhookKeyPrefix+id, logsKeyPrefix+id)
	}

	var stats models.GlobalStats
	if err := getJSON(ctx, src, appwalletStatsKey, &stats); err != nil && !kvNotFound(err) {
		return 0, err
	}
	for _, device := range stats.UniqueDevices {
		keys = append(keys, deviceKeyPrefix+device)
	}

	copied := 0
	for _, key := range keys {
		raw, err := src.Get(ctx, key)
		if kvNotFound(err) {
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("read %s: %w", key, err)
		}
		if err := dst.Put(ctx, key, raw); err != nil {
			return copied, fmt.Errorf("write %s: %w", key, err)
		}
		copied++
	}
	return copied, nil
}
