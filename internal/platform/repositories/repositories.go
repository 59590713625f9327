package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"passrelay/internal/platform/kv"
)

// Key layout shared with the admin surface.
const (
	webhookKeyPrefix   = "webhook:"
	webhookIndexKey    = "webhooks:index"
	logsKeyPrefix      = "logs:"
	appwalletConfigKey = "appwallet:config"
	appwalletStatsKey  = "appwallet:stats"
	appwalletRecentKey = "appwallet:recent"
	appwalletLogsKey   = "appwallet:logs"
	deviceKeyPrefix    = "appwallet:device:"
)

// Ring buffer capacities.
const (
	MaxWebhookLogs   = 10
	MaxDeviceEvents  = 50
	MaxRecentEvents  = 100
	MaxUniqueDevices = 1000
	MaxForwardLogs   = 50
)

func getJSON(ctx context.Context, store kv.Store, key string, dst any) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func putJSON(ctx context.Context, store kv.Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, raw)
}

// getList loads a JSON array, treating a missing key as empty.
func getList[T any](ctx context.Context, store kv.Store, key string) ([]T, error) {
	var list []T
	if err := getJSON(ctx, store, key, &list); err != nil {
		if kvNotFound(err) {
			return []T{}, nil
		}
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}
