package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/ring"
	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/models"
)

// WebhookRepository reads and writes webhook configs and their event logs.
// Updates are read-modify-write without locking; concurrent writers to one
// webhook are last-writer-wins.
type WebhookRepository struct {
	store kv.Store
}

func NewWebhookRepository(store kv.Store) *WebhookRepository {
	return &WebhookRepository{store: store}
}

func kvNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.WebhookConfig, error) {
	var cfg models.WebhookConfig
	if err := getJSON(ctx, r.store, webhookKeyPrefix+id, &cfg); err != nil {
		return nil, err
	}
	if cfg.ID == "" {
		cfg.ID = id
	}
	return &cfg, nil
}

// Create assigns an id and secret when missing, stores the config and
// registers it in the index.
func (r *WebhookRepository) Create(ctx context.Context, cfg *models.WebhookConfig) error {
	if cfg.ID == "" {
		cfg.ID = "wh_" + uuid.New().String()
	}
	AssignSecret(cfg)
	now := time.Now().UTC().Format(time.RFC3339)
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if _, err := r.GetByID(ctx, cfg.ID); err == nil {
		return fmt.Errorf("webhook %s: %w", cfg.ID, errors.ErrConflict)
	} else if !kvNotFound(err) {
		return err
	}

	if err := putJSON(ctx, r.store, webhookKeyPrefix+cfg.ID, cfg); err != nil {
		return err
	}

	ids, err := r.index(ctx)
	if err != nil {
		return err
	}
	ids, _ = ring.AppendUnique(ids, cfg.ID, len(ids)+1)
	return putJSON(ctx, r.store, webhookIndexKey, ids)
}

// AssignSecret generates a signing secret when cfg has none.
func AssignSecret(cfg *models.WebhookConfig) {
	if cfg.SecretKey == "" {
		cfg.SecretKey = "whsec_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}
}

func (r *WebhookRepository) Update(ctx context.Context, cfg *models.WebhookConfig) error {
	cfg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return putJSON(ctx, r.store, webhookKeyPrefix+cfg.ID, cfg)
}

// Delete removes the config, its log history and its index entry.
func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, webhookKeyPrefix+id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, logsKeyPrefix+id); err != nil {
		return err
	}

	ids, err := r.index(ctx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return putJSON(ctx, r.store, webhookIndexKey, kept)
}

// List returns every indexed config; ids whose record vanished are skipped.
func (r *WebhookRepository) List(ctx context.Context) ([]*models.WebhookConfig, error) {
	ids, err := r.index(ctx)
	if err != nil {
		return nil, err
	}

	webhooks := make([]*models.WebhookConfig, 0, len(ids))
	for _, id := range ids {
		cfg, err := r.GetByID(ctx, id)
		if err != nil {
			if kvNotFound(err) {
				continue
			}
			return nil, err
		}
		webhooks = append(webhooks, cfg)
	}
	return webhooks, nil
}

// UpdateLastEvent overwrites the last-event audit fields.
func (r *WebhookRepository) UpdateLastEvent(ctx context.Context, id, eventType, status string, at time.Time) error {
	cfg, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cfg.LastEventAt = at.UTC().Format(time.RFC3339)
	cfg.LastEventType = eventType
	cfg.LastEventStatus = status
	return putJSON(ctx, r.store, webhookKeyPrefix+id, cfg)
}

// AppendLog puts entry at the front of logs:{id}, keeping MaxWebhookLogs.
func (r *WebhookRepository) AppendLog(ctx context.Context, id string, entry models.EventLogEntry) error {
	logs, err := getList[models.EventLogEntry](ctx, r.store, logsKeyPrefix+id)
	if err != nil {
		return err
	}
	return putJSON(ctx, r.store, logsKeyPrefix+id, ring.Prepend(logs, entry, MaxWebhookLogs))
}

func (r *WebhookRepository) GetLogs(ctx context.Context, id string) ([]models.EventLogEntry, error) {
	return getList[models.EventLogEntry](ctx, r.store, logsKeyPrefix+id)
}

func (r *WebhookRepository) index(ctx context.Context) ([]string, error) {
	return getList[string](ctx, r.store, webhookIndexKey)
}
