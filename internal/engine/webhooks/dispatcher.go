package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"passrelay/internal/engine/providers"
	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/metrics"
	"passrelay/internal/platform/models"
	"passrelay/internal/platform/repositories"
	"passrelay/internal/workers"
)

// Request is one inbound callback as received on the wire.
type Request struct {
	WebhookID  string
	Body       []byte
	Signature  string
	ReceivedAt time.Time
}

// Response is what the handler writes back to the sender. A handshake
// response carries Token and is written as plain text; otherwise Body is JSON.
type Response struct {
	Status    int
	Handshake bool
	Token     string
	Body      Ack
}

// Ack is the JSON body of a processed event.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Options configures a Dispatcher.
type Options struct {
	// Background answers once the event is authenticated and routable and
	// runs the provider on the runner.
	Background bool
	Metrics    metrics.Recorder
}

// Dispatcher authenticates inbound events and routes them to providers.
type Dispatcher struct {
	repo       *repositories.WebhookRepository
	registry   *providers.Registry
	runner     *workers.Runner
	background bool
	metrics    metrics.Recorder
	logger     zerolog.Logger
}

func NewDispatcher(repo *repositories.WebhookRepository, registry *providers.Registry, runner *workers.Runner, opts Options) *Dispatcher {
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Dispatcher{
		repo:       repo,
		registry:   registry,
		runner:     runner,
		background: opts.Background,
		metrics:    rec,
		logger:     logger.Component("dispatcher"),
	}
}

// Handle runs an inbound event through lookup, verification and provider
// dispatch. Rejections come back as sentinel errors from pkg/errors; any other
// error is internal.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (*Response, error) {
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}

	cfg, err := d.repo.GetByID(ctx, req.WebhookID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("webhook %s: %w", req.WebhookID, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load webhook %s: %w", req.WebhookID, err)
	}

	var event models.InboundEvent
	if err := json.Unmarshal(req.Body, &event); err != nil {
		d.record(ctx, cfg, event, "", models.StatusError, "Invalid JSON payload", req.ReceivedAt, false)
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	if event.IsHandshake() {
		d.record(ctx, cfg, event, "", models.StatusOK, "Webhook verification handshake", req.ReceivedAt, false)
		return &Response{Status: http.StatusOK, Handshake: true, Token: event.Token()}, nil
	}

	if req.Signature == "" {
		d.record(ctx, cfg, event, "", models.StatusError, "Missing signature", req.ReceivedAt, false)
		return nil, errors.ErrMissingSignature
	}
	if !Verify(cfg.SecretKey, req.Body, req.Signature) {
		d.record(ctx, cfg, event, "", models.StatusError, "Invalid signature", req.ReceivedAt, false)
		return nil, errors.ErrInvalidSignature
	}

	providerName, providerCfg := cfg.ResolvedProvider()

	if !cfg.IsActive {
		d.record(ctx, cfg, event, providerName, models.StatusBlocked, "Webhook is inactive", req.ReceivedAt, true)
		return nil, errors.ErrInactive
	}

	provider, ok := d.registry.Get(providerName)
	if !ok {
		d.record(ctx, cfg, event, providerName, models.StatusError, "Unsupported provider: "+providerName, req.ReceivedAt, true)
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedProvider, providerName)
	}

	meta := providers.Metadata{
		WebhookID:    cfg.ID,
		BusinessName: cfg.BusinessName,
		Source:       providers.SourcePassSlot,
		ReceivedAt:   req.ReceivedAt,
	}

	if d.background {
		d.runner.Go(ctx, "dispatch:"+cfg.ID, func(ctx context.Context) {
			d.execute(ctx, cfg, provider, providerName, providerCfg, event, meta)
		})
		return &Response{Status: http.StatusOK, Body: Ack{Success: true, Message: "Event accepted"}}, nil
	}

	res, panicked := d.execute(ctx, cfg, provider, providerName, providerCfg, event, meta)
	switch {
	case panicked:
		return &Response{Status: http.StatusOK, Body: Ack{Success: true, Message: "Event processed"}}, nil
	case !res.Success:
		return &Response{Status: http.StatusUnprocessableEntity, Body: Ack{Success: false, Message: res.Message}}, nil
	default:
		return &Response{Status: http.StatusOK, Body: Ack{Success: true, Message: res.Message}}, nil
	}
}

func (d *Dispatcher) execute(ctx context.Context, cfg *models.WebhookConfig, p providers.Provider, name string, providerCfg map[string]any, event models.InboundEvent, meta providers.Metadata) (providers.Result, bool) {
	start := time.Now()
	res, panicked := providers.SafeExecute(ctx, p, event, providerCfg, meta)
	d.metrics.RecordProviderExecute(name, res.Success, time.Since(start))

	status := models.StatusOK
	if !res.Success {
		status = models.StatusError
	}
	if panicked {
		d.logger.Error().Str("webhook_id", cfg.ID).Str("provider", name).Msg(res.Message)
	}
	d.record(ctx, cfg, event, name, status, res.Message, meta.ReceivedAt, true)
	return res, panicked
}

// record writes the event log entry and, for authenticated events, the
// config's last-event fields. The writes survive an expired task context.
// Store failures are logged and never returned.
func (d *Dispatcher) record(ctx context.Context, cfg *models.WebhookConfig, event models.InboundEvent, provider, status, message string, at time.Time, updateConfig bool) {
	d.metrics.RecordEvent(provider, status)

	entry := models.EventLogEntry{
		Time:       at.UTC().Format(time.RFC3339),
		Type:       event.LogType(),
		Status:     status,
		Message:    message,
		Provider:   provider,
		PassSerial: event.PassSerial(),
	}

	logEvent := d.logger.Info()
	if status != models.StatusOK {
		logEvent = d.logger.Warn()
	}
	logEvent.
		Str("webhook_id", cfg.ID).
		Str("event_type", entry.Type).
		Str("provider", provider).
		Str("status", status).
		Msg(message)

	ctx, cancel := workers.WriteContext(ctx)
	defer cancel()
	if err := d.repo.AppendLog(ctx, cfg.ID, entry); err != nil {
		d.logger.Error().Err(err).Str("webhook_id", cfg.ID).Msg("Failed to write event log")
	}
	if !updateConfig {
		return
	}
	if err := d.repo.UpdateLastEvent(ctx, cfg.ID, entry.Type, status, at); err != nil {
		d.logger.Error().Err(err).Str("webhook_id", cfg.ID).Msg("Failed to update last event")
	}
}

// Describe returns the public view of a webhook config.
func (d *Dispatcher) Describe(ctx context.Context, id string) (*models.Summary, error) {
	cfg, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := cfg.Summary()
	return &summary, nil
}
