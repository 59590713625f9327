package analytics

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"passrelay/internal/engine/providers"
	"passrelay/internal/pkg/errors"
	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/metrics"
	"passrelay/internal/platform/models"
	"passrelay/internal/platform/repositories"
	"passrelay/internal/workers"
)

// EventTypePrefix namespaces forwarded analytics events.
const EventTypePrefix = "appwallet."

// Ack is returned to the app as soon as an event is accepted.
type Ack struct {
	Success  bool   `json:"success"`
	DeviceID string `json:"deviceId"`
}

// Overview is the aggregate view served by GET /api/v1/appwallet/analytics.
type Overview struct {
	TotalEvents   int                  `json:"totalEvents"`
	UniqueDevices int                  `json:"uniqueDevices"`
	EventCounts   map[string]int       `json:"eventCounts"`
	LastEventAt   string               `json:"lastEventAt,omitempty"`
	RecentEvents  []models.RecentEvent `json:"recentEvents"`
}

type Service struct {
	repo     *repositories.AnalyticsRepository
	registry *providers.Registry
	runner   *workers.Runner
	metrics  metrics.Recorder
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo *repositories.AnalyticsRepository, registry *providers.Registry, runner *workers.Runner, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{
		repo:     repo,
		registry: registry,
		runner:   runner,
		metrics:  rec,
		validate: v,
		logger:   logger.Component("analytics"),
	}
}

// Ingest validates event and schedules aggregation and forwarding. Nothing is
// written when validation fails.
func (s *Service) Ingest(ctx context.Context, event models.AnalyticsEvent) (*Ack, error) {
	if err := s.validate.Struct(event); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrInvalidPayload, missingFields(err))
	}

	now := time.Now()
	if event.Timestamp == "" {
		event.Timestamp = now.UTC().Format(time.RFC3339)
	}
	s.metrics.RecordAnalyticsEvent()

	s.runner.Go(ctx, "analytics:"+event.EventName, func(ctx context.Context) {
		s.process(ctx, event, now)
	})
	return &Ack{Success: true, DeviceID: models.RedactDeviceID(event.DeviceID)}, nil
}

func missingFields(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return "missing required fields: " + strings.Join(names, ", ")
}

// process runs each aggregation step independently; one failing write does
// not skip the others.
func (s *Service) process(ctx context.Context, event models.AnalyticsEvent, now time.Time) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"device history", func() error { return s.repo.AppendDeviceEvent(ctx, event, now) }},
		{"global stats", func() error { return s.repo.RecordStats(ctx, event, now) }},
		{"recent events", func() error { return s.repo.AppendRecent(ctx, event) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			s.logger.Error().Err(err).Str("step", step.name).Str("event_name", event.EventName).Msg("Failed to record analytics event")
		}
	}

	s.forward(ctx, event, now)
}

func (s *Service) forward(ctx context.Context, event models.AnalyticsEvent, now time.Time) {
	cfg, err := s.repo.GetForwardConfig(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Error().Err(err).Msg("Failed to load forward config")
		}
		return
	}
	if !cfg.IsActive || cfg.Provider == "" {
		return
	}

	entry := models.ForwardLogEntry{
		Time:      now.UTC().Format(time.RFC3339),
		EventName: event.EventName,
		DeviceID:  models.RedactDeviceID(event.DeviceID),
		Provider:  cfg.Provider,
	}

	provider, ok := s.registry.Get(cfg.Provider)
	if !ok {
		entry.Status = models.StatusError
		entry.Message = "Unsupported provider: " + cfg.Provider
		s.writeForwardLog(ctx, entry)
		return
	}

	inbound := models.InboundEvent{
		Type: EventTypePrefix + event.EventName,
		Data: map[string]any{
			"eventName": event.EventName,
			"deviceId":  event.DeviceID,
			"timestamp": event.Timestamp,
			"metadata":  event.Metadata,
		},
	}
	meta := providers.Metadata{
		WebhookID:    "appwallet",
		BusinessName: cfg.BusinessName,
		Source:       providers.SourceAppWallet,
		ReceivedAt:   now,
	}

	providerCfg := cfg.ProviderConfig
	if providerCfg == nil {
		providerCfg = map[string]any{}
	}
	start := time.Now()
	res, _ := providers.SafeExecute(ctx, provider, inbound, providerCfg, meta)
	s.metrics.RecordProviderExecute(cfg.Provider, res.Success, time.Since(start))

	entry.Status = models.StatusOK
	if !res.Success {
		entry.Status = models.StatusError
	}
	entry.Message = res.Message
	s.writeForwardLog(ctx, entry)
}

func (s *Service) writeForwardLog(ctx context.Context, entry models.ForwardLogEntry) {
	s.metrics.RecordForward(entry.Status)
	s.logger.Info().
		Str("event_name", entry.EventName).
		Str("provider", entry.Provider).
		Str("status", entry.Status).
		Msg(entry.Message)
	ctx, cancel := workers.WriteContext(ctx)
	defer cancel()
	if err := s.repo.AppendForwardLog(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write forward log")
	}
}

func (s *Service) Stats(ctx context.Context) (*Overview, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.GetRecent(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{
		TotalEvents:   stats.TotalEvents,
		UniqueDevices: len(stats.UniqueDevices),
		EventCounts:   stats.EventCounts,
		LastEventAt:   stats.LastEventAt,
		RecentEvents:  recent,
	}, nil
}

func (s *Service) Device(ctx context.Context, deviceID string) (*models.DeviceHistory, error) {
	return s.repo.GetDevice(ctx, deviceID)
}

// ForwardConfig returns the stored forwarding setup, or an inactive default.
func (s *Service) ForwardConfig(ctx context.Context) (*models.ForwardConfig, error) {
	cfg, err := s.repo.GetForwardConfig(ctx)
	if errors.Is(err, errors.ErrNotFound) {
		return &models.ForwardConfig{}, nil
	}
	return cfg, err
}

// UpdateForwardConfig stores cfg after checking its provider is registered.
func (s *Service) UpdateForwardConfig(ctx context.Context, cfg *models.ForwardConfig) error {
	if cfg.Provider != "" {
		if _, ok := s.registry.Get(cfg.Provider); !ok {
			return fmt.Errorf("%w: %s", errors.ErrUnsupportedProvider, cfg.Provider)
		}
	}
	if cfg.IsActive && cfg.Provider == "" {
		return fmt.Errorf("%w: provider is required when forwarding is active", errors.ErrInvalidPayload)
	}
	return s.repo.PutForwardConfig(ctx, cfg)
}

func (s *Service) ForwardLogs(ctx context.Context) ([]models.ForwardLogEntry, error) {
	return s.repo.GetForwardLogs(ctx)
}
