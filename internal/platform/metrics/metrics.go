// Package metrics records relay activity. Recorder is the interface the
// engine depends on; Prometheus is the production implementation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder defines the measurements taken by the relay pipeline.
type Recorder interface {
	// RecordEvent records one processed inbound event and its log status.
	RecordEvent(provider, status string)

	// RecordProviderExecute records the latency and outcome of a provider call.
	RecordProviderExecute(provider string, success bool, duration time.Duration)

	// RecordAnalyticsEvent records an accepted analytics event.
	RecordAnalyticsEvent()

	// RecordForward records the outcome of an analytics forward.
	RecordForward(status string)

	// RecordStorageOperation records the duration and status of a KV operation.
	RecordStorageOperation(operation string, duration time.Duration, err error)

	// BackgroundTaskStarted and BackgroundTaskFinished track in-flight background work.
	BackgroundTaskStarted()
	BackgroundTaskFinished()
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordEvent(provider, status string)                                         {}
func (Noop) RecordProviderExecute(provider string, success bool, duration time.Duration) {}
func (Noop) RecordAnalyticsEvent()                                                       {}
func (Noop) RecordForward(status string)                                                 {}
func (Noop) RecordStorageOperation(operation string, duration time.Duration, err error)  {}
func (Noop) BackgroundTaskStarted()                                                      {}
func (Noop) BackgroundTaskFinished()                                                     {}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	eventsTotal          *prometheus.CounterVec
	providerDuration     *prometheus.HistogramVec
	analyticsEventsTotal prometheus.Counter
	forwardsTotal        *prometheus.CounterVec
	storageOpsDuration   *prometheus.HistogramVec
	storageOpsErrors     *prometheus.CounterVec
	backgroundInFlight   prometheus.Gauge
}

// NewPrometheus registers the relay collectors on reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of inbound webhook events by provider and logged status.",
		}, []string{"provider", "status"}),

		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_execute_duration_seconds",
			Help:      "Latency of outbound provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "success"}),

		analyticsEventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Total number of accepted analytics events.",
		}),

		forwardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_forwards_total",
			Help:      "Total number of analytics forwards by status.",
		}, []string{"status"}),

		storageOpsDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Latency of key-value storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		storageOpsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operation_errors_total",
			Help:      "Total number of key-value storage errors.",
		}, []string{"operation"}),

		backgroundInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "background_tasks_in_flight",
			Help:      "Number of background dispatch tasks currently running.",
		}),
	}
}

func (m *Prometheus) RecordEvent(provider, status string) {
	m.eventsTotal.WithLabelValues(provider, status).Inc()
}

func (m *Prometheus) RecordProviderExecute(provider string, success bool, duration time.Duration) {
	m.providerDuration.WithLabelValues(provider, strconv.FormatBool(success)).Observe(duration.Seconds())
}

func (m *Prometheus) RecordAnalyticsEvent() {
	m.analyticsEventsTotal.Inc()
}

func (m *Prometheus) RecordForward(status string) {
	m.forwardsTotal.WithLabelValues(status).Inc()
}

func (m *Prometheus) RecordStorageOperation(operation string, duration time.Duration, err error) {
	m.storageOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.storageOpsErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Prometheus) BackgroundTaskStarted() {
	m.backgroundInFlight.Inc()
}

func (m *Prometheus) BackgroundTaskFinished() {
	m.backgroundInFlight.Dec()
}
