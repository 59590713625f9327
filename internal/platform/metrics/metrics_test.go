package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "passrelay")

	m.RecordEvent("slack", "ok")
	m.RecordEvent("slack", "ok")
	m.RecordEvent("slack", "error")
	m.RecordForward("ok")
	m.RecordAnalyticsEvent()
	m.RecordStorageOperation("put", time.Millisecond, errors.New("boom"))
	m.RecordStorageOperation("get", time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("slack", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("slack", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forwardsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyticsEventsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOpsErrors.WithLabelValues("put")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.storageOpsErrors.WithLabelValues("get")))
}

func TestPrometheus_BackgroundGauge(t *testing.T) {
	m := NewPrometheus(prometheus.NewRegistry(), "passrelay")

	m.BackgroundTaskStarted()
	m.BackgroundTaskStarted()
	m.BackgroundTaskFinished()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.backgroundInFlight))
}
