package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCommit(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCommit("ok", 2, 3)
	m.ObserveCommit("failed", 5, 5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("failed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ContactsCreated))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ResponsibilitiesCreated))
}

func TestIncrementRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncrementRecord("invalid")
	m.IncrementRecord("invalid")
	m.IncrementNotification("sent")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Records.WithLabelValues("invalid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementRecord("accepted")
		m.ObserveCommit("ok", 1, 1)
		m.IncrementNotification("sent")
		m.ObserveBatchLatency(time.Second)
	})
}
