package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for batch intake.
type Metrics struct {
	// Records by outcome: accepted, invalid, malformed, unresolved, duplicate
	Records *prometheus.CounterVec

	// Contacts created by committed batches
	ContactsCreated prometheus.Counter

	// Responsibilities created by committed batches
	ResponsibilitiesCreated prometheus.Counter

	// Commit attempts by result: ok, failed, empty
	Commits *prometheus.CounterVec

	// Notification sends by result: sent, failed, skipped
	Notifications *prometheus.CounterVec

	// Full batch processing latency
	BatchLatency prometheus.Histogram
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safestep_intake_records_total",
			Help: "Inbound records by processing outcome",
		}, []string{"outcome"}),

		ContactsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "safestep_intake_contacts_created_total",
			Help: "Emergency contacts created by committed batches",
		}),

		ResponsibilitiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "safestep_intake_responsibilities_created_total",
			Help: "Responsibilities created by committed batches",
		}),

		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safestep_intake_commits_total",
			Help: "Batch commit attempts by result",
		}, []string{"result"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safestep_intake_notifications_total",
			Help: "Acceptance-request notifications by result",
		}, []string{"result"}),

		BatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safestep_intake_batch_duration_seconds",
			Help:    "Duration of processing one inbound batch, commit and notifications included",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementRecord records the outcome of one inbound record.
func (m *Metrics) IncrementRecord(outcome string) {
	if m != nil {
		m.Records.WithLabelValues(outcome).Inc()
	}
}

// ObserveCommit records a commit attempt and, on success, what it created.
func (m *Metrics) ObserveCommit(result string, contacts, responsibilities int) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(result).Inc()
	if result == "ok" {
		m.ContactsCreated.Add(float64(contacts))
		m.ResponsibilitiesCreated.Add(float64(responsibilities))
	}
}

// IncrementNotification records a notification outcome.
func (m *Metrics) IncrementNotification(result string) {
	if m != nil {
		m.Notifications.WithLabelValues(result).Inc()
	}
}

// ObserveBatchLatency records the total time spent on one batch.
func (m *Metrics) ObserveBatchLatency(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}
