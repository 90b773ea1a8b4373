// Package metrics defines the Prometheus instruments exposed at /metrics.
//
// All recording methods are safe on a nil *Metrics so that services and tests
// can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "citizenone"

// Metrics holds the application counters and histograms
type Metrics struct {
	// ComplaintsCreated counts filed complaints. Labels: category, assigned (true|false)
	ComplaintsCreated *prometheus.CounterVec

	// StatusTransitions counts lifecycle status changes. Labels: from, to
	StatusTransitions *prometheus.CounterVec

	// UpdateRejections counts rejected lifecycle updates. Labels: reason
	UpdateRejections *prometheus.CounterVec

	// NotificationsCreated counts stored notification records. Labels: type
	NotificationsCreated *prometheus.CounterVec

	// NotificationDeliveries counts external delivery attempts. Labels: channel, result
	NotificationDeliveries *prometheus.CounterVec

	// HTTPRequestDuration measures handler latency. Labels: method, route, code
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every instrument with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ComplaintsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "complaints",
			Name:      "created_total",
			Help:      "Complaints filed, by category and whether a department was auto-assigned",
		}, []string{"category", "assigned"}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "complaints",
			Name:      "status_transitions_total",
			Help:      "Complaint status transitions by source and target status",
		}, []string{"from", "to"}),
		UpdateRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "complaints",
			Name:      "update_rejections_total",
			Help:      "Lifecycle updates rejected, by reason",
		}, []string{"reason"}),
		NotificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notification records created, by type",
		}, []string{"type"}),
		NotificationDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "External notification delivery attempts, by channel and result",
		}, []string{"channel", "result"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

// ComplaintCreated records a new complaint
func (m *Metrics) ComplaintCreated(category string, assigned bool) {
	if m == nil {
		return
	}
	a := "false"
	if assigned {
		a = "true"
	}
	m.ComplaintsCreated.WithLabelValues(category, a).Inc()
}

// StatusTransition records one status change
func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

// UpdateRejected records a refused lifecycle update
func (m *Metrics) UpdateRejected(reason string) {
	if m == nil {
		return
	}
	m.UpdateRejections.WithLabelValues(reason).Inc()
}

// NotificationCreated records a stored notification
func (m *Metrics) NotificationCreated(notificationType string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.WithLabelValues(notificationType).Inc()
}

// NotificationDelivered records a delivery attempt on one channel
func (m *Metrics) NotificationDelivered(channel string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.NotificationDeliveries.WithLabelValues(channel, result).Inc()
}

// ObserveRequest records a handled HTTP request
func (m *Metrics) ObserveRequest(method, route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, code).Observe(seconds)
}
