package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ComplaintCreated("water", true)
	m.ComplaintCreated("water", true)
	m.ComplaintCreated("other", false)
	m.StatusTransition("submitted", "under_review")
	m.UpdateRejected("stale_version")
	m.NotificationCreated("status_changed")
	m.NotificationDelivered("email", false)
	m.ObserveRequest("GET", "/api/v1/complaints", "200", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ComplaintsCreated.WithLabelValues("water", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComplaintsCreated.WithLabelValues("other", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("submitted", "under_review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpdateRejections.WithLabelValues("stale_version")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("status_changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDeliveries.WithLabelValues("email", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ComplaintCreated("water", true)
		m.StatusTransition("a", "b")
		m.UpdateRejected("x")
		m.NotificationCreated("y")
		m.NotificationDelivered("email", true)
		m.ObserveRequest("GET", "/", "200", 1)
	})
}
