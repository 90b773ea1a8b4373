package worker

import (
	"citizenone/models"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeProcessor struct {
	mu       sync.Mutex
	pending  []models.Notification
	outcome  map[int64]models.DeliveryStatus
	fetchErr error
	calls    int
}

func (f *fakeProcessor) GetPendingNotifications(ctx context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeProcessor) ProcessNotification(ctx context.Context, n *models.Notification) (models.DeliveryStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	status := f.outcome[n.NotificationID]
	if status == models.DeliverySent {
		return status, nil
	}
	return status, errors.New("smtp unavailable")
}

func (f *fakeProcessor) processed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestProcessBatch_CountsOutcomes(t *testing.T) {
	p := &fakeProcessor{
		pending: []models.Notification{{NotificationID: 1}, {NotificationID: 2}, {NotificationID: 3}, {NotificationID: 4}},
		outcome: map[int64]models.DeliveryStatus{
			1: models.DeliverySent,
			2: models.DeliverySent,
			3: models.DeliveryRetrying,
			4: models.DeliveryFailed,
		},
	}
	w := NewNotificationWorker(p, time.Minute)

	result := w.ProcessBatch(context.Background())
	assert.Equal(t, BatchResult{Sent: 2, Failed: 1, Retrying: 1}, result)

	assert.Equal(t, BatchResult{}, w.ProcessBatch(context.Background()), "nothing left pending")
}

func TestProcessBatch_FetchError(t *testing.T) {
	p := &fakeProcessor{fetchErr: errors.New("db down")}
	w := NewNotificationWorker(p, time.Minute)
	assert.Equal(t, BatchResult{}, w.ProcessBatch(context.Background()))
}

func TestProcessBatch_StopsOnCancelledContext(t *testing.T) {
	p := &fakeProcessor{
		pending: []models.Notification{{NotificationID: 1}, {NotificationID: 2}},
		outcome: map[int64]models.DeliveryStatus{1: models.DeliverySent, 2: models.DeliverySent},
	}
	w := NewNotificationWorker(p, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, BatchResult{}, w.ProcessBatch(ctx))
	assert.Equal(t, 0, p.processed())
}

func TestWorker_StartStop(t *testing.T) {
	p := &fakeProcessor{
		pending: []models.Notification{{NotificationID: 1}},
		outcome: map[int64]models.DeliveryStatus{1: models.DeliverySent},
	}
	w := NewNotificationWorker(p, time.Hour)
	w.Start()
	w.Start()

	assert.Eventually(t, func() bool { return p.processed() == 1 }, time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()
}

func TestWorker_RestartAfterStop(t *testing.T) {
	p := &fakeProcessor{
		pending: []models.Notification{{NotificationID: 1}},
		outcome: map[int64]models.DeliveryStatus{1: models.DeliverySent, 2: models.DeliverySent},
	}
	w := NewNotificationWorker(p, time.Hour)

	w.Start()
	assert.Eventually(t, func() bool { return p.processed() == 1 }, time.Second, 10*time.Millisecond)
	w.Stop()

	p.mu.Lock()
	p.pending = []models.Notification{{NotificationID: 2}}
	p.mu.Unlock()

	assert.NotPanics(t, func() {
		w.Start()
		assert.Eventually(t, func() bool { return p.processed() == 2 }, time.Second, 10*time.Millisecond)
		w.Stop()
	})
}
