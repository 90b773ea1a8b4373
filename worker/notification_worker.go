package worker

import (
	"citizenone/models"
	"context"
	"log"
	"sync"
	"time"
)

// NotificationProcessor is what the worker drives; *service.NotificationService implements it
type NotificationProcessor interface {
	GetPendingNotifications(ctx context.Context) ([]models.Notification, error)
	ProcessNotification(ctx context.Context, n *models.Notification) (models.DeliveryStatus, error)
}

// NotificationWorker is a background worker that delivers stored notifications
// to email and realtime channels
type NotificationWorker struct {
	processor NotificationProcessor
	interval  time.Duration
	stopChan  chan struct{}
	done      chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(processor NotificationProcessor, interval time.Duration) *NotificationWorker {
	return &NotificationWorker{
		processor: processor,
		interval:  interval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the worker in its own goroutine
func (w *NotificationWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		log.Println("[notification-worker] already running")
		return
	}
	w.running = true
	// Fresh channels so a stopped worker can be started again.
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	log.Printf("[notification-worker] started (interval: %v)", w.interval)
	go w.run(w.stopChan, w.done)
}

// Stop signals the worker and waits for the current batch to finish
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	log.Println("[notification-worker] stopped")
}

func (w *NotificationWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Process immediately on start
	w.ProcessBatch(ctx)

	for {
		select {
		case <-ticker.C:
			w.ProcessBatch(ctx)
		case <-stop:
			return
		}
	}
}

// BatchResult counts the outcomes of one processing pass
type BatchResult struct {
	Sent     int
	Failed   int
	Retrying int
}

// ProcessBatch delivers one batch of pending notifications. Safe to call
// repeatedly; a notification leaves the pending set once it is sent or failed.
func (w *NotificationWorker) ProcessBatch(ctx context.Context) BatchResult {
	var result BatchResult
	startTime := time.Now()

	notifications, err := w.processor.GetPendingNotifications(ctx)
	if err != nil {
		log.Printf("[notification-worker] Error getting pending notifications: %v", err)
		return result
	}
	if len(notifications) == 0 {
		return result
	}

	for i := range notifications {
		if ctx.Err() != nil {
			break
		}
		n := &notifications[i]
		status, err := w.processor.ProcessNotification(ctx, n)
		switch status {
		case models.DeliverySent:
			result.Sent++
		case models.DeliveryRetrying:
			result.Retrying++
			log.Printf("[notification-worker] Notification #%d scheduled for retry: %v", n.NotificationID, err)
		default:
			result.Failed++
			log.Printf("[notification-worker] Notification #%d failed: %v", n.NotificationID, err)
		}
	}

	log.Printf("[notification-worker] Processed %d notifications in %v: %d sent, %d failed, %d retries",
		len(notifications), time.Since(startTime), result.Sent, result.Failed, result.Retrying)
	return result
}
