package models

import (
	"time"
)

// NotificationType tags why a notification was created
type NotificationType string

const (
	NotificationComplaintAssigned    NotificationType = "complaint_assigned"
	NotificationOfficerAssigned      NotificationType = "officer_assigned"
	NotificationStatusChanged        NotificationType = "status_changed"
	NotificationComplaintResolved    NotificationType = "complaint_resolved"
	NotificationEstimatedDateUpdated NotificationType = "estimated_date_updated"
	NotificationCommentAdded         NotificationType = "comment_added"
	NotificationFeedbackReceived     NotificationType = "feedback_received"
)

// DeliveryStatus represents the external delivery state of a notification
type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "pending"
	DeliverySent     DeliveryStatus = "sent"
	DeliveryFailed   DeliveryStatus = "failed"
	DeliveryRetrying DeliveryStatus = "retrying"
)

// EntityComplaint is the entity type notifications about complaints refer to
const EntityComplaint = "complaint"

// Notification is a one-way message to a user generated by a lifecycle event.
// Only the read flag changes after creation as far as the recipient is
// concerned; delivery fields are bookkeeping for the delivery worker.
type Notification struct {
	NotificationID int64            `json:"notification_id"`
	RecipientID    int64            `json:"recipient_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	EntityType     string           `json:"entity_type"`
	EntityID       int64            `json:"entity_id"`
	IsRead         bool             `json:"is_read"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	DeliveryStatus DeliveryStatus   `json:"-"`
	RetryCount     int              `json:"-"`
	MaxRetries     int              `json:"-"`
	NextRetryAt    *time.Time       `json:"-"`
	LastError      string           `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NotificationConfig holds configuration for notification delivery
type NotificationConfig struct {
	// Default retry configuration
	DefaultMaxRetries int

	// Retry backoff configuration
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	BackoffMultiplier float64

	// Worker configuration
	WorkerBatchSize int
	WorkerInterval  time.Duration
}

// DefaultNotificationConfig returns default notification configuration
func DefaultNotificationConfig() *NotificationConfig {
	return &NotificationConfig{
		DefaultMaxRetries: 3,
		InitialRetryDelay: 1 * time.Minute,
		MaxRetryDelay:     30 * time.Minute,
		BackoffMultiplier: 2.0,
		WorkerBatchSize:   100,
		WorkerInterval:    30 * time.Second,
	}
}
