package service

import (
	"citizenone/metrics"
	"citizenone/models"
	"citizenone/notification"
	"citizenone/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

// NotificationStore is the persistence the inbox and the delivery worker need
type NotificationStore interface {
	ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool, page, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	MarkRead(ctx context.Context, notificationID, recipientID int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	GetPendingDeliveries(ctx context.Context, limit int) ([]models.Notification, error)
	UpdateDeliveryStatus(ctx context.Context, notificationID int64, status models.DeliveryStatus, errorMessage string) error
	ScheduleRetry(ctx context.Context, notificationID int64, nextRetryAt time.Time, errorMessage string) error
}

var _ NotificationStore = (*repository.NotificationRepository)(nil)

// NotificationConfig is an alias for models.NotificationConfig
type NotificationConfig = models.NotificationConfig

// NotificationService serves the user inbox and delivers stored notifications
// to external channels with retry logic
type NotificationService struct {
	repo     NotificationStore
	users    UserDirectory
	email    notification.Sender
	realtime notification.Sender
	config   *models.NotificationConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewNotificationService creates a new notification service. Either sender may
// be nil, which disables that channel.
func NewNotificationService(
	repo NotificationStore,
	users UserDirectory,
	email notification.Sender,
	realtime notification.Sender,
	config *models.NotificationConfig,
	m *metrics.Metrics,
) *NotificationService {
	if config == nil {
		config = models.DefaultNotificationConfig()
	}
	return &NotificationService{
		repo:     repo,
		users:    users,
		email:    email,
		realtime: realtime,
		config:   config,
		metrics:  m,
		now:      time.Now,
	}
}

// ListNotifications returns one page of p's inbox
func (s *NotificationService) ListNotifications(ctx context.Context, p models.Principal, unreadOnly bool, page, limit int) (*models.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = repository.DefaultPageLimit
	}
	if limit > repository.MaxPageLimit {
		limit = repository.MaxPageLimit
	}

	items, total, err := s.repo.ListForRecipient(ctx, p.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &models.NotificationPage{
		Notifications: items,
		Total:         total,
		Unread:        unread,
		Page:          page,
		Limit:         limit,
	}, nil
}

// UnreadCount returns how many unread notifications p has
func (s *NotificationService) UnreadCount(ctx context.Context, p models.Principal) (int64, error) {
	return s.repo.CountUnread(ctx, p.UserID)
}

// MarkRead marks one of p's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, p models.Principal, notificationID int64) error {
	return s.repo.MarkRead(ctx, notificationID, p.UserID)
}

// MarkAllRead marks all of p's notifications read
func (s *NotificationService) MarkAllRead(ctx context.Context, p models.Principal) (int64, error) {
	return s.repo.MarkAllRead(ctx, p.UserID)
}

// GetPendingNotifications returns the next batch due for delivery
func (s *NotificationService) GetPendingNotifications(ctx context.Context) ([]models.Notification, error) {
	return s.repo.GetPendingDeliveries(ctx, s.config.WorkerBatchSize)
}

// ProcessNotification delivers one stored notification according to the
// recipient's preferences and returns the resulting delivery status.
//
// Realtime push is best-effort and never retried. Email failures are retried
// with exponential backoff until MaxRetries is reached.
func (s *NotificationService) ProcessNotification(ctx context.Context, n *models.Notification) (models.DeliveryStatus, error) {
	recipient, err := s.users.FindByID(ctx, n.RecipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.markFailed(ctx, n, "recipient no longer exists")
	}
	if err != nil {
		// Transient lookup failures count as a delivery attempt so they back off
		return s.handleNotificationFailure(ctx, n, fmt.Sprintf("failed to load recipient: %v", err))
	}
	if recipient.Status != models.UserActive {
		return s.markFailed(ctx, n, fmt.Sprintf("recipient is %s", recipient.Status))
	}

	msg := &notification.Message{
		NotificationID: n.NotificationID,
		RecipientID:    recipient.UserID,
		RecipientName:  recipient.Name,
		RecipientEmail: recipient.Email,
		Type:           string(n.Type),
		Title:          n.Title,
		Body:           n.Message,
		EntityType:     n.EntityType,
		EntityID:       n.EntityID,
		CreatedAt:      n.CreatedAt,
	}

	// Only the first attempt pushes realtime; retries exist for email.
	if s.realtime != nil && recipient.Preferences.InApp && n.RetryCount == 0 {
		err := s.realtime.Send(ctx, msg)
		s.metrics.NotificationDelivered(string(s.realtime.Channel()), err == nil)
		if err != nil {
			log.Printf("[notification] Realtime push for #%d failed: %v", n.NotificationID, err)
		}
	}

	if s.email != nil && recipient.Preferences.Email {
		if err := s.email.Validate(msg); err != nil {
			return s.markFailed(ctx, n, fmt.Sprintf("validation failed: %v", err))
		}
		err := s.email.Send(ctx, msg)
		s.metrics.NotificationDelivered(string(s.email.Channel()), err == nil)
		if err != nil {
			return s.handleNotificationFailure(ctx, n, err.Error())
		}
	}

	if err := s.repo.UpdateDeliveryStatus(ctx, n.NotificationID, models.DeliverySent, ""); err != nil {
		return "", fmt.Errorf("failed to update notification status: %w", err)
	}
	return models.DeliverySent, nil
}

func (s *NotificationService) markFailed(ctx context.Context, n *models.Notification, reason string) (models.DeliveryStatus, error) {
	if err := s.repo.UpdateDeliveryStatus(ctx, n.NotificationID, models.DeliveryFailed, reason); err != nil {
		return "", fmt.Errorf("failed to mark notification as failed: %w", err)
	}
	return models.DeliveryFailed, fmt.Errorf("notification #%d not delivered: %s", n.NotificationID, reason)
}

// handleNotificationFailure schedules a retry or gives up once MaxRetries is reached
func (s *NotificationService) handleNotificationFailure(ctx context.Context, n *models.Notification, errorMessage string) (models.DeliveryStatus, error) {
	if n.RetryCount >= n.MaxRetries {
		if err := s.repo.UpdateDeliveryStatus(ctx, n.NotificationID, models.DeliveryFailed, errorMessage); err != nil {
			return "", fmt.Errorf("failed to mark notification as failed: %w", err)
		}
		return models.DeliveryFailed, &notification.NotificationError{Message: errorMessage, Err: notification.ErrMaxRetriesExceeded}
	}

	nextRetryAt := s.calculateNextRetryTime(n.RetryCount)
	if err := s.repo.ScheduleRetry(ctx, n.NotificationID, nextRetryAt, errorMessage); err != nil {
		return "", fmt.Errorf("failed to schedule retry: %w", err)
	}
	return models.DeliveryRetrying, fmt.Errorf("notification failed, retry scheduled at %s: %s", nextRetryAt.Format(time.RFC3339), errorMessage)
}

// calculateNextRetryTime applies exponential backoff capped at MaxRetryDelay
func (s *NotificationService) calculateNextRetryTime(retryCount int) time.Time {
	delaySeconds := s.config.InitialRetryDelay.Seconds() * math.Pow(s.config.BackoffMultiplier, float64(retryCount))
	delay := time.Duration(delaySeconds) * time.Second

	if delay > s.config.MaxRetryDelay {
		delay = s.config.MaxRetryDelay
	}
	return s.now().Add(delay)
}
