package repository

import (
	"citizenone/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `
	notification_id, recipient_id, type, title, message, entity_type, entity_id,
	is_read, read_at, delivery_status, retry_count, max_retries, next_retry_at, last_error,
	created_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var readAt, nextRetryAt sql.NullTime
	var lastError sql.NullString
	err := row.Scan(
		&n.NotificationID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.EntityType, &n.EntityID,
		&n.IsRead, &readAt, &n.DeliveryStatus, &n.RetryCount, &n.MaxRetries, &nextRetryAt, &lastError,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.ReadAt = timePtr(readAt)
	n.NextRetryAt = timePtr(nextRetryAt)
	n.LastError = lastError.String
	return &n, nil
}

// insertNotifications writes notification records inside a complaint
// transaction. Records without an entity id refer to complaintID, which is
// only known after the complaint insert on create.
func insertNotifications(ctx context.Context, tx *sql.Tx, complaintID int64, notifications []*models.Notification) error {
	for _, n := range notifications {
		if n.EntityType == "" {
			n.EntityType = models.EntityComplaint
		}
		if n.EntityID == 0 {
			n.EntityID = complaintID
		}
		if n.DeliveryStatus == "" {
			n.DeliveryStatus = models.DeliveryPending
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (
				recipient_id, type, title, message, entity_type, entity_id,
				is_read, delivery_status, retry_count, max_retries, created_at
			) VALUES (?, ?, ?, ?, ?, ?, FALSE, ?, 0, ?, ?)`,
			n.RecipientID, n.Type, n.Title, n.Message, n.EntityType, n.EntityID,
			n.DeliveryStatus, n.MaxRetries, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		if n.NotificationID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get notification ID: %w", err)
		}
	}
	return nil
}

// ListForRecipient returns one page of a user's inbox, newest first, and the
// total number of matching notifications.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool, page, limit int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	limit = clampLimit(limit)

	where := ` WHERE recipient_id = ?`
	args := []interface{}{recipientID}
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications`+where+` ORDER BY created_at DESC, notification_id DESC LIMIT ? OFFSET ?`,
		append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, total, nil
}

// CountUnread returns how many unread notifications a user has
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = FALSE`, recipientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead flags one of the recipient's notifications as read. Notifications
// belonging to someone else are reported as not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, recipientID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, ?)
		WHERE notification_id = ? AND recipient_id = ?`,
		time.Now().UTC(), notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM notifications WHERE notification_id = ? AND recipient_id = ?`, notificationID, recipientID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
		}
		if err != nil {
			return fmt.Errorf("failed to check notification: %w", err)
		}
	}
	return nil
}

// MarkAllRead flags every unread notification of the recipient as read and
// returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = ?
		WHERE recipient_id = ? AND is_read = FALSE`,
		time.Now().UTC(), recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result: %w", err)
	}
	return n, nil
}

// GetPendingDeliveries retrieves notifications whose external delivery is due
func (r *NotificationRepository) GetPendingDeliveries(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE delivery_status IN ('pending', 'retrying')
			AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at ASC, notification_id ASC
		LIMIT ?`, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// UpdateDeliveryStatus records the final outcome of a delivery attempt
func (r *NotificationRepository) UpdateDeliveryStatus(ctx context.Context, notificationID int64, status models.DeliveryStatus, errorMessage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET delivery_status = ?,
			last_error = ?,
			next_retry_at = NULL
		WHERE notification_id = ?`,
		status, nullString(errorMessage), notificationID)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

// ScheduleRetry schedules a retry for a failed delivery
func (r *NotificationRepository) ScheduleRetry(ctx context.Context, notificationID int64, nextRetryAt time.Time, errorMessage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET delivery_status = 'retrying',
			retry_count = retry_count + 1,
			next_retry_at = ?,
			last_error = ?
		WHERE notification_id = ?`,
		nextRetryAt.UTC(), errorMessage, notificationID)
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	return nil
}
