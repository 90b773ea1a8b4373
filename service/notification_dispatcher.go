package service

import (
	"citizenone/metrics"
	"citizenone/models"
	"context"
	"fmt"
)

var (
	departmentStaffRoles   = []models.Role{models.RoleOfficer, models.RoleSupervisor}
	departmentManagerRoles = []models.Role{models.RoleAdmin, models.RoleSupervisor}
)

// NotificationDispatcher builds notification records for lifecycle events.
// Records are collected in a NotificationBatch and written by the complaint
// store in the same transaction as the change that caused them.
type NotificationDispatcher struct {
	departments DepartmentDirectory
	maxRetries  int
	metrics     *metrics.Metrics
}

// NewNotificationDispatcher creates a dispatcher. maxRetries is stamped on every
// record for the delivery worker.
func NewNotificationDispatcher(departments DepartmentDirectory, maxRetries int, m *metrics.Metrics) *NotificationDispatcher {
	return &NotificationDispatcher{departments: departments, maxRetries: maxRetries, metrics: m}
}

// Begin starts an empty batch for one operation
func (d *NotificationDispatcher) Begin() *NotificationBatch {
	return &NotificationBatch{dispatcher: d}
}

// Committed records metrics for a batch whose records were stored
func (d *NotificationDispatcher) Committed(b *NotificationBatch) {
	for _, n := range b.records {
		d.metrics.NotificationCreated(string(n.Type))
	}
}

// NotificationBatch collects the notifications of one complaint operation.
// There is no deduplication: one record per recipient per event.
type NotificationBatch struct {
	dispatcher *NotificationDispatcher
	records    []*models.Notification
}

// Notify queues one notification about complaintID. A zero complaintID refers
// to the complaint being created.
func (b *NotificationBatch) Notify(recipientID int64, t models.NotificationType, title, message string, complaintID int64) {
	b.records = append(b.records, &models.Notification{
		RecipientID:    recipientID,
		Type:           t,
		Title:          title,
		Message:        message,
		EntityType:     models.EntityComplaint,
		EntityID:       complaintID,
		DeliveryStatus: models.DeliveryPending,
		MaxRetries:     b.dispatcher.maxRetries,
	})
}

// NotifyDepartment queues one notification for every active member of the
// department holding one of roles
func (b *NotificationBatch) NotifyDepartment(ctx context.Context, departmentID int64, roles []models.Role, t models.NotificationType, title, message string, complaintID int64) error {
	staff, err := b.dispatcher.departments.FindStaffByDepartment(ctx, departmentID, roles...)
	if err != nil {
		return fmt.Errorf("failed to look up department staff: %w", err)
	}
	for _, u := range staff {
		b.Notify(u.UserID, t, title, message, complaintID)
	}
	return nil
}

// Records returns the queued notifications
func (b *NotificationBatch) Records() []*models.Notification {
	return b.records
}

// Len returns how many notifications are queued
func (b *NotificationBatch) Len() int {
	return len(b.records)
}
