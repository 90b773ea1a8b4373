package service

import (
	"citizenone/models"
	"citizenone/notification"
	"citizenone/repository"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockNotificationStore is a testify mock of NotificationStore
type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool, page, limit int) ([]models.Notification, int64, error) {
	args := m.Called(ctx, recipientID, unreadOnly, page, limit)
	return args.Get(0).([]models.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *mockNotificationStore) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationStore) MarkRead(ctx context.Context, notificationID, recipientID int64) error {
	return m.Called(ctx, notificationID, recipientID).Error(0)
}

func (m *mockNotificationStore) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationStore) GetPendingDeliveries(ctx context.Context, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationStore) UpdateDeliveryStatus(ctx context.Context, notificationID int64, status models.DeliveryStatus, errorMessage string) error {
	return m.Called(ctx, notificationID, status, errorMessage).Error(0)
}

func (m *mockNotificationStore) ScheduleRetry(ctx context.Context, notificationID int64, nextRetryAt time.Time, errorMessage string) error {
	return m.Called(ctx, notificationID, nextRetryAt, errorMessage).Error(0)
}

// stubSender records sends and fails with err when set
type stubSender struct {
	channel notification.Channel
	err     error
	sent    []*notification.Message
}

func (s *stubSender) Send(ctx context.Context, msg *notification.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *stubSender) Channel() notification.Channel { return s.channel }

func (s *stubSender) Validate(msg *notification.Message) error {
	if msg.RecipientEmail == "" && s.channel == notification.ChannelEmail {
		return notification.ErrInvalidRecipient
	}
	return nil
}

func newNotificationFixture(t *testing.T) (*NotificationService, *mockNotificationStore, *stubSender, *stubSender, *directory) {
	t.Helper()
	dir := newDirectory()
	dir.addUser(citizenA, "Asha", models.RoleCitizen, nil)
	store := &mockNotificationStore{}
	email := &stubSender{channel: notification.ChannelEmail}
	realtime := &stubSender{channel: notification.ChannelRealtime}
	svc := NewNotificationService(store, userDir{dir}, email, realtime, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, email, realtime, dir
}

func pending(id int64, retries int) *models.Notification {
	return &models.Notification{
		NotificationID: id,
		RecipientID:    citizenA,
		Type:           models.NotificationStatusChanged,
		Title:          "Complaint Status Updated",
		Message:        "Your complaint is now in progress.",
		EntityType:     models.EntityComplaint,
		EntityID:       1,
		RetryCount:     retries,
		MaxRetries:     3,
	}
}

func TestProcessNotification_SendsOnBothChannels(t *testing.T) {
	svc, store, email, realtime, _ := newNotificationFixture(t)
	store.On("UpdateDeliveryStatus", mock.Anything, int64(1), models.DeliverySent, "").Return(nil)

	status, err := svc.ProcessNotification(context.Background(), pending(1, 0))
	require.NoError(t, err)
	assert.Equal(t, models.DeliverySent, status)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "user10@example.com", email.sent[0].RecipientEmail)
	assert.Len(t, realtime.sent, 1)
	store.AssertExpectations(t)
}

func TestProcessNotification_RespectsPreferences(t *testing.T) {
	svc, store, email, realtime, dir := newNotificationFixture(t)
	dir.users[citizenA].Preferences = models.NotificationPreferences{Email: false, InApp: false}
	store.On("UpdateDeliveryStatus", mock.Anything, int64(1), models.DeliverySent, "").Return(nil)

	status, err := svc.ProcessNotification(context.Background(), pending(1, 0))
	require.NoError(t, err)
	assert.Equal(t, models.DeliverySent, status)
	assert.Empty(t, email.sent)
	assert.Empty(t, realtime.sent)
}

func TestProcessNotification_EmailFailureSchedulesBackoff(t *testing.T) {
	svc, store, email, realtime, _ := newNotificationFixture(t)
	email.err = errors.New("smtp unavailable")
	// retry #2 → 1m * 2^2 = 4m after now
	want := svc.now().Add(4 * time.Minute)
	store.On("ScheduleRetry", mock.Anything, int64(7), want, "smtp unavailable").Return(nil)

	status, err := svc.ProcessNotification(context.Background(), pending(7, 2))
	require.Error(t, err)
	assert.Equal(t, models.DeliveryRetrying, status)
	assert.Empty(t, realtime.sent, "realtime is only pushed on the first attempt")
	store.AssertExpectations(t)
}

func TestProcessNotification_GivesUpAfterMaxRetries(t *testing.T) {
	svc, store, email, _, _ := newNotificationFixture(t)
	email.err = errors.New("smtp unavailable")
	store.On("UpdateDeliveryStatus", mock.Anything, int64(7), models.DeliveryFailed, "smtp unavailable").Return(nil)

	status, err := svc.ProcessNotification(context.Background(), pending(7, 3))
	assert.Equal(t, models.DeliveryFailed, status)
	assert.True(t, errors.Is(err, notification.ErrMaxRetriesExceeded))
	store.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNotification_MissingRecipientFails(t *testing.T) {
	svc, store, _, _, _ := newNotificationFixture(t)
	n := pending(3, 0)
	n.RecipientID = 404
	store.On("UpdateDeliveryStatus", mock.Anything, int64(3), models.DeliveryFailed, "recipient no longer exists").Return(nil)

	status, err := svc.ProcessNotification(context.Background(), n)
	require.Error(t, err)
	assert.Equal(t, models.DeliveryFailed, status)
	store.AssertExpectations(t)
}

func TestCalculateNextRetryTime_CapsAtMaxDelay(t *testing.T) {
	svc, _, _, _, _ := newNotificationFixture(t)
	now := svc.now()
	assert.Equal(t, now.Add(time.Minute), svc.calculateNextRetryTime(0))
	assert.Equal(t, now.Add(2*time.Minute), svc.calculateNextRetryTime(1))
	assert.Equal(t, now.Add(30*time.Minute), svc.calculateNextRetryTime(10))
}

func TestListNotifications_ClampsPaging(t *testing.T) {
	svc, store, _, _, _ := newNotificationFixture(t)
	p := models.Principal{UserID: citizenA, Role: models.RoleCitizen}
	items := []models.Notification{*pending(1, 0)}
	store.On("ListForRecipient", mock.Anything, citizenA, true, 1, repository.MaxPageLimit).Return(items, int64(1), nil)
	store.On("CountUnread", mock.Anything, citizenA).Return(int64(1), nil)

	page, err := svc.ListNotifications(context.Background(), p, true, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, int64(1), page.Unread)
	assert.Equal(t, repository.MaxPageLimit, page.Limit)
}

func TestMarkRead_PassesOwnership(t *testing.T) {
	svc, store, _, _, _ := newNotificationFixture(t)
	p := models.Principal{UserID: citizenA, Role: models.RoleCitizen}
	store.On("MarkRead", mock.Anything, int64(99), citizenA).Return(fmt.Errorf("%w: notification 99", repository.ErrNotFound))

	err := svc.MarkRead(context.Background(), p, 99)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

// unreachableUsers fails every lookup, like a dropped database connection
type unreachableUsers struct{}

func (unreachableUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return nil, errors.New("connection reset by peer")
}

func TestProcessNotification_RecipientLookupErrorBacksOff(t *testing.T) {
	store := &mockNotificationStore{}
	email := &stubSender{channel: notification.ChannelEmail}
	svc := NewNotificationService(store, unreachableUsers{}, email, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }

	want := svc.now().Add(time.Minute)
	store.On("ScheduleRetry", mock.Anything, int64(5), want, "failed to load recipient: connection reset by peer").Return(nil).Once()

	status, err := svc.ProcessNotification(context.Background(), pending(5, 0))
	require.Error(t, err)
	assert.Equal(t, models.DeliveryRetrying, status)
	assert.Empty(t, email.sent)
	store.AssertExpectations(t)

	store.On("UpdateDeliveryStatus", mock.Anything, int64(6), models.DeliveryFailed, "failed to load recipient: connection reset by peer").Return(nil).Once()
	status, err = svc.ProcessNotification(context.Background(), pending(6, 3))
	require.Error(t, err)
	assert.Equal(t, models.DeliveryFailed, status)
	store.AssertExpectations(t)
}
