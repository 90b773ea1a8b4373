package repository

import (
	"citizenone/models"
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func literal(query string) string {
	return regexp.QuoteMeta(query)
}

func newComplaint(at time.Time) *models.Complaint {
	dept := int64(1)
	return &models.Complaint{
		CitizenID:    10,
		Category:     models.CategoryWater,
		Description:  "No water supply since Monday",
		Location:     "Ward 4",
		Status:       models.StatusSubmitted,
		Priority:     models.PriorityMedium,
		DepartmentID: &dept,
		CreatedAt:    at,
		Timeline: []models.TimelineEntry{
			{Status: models.StatusSubmitted, Description: "Complaint submitted", ActorID: 10, CreatedAt: at},
		},
	}
}

func TestComplaintCreate_NumbersFromMonthlySequence(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")
	at := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return at }

	c := newComplaint(at)
	n := &models.Notification{
		RecipientID: 20,
		Type:        models.NotificationComplaintAssigned,
		Title:       "New complaint",
		Message:     "A complaint was routed to your department",
		MaxRetries:  3,
	}

	mock.ExpectBegin()
	mock.ExpectExec(literal("INSERT INTO complaint_sequences (period, last_value) VALUES (?, 1) ON DUPLICATE KEY UPDATE last_value = last_value + 1")).
		WithArgs("2610").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(literal("SELECT last_value FROM complaint_sequences WHERE period = ?")).
		WithArgs("2610").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(42))
	mock.ExpectExec(literal("INSERT INTO complaints (")).
		WithArgs("CMP-26-10-0042", int64(10), "water", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"submitted", "medium", int64(1), nil, nil,
			1, at, at).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(literal("INSERT INTO complaint_timeline")).
		WithArgs(int64(7), "submitted", "Complaint submitted", int64(10), nil, at).
		WillReturnResult(sqlmock.NewResult(70, 1))
	mock.ExpectExec(literal("INSERT INTO notifications")).
		WithArgs(int64(20), "complaint_assigned", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"complaint", int64(7), "pending", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(500, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), c, []*models.Notification{n})
	require.NoError(t, err)

	assert.Equal(t, "CMP-26-10-0042", c.ComplaintNumber)
	assert.Equal(t, int64(7), c.ComplaintID)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, int64(70), c.Timeline[0].EntryID)
	assert.Equal(t, int64(7), c.Timeline[0].ComplaintID)
	assert.Equal(t, int64(500), n.NotificationID)
	assert.Equal(t, int64(7), n.EntityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintCreate_NewMonthUsesItsOwnPeriod(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")
	at := time.Date(2026, time.November, 1, 0, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(literal("INSERT INTO complaint_sequences")).
		WithArgs("2611").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(literal("SELECT last_value FROM complaint_sequences")).
		WithArgs("2611").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(1))
	mock.ExpectExec(literal("INSERT INTO complaints (")).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(literal("INSERT INTO complaint_timeline")).
		WillReturnResult(sqlmock.NewResult(80, 1))
	mock.ExpectCommit()

	c := newComplaint(at)
	require.NoError(t, repo.Create(context.Background(), c, nil))
	assert.Equal(t, "CMP-26-11-0001", c.ComplaintNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintCreate_SequenceFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")

	mock.ExpectBegin()
	mock.ExpectExec(literal("INSERT INTO complaint_sequences")).
		WillReturnError(errors.New("lock wait timeout exceeded"))
	mock.ExpectRollback()

	c := newComplaint(time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC))
	err := repo.Create(context.Background(), c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to advance complaint sequence")
	assert.Empty(t, c.ComplaintNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintCreate_InsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")

	mock.ExpectBegin()
	mock.ExpectExec(literal("INSERT INTO complaint_sequences")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(literal("SELECT last_value FROM complaint_sequences")).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(3))
	mock.ExpectExec(literal("INSERT INTO complaints (")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	c := newComplaint(time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC))
	err := repo.Create(context.Background(), c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create complaint")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func storedComplaint() *models.Complaint {
	at := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)
	c := newComplaint(at)
	c.ComplaintID = 7
	c.ComplaintNumber = "CMP-26-10-0042"
	c.Version = 3
	c.Timeline[0].EntryID = 70
	c.Timeline[0].ComplaintID = 7
	return c
}

func TestComplaintSave_StaleVersionConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")

	c := storedComplaint()
	c.Status = models.StatusUnderReview
	c.Timeline = append(c.Timeline, models.TimelineEntry{
		Status: models.StatusUnderReview, Description: "Status changed", ActorID: 20, CreatedAt: time.Now().UTC(),
	})

	mock.ExpectBegin()
	mock.ExpectExec(literal("UPDATE complaints")).
		WithArgs("under_review", "medium", int64(1), nil, nil, nil,
			nil, nil, nil, sqlmock.AnyArg(), int64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), c, SaveOptions{
		Notifications: []*models.Notification{{RecipientID: 10, Type: models.NotificationStatusChanged, MaxRetries: 3}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 3, c.Version)
	assert.Zero(t, c.Timeline[1].EntryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintSave_WritesSideRecordsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")
	now := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	officer := int64(20)
	c := storedComplaint()
	c.Status = models.StatusInProgress
	c.OfficerID = &officer
	c.Timeline = append(c.Timeline, models.TimelineEntry{
		Status: models.StatusInProgress, Description: "Work started", ActorID: 20, CreatedAt: now,
	})
	c.Comments = []models.Comment{
		{AuthorID: 20, AuthorRole: models.RoleOfficer, Text: "Crew dispatched", CreatedAt: now},
	}
	n := &models.Notification{RecipientID: 10, Type: models.NotificationStatusChanged, MaxRetries: 3}

	mock.ExpectBegin()
	mock.ExpectExec(literal("UPDATE complaints")).
		WithArgs("in_progress", "medium", int64(1), int64(20), nil, nil,
			nil, nil, nil, now, int64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(literal("INSERT INTO complaint_timeline")).
		WithArgs(int64(7), "in_progress", "Work started", int64(20), nil, now).
		WillReturnResult(sqlmock.NewResult(71, 1))
	mock.ExpectExec(literal("INSERT INTO complaint_comments")).
		WithArgs(int64(7), int64(20), "officer", "Crew dispatched", now).
		WillReturnResult(sqlmock.NewResult(300, 1))
	mock.ExpectExec(literal("DELETE FROM complaint_attachments WHERE attachment_id = ? AND complaint_id = ?")).
		WithArgs(int64(12), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(literal("INSERT INTO notifications")).
		WithArgs(int64(10), "status_changed", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"complaint", int64(7), "pending", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(501, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), c, SaveOptions{
		Notifications:        []*models.Notification{n},
		RemovedAttachmentIDs: []int64{12},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, c.Version)
	assert.Equal(t, now, c.UpdatedAt)
	assert.Equal(t, int64(70), c.Timeline[0].EntryID)
	assert.Equal(t, int64(71), c.Timeline[1].EntryID)
	assert.Equal(t, int64(300), c.Comments[0].CommentID)
	assert.Equal(t, int64(501), n.NotificationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintSave_SideRecordFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db, "CMP")

	c := storedComplaint()
	c.Comments = []models.Comment{{AuthorID: 10, AuthorRole: models.RoleCitizen, Text: "Any update?", CreatedAt: time.Now().UTC()}}

	mock.ExpectBegin()
	mock.ExpectExec(literal("UPDATE complaints")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(literal("INSERT INTO complaint_comments")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), c, SaveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create comment")
	assert.Equal(t, 3, c.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var staffColumns = []string{
	"user_id", "name", "email", "password_hash", "role", "department_id", "status",
	"notify_email", "notify_in_app", "created_at", "updated_at",
}

func TestFindStaffByDepartment_FiltersByRoles(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDepartmentRepository(db)
	at := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(literal("FROM users u WHERE u.department_id = ? AND u.status = ? AND u.role IN (?, ?) ORDER BY u.user_id ASC")).
		WithArgs(int64(1), "active", "officer", "supervisor").
		WillReturnRows(sqlmock.NewRows(staffColumns).
			AddRow(20, "Wanda", "wanda@city.gov", "hash", "officer", 1, "active", true, true, at, at).
			AddRow(21, "Wes", "wes@city.gov", "hash", "supervisor", 1, "active", false, true, at, at))

	staff, err := repo.FindStaffByDepartment(context.Background(), 1, models.RoleOfficer, models.RoleSupervisor)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, int64(20), staff[0].UserID)
	assert.Equal(t, models.RoleSupervisor, staff[1].Role)
	require.NotNil(t, staff[1].DepartmentID)
	assert.Equal(t, int64(1), *staff[1].DepartmentID)
	assert.False(t, staff[1].Preferences.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStaffByDepartment_NoRolesMeansAllActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(`u\.status = \? ORDER BY u\.user_id ASC$`).
		WithArgs(int64(2), "active").
		WillReturnRows(sqlmock.NewRows(staffColumns))

	staff, err := repo.FindStaffByDepartment(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, staff)
	assert.Empty(t, staff)
	assert.NoError(t, mock.ExpectationsWereMet())
}
