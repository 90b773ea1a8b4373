package service

import (
	"citizenone/events"
	"citizenone/metrics"
	"citizenone/models"
	"citizenone/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// LifecycleManager applies partial updates to a complaint: status changes,
// assignment, priority, estimated date, comments and feedback. Each applied
// change appends a timeline entry and may queue notifications; everything is
// persisted in a single version-checked save.
type LifecycleManager struct {
	store       ComplaintStore
	departments DepartmentDirectory
	users       UserDirectory
	guard       Guard
	timeline    *TimelineRecorder
	dispatcher  *NotificationDispatcher
	events      EventPublisher
	metrics     *metrics.Metrics
	views       complaintViews
	now         func() time.Time
}

// NewLifecycleManager creates a lifecycle manager. publisher and m may be nil.
func NewLifecycleManager(
	store ComplaintStore,
	departments DepartmentDirectory,
	users UserDirectory,
	timeline *TimelineRecorder,
	dispatcher *NotificationDispatcher,
	publisher EventPublisher,
	m *metrics.Metrics,
) *LifecycleManager {
	return &LifecycleManager{
		store:       store,
		departments: departments,
		users:       users,
		timeline:    timeline,
		dispatcher:  dispatcher,
		events:      publisher,
		metrics:     m,
		views:       complaintViews{departments: departments, users: users},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// lifecycleUpdate is the working state of one Update call
type lifecycleUpdate struct {
	complaint  *models.Complaint
	principal  models.Principal
	batch      *NotificationBatch
	changes    []string
	prevStatus models.ComplaintStatus
}

func (u *lifecycleUpdate) changed(field string) {
	u.changes = append(u.changes, field)
}

// Update applies req to the complaint on behalf of p and returns the saved
// complaint. Steps run in a fixed order: status, assignment, priority,
// estimated date, comment, feedback. Any failing step aborts the whole update.
func (m *LifecycleManager) Update(ctx context.Context, p models.Principal, complaintID int64, req *models.UpdateComplaintRequest) (*models.ComplaintView, error) {
	c, err := m.store.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if !m.guard.CanWrite(p, c) && !m.isClaim(p, c, req) {
		m.metrics.UpdateRejected("forbidden")
		return nil, fmt.Errorf("%w: no write access to complaint %s", repository.ErrForbidden, c.ComplaintNumber)
	}
	if req.Version != nil && *req.Version != c.Version {
		m.metrics.UpdateRejected("stale_version")
		return nil, fmt.Errorf("%w: complaint %s is at version %d, not %d", repository.ErrConflict, c.ComplaintNumber, c.Version, *req.Version)
	}

	u := &lifecycleUpdate{
		complaint:  c,
		principal:  p,
		batch:      m.dispatcher.Begin(),
		prevStatus: c.Status,
	}

	steps := []func(context.Context, *lifecycleUpdate, *models.UpdateComplaintRequest) error{
		m.applyStatus,
		m.applyAssignment,
		m.applyPriority,
		m.applyEstimatedDate,
		m.applyComment,
		m.applyFeedback,
	}
	for _, step := range steps {
		if err := step(ctx, u, req); err != nil {
			m.metrics.UpdateRejected(rejectionReason(err))
			return nil, err
		}
	}

	if len(u.changes) == 0 {
		return m.views.build(ctx, c)
	}

	if err := m.store.Save(ctx, c, repository.SaveOptions{Notifications: u.batch.Records()}); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			m.metrics.UpdateRejected("stale_version")
		}
		return nil, err
	}

	m.dispatcher.Committed(u.batch)
	if c.Status != u.prevStatus {
		m.metrics.StatusTransition(string(u.prevStatus), string(c.Status))
	}
	log.Printf("[lifecycle] Complaint %s updated by user %d (%s): %s, %d notification(s)",
		c.ComplaintNumber, p.UserID, p.Role, strings.Join(u.changes, ","), u.batch.Len())

	publishEvent(ctx, m.events, events.ComplaintEvent{
		Type:            events.ComplaintUpdated,
		ComplaintID:     c.ComplaintID,
		ComplaintNumber: c.ComplaintNumber,
		Status:          string(c.Status),
		PreviousStatus:  string(u.prevStatus),
		DepartmentID:    c.DepartmentID,
		OfficerID:       c.OfficerID,
		ActorID:         p.UserID,
		Changes:         u.changes,
		OccurredAt:      c.UpdatedAt,
	})

	return m.views.build(ctx, c)
}

// isClaim reports whether the request is a supervisor assigning an
// unassigned complaint to their own department
func (m *LifecycleManager) isClaim(p models.Principal, c *models.Complaint, req *models.UpdateComplaintRequest) bool {
	return req.AssignedTo != nil && m.guard.CanClaim(p, c, req.AssignedTo.Department)
}

func (m *LifecycleManager) applyStatus(ctx context.Context, u *lifecycleUpdate, req *models.UpdateComplaintRequest) error {
	if req.Status == nil {
		return nil
	}
	c, p := u.complaint, u.principal
	to := models.ComplaintStatus(*req.Status)
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", repository.ErrValidation, *req.Status)
	}
	if to == c.Status {
		return nil
	}

	if p.Role == models.RoleCitizen && !(c.Status == models.StatusResolved && to == models.StatusReopened) {
		return fmt.Errorf("%w: citizens may only reopen a resolved complaint", repository.ErrForbidden)
	}
	if !models.CanTransition(c.Status, to) {
		return fmt.Errorf("%w: cannot move complaint from %s to %s", repository.ErrValidation, c.Status, to)
	}

	from := c.Status
	c.Status = to
	switch to {
	case models.StatusResolved:
		now := m.now()
		c.ResolvedAt = &now
	case models.StatusReopened:
		c.ResolvedAt = nil
	}

	description := fmt.Sprintf("Status changed from %s to %s", from, to)
	if req.StatusDescription != nil && strings.TrimSpace(*req.StatusDescription) != "" {
		description = strings.TrimSpace(*req.StatusDescription)
	}
	m.timeline.Record(c, p, description)

	if to == models.StatusResolved {
		u.batch.Notify(c.CitizenID, models.NotificationComplaintResolved,
			"Complaint Resolved",
			fmt.Sprintf("Your complaint %s has been resolved. Please rate how it was handled.", c.ComplaintNumber),
			c.ComplaintID)
	} else {
		u.batch.Notify(c.CitizenID, models.NotificationStatusChanged,
			"Complaint Status Updated",
			fmt.Sprintf("Your complaint %s is now %s.", c.ComplaintNumber, strings.ReplaceAll(string(to), "_", " ")),
			c.ComplaintID)
	}
	u.changed("status")
	return nil
}

func (m *LifecycleManager) applyAssignment(ctx context.Context, u *lifecycleUpdate, req *models.UpdateComplaintRequest) error {
	a := req.AssignedTo
	if a == nil {
		return nil
	}
	c, p := u.complaint, u.principal
	if !m.guard.CanAssign(p) {
		return fmt.Errorf("%w: only admins and supervisors may assign complaints", repository.ErrForbidden)
	}
	if p.Role == models.RoleSupervisor && !p.InDepartment(a.Department) {
		return fmt.Errorf("%w: supervisors may only assign within their own department", repository.ErrForbidden)
	}

	var dept *models.Department
	if a.Department != nil {
		d, err := m.departments.FindByID(ctx, *a.Department)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: department %d does not exist", repository.ErrValidation, *a.Department)
		}
		if err != nil {
			return err
		}
		if d.Status != models.DepartmentActive {
			return fmt.Errorf("%w: department %s is inactive", repository.ErrValidation, d.Name)
		}
		dept = d
	}

	var officer *models.User
	if a.Officer != nil {
		if dept == nil {
			return fmt.Errorf("%w: an officer can only be assigned together with a department", repository.ErrValidation)
		}
		o, err := m.users.FindByID(ctx, *a.Officer)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user %d does not exist", repository.ErrValidation, *a.Officer)
		}
		if err != nil {
			return err
		}
		if !o.Role.RequiresDepartment() || o.Status != models.UserActive {
			return fmt.Errorf("%w: user %d is not an active officer or supervisor", repository.ErrValidation, o.UserID)
		}
		if o.DepartmentID == nil || *o.DepartmentID != dept.DepartmentID {
			return fmt.Errorf("%w: user %d does not belong to %s", repository.ErrValidation, o.UserID, dept.Name)
		}
		officer = o
	}

	if !sameID(c.DepartmentID, a.Department) {
		c.DepartmentID = copyID(a.Department)
		if dept != nil {
			m.timeline.Record(c, p, fmt.Sprintf("Assigned to %s", dept.Name))
			err := u.batch.NotifyDepartment(ctx, dept.DepartmentID, departmentStaffRoles,
				models.NotificationComplaintAssigned,
				"New Complaint Assigned",
				fmt.Sprintf("Complaint %s (%s) has been assigned to %s.", c.ComplaintNumber, c.Category, dept.Name),
				c.ComplaintID)
			if err != nil {
				return err
			}
		} else {
			m.timeline.Record(c, p, "Department assignment removed")
		}
		u.changed("department")
	}

	if !sameID(c.OfficerID, a.Officer) {
		c.OfficerID = copyID(a.Officer)
		if officer != nil {
			m.timeline.Record(c, p, fmt.Sprintf("Assigned to officer %s", officer.Name))
			u.batch.Notify(officer.UserID, models.NotificationOfficerAssigned,
				"Complaint Assigned to You",
				fmt.Sprintf("Complaint %s has been assigned to you.", c.ComplaintNumber),
				c.ComplaintID)
		} else {
			m.timeline.Record(c, p, "Officer assignment removed")
		}
		u.changed("officer")
	}
	return nil
}

func (m *LifecycleManager) applyPriority(ctx context.Context, u *lifecycleUpdate, req *models.UpdateComplaintRequest) error {
	if req.Priority == nil {
		return nil
	}
	c, p := u.complaint, u.principal
	to := models.Priority(*req.Priority)
	if !to.Valid() {
		return fmt.Errorf("%w: unknown priority %q", repository.ErrValidation, *req.Priority)
	}
	if to == c.Priority {
		return nil
	}
	if !p.Role.IsStaff() {
		return fmt.Errorf("%w: only staff may change priority", repository.ErrForbidden)
	}

	from := c.Priority
	c.Priority = to
	m.timeline.Record(c, p, fmt.Sprintf("Priority changed from %s to %s", from, to))
	u.changed("priority")
	return nil
}

func (m *LifecycleManager) applyEstimatedDate(ctx context.Context, u *lifecycleUpdate, req *models.UpdateComplaintRequest) error {
	if req.EstimatedResolutionDate == nil {
		return nil
	}
	c, p := u.complaint, u.principal
	date := req.EstimatedResolutionDate.UTC()
	if c.EstimatedResolutionDate != nil && c.EstimatedResolutionDate.Equal(date) {
		return nil
	}
	if !p.Role.IsStaff() {
		return fmt.Errorf("%w: only staff may set the estimated resolution date", repository.ErrForbidden)
	}

	c.EstimatedResolutionDate = &date
	m.timeline.Record(c, p, fmt.Sprintf("Estimated resolution date set to %s", date.Format("2006-01-02")))
	u.batch.Notify(c.CitizenID, models.NotificationEstimatedDateUpdated,
		"Estimated Resolution Date Updated",
		fmt.Sprintf("Complaint %s is now expected to be resolved by %s.", c.ComplaintNumber, date.Format("2 Jan 2006")),
		c.ComplaintID)
	u.changed("estimated_resolution_date")
	return nil
}

func (m *LifecycleManager) applyComment(ctx context.Context, u *lifecycleUpdate, req *models.UpdateComplaintRequest) error {
	if req.Comment == nil {
		return nil
	}
	c, p := u.complaint, u.principal
	text := strings.TrimSpace(*req.Comment)
	if text == "" {
		return fmt.Errorf("%w: comment must not be empty", repository.ErrValidation)
	}

	c.Comments = append(c.Comments, models.Comment{
		ComplaintID: c.ComplaintID,
		AuthorID:    p.UserID,
		AuthorRole:  p.Role,
		Text:        text,
		CreatedAt:   m.now(),
	})
	m.timeline.Record(c, p, fmt.Sprintf("Comment added by %s", p.Role))

	title := "New Comment"
	message := fmt.Sprintf("A new comment was added to complaint %s.", c.ComplaintNumber)
	if p.Role.IsStaff() {
		u.batch.Notify(c.CitizenID, models.NotificationCommentAdded, title, message, c.ComplaintID)
	} else if c.DepartmentID != nil {
		if err := u.batch.NotifyDepartment(ctx, *c.DepartmentID, departmentStaffRoles, models.NotificationCommentAdded, title, message, c.ComplaintID); err != nil {
			return err
		}
	}
	u.changed("comment")
	return nil
}

func (m *LifecycleManager) applyFeedback(ctx context.Context, u *lifecycleUpdate, req *models.UpdateComplaintRequest) error {
	fb := req.Feedback
	if fb == nil {
		return nil
	}
	c, p := u.complaint, u.principal
	if p.Role != models.RoleCitizen || p.UserID != c.CitizenID {
		return fmt.Errorf("%w: only the citizen who filed the complaint may leave feedback", repository.ErrForbidden)
	}
	if c.Feedback != nil {
		return fmt.Errorf("%w: feedback was already submitted for complaint %s", repository.ErrConflict, c.ComplaintNumber)
	}
	if c.Status != models.StatusResolved {
		return fmt.Errorf("%w: feedback can only be given on a resolved complaint", repository.ErrValidation)
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", repository.ErrValidation)
	}

	c.Feedback = &models.Feedback{
		Rating:      fb.Rating,
		Comment:     strings.TrimSpace(fb.Comment),
		SubmittedAt: m.now(),
	}
	m.timeline.Record(c, p, "Feedback submitted by citizen")
	if c.DepartmentID != nil {
		err := u.batch.NotifyDepartment(ctx, *c.DepartmentID, departmentManagerRoles,
			models.NotificationFeedbackReceived,
			"Feedback Received",
			fmt.Sprintf("The citizen rated complaint %s %d/5.", c.ComplaintNumber, fb.Rating),
			c.ComplaintID)
		if err != nil {
			return err
		}
	}
	u.changed("feedback")
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrForbidden):
		return "forbidden"
	case errors.Is(err, repository.ErrValidation):
		return "validation"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	}
	return "error"
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// publishEvent hands a committed event to the broker. Failures are logged only.
func publishEvent(ctx context.Context, publisher EventPublisher, event events.ComplaintEvent) {
	if publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("[events] Failed to publish %s for complaint %s: %v", event.Type, event.ComplaintNumber, err)
	}
}
