package service

import (
	"citizenone/events"
	"citizenone/metrics"
	"citizenone/models"
	"citizenone/repository"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"
)

// AllowedAttachmentTypes lists the sniffed MIME types accepted for uploads
var AllowedAttachmentTypes = map[string]bool{
	"image/jpeg":                true,
	"image/png":                 true,
	"image/gif":                 true,
	"image/webp":                true,
	"application/pdf":           true,
	"text/plain; charset=utf-8": true,
}

// ComplaintService handles business logic for filing, reading and
// attaching files to complaints. Lifecycle updates go through LifecycleManager.
type ComplaintService struct {
	store       ComplaintStore
	departments DepartmentDirectory
	users       UserDirectory
	files       FileStore
	guard       Guard
	timeline    *TimelineRecorder
	dispatcher  *NotificationDispatcher
	events      EventPublisher
	metrics     *metrics.Metrics
	views       complaintViews
	now         func() time.Time
}

// NewComplaintService creates a new complaint service. publisher and m may be nil.
func NewComplaintService(
	store ComplaintStore,
	departments DepartmentDirectory,
	users UserDirectory,
	files FileStore,
	timeline *TimelineRecorder,
	dispatcher *NotificationDispatcher,
	publisher EventPublisher,
	m *metrics.Metrics,
) *ComplaintService {
	return &ComplaintService{
		store:       store,
		departments: departments,
		users:       users,
		files:       files,
		timeline:    timeline,
		dispatcher:  dispatcher,
		events:      publisher,
		metrics:     m,
		views:       complaintViews{departments: departments, users: users},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateComplaint files a new complaint.
//
// Citizens file for themselves; an admin files on a citizen's behalf by naming
// citizen_id. Without an explicit department the complaint is routed to the
// first active department handling its category, and that department's active
// officers and supervisors are notified. No match leaves it unassigned.
func (s *ComplaintService) CreateComplaint(ctx context.Context, p models.Principal, req *models.CreateComplaintRequest) (*models.ComplaintView, error) {
	citizenID, err := s.resolveOwner(ctx, p, req.CitizenID)
	if err != nil {
		return nil, err
	}

	category := models.Category(req.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", repository.ErrValidation, req.Category)
	}
	description := strings.TrimSpace(req.Description)
	location := strings.TrimSpace(req.Location)
	if len(description) < 10 {
		return nil, fmt.Errorf("%w: description must be at least 10 characters", repository.ErrValidation)
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", repository.ErrValidation)
	}

	priority := models.PriorityMedium
	if req.Priority != nil {
		priority = models.Priority(*req.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", repository.ErrValidation, *req.Priority)
		}
	}

	complaint := &models.Complaint{
		CitizenID:   citizenID,
		Category:    category,
		Description: description,
		Location:    location,
		Status:      models.StatusSubmitted,
		Priority:    priority,
		CreatedAt:   s.now(),
	}

	if req.EstimatedResolutionDate != nil {
		if !p.Role.IsStaff() {
			return nil, fmt.Errorf("%w: only staff may set the estimated resolution date", repository.ErrForbidden)
		}
		date := req.EstimatedResolutionDate.UTC()
		complaint.EstimatedResolutionDate = &date
	}

	dept, err := s.routeDepartment(ctx, category, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	batch := s.dispatcher.Begin()
	if dept != nil {
		id := dept.DepartmentID
		complaint.DepartmentID = &id
		log.Printf("[complaint] Assigned to department ID=%d (%s)", dept.DepartmentID, dept.Code)
		err := batch.NotifyDepartment(ctx, dept.DepartmentID, departmentStaffRoles,
			models.NotificationComplaintAssigned,
			"New Complaint Assigned",
			fmt.Sprintf("A new %s complaint at %s has been assigned to %s.", category, location, dept.Name),
			0)
		if err != nil {
			return nil, err
		}
	}
	s.timeline.Record(complaint, p, "Complaint submitted")

	if err := s.store.Create(ctx, complaint, batch.Records()); err != nil {
		return nil, fmt.Errorf("failed to create complaint: %w", err)
	}

	s.dispatcher.Committed(batch)
	s.metrics.ComplaintCreated(string(category), dept != nil)
	log.Printf("[complaint] Created complaint %s for citizen %d, %d notification(s)", complaint.ComplaintNumber, citizenID, batch.Len())

	publishEvent(ctx, s.events, events.ComplaintEvent{
		Type:            events.ComplaintCreated,
		ComplaintID:     complaint.ComplaintID,
		ComplaintNumber: complaint.ComplaintNumber,
		Status:          string(complaint.Status),
		DepartmentID:    complaint.DepartmentID,
		ActorID:         p.UserID,
		OccurredAt:      complaint.CreatedAt,
	})

	return s.views.build(ctx, complaint)
}

// resolveOwner decides which citizen the new complaint belongs to
func (s *ComplaintService) resolveOwner(ctx context.Context, p models.Principal, requested *int64) (int64, error) {
	switch p.Role {
	case models.RoleCitizen:
		if requested != nil && *requested != p.UserID {
			return 0, fmt.Errorf("%w: citizens may only file complaints for themselves", repository.ErrForbidden)
		}
		return p.UserID, nil
	case models.RoleAdmin:
		if requested == nil {
			return 0, fmt.Errorf("%w: citizen_id is required when filing on a citizen's behalf", repository.ErrValidation)
		}
		u, err := s.users.FindByID(ctx, *requested)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: citizen %d does not exist", repository.ErrValidation, *requested)
		}
		if err != nil {
			return 0, err
		}
		if u.Role != models.RoleCitizen {
			return 0, fmt.Errorf("%w: user %d is not a citizen", repository.ErrValidation, u.UserID)
		}
		return u.UserID, nil
	}
	return 0, fmt.Errorf("%w: only citizens and admins may file complaints", repository.ErrForbidden)
}

// routeDepartment returns the explicitly requested department, or the first
// active department handling the category, or nil
func (s *ComplaintService) routeDepartment(ctx context.Context, category models.Category, requested *int64) (*models.Department, error) {
	if requested != nil {
		d, err := s.departments.FindByID(ctx, *requested)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: department %d does not exist", repository.ErrValidation, *requested)
		}
		if err != nil {
			return nil, err
		}
		if d.Status != models.DepartmentActive {
			return nil, fmt.Errorf("%w: department %s is inactive", repository.ErrValidation, d.Name)
		}
		return d, nil
	}
	return s.departments.FindActiveByCategory(ctx, category)
}

// GetComplaint returns one complaint if p may read it
func (s *ComplaintService) GetComplaint(ctx context.Context, p models.Principal, id int64) (*models.ComplaintView, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanRead(p, c) {
		return nil, fmt.Errorf("%w: no access to complaint %s", repository.ErrForbidden, c.ComplaintNumber)
	}
	return s.views.build(ctx, c)
}

// ListComplaints returns one page of the complaints p may see. The scope is
// always derived from p; filters in q only narrow it further.
func (s *ComplaintService) ListComplaints(ctx context.Context, p models.Principal, q repository.ComplaintQuery) (*models.ComplaintPage, error) {
	q.Scope = s.guard.Scope(p)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = repository.DefaultPageLimit
	}
	if q.Limit > repository.MaxPageLimit {
		q.Limit = repository.MaxPageLimit
	}

	complaints, total, err := s.store.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &models.ComplaintPage{
		Complaints: make([]models.ComplaintSummary, 0, len(complaints)),
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
	}
	for _, c := range complaints {
		page.Complaints = append(page.Complaints, models.ComplaintSummary{
			ComplaintID:     c.ComplaintID,
			ComplaintNumber: c.ComplaintNumber,
			Category:        c.Category,
			Status:          c.Status,
			Priority:        c.Priority,
			Location:        c.Location,
			DepartmentID:    c.DepartmentID,
			OfficerID:       c.OfficerID,
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		})
	}
	return page, nil
}

// GetStats counts the complaints p may see by status, category and priority
func (s *ComplaintService) GetStats(ctx context.Context, p models.Principal) (*models.ComplaintStats, error) {
	return s.store.Stats(ctx, s.guard.Scope(p))
}

// TrackComplaint returns the public projection of a complaint by its number.
// No authentication is involved, so nothing identifying a person is included.
func (s *ComplaintService) TrackComplaint(ctx context.Context, number string) (*models.PublicComplaint, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, fmt.Errorf("%w: complaint number is required", repository.ErrValidation)
	}
	c, err := s.store.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	names := map[int64]string{}
	deptName := func(id *int64) (string, error) {
		if id == nil {
			return "", nil
		}
		if name, ok := names[*id]; ok {
			return name, nil
		}
		name, err := s.views.departmentName(ctx, *id)
		if err != nil {
			return "", err
		}
		names[*id] = name
		return name, nil
	}

	out := &models.PublicComplaint{
		ComplaintNumber:         c.ComplaintNumber,
		Category:                c.Category,
		Status:                  c.Status,
		Priority:                c.Priority,
		EstimatedResolutionDate: c.EstimatedResolutionDate,
		ResolvedAt:              c.ResolvedAt,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
		Timeline:                make([]models.PublicTimelineEntry, 0, len(c.Timeline)),
	}
	if out.DepartmentName, err = deptName(c.DepartmentID); err != nil {
		return nil, err
	}
	for _, e := range c.Timeline {
		name, err := deptName(e.DepartmentID)
		if err != nil {
			return nil, err
		}
		out.Timeline = append(out.Timeline, models.PublicTimelineEntry{
			Status:         e.Status,
			Description:    e.Description,
			DepartmentName: name,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out, nil
}

// AddAttachment stores an uploaded file and records it on the complaint. The
// stored file is removed again if the complaint save fails.
func (s *ComplaintService) AddAttachment(ctx context.Context, p models.Principal, complaintID int64, fileName, mimeType string, r io.Reader) (*models.Attachment, error) {
	c, err := s.store.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanWrite(p, c) {
		return nil, fmt.Errorf("%w: no write access to complaint %s", repository.ErrForbidden, c.ComplaintNumber)
	}
	if !AllowedAttachmentTypes[mimeType] {
		return nil, fmt.Errorf("%w: file type %s is not allowed", repository.ErrValidation, mimeType)
	}
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "." || fileName == string(filepath.Separator) || fileName == "" {
		return nil, fmt.Errorf("%w: file name is required", repository.ErrValidation)
	}

	path, size, err := s.files.Save(fileName, mimeType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	c.Attachments = append(c.Attachments, models.Attachment{
		ComplaintID: c.ComplaintID,
		FileName:    fileName,
		StoragePath: path,
		MimeType:    mimeType,
		SizeBytes:   size,
		UploadedBy:  p.UserID,
		CreatedAt:   s.now(),
	})
	s.timeline.Record(c, p, fmt.Sprintf("Attachment %s added", fileName))

	if err := s.store.Save(ctx, c, repository.SaveOptions{}); err != nil {
		if rmErr := s.files.Remove(path); rmErr != nil {
			log.Printf("[complaint] Failed to remove orphaned attachment %s: %v", path, rmErr)
		}
		return nil, err
	}

	log.Printf("[complaint] Attachment %s added to complaint %s by user %d", fileName, c.ComplaintNumber, p.UserID)
	added := c.Attachments[len(c.Attachments)-1]
	return &added, nil
}

// RemoveAttachment detaches a file from the complaint. Citizens may only
// remove files they uploaded. The stored file is deleted after the save
// commits; a failed delete is logged and otherwise ignored.
func (s *ComplaintService) RemoveAttachment(ctx context.Context, p models.Principal, complaintID, attachmentID int64) error {
	c, err := s.store.FindByID(ctx, complaintID)
	if err != nil {
		return err
	}
	if !s.guard.CanWrite(p, c) {
		return fmt.Errorf("%w: no write access to complaint %s", repository.ErrForbidden, c.ComplaintNumber)
	}

	idx := -1
	for i, a := range c.Attachments {
		if a.AttachmentID == attachmentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: attachment %d", repository.ErrNotFound, attachmentID)
	}
	removed := c.Attachments[idx]
	if p.Role == models.RoleCitizen && removed.UploadedBy != p.UserID {
		return fmt.Errorf("%w: citizens may only remove their own uploads", repository.ErrForbidden)
	}

	c.Attachments = append(c.Attachments[:idx], c.Attachments[idx+1:]...)
	s.timeline.Record(c, p, fmt.Sprintf("Attachment %s removed", removed.FileName))

	if err := s.store.Save(ctx, c, repository.SaveOptions{RemovedAttachmentIDs: []int64{removed.AttachmentID}}); err != nil {
		return err
	}

	if err := s.files.Remove(removed.StoragePath); err != nil {
		log.Printf("[complaint] Failed to delete attachment file %s: %v", removed.StoragePath, err)
	}
	log.Printf("[complaint] Attachment %s removed from complaint %s by user %d", removed.FileName, c.ComplaintNumber, p.UserID)
	return nil
}
