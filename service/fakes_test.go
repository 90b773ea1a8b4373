package service

import (
	"bytes"
	"citizenone/events"
	"citizenone/models"
	"citizenone/repository"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// memComplaintStore mimics ComplaintRepository: callers get copies, saves are version checked
type memComplaintStore struct {
	mu            sync.Mutex
	complaints    map[int64]*models.Complaint
	notifications []models.Notification
	removed       []int64
	nextID        int64
	sequences     map[string]int64
	saves         int
	saveErr       error
}

func newMemComplaintStore() *memComplaintStore {
	return &memComplaintStore{complaints: map[int64]*models.Complaint{}, sequences: map[string]int64{}}
}

func cloneComplaint(c *models.Complaint) *models.Complaint {
	out := *c
	out.DepartmentID = copyID(c.DepartmentID)
	out.OfficerID = copyID(c.OfficerID)
	if c.Feedback != nil {
		fb := *c.Feedback
		out.Feedback = &fb
	}
	out.Timeline = append([]models.TimelineEntry(nil), c.Timeline...)
	out.Comments = append([]models.Comment(nil), c.Comments...)
	out.Attachments = append([]models.Attachment(nil), c.Attachments...)
	return &out
}

func (s *memComplaintStore) assignIDs(c *models.Complaint) {
	for i := range c.Timeline {
		if c.Timeline[i].EntryID == 0 {
			s.nextID++
			c.Timeline[i].EntryID = s.nextID
			c.Timeline[i].ComplaintID = c.ComplaintID
		}
	}
	for i := range c.Comments {
		if c.Comments[i].CommentID == 0 {
			s.nextID++
			c.Comments[i].CommentID = s.nextID
		}
	}
	for i := range c.Attachments {
		if c.Attachments[i].AttachmentID == 0 {
			s.nextID++
			c.Attachments[i].AttachmentID = s.nextID
		}
	}
}

func (s *memComplaintStore) storeNotifications(complaintID int64, ns []*models.Notification) {
	for _, n := range ns {
		rec := *n
		if rec.EntityID == 0 {
			rec.EntityID = complaintID
		}
		s.nextID++
		rec.NotificationID = s.nextID
		s.notifications = append(s.notifications, rec)
	}
}

func (s *memComplaintStore) Create(ctx context.Context, c *models.Complaint, ns []*models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.nextID++
	period := models.SequencePeriod(c.CreatedAt)
	s.sequences[period]++
	c.ComplaintID = s.nextID
	c.ComplaintNumber = models.FormatComplaintNumber("CMP", c.CreatedAt, s.sequences[period])
	c.Version = 1
	c.UpdatedAt = c.CreatedAt
	s.assignIDs(c)
	s.storeNotifications(c.ComplaintID, ns)
	s.complaints[c.ComplaintID] = cloneComplaint(c)
	return nil
}

func (s *memComplaintStore) FindByID(ctx context.Context, id int64) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, fmt.Errorf("%w: complaint %d", repository.ErrNotFound, id)
	}
	return cloneComplaint(c), nil
}

func (s *memComplaintStore) FindByNumber(ctx context.Context, number string) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.complaints {
		if c.ComplaintNumber == number {
			return cloneComplaint(c), nil
		}
	}
	return nil, fmt.Errorf("%w: complaint %s", repository.ErrNotFound, number)
}

func (s *memComplaintStore) FindMany(ctx context.Context, q repository.ComplaintQuery) ([]models.Complaint, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Complaint
	for _, c := range s.complaints {
		if q.Scope.Deny {
			continue
		}
		if q.Scope.CitizenID != nil && c.CitizenID != *q.Scope.CitizenID {
			continue
		}
		if q.Scope.DepartmentID != nil && !sameID(c.DepartmentID, q.Scope.DepartmentID) {
			continue
		}
		out = append(out, *cloneComplaint(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComplaintID < out[j].ComplaintID })
	return out, int64(len(out)), nil
}

func (s *memComplaintStore) Save(ctx context.Context, c *models.Complaint, opts repository.SaveOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.complaints[c.ComplaintID]
	if !ok {
		return fmt.Errorf("%w: complaint %d", repository.ErrNotFound, c.ComplaintID)
	}
	if stored.Version != c.Version {
		return fmt.Errorf("%w: complaint %d was modified concurrently", repository.ErrConflict, c.ComplaintID)
	}
	s.assignIDs(c)
	s.storeNotifications(c.ComplaintID, opts.Notifications)
	s.removed = append(s.removed, opts.RemovedAttachmentIDs...)
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.complaints[c.ComplaintID] = cloneComplaint(c)
	s.saves++
	return nil
}

func (s *memComplaintStore) Stats(ctx context.Context, scope repository.Scope) (*models.ComplaintStats, error) {
	list, total, _ := s.FindMany(ctx, repository.ComplaintQuery{Scope: scope})
	stats := &models.ComplaintStats{
		Total:      total,
		ByStatus:   map[models.ComplaintStatus]int64{},
		ByCategory: map[models.Category]int64{},
		ByPriority: map[models.Priority]int64{},
	}
	for _, c := range list {
		stats.ByStatus[c.Status]++
		stats.ByCategory[c.Category]++
		stats.ByPriority[c.Priority]++
	}
	return stats, nil
}

func (s *memComplaintStore) notificationsFor(recipientID int64) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

// directory serves departments and users for DepartmentDirectory, UserDirectory and the stores built on them
type directory struct {
	departments map[int64]*models.Department
	users       map[int64]*models.User
	nextID      int64
}

func newDirectory() *directory {
	return &directory{departments: map[int64]*models.Department{}, users: map[int64]*models.User{}, nextID: 100}
}

func (d *directory) addDepartment(id int64, name string, categories ...models.Category) *models.Department {
	dept := &models.Department{DepartmentID: id, Name: name, Code: fmt.Sprintf("D%d", id), Status: models.DepartmentActive, Categories: categories}
	d.departments[id] = dept
	return dept
}

func (d *directory) addUser(id int64, name string, role models.Role, departmentID *int64) *models.User {
	u := &models.User{
		UserID:       id,
		Name:         name,
		Email:        fmt.Sprintf("user%d@example.com", id),
		Role:         role,
		DepartmentID: copyID(departmentID),
		Status:       models.UserActive,
		Preferences:  models.DefaultNotificationPreferences(),
	}
	d.users[id] = u
	return u
}

func (d *directory) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	dept, ok := d.departments[id]
	if !ok {
		return nil, fmt.Errorf("%w: department %d", repository.ErrNotFound, id)
	}
	out := *dept
	return &out, nil
}

func (d *directory) FindActiveByCategory(ctx context.Context, category models.Category) (*models.Department, error) {
	ids := make([]int64, 0, len(d.departments))
	for id := range d.departments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		dept := d.departments[id]
		if dept.Status == models.DepartmentActive && dept.Handles(category) {
			out := *dept
			return &out, nil
		}
	}
	return nil, nil
}

func (d *directory) FindStaffByDepartment(ctx context.Context, departmentID int64, roles ...models.Role) ([]models.User, error) {
	ids := make([]int64, 0, len(d.users))
	for id := range d.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []models.User
	for _, id := range ids {
		u := d.users[id]
		if u.Status != models.UserActive || u.DepartmentID == nil || *u.DepartmentID != departmentID {
			continue
		}
		if len(roles) > 0 {
			match := false
			for _, r := range roles {
				if u.Role == r {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *u)
	}
	return out, nil
}

// users adapts directory to UserDirectory/UserStore
type userDir struct{ *directory }

func (u userDir) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", repository.ErrNotFound, id)
	}
	out := *user
	return &out, nil
}

func (u userDir) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range u.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, email)
}

func (u userDir) FindAll(ctx context.Context, f repository.UserFilter) ([]models.User, int64, error) {
	var out []models.User
	for _, user := range u.users {
		if f.Role != nil && user.Role != *f.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

func (u userDir) Create(ctx context.Context, user *models.User) error {
	for _, existing := range u.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: email already registered", repository.ErrConflict)
		}
	}
	u.nextID++
	user.UserID = u.nextID
	stored := *user
	u.users[user.UserID] = &stored
	return nil
}

func (u userDir) Update(ctx context.Context, user *models.User) error {
	if _, ok := u.users[user.UserID]; !ok {
		return fmt.Errorf("%w: user %d", repository.ErrNotFound, user.UserID)
	}
	stored := *user
	u.users[user.UserID] = &stored
	return nil
}

// memFiles is an in-memory FileStore
type memFiles struct {
	files   map[string][]byte
	n       int
	saveErr error
}

func newMemFiles() *memFiles { return &memFiles{files: map[string][]byte{}} }

func (f *memFiles) Save(name, mimeType string, r io.Reader) (string, int64, error) {
	if f.saveErr != nil {
		return "", 0, f.saveErr
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", 0, err
	}
	f.n++
	path := fmt.Sprintf("file-%d", f.n)
	f.files[path] = buf.Bytes()
	return path, n, nil
}

func (f *memFiles) Remove(path string) error {
	delete(f.files, path)
	return nil
}

// recordingPublisher collects published events
type recordingPublisher struct {
	events []events.ComplaintEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.ComplaintEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func int64p(v int64) *int64 { return &v }
func strp(v string) *string { return &v }
func intp(v int) *int       { return &v }
