package service

import (
	"citizenone/events"
	"citizenone/models"
	"citizenone/repository"
	"context"
	"io"
)

// ComplaintStore persists complaints and the records committed with them
type ComplaintStore interface {
	Create(ctx context.Context, c *models.Complaint, notifications []*models.Notification) error
	FindByID(ctx context.Context, id int64) (*models.Complaint, error)
	FindByNumber(ctx context.Context, number string) (*models.Complaint, error)
	FindMany(ctx context.Context, q repository.ComplaintQuery) ([]models.Complaint, int64, error)
	Save(ctx context.Context, c *models.Complaint, opts repository.SaveOptions) error
	Stats(ctx context.Context, scope repository.Scope) (*models.ComplaintStats, error)
}

// DepartmentDirectory resolves departments and their staff
type DepartmentDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Department, error)
	FindActiveByCategory(ctx context.Context, category models.Category) (*models.Department, error)
	FindStaffByDepartment(ctx context.Context, departmentID int64, roles ...models.Role) ([]models.User, error)
}

// UserDirectory resolves user accounts
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// FileStore keeps uploaded attachment bytes
type FileStore interface {
	Save(name, mimeType string, r io.Reader) (path string, size int64, err error)
	Remove(path string) error
}

// EventPublisher receives committed lifecycle events. Implementations may fail;
// callers only log the error.
type EventPublisher interface {
	Publish(ctx context.Context, event events.ComplaintEvent) error
}

var (
	_ ComplaintStore      = (*repository.ComplaintRepository)(nil)
	_ DepartmentDirectory = (*repository.DepartmentRepository)(nil)
	_ UserDirectory       = (*repository.UserRepository)(nil)
	_ EventPublisher      = (*events.Publisher)(nil)
)
