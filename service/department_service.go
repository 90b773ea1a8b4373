package service

import (
	"citizenone/models"
	"citizenone/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// DepartmentStore persists departments
type DepartmentStore interface {
	DepartmentDirectory
	FindAll(ctx context.Context) ([]models.Department, error)
	Create(ctx context.Context, d *models.Department) error
	Update(ctx context.Context, d *models.Department) error
}

var _ DepartmentStore = (*repository.DepartmentRepository)(nil)

// DepartmentService manages departments and their category routing
type DepartmentService struct {
	repo  DepartmentStore
	users UserDirectory
}

// NewDepartmentService creates a new department service
func NewDepartmentService(repo DepartmentStore, users UserDirectory) *DepartmentService {
	return &DepartmentService{repo: repo, users: users}
}

// ListDepartments returns every department
func (s *DepartmentService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return s.repo.FindAll(ctx)
}

// GetDepartment returns one department
func (s *DepartmentService) GetDepartment(ctx context.Context, id int64) (*models.Department, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateDepartment adds a department. Admin only.
func (s *DepartmentService) CreateDepartment(ctx context.Context, p models.Principal, req *models.DepartmentRequest) (*models.Department, error) {
	if p.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may manage departments", repository.ErrForbidden)
	}
	d := &models.Department{}
	if err := s.apply(ctx, d, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	log.Printf("[department] Created department %s (ID=%d)", d.Code, d.DepartmentID)
	return d, nil
}

// UpdateDepartment replaces a department's fields. Admin only.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, p models.Principal, id int64, req *models.DepartmentRequest) (*models.Department, error) {
	if p.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may manage departments", repository.ErrForbidden)
	}
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, d, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	log.Printf("[department] Updated department %s (ID=%d)", d.Code, d.DepartmentID)
	return d, nil
}

// apply copies a validated request onto d
func (s *DepartmentService) apply(ctx context.Context, d *models.Department, req *models.DepartmentRequest) error {
	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if name == "" || code == "" {
		return fmt.Errorf("%w: name and code are required", repository.ErrValidation)
	}

	status := models.DepartmentActive
	if req.Status != "" {
		status = models.DepartmentStatus(req.Status)
		if status != models.DepartmentActive && status != models.DepartmentInactive {
			return fmt.Errorf("%w: unknown department status %q", repository.ErrValidation, req.Status)
		}
	}

	categories := make([]models.Category, 0, len(req.Categories))
	seen := map[models.Category]bool{}
	for _, raw := range req.Categories {
		c := models.Category(raw)
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", repository.ErrValidation, raw)
		}
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	if req.HeadUserID != nil {
		head, err := s.users.FindByID(ctx, *req.HeadUserID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user %d does not exist", repository.ErrValidation, *req.HeadUserID)
		}
		if err != nil {
			return err
		}
		if !head.Role.IsStaff() {
			return fmt.Errorf("%w: department head must be a staff member", repository.ErrValidation)
		}
	}

	d.Name = name
	d.Code = code
	d.HeadUserID = copyID(req.HeadUserID)
	d.ContactEmail = strings.TrimSpace(req.ContactEmail)
	d.ContactPhone = strings.TrimSpace(req.ContactPhone)
	d.Status = status
	d.Categories = categories
	return nil
}

// ListStaff returns a department's active members. Admins may list any
// department, supervisors only their own.
func (s *DepartmentService) ListStaff(ctx context.Context, p models.Principal, departmentID int64) ([]models.User, error) {
	switch {
	case p.Role == models.RoleAdmin:
	case p.Role == models.RoleSupervisor && p.InDepartment(&departmentID):
	default:
		return nil, fmt.Errorf("%w: cannot list staff of department %d", repository.ErrForbidden, departmentID)
	}
	if _, err := s.repo.FindByID(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.repo.FindStaffByDepartment(ctx, departmentID)
}
