package service

import (
	"citizenone/models"
	"citizenone/repository"
	"citizenone/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Authentication failures. Handlers translate both into 401.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is not active")
)

// UserStore persists user accounts
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context, f repository.UserFilter) ([]models.User, int64, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
}

var _ UserStore = (*repository.UserRepository)(nil)

// UserService handles registration, login and account administration
type UserService struct {
	userRepo    UserStore
	departments DepartmentDirectory
	jwtSecret   []byte
	tokenTTL    time.Duration
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, departments DepartmentDirectory, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		userRepo:    userRepo,
		departments: departments,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a citizen account
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return s.createAccount(ctx, req.Name, req.Email, req.Password, models.RoleCitizen, nil)
}

// BootstrapAdmin creates an admin account outside any request, for the admin CLI
func (s *UserService) BootstrapAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.createAccount(ctx, name, email, password, models.RoleAdmin, nil)
}

// CreateUser lets an admin create an account of any role
func (s *UserService) CreateUser(ctx context.Context, p models.Principal, req *models.CreateUserRequest) (*models.User, error) {
	if p.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may create accounts", repository.ErrForbidden)
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", repository.ErrValidation, req.Role)
	}
	return s.createAccount(ctx, req.Name, req.Email, req.Password, role, req.DepartmentID)
}

func (s *UserService) createAccount(ctx context.Context, name, email, password string, role models.Role, departmentID *int64) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", repository.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", repository.ErrValidation)
	}
	if err := s.validateMembership(ctx, role, departmentID); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		DepartmentID: copyID(departmentID),
		Status:       models.UserActive,
		Preferences:  models.DefaultNotificationPreferences(),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("[user] Created %s account %d", u.Role, u.UserID)
	return u, nil
}

// validateMembership enforces that officers and supervisors belong to an
// existing department and citizens belong to none
func (s *UserService) validateMembership(ctx context.Context, role models.Role, departmentID *int64) error {
	if role == models.RoleCitizen && departmentID != nil {
		return fmt.Errorf("%w: citizens cannot belong to a department", repository.ErrValidation)
	}
	if role.RequiresDepartment() && departmentID == nil {
		return fmt.Errorf("%w: %s accounts need a department", repository.ErrValidation, role)
	}
	if departmentID != nil {
		if _, err := s.departments.FindByID(ctx, *departmentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: department %d does not exist", repository.ErrValidation, *departmentID)
			}
			return err
		}
	}
	return nil
}

// Login exchanges credentials for a signed token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	u, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := utils.CheckPassword(req.Password, u.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status != models.UserActive {
		return nil, ErrAccountDisabled
	}

	token, expiresAt, err := utils.GenerateJWT(u.UserID, string(u.Role), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *u}, nil
}

// Authenticate turns a bearer token into the acting principal. The account is
// loaded fresh so role, department and status changes apply immediately.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	userID, err := utils.ParseJWT(token, s.jwtSecret)
	if err != nil {
		return models.Principal{}, err
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Principal{}, fmt.Errorf("%w: user no longer exists", utils.ErrInvalidToken)
	}
	if err != nil {
		return models.Principal{}, err
	}
	if u.Status != models.UserActive {
		return models.Principal{}, ErrAccountDisabled
	}
	return models.PrincipalFromUser(u), nil
}

// GetUser returns an account; users may read themselves, admins anyone
func (s *UserService) GetUser(ctx context.Context, p models.Principal, id int64) (*models.User, error) {
	if p.Role != models.RoleAdmin && p.UserID != id {
		return nil, fmt.Errorf("%w: cannot view another account", repository.ErrForbidden)
	}
	return s.userRepo.FindByID(ctx, id)
}

// ListUsers returns one page of accounts for an admin
func (s *UserService) ListUsers(ctx context.Context, p models.Principal, f repository.UserFilter) ([]models.User, int64, error) {
	if p.Role != models.RoleAdmin {
		return nil, 0, fmt.Errorf("%w: only admins may list accounts", repository.ErrForbidden)
	}
	return s.userRepo.FindAll(ctx, f)
}

// UpdateUser lets an admin change name, role, department or status
func (s *UserService) UpdateUser(ctx context.Context, p models.Principal, id int64, req *models.UpdateUserRequest) (*models.User, error) {
	if p.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may change accounts", repository.ErrForbidden)
	}
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", repository.ErrValidation)
		}
		u.Name = name
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", repository.ErrValidation, *req.Role)
		}
		u.Role = role
		if role == models.RoleCitizen {
			u.DepartmentID = nil
		}
	}
	if req.DepartmentID != nil {
		u.DepartmentID = copyID(req.DepartmentID)
	}
	if req.Status != nil {
		status := models.UserStatus(*req.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", repository.ErrValidation, *req.Status)
		}
		if u.UserID == p.UserID && status != models.UserActive {
			return nil, fmt.Errorf("%w: admins cannot deactivate themselves", repository.ErrValidation)
		}
		u.Status = status
	}
	if err := s.validateMembership(ctx, u.Role, u.DepartmentID); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("[user] Account %d updated by admin %d", u.UserID, p.UserID)
	return u, nil
}

// UpdatePreferences replaces p's notification channel preferences
func (s *UserService) UpdatePreferences(ctx context.Context, p models.Principal, prefs models.NotificationPreferences) (*models.User, error) {
	u, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	u.Preferences = prefs
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
