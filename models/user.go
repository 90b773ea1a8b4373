package models

import "time"

// Role decides what a user may see and change
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleOfficer    Role = "officer"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to government staff rather than the public
func (r Role) IsStaff() bool {
	return r == RoleOfficer || r == RoleSupervisor || r == RoleAdmin
}

// RequiresDepartment reports whether users with this role must belong to a department
func (r Role) RequiresDepartment() bool {
	return r == RoleOfficer || r == RoleSupervisor
}

// UserStatus represents account state
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// Valid reports whether s is one of the known account states
func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserInactive || s == UserSuspended
}

// NotificationPreferences controls which delivery channels a user receives
// notifications on. The in-app inbox record is always created.
type NotificationPreferences struct {
	Email bool `json:"email"`
	InApp bool `json:"in_app"`
}

// DefaultNotificationPreferences returns the preferences new accounts start with
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, InApp: true}
}

// User represents a citizen or staff account
type User struct {
	UserID       int64                   `json:"user_id"`
	Name         string                  `json:"name"`
	Email        string                  `json:"email"`
	PasswordHash string                  `json:"-"`
	Role         Role                    `json:"role"`
	DepartmentID *int64                  `json:"department_id,omitempty"`
	Status       UserStatus              `json:"status"`
	Preferences  NotificationPreferences `json:"notification_preferences"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Principal is the authenticated actor of a request. It is built once per
// request by the auth middleware and passed explicitly into every service call.
type Principal struct {
	UserID       int64
	Name         string
	Role         Role
	DepartmentID *int64
}

// PrincipalFromUser builds the acting principal for a loaded user
func PrincipalFromUser(u *User) Principal {
	return Principal{
		UserID:       u.UserID,
		Name:         u.Name,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
	}
}

// InDepartment reports whether the principal belongs to the given department
func (p Principal) InDepartment(departmentID *int64) bool {
	return p.DepartmentID != nil && departmentID != nil && *p.DepartmentID == *departmentID
}
