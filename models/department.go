package models

import "time"

// DepartmentStatus represents whether a department currently takes complaints
type DepartmentStatus string

const (
	DepartmentActive   DepartmentStatus = "active"
	DepartmentInactive DepartmentStatus = "inactive"
)

// Department is an organizational unit that services one or more complaint categories
type Department struct {
	DepartmentID int64            `json:"department_id"`
	Name         string           `json:"name"`
	Code         string           `json:"code"`
	HeadUserID   *int64           `json:"head_user_id,omitempty"`
	ContactEmail string           `json:"contact_email,omitempty"`
	ContactPhone string           `json:"contact_phone,omitempty"`
	Status       DepartmentStatus `json:"status"`
	Categories   []Category       `json:"categories"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Handles reports whether the department services the given category
func (d *Department) Handles(category Category) bool {
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}
