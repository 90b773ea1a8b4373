package models

import "time"

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// CreateComplaintRequest is the payload for filing a complaint.
// CitizenID is honoured only when an admin files on a citizen's behalf.
type CreateComplaintRequest struct {
	Category                string     `json:"category" validate:"required,oneof=water electricity roads sanitation public_services other"`
	Description             string     `json:"description" validate:"required,min=10,max=5000"`
	Location                string     `json:"location" validate:"required,max=500"`
	Priority                *string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DepartmentID            *int64     `json:"department_id,omitempty" validate:"omitempty,gt=0"`
	CitizenID               *int64     `json:"citizen_id,omitempty" validate:"omitempty,gt=0"`
	EstimatedResolutionDate *time.Time `json:"estimated_resolution_date,omitempty"`
}

// AssignmentRequest replaces a complaint's assignment. A nil field clears that part.
type AssignmentRequest struct {
	Department *int64 `json:"department" validate:"omitempty,gt=0"`
	Officer    *int64 `json:"officer" validate:"omitempty,gt=0"`
}

// FeedbackRequest is the citizen's rating of a resolved complaint
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// UpdateComplaintRequest is a partial lifecycle update; absent fields are left alone.
// Version, when sent, must match the stored version of the complaint.
type UpdateComplaintRequest struct {
	Status                  *string            `json:"status,omitempty" validate:"omitempty,oneof=submitted under_review in_progress resolved reopened"`
	StatusDescription       *string            `json:"status_description,omitempty" validate:"omitempty,max=1000"`
	Priority                *string            `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AssignedTo              *AssignmentRequest `json:"assigned_to,omitempty"`
	EstimatedResolutionDate *time.Time         `json:"estimated_resolution_date,omitempty"`
	Comment                 *string            `json:"comment,omitempty" validate:"omitempty,min=1,max=2000"`
	Feedback                *FeedbackRequest   `json:"feedback,omitempty"`
	Version                 *int               `json:"version,omitempty" validate:"omitempty,gte=0"`
}

// ComplaintView is a complaint with its references resolved for display
type ComplaintView struct {
	Complaint
	CitizenName    string `json:"citizen_name"`
	DepartmentName string `json:"department_name,omitempty"`
	OfficerName    string `json:"officer_name,omitempty"`
}

// ComplaintSummary is the list-row form of a complaint
type ComplaintSummary struct {
	ComplaintID     int64           `json:"complaint_id"`
	ComplaintNumber string          `json:"complaint_number"`
	Category        Category        `json:"category"`
	Status          ComplaintStatus `json:"status"`
	Priority        Priority        `json:"priority"`
	Location        string          `json:"location"`
	DepartmentID    *int64          `json:"department_id,omitempty"`
	OfficerID       *int64          `json:"officer_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ComplaintPage is one page of a complaint listing
type ComplaintPage struct {
	Complaints []ComplaintSummary `json:"complaints"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

// ComplaintStats summarizes complaints visible to the caller
type ComplaintStats struct {
	Total      int64                     `json:"total"`
	ByStatus   map[ComplaintStatus]int64 `json:"by_status"`
	ByCategory map[Category]int64        `json:"by_category"`
	ByPriority map[Priority]int64        `json:"by_priority"`
}

// PublicComplaint is the unauthenticated tracking projection. It carries no
// citizen data, no actor ids and no comments.
type PublicComplaint struct {
	ComplaintNumber         string                `json:"complaint_number"`
	Category                Category              `json:"category"`
	Status                  ComplaintStatus       `json:"status"`
	Priority                Priority              `json:"priority"`
	DepartmentName          string                `json:"department_name,omitempty"`
	EstimatedResolutionDate *time.Time            `json:"estimated_resolution_date,omitempty"`
	ResolvedAt              *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	UpdatedAt               time.Time             `json:"updated_at"`
	Timeline                []PublicTimelineEntry `json:"timeline"`
}

// PublicTimelineEntry is a timeline entry stripped of actor information
type PublicTimelineEntry struct {
	Status         ComplaintStatus `json:"status"`
	Description    string          `json:"description"`
	DepartmentName string          `json:"department_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RegisterRequest is a citizen self-registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// CreateUserRequest is an admin creating any kind of account
type CreateUserRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Role         string `json:"role" validate:"required,oneof=citizen officer supervisor admin"`
	DepartmentID *int64 `json:"department_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateUserRequest is an admin changing role, department or account status
type UpdateUserRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Role         *string `json:"role,omitempty" validate:"omitempty,oneof=citizen officer supervisor admin"`
	DepartmentID *int64  `json:"department_id,omitempty" validate:"omitempty,gt=0"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended"`
}

// DepartmentRequest creates or replaces a department
type DepartmentRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Code         string   `json:"code" validate:"required,alphanum,max=20"`
	HeadUserID   *int64   `json:"head_user_id,omitempty" validate:"omitempty,gt=0"`
	ContactEmail string   `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string   `json:"contact_phone" validate:"omitempty,max=30"`
	Status       string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Categories   []string `json:"categories" validate:"dive,oneof=water electricity roads sanitation public_services other"`
}

// NotificationPage is one page of a user's inbox
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Unread        int64          `json:"unread"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
}
