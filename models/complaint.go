package models

import (
	"fmt"
	"time"
)

// Category is the kind of civic issue a complaint is about
type Category string

const (
	CategoryWater          Category = "water"
	CategoryElectricity    Category = "electricity"
	CategoryRoads          Category = "roads"
	CategorySanitation     Category = "sanitation"
	CategoryPublicServices Category = "public_services"
	CategoryOther          Category = "other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryWater,
	CategoryElectricity,
	CategoryRoads,
	CategorySanitation,
	CategoryPublicServices,
	CategoryOther,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ComplaintStatus represents the lifecycle status of a complaint
type ComplaintStatus string

const (
	StatusSubmitted   ComplaintStatus = "submitted"
	StatusUnderReview ComplaintStatus = "under_review"
	StatusInProgress  ComplaintStatus = "in_progress"
	StatusResolved    ComplaintStatus = "resolved"
	StatusReopened    ComplaintStatus = "reopened"
)

// Statuses lists every status in lifecycle order.
var Statuses = []ComplaintStatus{
	StatusSubmitted,
	StatusUnderReview,
	StatusInProgress,
	StatusResolved,
	StatusReopened,
}

// Valid reports whether s is one of the known statuses
func (s ComplaintStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// allowedTransitions is the complaint state machine. A status not listed as a
// key has no outgoing transitions.
var allowedTransitions = map[ComplaintStatus][]ComplaintStatus{
	StatusSubmitted:   {StatusUnderReview},
	StatusUnderReview: {StatusInProgress, StatusResolved},
	StatusInProgress:  {StatusUnderReview, StatusResolved},
	StatusResolved:    {StatusReopened},
	StatusReopened:    {StatusUnderReview, StatusInProgress},
}

// CanTransition reports whether a complaint may move from one status to another.
func CanTransition(from, to ComplaintStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Priority represents complaint priority levels
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Complaint is the central entity: one citizen-filed issue and its full history.
// Timeline, Comments and Attachments are loaded with the complaint and only
// ever appended to by the lifecycle code; entries with a zero ID have not been
// persisted yet.
type Complaint struct {
	ComplaintID             int64           `json:"complaint_id"`
	ComplaintNumber         string          `json:"complaint_number"`
	CitizenID               int64           `json:"citizen_id"`
	Category                Category        `json:"category"`
	Description             string          `json:"description"`
	Location                string          `json:"location"`
	Status                  ComplaintStatus `json:"status"`
	Priority                Priority        `json:"priority"`
	DepartmentID            *int64          `json:"department_id,omitempty"`
	OfficerID               *int64          `json:"officer_id,omitempty"`
	EstimatedResolutionDate *time.Time      `json:"estimated_resolution_date,omitempty"`
	ResolvedAt              *time.Time      `json:"resolved_at,omitempty"`
	Feedback                *Feedback       `json:"feedback,omitempty"`
	Version                 int             `json:"version"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`

	Timeline    []TimelineEntry `json:"timeline"`
	Comments    []Comment       `json:"comments"`
	Attachments []Attachment    `json:"attachments"`
}

// TimelineEntry is an immutable audit record of one lifecycle-relevant change.
type TimelineEntry struct {
	EntryID      int64           `json:"entry_id"`
	ComplaintID  int64           `json:"complaint_id"`
	Status       ComplaintStatus `json:"status"`
	Description  string          `json:"description"`
	ActorID      int64           `json:"actor_id"`
	DepartmentID *int64          `json:"department_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Comment is a free-text remark left on a complaint by its citizen or by staff
type Comment struct {
	CommentID   int64     `json:"comment_id"`
	ComplaintID int64     `json:"complaint_id"`
	AuthorID    int64     `json:"author_id"`
	AuthorRole  Role      `json:"author_role"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feedback is the citizen's rating of a resolved complaint. At most one per complaint.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Attachment describes an uploaded file stored outside the database
type Attachment struct {
	AttachmentID int64     `json:"attachment_id"`
	ComplaintID  int64     `json:"complaint_id"`
	FileName     string    `json:"file_name"`
	StoragePath  string    `json:"-"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedBy   int64     `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// FormatComplaintNumber renders the human-readable complaint identifier
// <PREFIX>-<YY>-<MM>-<sequence>, sequence zero-padded to four digits.
func FormatComplaintNumber(prefix string, at time.Time, sequence int64) string {
	at = at.UTC()
	return fmt.Sprintf("%s-%02d-%02d-%04d", prefix, at.Year()%100, int(at.Month()), sequence)
}

// SequencePeriod returns the calendar-month key complaint sequences are counted in.
func SequencePeriod(at time.Time) string {
	return at.UTC().Format("0601")
}
