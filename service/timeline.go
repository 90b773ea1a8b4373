package service

import (
	"citizenone/models"
	"time"
)

// TimelineRecorder appends history entries to a complaint in memory. The
// entries are persisted by the store in the same save as the change they
// describe and are never edited afterwards.
type TimelineRecorder struct {
	now func() time.Time
}

// NewTimelineRecorder creates a recorder stamping entries with the current UTC time
func NewTimelineRecorder() *TimelineRecorder {
	return &TimelineRecorder{now: func() time.Time { return time.Now().UTC() }}
}

// Record appends an entry carrying the complaint's current status and department
func (r *TimelineRecorder) Record(c *models.Complaint, actor models.Principal, description string) {
	var dept *int64
	if c.DepartmentID != nil {
		d := *c.DepartmentID
		dept = &d
	}
	c.Timeline = append(c.Timeline, models.TimelineEntry{
		ComplaintID:  c.ComplaintID,
		Status:       c.Status,
		Description:  description,
		ActorID:      actor.UserID,
		DepartmentID: dept,
		CreatedAt:    r.now(),
	})
}
