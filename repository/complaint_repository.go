package repository

import (
	"citizenone/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ComplaintRepository handles database operations for complaints and the
// rows that hang off them (timeline, comments, attachments).
type ComplaintRepository struct {
	db           *sql.DB
	numberPrefix string
	now          func() time.Time
}

// NewComplaintRepository creates a new complaint repository. numberPrefix is
// the leading part of generated complaint numbers.
func NewComplaintRepository(db *sql.DB, numberPrefix string) *ComplaintRepository {
	if numberPrefix == "" {
		numberPrefix = "CMP"
	}
	return &ComplaintRepository{
		db:           db,
		numberPrefix: numberPrefix,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SaveOptions carries the side records that must commit together with a complaint write
type SaveOptions struct {
	Notifications        []*models.Notification
	RemovedAttachmentIDs []int64
}

const complaintColumns = `
	c.complaint_id, c.complaint_number, c.citizen_id, c.category, c.description, c.location,
	c.status, c.priority, c.department_id, c.officer_id, c.estimated_resolution_date, c.resolved_at,
	c.feedback_rating, c.feedback_comment, c.feedback_submitted_at,
	c.version, c.created_at, c.updated_at`

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		c             models.Complaint
		departmentID  sql.NullInt64
		officerID     sql.NullInt64
		estimated     sql.NullTime
		resolvedAt    sql.NullTime
		fbRating      sql.NullInt64
		fbComment     sql.NullString
		fbSubmittedAt sql.NullTime
	)
	err := row.Scan(
		&c.ComplaintID, &c.ComplaintNumber, &c.CitizenID, &c.Category, &c.Description, &c.Location,
		&c.Status, &c.Priority, &departmentID, &officerID, &estimated, &resolvedAt,
		&fbRating, &fbComment, &fbSubmittedAt,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DepartmentID = int64Ptr(departmentID)
	c.OfficerID = int64Ptr(officerID)
	c.EstimatedResolutionDate = timePtr(estimated)
	c.ResolvedAt = timePtr(resolvedAt)
	if fbRating.Valid {
		c.Feedback = &models.Feedback{
			Rating:      int(fbRating.Int64),
			Comment:     fbComment.String,
			SubmittedAt: fbSubmittedAt.Time.UTC(),
		}
	}
	return &c, nil
}

// Create inserts a new complaint with its initial timeline and the
// notifications its creation triggers, all in one transaction. The complaint
// number is allocated from the per-month sequence inside the same transaction.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint, notifications []*models.Notification) error {
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	c.Version = 1

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := nextSequence(ctx, tx, models.SequencePeriod(c.CreatedAt))
		if err != nil {
			return err
		}
		c.ComplaintNumber = models.FormatComplaintNumber(r.numberPrefix, c.CreatedAt, seq)

		res, err := tx.ExecContext(ctx, `
			INSERT INTO complaints (
				complaint_number, citizen_id, category, description, location,
				status, priority, department_id, officer_id, estimated_resolution_date,
				version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ComplaintNumber, c.CitizenID, c.Category, c.Description, c.Location,
			c.Status, c.Priority, nullInt64(c.DepartmentID), nullInt64(c.OfficerID), nullTime(c.EstimatedResolutionDate),
			c.Version, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create complaint: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get complaint ID: %w", err)
		}
		c.ComplaintID = id

		if err := insertNewTimeline(ctx, tx, c); err != nil {
			return err
		}
		return insertNotifications(ctx, tx, c.ComplaintID, notifications)
	})
}

// nextSequence bumps and returns the complaint counter for a month. The upsert
// holds the row lock until the surrounding transaction ends, so numbers are
// never handed out twice.
func nextSequence(ctx context.Context, tx *sql.Tx, period string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO complaint_sequences (period, last_value) VALUES (?, 1)
		ON DUPLICATE KEY UPDATE last_value = last_value + 1`, period)
	if err != nil {
		return 0, fmt.Errorf("failed to advance complaint sequence: %w", err)
	}
	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT last_value FROM complaint_sequences WHERE period = ?`, period).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to read complaint sequence: %w", err)
	}
	return seq, nil
}

// FindByID loads a complaint with its timeline, comments and attachments
func (r *ComplaintRepository) FindByID(ctx context.Context, id int64) (*models.Complaint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints c WHERE c.complaint_id = ?`, id)
	return r.loadComplaint(ctx, row)
}

// FindByNumber loads a complaint by its human-readable number
func (r *ComplaintRepository) FindByNumber(ctx context.Context, number string) (*models.Complaint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints c WHERE c.complaint_number = ?`, number)
	return r.loadComplaint(ctx, row)
}

func (r *ComplaintRepository) loadComplaint(ctx context.Context, row *sql.Row) (*models.Complaint, error) {
	c, err := scanComplaint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: complaint", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}

	if c.Timeline, err = r.timeline(ctx, c.ComplaintID); err != nil {
		return nil, err
	}
	if c.Comments, err = r.comments(ctx, c.ComplaintID); err != nil {
		return nil, err
	}
	if c.Attachments, err = r.attachments(ctx, c.ComplaintID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ComplaintRepository) timeline(ctx context.Context, complaintID int64) ([]models.TimelineEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_id, complaint_id, status, description, actor_id, department_id, created_at
		FROM complaint_timeline
		WHERE complaint_id = ?
		ORDER BY entry_id ASC`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	entries := []models.TimelineEntry{}
	for rows.Next() {
		var e models.TimelineEntry
		var dept sql.NullInt64
		if err := rows.Scan(&e.EntryID, &e.ComplaintID, &e.Status, &e.Description, &e.ActorID, &dept, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		e.DepartmentID = int64Ptr(dept)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}
	return entries, nil
}

func (r *ComplaintRepository) comments(ctx context.Context, complaintID int64) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT comment_id, complaint_id, author_id, author_role, text, created_at
		FROM complaint_comments
		WHERE complaint_id = ?
		ORDER BY comment_id ASC`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(&cm.CommentID, &cm.ComplaintID, &cm.AuthorID, &cm.AuthorRole, &cm.Text, &cm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

func (r *ComplaintRepository) attachments(ctx context.Context, complaintID int64) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attachment_id, complaint_id, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at
		FROM complaint_attachments
		WHERE complaint_id = ?
		ORDER BY attachment_id ASC`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	attachments := []models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.AttachmentID, &a.ComplaintID, &a.FileName, &a.StoragePath, &a.MimeType, &a.SizeBytes, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}
	return attachments, nil
}

// FindMany returns one page of complaints (without child rows) and the total
// number matching the query.
func (r *ComplaintRepository) FindMany(ctx context.Context, q ComplaintQuery) ([]models.Complaint, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	q.Limit = clampLimit(q.Limit)

	where, args := q.whereClause()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints c`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count complaints: %w", err)
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints c` + where + q.orderClause() + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()

	complaints := []models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating complaints: %w", err)
	}
	return complaints, total, nil
}

// Save writes a loaded complaint back. The write only succeeds when the stored
// version still equals c.Version; otherwise ErrConflict is returned and
// nothing is written. Timeline entries, comments and attachments with a zero
// ID are inserted, removed attachments are deleted and notifications are
// inserted, all in the same transaction.
func (r *ComplaintRepository) Save(ctx context.Context, c *models.Complaint, opts SaveOptions) error {
	updatedAt := r.now()

	var fbRating sql.NullInt64
	var fbComment sql.NullString
	var fbSubmittedAt sql.NullTime
	if c.Feedback != nil {
		fbRating = sql.NullInt64{Int64: int64(c.Feedback.Rating), Valid: true}
		fbComment = sql.NullString{String: c.Feedback.Comment, Valid: true}
		fbSubmittedAt = sql.NullTime{Time: c.Feedback.SubmittedAt, Valid: true}
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE complaints
			SET status = ?,
				priority = ?,
				department_id = ?,
				officer_id = ?,
				estimated_resolution_date = ?,
				resolved_at = ?,
				feedback_rating = ?,
				feedback_comment = ?,
				feedback_submitted_at = ?,
				version = version + 1,
				updated_at = ?
			WHERE complaint_id = ? AND version = ?`,
			c.Status, c.Priority, nullInt64(c.DepartmentID), nullInt64(c.OfficerID),
			nullTime(c.EstimatedResolutionDate), nullTime(c.ResolvedAt),
			fbRating, fbComment, fbSubmittedAt,
			updatedAt, c.ComplaintID, c.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update complaint: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: complaint %s was modified by someone else", ErrConflict, c.ComplaintNumber)
		}

		if err := insertNewTimeline(ctx, tx, c); err != nil {
			return err
		}
		if err := insertNewComments(ctx, tx, c); err != nil {
			return err
		}
		if err := insertNewAttachments(ctx, tx, c); err != nil {
			return err
		}
		for _, id := range opts.RemovedAttachmentIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM complaint_attachments WHERE attachment_id = ? AND complaint_id = ?`, id, c.ComplaintID); err != nil {
				return fmt.Errorf("failed to delete attachment: %w", err)
			}
		}
		return insertNotifications(ctx, tx, c.ComplaintID, opts.Notifications)
	})
	if err != nil {
		return err
	}

	c.Version++
	c.UpdatedAt = updatedAt
	return nil
}

func insertNewTimeline(ctx context.Context, tx *sql.Tx, c *models.Complaint) error {
	for i := range c.Timeline {
		e := &c.Timeline[i]
		if e.EntryID != 0 {
			continue
		}
		e.ComplaintID = c.ComplaintID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO complaint_timeline (complaint_id, status, description, actor_id, department_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ComplaintID, e.Status, e.Description, e.ActorID, nullInt64(e.DepartmentID), e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create timeline entry: %w", err)
		}
		if e.EntryID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get timeline entry ID: %w", err)
		}
	}
	return nil
}

func insertNewComments(ctx context.Context, tx *sql.Tx, c *models.Complaint) error {
	for i := range c.Comments {
		cm := &c.Comments[i]
		if cm.CommentID != 0 {
			continue
		}
		cm.ComplaintID = c.ComplaintID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO complaint_comments (complaint_id, author_id, author_role, text, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			cm.ComplaintID, cm.AuthorID, cm.AuthorRole, cm.Text, cm.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		if cm.CommentID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get comment ID: %w", err)
		}
	}
	return nil
}

func insertNewAttachments(ctx context.Context, tx *sql.Tx, c *models.Complaint) error {
	for i := range c.Attachments {
		a := &c.Attachments[i]
		if a.AttachmentID != 0 {
			continue
		}
		a.ComplaintID = c.ComplaintID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO complaint_attachments (complaint_id, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ComplaintID, a.FileName, a.StoragePath, a.MimeType, a.SizeBytes, a.UploadedBy, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create attachment: %w", err)
		}
		if a.AttachmentID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get attachment ID: %w", err)
		}
	}
	return nil
}

// Stats counts complaints visible within scope by status, category and priority
func (r *ComplaintRepository) Stats(ctx context.Context, scope Scope) (*models.ComplaintStats, error) {
	where, args := ComplaintQuery{Scope: scope}.whereClause()
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.status, c.category, c.priority, COUNT(*)
		FROM complaints c`+where+`
		GROUP BY c.status, c.category, c.priority`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaint stats: %w", err)
	}
	defer rows.Close()

	stats := &models.ComplaintStats{
		ByStatus:   map[models.ComplaintStatus]int64{},
		ByCategory: map[models.Category]int64{},
		ByPriority: map[models.Priority]int64{},
	}
	for rows.Next() {
		var (
			status   models.ComplaintStatus
			category models.Category
			priority models.Priority
			n        int64
		)
		if err := rows.Scan(&status, &category, &priority, &n); err != nil {
			return nil, fmt.Errorf("failed to scan complaint stats: %w", err)
		}
		stats.Total += n
		stats.ByStatus[status] += n
		stats.ByCategory[category] += n
		stats.ByPriority[priority] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complaint stats: %w", err)
	}
	return stats, nil
}
