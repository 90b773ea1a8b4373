package repository

import (
	"citizenone/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DepartmentRepository handles database operations for departments and
// category routing
type DepartmentRepository struct {
	db *sql.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `
	d.department_id, d.name, d.code, d.head_user_id, d.contact_email, d.contact_phone,
	d.status, d.created_at, d.updated_at`

func scanDepartment(row rowScanner) (*models.Department, error) {
	var d models.Department
	var head sql.NullInt64
	var email, phone sql.NullString
	err := row.Scan(&d.DepartmentID, &d.Name, &d.Code, &head, &email, &phone, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.HeadUserID = int64Ptr(head)
	d.ContactEmail = email.String
	d.ContactPhone = phone.String
	d.Categories = []models.Category{}
	return &d, nil
}

// FindByID returns a department with its category tags
func (r *DepartmentRepository) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+departmentColumns+` FROM departments d WHERE d.department_id = ?`, id)
	d, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if err := r.loadCategories(ctx, []*models.Department{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// FindAll returns every department ordered by name
func (r *DepartmentRepository) FindAll(ctx context.Context) ([]models.Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+departmentColumns+` FROM departments d ORDER BY d.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	var depts []*models.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		depts = append(depts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating departments: %w", err)
	}
	if err := r.loadCategories(ctx, depts); err != nil {
		return nil, err
	}

	out := make([]models.Department, 0, len(depts))
	for _, d := range depts {
		out = append(out, *d)
	}
	return out, nil
}

// FindActiveByCategory returns the first active department, by id, that
// handles the category. It returns nil without error when none does.
func (r *DepartmentRepository) FindActiveByCategory(ctx context.Context, category models.Category) (*models.Department, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+departmentColumns+`
		FROM departments d
		JOIN department_categories dc ON dc.department_id = d.department_id
		WHERE dc.category = ? AND d.status = ?
		ORDER BY d.department_id ASC
		LIMIT 1`, category, models.DepartmentActive)
	d, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find department for category: %w", err)
	}
	if err := r.loadCategories(ctx, []*models.Department{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// FindStaffByDepartment returns the active users of a department holding one
// of the given roles. With no roles, all active members are returned.
func (r *DepartmentRepository) FindStaffByDepartment(ctx context.Context, departmentID int64, roles ...models.Role) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.department_id = ? AND u.status = ?`
	args := []interface{}{departmentID, models.UserActive}
	if len(roles) > 0 {
		query += ` AND u.role IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(roles)), ", ") + `)`
		for _, role := range roles {
			args = append(args, role)
		}
	}
	query += ` ORDER BY u.user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query department staff: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff member: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staff: %w", err)
	}
	return users, nil
}

// Create inserts a department and its category tags. Duplicate names or
// codes return ErrConflict.
func (r *DepartmentRepository) Create(ctx context.Context, d *models.Department) error {
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO departments (name, code, head_user_id, contact_email, contact_phone, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Name, d.Code, nullInt64(d.HeadUserID), nullString(d.ContactEmail), nullString(d.ContactPhone),
			d.Status, d.CreatedAt, d.UpdatedAt,
		)
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: department name or code already exists", ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to create department: %w", err)
		}
		if d.DepartmentID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get department ID: %w", err)
		}
		return replaceCategories(ctx, tx, d)
	})
}

// Update replaces a department's fields and category tags
func (r *DepartmentRepository) Update(ctx context.Context, d *models.Department) error {
	d.UpdatedAt = time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE departments
			SET name = ?, code = ?, head_user_id = ?, contact_email = ?, contact_phone = ?, status = ?, updated_at = ?
			WHERE department_id = ?`,
			d.Name, d.Code, nullInt64(d.HeadUserID), nullString(d.ContactEmail), nullString(d.ContactPhone),
			d.Status, d.UpdatedAt, d.DepartmentID,
		)
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: department name or code already exists", ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to update department: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// MySQL reports 0 for unchanged rows too, so confirm existence.
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM departments WHERE department_id = ?`, d.DepartmentID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: department %d", ErrNotFound, d.DepartmentID)
			}
			if err != nil {
				return fmt.Errorf("failed to check department: %w", err)
			}
		}
		return replaceCategories(ctx, tx, d)
	})
}

func replaceCategories(ctx context.Context, tx *sql.Tx, d *models.Department) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM department_categories WHERE department_id = ?`, d.DepartmentID); err != nil {
		return fmt.Errorf("failed to clear department categories: %w", err)
	}
	for _, c := range d.Categories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO department_categories (department_id, category) VALUES (?, ?)`, d.DepartmentID, c); err != nil {
			return fmt.Errorf("failed to add department category: %w", err)
		}
	}
	return nil
}

func (r *DepartmentRepository) loadCategories(ctx context.Context, depts []*models.Department) error {
	if len(depts) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Department, len(depts))
	args := make([]interface{}, 0, len(depts))
	for _, d := range depts {
		byID[d.DepartmentID] = d
		args = append(args, d.DepartmentID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT department_id, category
		FROM department_categories
		WHERE department_id IN (`+strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")+`)
		ORDER BY department_id, category`, args...)
	if err != nil {
		return fmt.Errorf("failed to query department categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var c models.Category
		if err := rows.Scan(&id, &c); err != nil {
			return fmt.Errorf("failed to scan department category: %w", err)
		}
		if d, ok := byID[id]; ok {
			d.Categories = append(d.Categories, c)
		}
	}
	return rows.Err()
}
