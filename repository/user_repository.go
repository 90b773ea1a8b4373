package repository

import (
	"citizenone/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	u.user_id, u.name, u.email, u.password_hash, u.role, u.department_id, u.status,
	u.notify_email, u.notify_in_app, u.created_at, u.updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var dept sql.NullInt64
	err := row.Scan(
		&u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &dept, &u.Status,
		&u.Preferences.Email, &u.Preferences.InApp, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.DepartmentID = int64Ptr(dept)
	return &u, nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.user_id = ? LIMIT 1`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return u, nil
}

// FindByEmail retrieves a user by (lower-cased) email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = ? LIMIT 1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// UserFilter narrows an account listing
type UserFilter struct {
	Role         *models.Role
	DepartmentID *int64
	Status       *models.UserStatus
	Page         int
	Limit        int
}

// FindAll lists accounts matching filter and returns the total match count
func (r *UserRepository) FindAll(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	f.Limit = clampLimit(f.Limit)

	where := ` WHERE 1 = 1`
	var args []interface{}
	if f.Role != nil {
		where += ` AND u.role = ?`
		args = append(args, *f.Role)
	}
	if f.DepartmentID != nil {
		where += ` AND u.department_id = ?`
		args = append(args, *f.DepartmentID)
	}
	if f.Status != nil {
		where += ` AND u.status = ?`
		args = append(args, *f.Status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u`+where+` ORDER BY u.user_id ASC LIMIT ? OFFSET ?`,
		append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}
	return users, total, nil
}

// Create inserts a new user. A taken email returns ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, department_id, status, notify_email, notify_in_app, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Role, nullInt64(u.DepartmentID), u.Status,
		u.Preferences.Email, u.Preferences.InApp, u.CreatedAt, u.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if u.UserID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return nil
}

// Update writes name, role, department, status and preferences back
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?,
		    role = ?,
		    department_id = ?,
		    status = ?,
		    notify_email = ?,
		    notify_in_app = ?,
		    updated_at = ?
		WHERE user_id = ?`,
		u.Name, u.Role, nullInt64(u.DepartmentID), u.Status,
		u.Preferences.Email, u.Preferences.InApp, u.UpdatedAt, u.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
