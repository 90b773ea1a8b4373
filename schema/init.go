// Package schema creates missing tables at startup. Existing tables are never dropped or rewritten.

package schema

import (
	"database/sql"
	"fmt"
	"log"
)

type table struct {
	name string
	ddl  string
}

// tables are created in dependency order
var tables = []table{
	{"departments", `
CREATE TABLE IF NOT EXISTS departments (
    department_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    code VARCHAR(20) NOT NULL,
    head_user_id BIGINT NULL COMMENT 'Staff user heading the department',
    contact_email VARCHAR(255) NULL,
    contact_phone VARCHAR(30) NULL,
    status ENUM('active', 'inactive') NOT NULL DEFAULT 'active',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uq_department_name (name),
    UNIQUE KEY uq_department_code (code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"department_categories", `
CREATE TABLE IF NOT EXISTS department_categories (
    department_id BIGINT NOT NULL,
    category ENUM('water', 'electricity', 'roads', 'sanitation', 'public_services', 'other') NOT NULL,
    PRIMARY KEY (department_id, category),
    INDEX idx_category (category),
    FOREIGN KEY (department_id) REFERENCES departments(department_id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"users", `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    role ENUM('citizen', 'officer', 'supervisor', 'admin') NOT NULL DEFAULT 'citizen',
    department_id BIGINT NULL,
    status ENUM('active', 'inactive', 'suspended') NOT NULL DEFAULT 'active',
    notify_email BOOLEAN NOT NULL DEFAULT TRUE,
    notify_in_app BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uq_user_email (email),
    INDEX idx_department_role (department_id, role, status),
    FOREIGN KEY (department_id) REFERENCES departments(department_id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"complaints", `
CREATE TABLE IF NOT EXISTS complaints (
    complaint_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_number VARCHAR(32) NOT NULL COMMENT '<PREFIX>-YY-MM-NNNN',
    citizen_id BIGINT NOT NULL,
    category ENUM('water', 'electricity', 'roads', 'sanitation', 'public_services', 'other') NOT NULL,
    description TEXT NOT NULL,
    location VARCHAR(500) NOT NULL,
    status ENUM('submitted', 'under_review', 'in_progress', 'resolved', 'reopened') NOT NULL DEFAULT 'submitted',
    priority ENUM('low', 'medium', 'high') NOT NULL DEFAULT 'medium',
    department_id BIGINT NULL,
    officer_id BIGINT NULL,
    estimated_resolution_date DATETIME NULL,
    resolved_at DATETIME NULL,
    feedback_rating TINYINT NULL,
    feedback_comment TEXT NULL,
    feedback_submitted_at DATETIME NULL,
    version INT NOT NULL DEFAULT 1 COMMENT 'Optimistic concurrency counter',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    UNIQUE KEY uq_complaint_number (complaint_number),
    INDEX idx_citizen (citizen_id, created_at),
    INDEX idx_department_status (department_id, status),
    INDEX idx_officer (officer_id),
    INDEX idx_created_at (created_at),
    FOREIGN KEY (citizen_id) REFERENCES users(user_id),
    FOREIGN KEY (department_id) REFERENCES departments(department_id) ON DELETE SET NULL,
    FOREIGN KEY (officer_id) REFERENCES users(user_id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"complaint_sequences", `
CREATE TABLE IF NOT EXISTS complaint_sequences (
    period CHAR(4) PRIMARY KEY COMMENT 'YYMM',
    last_value BIGINT NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"complaint_timeline", `
CREATE TABLE IF NOT EXISTS complaint_timeline (
    entry_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_id BIGINT NOT NULL,
    status ENUM('submitted', 'under_review', 'in_progress', 'resolved', 'reopened') NOT NULL COMMENT 'Complaint status when the entry was written',
    description VARCHAR(1000) NOT NULL,
    actor_id BIGINT NOT NULL,
    department_id BIGINT NULL,
    created_at DATETIME NOT NULL,
    INDEX idx_complaint (complaint_id, entry_id),
    FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"complaint_comments", `
CREATE TABLE IF NOT EXISTS complaint_comments (
    comment_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_id BIGINT NOT NULL,
    author_id BIGINT NOT NULL,
    author_role ENUM('citizen', 'officer', 'supervisor', 'admin') NOT NULL,
    text TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    INDEX idx_complaint (complaint_id, comment_id),
    FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"complaint_attachments", `
CREATE TABLE IF NOT EXISTS complaint_attachments (
    attachment_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_id BIGINT NOT NULL,
    file_name VARCHAR(255) NOT NULL,
    storage_path VARCHAR(255) NOT NULL,
    mime_type VARCHAR(100) NOT NULL,
    size_bytes BIGINT NOT NULL,
    uploaded_by BIGINT NOT NULL,
    created_at DATETIME NOT NULL,
    INDEX idx_complaint (complaint_id),
    FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{"notifications", `
CREATE TABLE IF NOT EXISTS notifications (
    notification_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    recipient_id BIGINT NOT NULL,
    type VARCHAR(50) NOT NULL,
    title VARCHAR(255) NOT NULL,
    message TEXT NOT NULL,
    entity_type VARCHAR(50) NOT NULL,
    entity_id BIGINT NOT NULL,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    read_at DATETIME NULL,
    delivery_status ENUM('pending', 'sent', 'failed', 'retrying') NOT NULL DEFAULT 'pending',
    retry_count INT NOT NULL DEFAULT 0,
    max_retries INT NOT NULL DEFAULT 3,
    next_retry_at DATETIME NULL,
    last_error TEXT NULL,
    created_at DATETIME NOT NULL,
    INDEX idx_recipient_read (recipient_id, is_read, created_at),
    INDEX idx_delivery (delivery_status, next_retry_at),
    FOREIGN KEY (recipient_id) REFERENCES users(user_id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

// TableNames lists every table the application needs, in creation order
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.name)
	}
	return names
}

// InitializeDatabase ensures all tables exist. Checks INFORMATION_SCHEMA.TABLES;
// creates only missing tables, then adds columns newer code relies on to
// tables created by older releases. Does not drop or recreate tables; does not
// remove data.
func InitializeDatabase(db *sql.DB) error {
	for _, t := range tables {
		exists, err := tableExists(db, t.name)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", t.name, err)
		}
		if exists {
			log.Printf("[SCHEMA] %s table exists", t.name)
			continue
		}
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
		log.Printf("[SCHEMA] created %s table", t.name)
	}
	return EnsureComplaintColumns(db)
}
