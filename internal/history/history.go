package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"formrelay/internal/security"

	_ "modernc.org/sqlite"
)

// History is the SQLite-backed submission audit trail
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the audit database at dbPath.
// A new database file is created with security.PermDBFile; an existing
// one keeps its mode.
func NewHistory(dbPath string) (*History, error) {
	file, err := security.OpenAppendFile(dbPath, security.PermDBFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	file.Close()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submission_id TEXT NOT NULL,
			ip TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_submissions_ip_created
		ON submissions(ip, created_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordSubmission stores one submission outcome and returns its row ID.
// A zero CreatedAt is replaced with the current time.
func (h *History) RecordSubmission(ctx context.Context, record *SubmissionRecord) (int64, error) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO submissions
		(submission_id, ip, name, email, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.SubmissionID,
		record.IP,
		record.Name,
		record.Email,
		record.Status,
		record.ErrorMessage,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert submission record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// RecentSubmissions returns up to limit records, newest first
func (h *History) RecentSubmissions(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, submission_id, ip, name, email, status, error_message, created_at
		FROM submissions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		record, err := scanSubmissionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// CountByStatus returns how many submissions ended in each status
func (h *History) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM submissions GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmissionRecord(s scanner) (*SubmissionRecord, error) {
	var record SubmissionRecord
	var createdAtStr string

	err := s.Scan(
		&record.ID,
		&record.SubmissionID,
		&record.IP,
		&record.Name,
		&record.Email,
		&record.Status,
		&record.ErrorMessage,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	record.CreatedAt = createdAt

	return &record, nil
}
