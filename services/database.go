package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docconverter/models"

	_ "github.com/lib/pq"
)

// AuditStore records the outcome of each conversion.
type AuditStore interface {
	RecordStarted(ctx context.Context, job *models.ConversionJob) error
	RecordCompleted(ctx context.Context, jobID string, duration time.Duration) error
	RecordFailed(ctx context.Context, jobID string, errorMsg string, duration time.Duration) error
}

const createConversionsTable = `
CREATE TABLE IF NOT EXISTS conversions (
	id            TEXT PRIMARY KEY,
	direction     TEXT NOT NULL,
	source        TEXT NOT NULL,
	input_key     TEXT,
	output_key    TEXT,
	status        TEXT NOT NULL,
	error_message TEXT,
	duration_ms   BIGINT,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

type DatabaseService struct {
	db *sql.DB
}

func NewDatabaseService(databaseURL string) (*DatabaseService, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseService{db: db}, nil
}

// EnsureSchema creates the conversions table when it does not exist yet.
func (d *DatabaseService) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, createConversionsTable); err != nil {
		return fmt.Errorf("failed to create conversions table: %w", err)
	}
	return nil
}

func (d *DatabaseService) RecordStarted(ctx context.Context, job *models.ConversionJob) error {
	query := `INSERT INTO conversions (id, direction, source, input_key, output_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := d.db.ExecContext(ctx, query,
		job.ID, string(job.Direction), job.Source,
		nullString(job.InputKey), nullString(job.OutputKey),
		models.StatusProcessing, job.CreatedAt,
	)
	return err
}

func (d *DatabaseService) RecordCompleted(ctx context.Context, jobID string, duration time.Duration) error {
	query := `UPDATE conversions SET status = $1, duration_ms = $2, updated_at = $3 WHERE id = $4`
	_, err := d.db.ExecContext(ctx, query, models.StatusCompleted, duration.Milliseconds(), time.Now(), jobID)
	return err
}

func (d *DatabaseService) RecordFailed(ctx context.Context, jobID string, errorMsg string, duration time.Duration) error {
	query := `UPDATE conversions SET status = $1, error_message = $2, duration_ms = $3, updated_at = $4 WHERE id = $5`
	_, err := d.db.ExecContext(ctx, query, models.StatusFailed, errorMsg, duration.Milliseconds(), time.Now(), jobID)
	return err
}

func (d *DatabaseService) Close() error {
	return d.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
