package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"docconverter/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) (*DatabaseService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	svc := &DatabaseService{db: db}
	t.Cleanup(func() {
		mock.ExpectClose()
		assert.NoError(t, svc.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return svc, mock
}

func TestDatabaseService_EnsureSchema(t *testing.T) {
	svc, mock := newTestDatabase(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS conversions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.EnsureSchema(context.Background()))
}

func TestDatabaseService_EnsureSchemaFailure(t *testing.T) {
	svc, mock := newTestDatabase(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS conversions")).
		WillReturnError(errors.New("permission denied for schema public"))

	err := svc.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create conversions table")
}

func TestDatabaseService_RecordStarted(t *testing.T) {
	svc, mock := newTestDatabase(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The upload path has no object keys, so both columns are NULL.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversions")).
		WithArgs("job-1", "docx2pdf", models.SourceUpload, nil, nil, models.StatusProcessing, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RecordStarted(context.Background(), &models.ConversionJob{
		ID:        "job-1",
		Direction: models.DocxToPDF,
		Source:    models.SourceUpload,
		CreatedAt: created,
	}))
}

func TestDatabaseService_RecordStartedStorageKeys(t *testing.T) {
	svc, mock := newTestDatabase(t)
	created := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversions")).
		WithArgs("job-2", "docx2pdf", models.SourceStorage, "report.docx", "report.pdf", models.StatusProcessing, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RecordStarted(context.Background(), &models.ConversionJob{
		ID:        "job-2",
		Direction: models.DocxToPDF,
		Source:    models.SourceStorage,
		InputKey:  "report.docx",
		OutputKey: "report.pdf",
		CreatedAt: created,
	}))
}

func TestDatabaseService_RecordCompleted(t *testing.T) {
	svc, mock := newTestDatabase(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversions SET status = $1, duration_ms = $2")).
		WithArgs(models.StatusCompleted, int64(1500), sqlmock.AnyArg(), "job-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RecordCompleted(context.Background(), "job-3", 1500*time.Millisecond))
}

func TestDatabaseService_RecordFailed(t *testing.T) {
	svc, mock := newTestDatabase(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversions SET status = $1, error_message = $2")).
		WithArgs(models.StatusFailed, "soffice failed: exit status 1", int64(250), sqlmock.AnyArg(), "job-4").
		WillReturnError(errors.New("connection reset by peer"))

	err := svc.RecordFailed(context.Background(), "job-4", "soffice failed: exit status 1", 250*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
