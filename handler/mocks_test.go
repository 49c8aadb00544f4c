package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"docconverter/config"
	"docconverter/models"
	"docconverter/services"

	"github.com/stretchr/testify/require"
)

type mockConversionService struct {
	t *testing.T

	uploadCalls  int
	lastDir      models.Direction
	lastFilename string
	lastBody     string
	outputBody   string
	pages        int
	uploadErr    error

	storedCalls int
	lastName    string
	result      *models.TriggerResult
	storedErr   error
}

func (m *mockConversionService) ConvertUpload(ctx context.Context, dir models.Direction, filename string, src io.Reader) (*services.Output, error) {
	m.uploadCalls++
	m.lastDir = dir
	m.lastFilename = filename
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	m.lastBody = string(body)
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}

	path := filepath.Join(m.t.TempDir(), "out"+dir.OutputExt())
	require.NoError(m.t, os.WriteFile(path, []byte(m.outputBody), 0644))
	return &services.Output{
		Path:         path,
		ContentType:  dir.ContentType(),
		DownloadName: dir.DownloadName(),
		Pages:        m.pages,
		JobID:        "job-1",
	}, nil
}

func (m *mockConversionService) ConvertStored(ctx context.Context, name string) (*models.TriggerResult, error) {
	m.storedCalls++
	m.lastName = name
	if m.storedErr != nil {
		return nil, m.storedErr
	}
	return m.result, nil
}

type mockJobQueue struct {
	enqueued  []models.TriggerJob
	enqErr    error
	status    map[string]map[string]string
	statusErr error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job models.TriggerJob) error {
	if m.enqErr != nil {
		return m.enqErr
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Status(ctx context.Context, jobID string) (map[string]string, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	s, ok := m.status[jobID]
	if !ok {
		return nil, services.ErrJobNotFound
	}
	return s, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxFileSize:        1024,
		MaxRetries:         3,
		ConversionTimeout:  120,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newTestRouter(t *testing.T, svc *mockConversionService, queue JobQueue) http.Handler {
	t.Helper()
	cfg := testConfig()
	svc.t = t
	return NewRouter(cfg, NewConversionHandler(svc, cfg.MaxFileSize), NewJobHandler(queue, cfg.MaxRetries, cfg.ConversionTimeout))
}

// newUploadRequest builds a multipart POST with one field.
func newUploadRequest(t *testing.T, path, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
