package services

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// readMultipartFields returns the form fields and the uploaded file names.
func readMultipartFields(t *testing.T, r *http.Request, expectedPath string) (map[string]string, []string) {
	t.Helper()

	if r.URL.Path != expectedPath {
		t.Fatalf("unexpected path: %s", r.URL.Path)
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("expected multipart/form-data, got %q (err=%v)", mediaType, err)
	}

	reader := multipart.NewReader(r.Body, params["boundary"])
	defer func() { _ = r.Body.Close() }()

	fields := map[string]string{}
	var files []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}

		if part.FileName() != "" {
			files = append(files, part.FileName())
			_, _ = io.Copy(io.Discard, part)
		} else {
			b, _ := io.ReadAll(part)
			fields[part.FormName()] = string(b)
		}
		_ = part.Close()
	}
	return fields, files
}

func writeTempInput(t *testing.T, name string) string {
	t.Helper()
	inputPath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(inputPath, []byte("dummy"), 0644); err != nil {
		t.Fatalf("failed to write temp input: %v", err)
	}
	return inputPath
}

func TestGotenbergService_Convert_WritesOutput(t *testing.T) {
	t.Parallel()

	svc := NewGotenbergService("http://example.invalid", "PDF/A-2b")
	svc.client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		fields, files := readMultipartFields(t, r, "/forms/libreoffice/convert")
		if fields["pdfa"] != "PDF/A-2b" {
			t.Fatalf("expected pdfa=PDF/A-2b, got %q", fields["pdfa"])
		}
		if len(files) != 1 || files[0] != "input.docx" {
			t.Fatalf("unexpected uploaded files %v", files)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader([]byte("%PDF-1.4\n%EOF\n"))),
			Header:     make(http.Header),
		}, nil
	})

	inputPath := writeTempInput(t, "input.docx")
	outputPath := filepath.Join(t.TempDir(), "job", "out.pdf")

	if err := svc.Convert(context.Background(), inputPath, outputPath); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected PDF output, got %q", data)
	}
}

func TestGotenbergService_Convert_OmitsPDFAWhenUnset(t *testing.T) {
	t.Parallel()

	svc := NewGotenbergService("http://example.invalid", "")
	svc.client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		fields, _ := readMultipartFields(t, r, "/forms/libreoffice/convert")
		if _, ok := fields["pdfa"]; ok {
			t.Fatal("expected no pdfa field")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("%PDF-1.7")),
			Header:     make(http.Header),
		}, nil
	})

	inputPath := writeTempInput(t, "input.docx")
	if err := svc.Convert(context.Background(), inputPath, filepath.Join(t.TempDir(), "out.pdf")); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
}

func TestGotenbergService_Convert_ErrorStatus(t *testing.T) {
	t.Parallel()

	svc := NewGotenbergService("http://example.invalid", "")
	svc.client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader("unsupported file")),
			Header:     make(http.Header),
		}, nil
	})

	inputPath := writeTempInput(t, "input.docx")
	outputPath := filepath.Join(t.TempDir(), "out.pdf")

	err := svc.Convert(context.Background(), inputPath, outputPath)
	if err == nil || !strings.Contains(err.Error(), "status 400: unsupported file") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, got %v", statErr)
	}
}
