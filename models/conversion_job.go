package models

import (
	"path/filepath"
	"strings"
	"time"
)

type Direction string

const (
	DocxToPDF Direction = "docx2pdf"
	PDFToDocx Direction = "pdf2docx"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

const (
	SourceUpload  = "upload"
	SourceStorage = "storage"
)

// ParseDirection accepts the route name of a direction.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case DocxToPDF:
		return DocxToPDF, true
	case PDFToDocx:
		return PDFToDocx, true
	}
	return "", false
}

// DirectionForFile picks the direction from the input file extension.
func DirectionForFile(name string) (Direction, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return DocxToPDF, true
	case ".pdf":
		return PDFToDocx, true
	}
	return "", false
}

func (d Direction) InputExt() string {
	if d == PDFToDocx {
		return ".pdf"
	}
	return ".docx"
}

func (d Direction) OutputExt() string {
	if d == PDFToDocx {
		return ".docx"
	}
	return ".pdf"
}

func (d Direction) ContentType() string {
	if d == PDFToDocx {
		return ContentTypeDocx
	}
	return ContentTypePDF
}

// DownloadName is the attachment name sent back to the browser.
func (d Direction) DownloadName() string {
	return "converted" + d.OutputExt()
}

// Accepts reports whether filename carries this direction's input extension.
func (d Direction) Accepts(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), d.InputExt())
}

// ConversionJob is one conversion on local scratch space.
type ConversionJob struct {
	ID         string    `json:"id"`
	Direction  Direction `json:"direction"`
	Source     string    `json:"source"`
	InputPath  string    `json:"inputPath"`
	OutputPath string    `json:"outputPath"`
	InputKey   string    `json:"inputKey,omitempty"`
	OutputKey  string    `json:"outputKey,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type BucketRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// TriggerJob is the queue payload for an asynchronous storage-triggered conversion.
type TriggerJob struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RetryCount int       `json:"retryCount"`
	MaxRetries int       `json:"maxRetries"`
	CreatedAt  time.Time `json:"createdAt"`
	Timeout    int       `json:"timeout"`
}

// TriggerResult is the JSON summary returned by the storage-triggered route.
type TriggerResult struct {
	Message      string `json:"message"`
	InputBucket  string `json:"input_bucket"`
	OutputBucket string `json:"output_bucket"`
	InputKey     string `json:"input_key"`
	OutputKey    string `json:"output_key"`
	JobID        string `json:"job_id,omitempty"`
	Pages        int    `json:"pages,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
