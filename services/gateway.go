package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"docconverter/apperrors"
	"docconverter/config"
	"docconverter/models"

	"golang.org/x/sync/semaphore"
)

const (
	triggerSuccessMessage    = "Converted and uploaded successfully"
	defaultConversionTimeout = 120 * time.Second
)

// Gateway runs conversions on scratch space: direct uploads and
// storage-triggered DOCX -> PDF jobs go through the same converters.
type Gateway struct {
	cfg        *config.Config
	converters map[models.Direction]Converter
	store      ObjectStore
	scratch    *Scratch
	audit      AuditStore
	slots      *semaphore.Weighted
	timeout    time.Duration
	queueWait  time.Duration
}

// NewGateway wires a gateway. store and audit may be nil: the storage route
// then fails with a storage error and conversions go unrecorded.
func NewGateway(cfg *config.Config, converters map[models.Direction]Converter, store ObjectStore, scratch *Scratch, audit AuditStore) *Gateway {
	slots := cfg.MaxConcurrent
	if slots <= 0 {
		slots = 1
	}
	timeout := time.Duration(cfg.ConversionTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultConversionTimeout
	}
	return &Gateway{
		cfg:        cfg,
		converters: converters,
		store:      store,
		scratch:    scratch,
		audit:      audit,
		slots:      semaphore.NewWeighted(int64(slots)),
		timeout:    timeout,
		queueWait:  time.Duration(cfg.QueueWaitTimeout) * time.Second,
	}
}

// Output is a converted file on scratch space. Close removes the job's files.
type Output struct {
	Path         string
	ContentType  string
	DownloadName string
	Pages        int
	JobID        string

	job     *models.ConversionJob
	scratch *Scratch
	once    sync.Once
}

func (o *Output) Open() (*os.File, error) {
	return os.Open(o.Path)
}

func (o *Output) Close() error {
	var err error
	o.once.Do(func() {
		err = o.scratch.Cleanup(o.job)
	})
	return err
}

// ConvertUpload stores src as the input of a new job and converts it. The
// caller streams the returned Output and must Close it. A conversion slot is
// only taken once the whole upload is on disk.
func (g *Gateway) ConvertUpload(ctx context.Context, dir models.Direction, filename string, src io.Reader) (*Output, error) {
	if !dir.Accepts(filename) {
		return nil, apperrors.NewValidationError(unsupportedMessage(dir))
	}

	job, err := g.scratch.NewJob(dir, models.SourceUpload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to allocate scratch space", err)
	}
	keep := false
	defer func() {
		if !keep {
			g.cleanup(job)
		}
	}()

	if err := writeFile(job.InputPath, src); err != nil {
		return nil, apperrors.NewInternalError("failed to save upload", err)
	}

	release, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	finish := g.track(ctx, job)
	err = g.convert(ctx, job)
	finish(err)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Path:         job.OutputPath,
		ContentType:  dir.ContentType(),
		DownloadName: dir.DownloadName(),
		JobID:        job.ID,
		job:          job,
		scratch:      g.scratch,
	}
	if dir == models.DocxToPDF {
		out.Pages = g.pages(job.OutputPath)
	}
	keep = true
	return out, nil
}

// ConvertStored downloads <name>.docx from the upload bucket, converts it and
// uploads <name>.pdf to the output bucket.
func (g *Gateway) ConvertStored(ctx context.Context, name string) (*models.TriggerResult, error) {
	if err := ValidateKeyStem(name); err != nil {
		return nil, err
	}
	if g.store == nil {
		return nil, apperrors.NewStorageError("object storage is not configured", nil)
	}

	inRef := models.BucketRef{Bucket: g.cfg.UploadBucket, Key: name + models.DocxToPDF.InputExt()}
	outRef := models.BucketRef{Bucket: g.cfg.OutputBucket, Key: name + models.DocxToPDF.OutputExt()}

	job, err := g.scratch.NewJob(models.DocxToPDF, models.SourceStorage)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to allocate scratch space", err)
	}
	defer g.cleanup(job)
	job.InputKey = inRef.Key
	job.OutputKey = outRef.Key

	start := time.Now()
	finish := g.track(ctx, job)

	if err := g.store.Download(ctx, inRef, job.InputPath); err != nil {
		err = apperrors.NewStorageError("", err)
		finish(err)
		return nil, err
	}

	release, err := g.acquire(ctx)
	if err != nil {
		finish(err)
		return nil, err
	}
	err = g.convert(ctx, job)
	release()
	if err != nil {
		finish(err)
		return nil, err
	}

	if err := g.store.Upload(ctx, job.OutputPath, outRef, models.ContentTypePDF); err != nil {
		err = apperrors.NewStorageError("", err)
		finish(err)
		return nil, err
	}
	finish(nil)

	log.Printf("[Gateway] Job %s converted %s/%s -> %s/%s", job.ID, inRef.Bucket, inRef.Key, outRef.Bucket, outRef.Key)

	return &models.TriggerResult{
		Message:      triggerSuccessMessage,
		InputBucket:  inRef.Bucket,
		OutputBucket: outRef.Bucket,
		InputKey:     inRef.Key,
		OutputKey:    outRef.Key,
		JobID:        job.ID,
		Pages:        g.pages(job.OutputPath),
		DurationMS:   time.Since(start).Milliseconds(),
	}, nil
}

// ConvertFile converts between two caller-owned paths, without scratch space.
func (g *Gateway) ConvertFile(ctx context.Context, dir models.Direction, inputPath, outputPath string) error {
	job := &models.ConversionJob{
		ID:         newJobID(),
		Direction:  dir,
		Source:     models.SourceUpload,
		InputPath:  inputPath,
		OutputPath: outputPath,
		CreatedAt:  time.Now(),
	}
	return g.convert(ctx, job)
}

// ValidateKeyStem rejects names that cannot be used as an object key stem.
func ValidateKeyStem(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperrors.NewValidationError("missing object name")
	case name == "." || name == "..":
		return apperrors.NewValidationError("invalid object name")
	case strings.ContainsAny(name, "/\\\x00"):
		return apperrors.NewValidationError("object name must be a single path segment")
	}
	return nil
}

// convert runs the job's converter under the conversion timeout. Both the
// gateway's own timeout and a deadline on ctx report a timeout error; only a
// cancelled ctx reports a conversion error.
func (g *Gateway) convert(ctx context.Context, job *models.ConversionJob) error {
	conv, ok := g.converters[job.Direction]
	if !ok {
		return apperrors.NewInternalError(fmt.Sprintf("no converter for %s", job.Direction), nil)
	}

	convCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := conv.Convert(convCtx, job.InputPath, job.OutputPath)
	if err == nil {
		return nil
	}
	if errors.Is(convCtx.Err(), context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return apperrors.NewTimeoutError("conversion deadline exceeded", err)
		}
		return apperrors.NewTimeoutError(fmt.Sprintf("conversion timed out after %s", g.timeout), err)
	}
	return apperrors.NewConversionError("", err)
}

// acquire waits for a conversion slot for at most queueWait.
func (g *Gateway) acquire(ctx context.Context) (func(), error) {
	release := func() { g.slots.Release(1) }
	if g.queueWait <= 0 {
		if !g.slots.TryAcquire(1) {
			return nil, apperrors.NewBusyError("too many conversions in progress, try again later", nil)
		}
		return release, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.queueWait)
	defer cancel()

	if err := g.slots.Acquire(waitCtx, 1); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("deadline exceeded while waiting for a conversion slot", ctx.Err())
		}
		if ctx.Err() != nil {
			return nil, apperrors.NewConversionError("request cancelled while waiting", ctx.Err())
		}
		return nil, apperrors.NewBusyError("too many conversions in progress, try again later", err)
	}
	return release, nil
}

// track records the job in the audit store and returns the matching finish call.
func (g *Gateway) track(ctx context.Context, job *models.ConversionJob) func(error) {
	start := time.Now()
	if g.audit == nil {
		return func(error) {}
	}

	// Audit writes outlive a client that hung up.
	auditCtx := context.WithoutCancel(ctx)
	if err := g.audit.RecordStarted(auditCtx, job); err != nil {
		log.Printf("[Gateway] Failed to record job %s: %v", job.ID, err)
	}
	return func(err error) {
		var recErr error
		if err != nil {
			recErr = g.audit.RecordFailed(auditCtx, job.ID, err.Error(), time.Since(start))
		} else {
			recErr = g.audit.RecordCompleted(auditCtx, job.ID, time.Since(start))
		}
		if recErr != nil {
			log.Printf("[Gateway] Failed to update job %s: %v", job.ID, recErr)
		}
	}
}

func (g *Gateway) pages(path string) int {
	n, err := PageCount(path)
	if err != nil {
		log.Printf("[Gateway] Could not inspect %s: %v", path, err)
		return 0
	}
	return n
}

func (g *Gateway) cleanup(job *models.ConversionJob) {
	if err := g.scratch.Cleanup(job); err != nil {
		log.Printf("[Gateway] Failed to clean up job %s: %v", job.ID, err)
	}
}

func unsupportedMessage(dir models.Direction) string {
	if dir == models.PDFToDocx {
		return "Only PDF files are supported"
	}
	return "Only .docx files are supported"
}

func writeFile(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
