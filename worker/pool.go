package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"docconverter/apperrors"
	"docconverter/config"
	"docconverter/models"
	"docconverter/services"
)

const (
	claimWait        = 30 * time.Second
	errorBackoff     = 5 * time.Second
	maxRetryDelay    = 30 * time.Second
	maxRecoveryEvery = 5 * time.Minute
	// recoveryGrace covers status writes and acks after a job's own deadline.
	recoveryGrace = time.Minute
)

// Queue is the job transport the workers consume. *services.RedisQueue implements it.
type Queue interface {
	Claim(ctx context.Context, wait time.Duration) (string, bool, error)
	Ack(ctx context.Context, payload string) error
	Requeue(ctx context.Context, payload string) error
	Bury(ctx context.Context, payload string) error
	Processing(ctx context.Context) ([]string, error)
	SetStatus(ctx context.Context, jobID string, fields map[string]interface{}) error
	Status(ctx context.Context, jobID string) (map[string]string, error)
}

// StoredConverter runs one storage-triggered conversion. *services.Gateway implements it.
type StoredConverter interface {
	ConvertStored(ctx context.Context, name string) (*models.TriggerResult, error)
}

type Pool struct {
	config    *config.Config
	queue     Queue
	converter StoredConverter

	claimWait  time.Duration
	retryDelay func(attempt int) time.Duration
}

func NewPool(cfg *config.Config, queue Queue, converter StoredConverter) *Pool {
	return &Pool{
		config:     cfg,
		queue:      queue,
		converter:  converter,
		claimWait:  claimWait,
		retryDelay: backoff,
	}
}

// Run starts the configured number of workers plus the recovery loop and
// blocks until ctx is cancelled and all of them have returned.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.StartWorker(ctx, workerID)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.RecoveryLoop(ctx)
	}()

	log.Printf("Started %d conversion workers on %s", p.config.WorkerCount, p.config.PendingQueue)
	wg.Wait()
}

func (p *Pool) StartWorker(ctx context.Context, workerID int) {
	log.Printf("[Worker %d] Starting", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker %d] Shutting down", workerID)
			return
		default:
		}

		payload, ok, err := p.queue.Claim(ctx, p.claimWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("[Worker %d] Queue error: %v", workerID, err)
			sleep(ctx, errorBackoff)
			continue
		}
		if !ok {
			continue
		}

		var job models.TriggerJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			log.Printf("[Worker %d] Failed to parse job: %v", workerID, err)
			p.ack(ctx, payload)
			continue
		}

		p.processJob(ctx, workerID, &job, payload)
	}
}

func (p *Pool) processJob(ctx context.Context, workerID int, job *models.TriggerJob, payload string) {
	log.Printf("[Worker %d] Processing job %s (name: %s)", workerID, job.ID, job.Name)

	p.setStatus(ctx, job.ID, map[string]interface{}{
		"status":    models.StatusProcessing,
		"worker_id": workerID,
		"attempt":   job.RetryCount + 1,
	})

	jobCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(job.Timeout)*time.Second)
		defer cancel()
	}

	result, err := p.converter.ConvertStored(jobCtx, job.Name)
	if err != nil {
		p.handleJobFailure(ctx, workerID, job, payload, err)
		return
	}

	p.setStatus(ctx, job.ID, map[string]interface{}{
		"status":        models.StatusCompleted,
		"output_bucket": result.OutputBucket,
		"output_key":    result.OutputKey,
		"pages":         result.Pages,
		"duration_ms":   result.DurationMS,
		"error":         "",
	})
	p.ack(ctx, payload)

	log.Printf("[Worker %d] Job %s completed successfully (%dms)", workerID, job.ID, result.DurationMS)
}

func (p *Pool) handleJobFailure(ctx context.Context, workerID int, job *models.TriggerJob, payload string, cause error) {
	errorMsg := cause.Error()
	log.Printf("[Worker %d] Job %s failed: %s", workerID, job.ID, errorMsg)

	p.ack(ctx, payload)

	if job.RetryCount < job.MaxRetries && retryable(cause) {
		job.RetryCount++
		retryPayload, err := json.Marshal(job)
		if err != nil {
			log.Printf("[Worker %d] Failed to marshal retry for job %s: %v", workerID, job.ID, err)
			return
		}

		delay := p.retryDelay(job.RetryCount)
		p.setStatus(ctx, job.ID, map[string]interface{}{
			"status": models.StatusQueued,
			"error":  errorMsg,
		})

		time.AfterFunc(delay, func() {
			if err := p.queue.Requeue(context.Background(), string(retryPayload)); err != nil {
				log.Printf("[Worker %d] Failed to requeue job %s: %v", workerID, job.ID, err)
				return
			}
			log.Printf("[Worker %d] Scheduled retry %d/%d for job %s in %v",
				workerID, job.RetryCount, job.MaxRetries, job.ID, delay)
		})
		return
	}

	p.fail(ctx, job, payload, errorMsg)
	log.Printf("[Worker %d] Job %s moved to failed queue after %d attempts", workerID, job.ID, job.RetryCount+1)
}

func (p *Pool) fail(ctx context.Context, job *models.TriggerJob, payload, errorMsg string) {
	if err := p.queue.Bury(ctx, payload); err != nil {
		log.Printf("[Worker] Failed to bury job %s: %v", job.ID, err)
	}
	p.setStatus(ctx, job.ID, map[string]interface{}{
		"status": models.StatusFailed,
		"error":  errorMsg,
	})
}

func (p *Pool) RecoveryLoop(ctx context.Context) {
	interval := p.staleAge()
	if interval > maxRecoveryEvery {
		interval = maxRecoveryEvery
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("[Recovery] Starting stale job recovery loop")

	for {
		select {
		case <-ctx.Done():
			log.Println("[Recovery] Shutting down")
			return
		case <-ticker.C:
			p.recoverStaleJobs(ctx)
		}
	}
}

// recoverStaleJobs returns jobs whose worker went away to the pending queue,
// or fails them once their retries are used up.
func (p *Pool) recoverStaleJobs(ctx context.Context) int {
	payloads, err := p.queue.Processing(ctx)
	if err != nil {
		log.Printf("[Recovery] Failed to get processing queue: %v", err)
		return 0
	}

	recovered := 0
	for _, payload := range payloads {
		var job models.TriggerJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			continue
		}
		if time.Since(p.lastActivity(ctx, &job)) <= p.staleAfter(&job) {
			continue
		}

		p.ack(ctx, payload)
		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			retryPayload, err := json.Marshal(job)
			if err != nil {
				continue
			}
			if err := p.queue.Requeue(ctx, string(retryPayload)); err != nil {
				log.Printf("[Recovery] Failed to requeue job %s: %v", job.ID, err)
				continue
			}
			p.setStatus(ctx, job.ID, map[string]interface{}{"status": models.StatusQueued})
			recovered++
		} else {
			p.fail(ctx, &job, payload, "job timeout - worker did not finish in time")
		}
	}

	if recovered > 0 {
		log.Printf("[Recovery] Recovered %d stale jobs", recovered)
	}
	return recovered
}

// lastActivity is the job's last status update, or its creation time when no
// status is recorded.
func (p *Pool) lastActivity(ctx context.Context, job *models.TriggerJob) time.Time {
	status, err := p.queue.Status(ctx, job.ID)
	if err == nil {
		if ts, err := time.Parse(time.RFC3339, status["updated_at"]); err == nil {
			return ts
		}
	}
	return job.CreatedAt
}

// staleAfter is how long a claimed job may stay silent before recovery takes
// it back. A job is never reclaimed while its own deadline is still running.
func (p *Pool) staleAfter(job *models.TriggerJob) time.Duration {
	age := p.staleAge()
	if job.Timeout > 0 {
		if running := time.Duration(job.Timeout)*time.Second + recoveryGrace; running > age {
			age = running
		}
	}
	return age
}

func (p *Pool) staleAge() time.Duration {
	age := time.Duration(p.config.StaleJobAge) * time.Second
	if age <= 0 {
		age = maxRecoveryEvery
	}
	return age
}

func (p *Pool) ack(ctx context.Context, payload string) {
	if err := p.queue.Ack(ctx, payload); err != nil {
		log.Printf("[Worker] Failed to remove job from processing queue: %v", err)
	}
}

func (p *Pool) setStatus(ctx context.Context, jobID string, fields map[string]interface{}) {
	if err := p.queue.SetStatus(ctx, jobID, fields); err != nil {
		log.Printf("[Worker] Failed to update status for job %s: %v", jobID, err)
	}
}

// retryable reports whether another attempt could succeed. Bad names and
// missing objects stay broken.
func retryable(err error) bool {
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		return false
	}
	return !errors.Is(err, services.ErrObjectNotFound)
}

// backoff is 2^attempt seconds, capped at 30s.
func backoff(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
