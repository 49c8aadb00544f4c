package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"docconverter/models"
	"docconverter/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// transferAllowance is added to the conversion timeout to cover the download
// and upload around it.
const transferAllowance = 60

// JobQueue is the part of *services.RedisQueue the job routes use.
type JobQueue interface {
	Enqueue(ctx context.Context, job models.TriggerJob) error
	Status(ctx context.Context, jobID string) (map[string]string, error)
}

// JobHandler exposes the asynchronous storage trigger. A nil queue answers 503.
type JobHandler struct {
	queue             JobQueue
	maxRetries        int
	conversionTimeout int
}

func NewJobHandler(queue JobQueue, maxRetries, conversionTimeout int) *JobHandler {
	return &JobHandler{queue: queue, maxRetries: maxRetries, conversionTimeout: conversionTimeout}
}

func (h *JobHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Job queue not configured (missing REDIS_ADDR)")
		return
	}

	name := mux.Vars(r)["name"]
	if err := services.ValidateKeyStem(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := models.TriggerJob{
		ID:         uuid.NewString(),
		Name:       name,
		MaxRetries: h.maxRetries,
		CreatedAt:  time.Now(),
		Timeout:    h.conversionTimeout + transferAllowance,
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		log.Printf("[HTTP] Failed to enqueue %q: %v", name, err)
		writeError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": models.StatusQueued,
	})
}

func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Job queue not configured (missing REDIS_ADDR)")
		return
	}

	jobID := mux.Vars(r)["id"]
	status, err := h.queue.Status(r.Context(), jobID)
	if errors.Is(err, services.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log.Printf("[HTTP] Failed to read status of job %s: %v", jobID, err)
		writeError(w, http.StatusInternalServerError, "Failed to read job status")
		return
	}

	status["job_id"] = jobID
	writeJSON(w, http.StatusOK, status)
}
