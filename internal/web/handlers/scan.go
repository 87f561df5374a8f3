package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photoface/internal/config"
	"github.com/kozaktomas/photoface/internal/database"
	"github.com/kozaktomas/photoface/internal/detector"
	"github.com/kozaktomas/photoface/internal/scanner"
)

// ScanHandler handles async scan jobs.
type ScanHandler struct {
	config     *config.Config
	store      *database.Store
	detector   detector.Detector
	jobManager *JobManager
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(cfg *config.Config, store *database.Store, det detector.Detector, jm *JobManager) *ScanHandler {
	return &ScanHandler{
		config:     cfg,
		store:      store,
		detector:   det,
		jobManager: jm,
	}
}

// ScanRequest represents a scan start request.
type ScanRequest struct {
	FolderID    int64 `json:"folder_id"`
	RetryErrors bool  `json:"retry_errors"`
}

// Start starts a new scan job. Only one scan may run at a time.
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	if req.FolderID != 0 {
		if _, err := h.store.GetFolder(r.Context(), req.FolderID); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	job, err := h.jobManager.CreateJob(uuid.New().String(), JobKindScan)
	if errors.Is(err, ErrJobActive) {
		respondError(w, http.StatusConflict, "a scan is already running")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go h.runScanJob(job, req)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

// Status returns the status of a scan job.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// Events streams scan job events via SSE.
func (h *ScanHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job
		},
	)
}

// Cancel cancels a running scan job.
func (h *ScanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runScanJob runs the scan in the background.
func (h *ScanHandler) runScanJob(job *Job, req ScanRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.setRunning()

	s := scanner.New(h.store, h.detector, h.config.Scan.MinFaceConfidence)
	result, err := s.Scan(ctx, scanner.Options{
		FolderID:    req.FolderID,
		RetryErrors: req.RetryErrors,
		OnProgress: func(info scanner.ProgressInfo) {
			job.updateProgress(info.Done, info.Total, info.Current)
		},
	})
	if err != nil {
		job.fail(fmt.Sprintf("scan failed: %v", err))
		return
	}

	summary := map[string]any{
		"processed":   result.Processed,
		"skipped":     result.Skipped,
		"faces_found": result.FacesFound,
		"errors":      errorStrings(result.Errors),
	}
	if result.Cancelled {
		job.markCancelled(summary)
		return
	}
	job.complete(summary)
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
