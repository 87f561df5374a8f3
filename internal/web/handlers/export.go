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
	"github.com/kozaktomas/photoface/internal/exporter"
)

// ExportHandler handles async export jobs.
type ExportHandler struct {
	config     *config.Config
	store      *database.Store
	jobManager *JobManager
}

// NewExportHandler creates a new export handler.
func NewExportHandler(cfg *config.Config, store *database.Store, jm *JobManager) *ExportHandler {
	return &ExportHandler{
		config:     cfg,
		store:      store,
		jobManager: jm,
	}
}

// ExportRequest represents an export start request.
type ExportRequest struct {
	PersonID   int64  `json:"person_id"`
	OutputPath string `json:"output_path"`
}

// Start starts a new export job. Only one export may run at a time.
func (h *ExportHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	if req.PersonID != 0 {
		person, err := h.store.GetPerson(r.Context(), req.PersonID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if !person.IsConfirmed {
			respondError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("person %q is not confirmed", person.Name))
			return
		}
	}

	job, err := h.jobManager.CreateJob(uuid.New().String(), JobKindExport)
	if errors.Is(err, ErrJobActive) {
		respondError(w, http.StatusConflict, "an export is already running")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go h.runExportJob(job, req)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

// Status returns the status of an export job.
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// Events streams export job events via SSE.
func (h *ExportHandler) Events(w http.ResponseWriter, r *http.Request) {
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

// Cancel cancels a running export job.
func (h *ExportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runExportJob runs the export in the background.
func (h *ExportHandler) runExportJob(job *Job, req ExportRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.setRunning()

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = h.config.Export.OutputPath
	}

	e := exporter.New(h.store)
	result, err := e.Run(ctx, exporter.Options{
		PersonID:   req.PersonID,
		OutputPath: outputPath,
		OnProgress: func(info exporter.ProgressInfo) {
			job.updateProgress(info.Done, info.Total, info.Current)
		},
	})
	if err != nil {
		job.fail(fmt.Sprintf("export failed: %v", err))
		return
	}

	persons := make([]map[string]any, 0, len(result.Persons))
	for _, p := range result.Persons {
		persons = append(persons, map[string]any{
			"name":         p.Name,
			"solo":         p.SoloCopied,
			"with_friends": p.WithCopied,
			"errors":       errorStrings(p.Errors),
		})
	}
	summary := map[string]any{
		"copied":  result.Copied,
		"persons": persons,
	}
	if result.Cancelled {
		job.markCancelled(summary)
		return
	}
	job.complete(summary)
}
