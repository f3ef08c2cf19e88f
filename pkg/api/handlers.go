// Package api provides HTTP handlers for the script job submission service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cvpg/imageproc/pkg/jobrunner"
	"github.com/cvpg/imageproc/pkg/logging"
	"github.com/cvpg/imageproc/pkg/pool"
	"github.com/cvpg/imageproc/pkg/schemas"
	"github.com/cvpg/imageproc/pkg/scripting"
	"github.com/cvpg/imageproc/pkg/scripting/validator"
	"github.com/cvpg/imageproc/pkg/store"
)

// Server holds the API server dependencies.
type Server struct {
	store     store.Store
	pool      *pool.Pool
	processor *scripting.Processor
	runner    *jobrunner.Runner
	validator *validator.Validator
}

// NewServer creates a new API server bound to s, with its own worker pool
// and compiled-plan cache.
func NewServer(s store.Store) *Server {
	registry := scripting.NewRegistry()
	scripting.RegisterBuiltins(registry)

	p := pool.New(0)
	processor := scripting.NewProcessor(registry, p)
	resolver := jobrunner.NewDefaultResolver(context.Background())

	return &Server{
		store:     s,
		pool:      p,
		processor: processor,
		runner:    jobrunner.New(processor, resolver.Resolve),
		validator: validator.New(),
	}
}

// CreateJobRequest represents the request body for creating a job.
type CreateJobRequest struct {
	Spec *schemas.JobSpec `json:"spec"`
}

// CreateJobResponse represents the response for creating a job.
type CreateJobResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleCreateJob handles POST /api/v1/jobs.
func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.Spec == nil {
		s.sendError(w, http.StatusBadRequest, "missing_spec", "Job specification is required")
		return
	}

	if err := s.validator.Validate(req.Spec); err != nil {
		s.sendError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("Invalid job specification: %v", err))
		return
	}

	jobID := fmt.Sprintf("job_%d", time.Now().UnixNano())

	job := &store.Job{
		JobID:   jobID,
		Created: time.Now(),
		Updated: time.Now(),
		Status:  schemas.JobStatePending,
		Spec:    req.Spec,
	}

	ctx := r.Context()
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to create job: %v", err))
		return
	}

	go s.processJob(context.Background(), jobID)

	resp := CreateJobResponse{
		JobID:     jobID,
		Status:    string(schemas.JobStatePending),
		CreatedAt: job.Created,
	}

	s.sendJSON(w, http.StatusCreated, resp)
}

// HandleGetJob handles GET /api/v1/jobs/{id}.
func (s *Server) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	jobID := extractJobID(r.URL.Path)
	if jobID == "" {
		s.sendError(w, http.StatusBadRequest, "invalid_job_id", "Job ID is required")
		return
	}

	ctx := r.Context()
	job, err := s.store.GetJob(ctx, jobID)
	if err == store.ErrJobNotFound {
		s.sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, job.ToJobStatus())
}

// HandleListJobs handles GET /api/v1/jobs.
func (s *Server) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	filter := s.parseListFilter(r)

	ctx := r.Context()
	jobs, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to list jobs: %v", err))
		return
	}

	statuses := make([]*schemas.JobStatus, len(jobs))
	for i, job := range jobs {
		statuses[i] = job.ToJobStatus()
	}

	s.sendJSON(w, http.StatusOK, statuses)
}

// HandleDeleteJob handles DELETE /api/v1/jobs/{id}.
func (s *Server) HandleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	jobID := extractJobID(r.URL.Path)
	if jobID == "" {
		s.sendError(w, http.StatusBadRequest, "invalid_job_id", "Job ID is required")
		return
	}

	ctx := r.Context()

	job, err := s.store.GetJob(ctx, jobID)
	if err == store.ErrJobNotFound {
		s.sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return
	}

	if job.IsTerminal() {
		s.sendError(w, http.StatusBadRequest, "job_terminal", "Job is already in terminal state")
		return
	}

	if err := s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateCancelled, nil); err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to cancel job: %v", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	health := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	}

	s.sendJSON(w, http.StatusOK, health)
}

// processJob runs a job's script against its inputs and records the
// outcome, via pkg/jobrunner.
func (s *Server) processJob(ctx context.Context, jobID string) {
	logging.Infof("job %s: processing started", jobID)

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		logging.Errorf("job %s: lookup failed: %v", jobID, err)
		return
	}

	s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateValidating, &schemas.Progress{
		OverallPercent: 10,
		CurrentStep:    "validating",
	})

	if err := s.validator.Validate(job.Spec); err != nil {
		s.failJob(ctx, jobID, "validation_error", err, false)
		return
	}

	s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateCompiling, &schemas.Progress{
		OverallPercent: 20,
		CurrentStep:    "compiling",
	})

	s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateProcessing, &schemas.Progress{
		OverallPercent: 50,
		CurrentStep:    "processing",
	})

	result, err := s.runner.Run(ctx, job.Spec)
	if err != nil {
		s.failJob(ctx, jobID, "evaluation_error", err, true)
		return
	}

	job.Output = &schemas.OutputFile{
		Destination: job.Spec.Output.Destination,
		FileSize:    result.OutputSize,
	}
	s.store.UpdateJob(ctx, job)

	s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateCompleted, &schemas.Progress{
		OverallPercent: 100,
		CurrentStep:    "completed",
	})

	logging.Infof("job %s: completed, %d bytes written", jobID, result.OutputSize)
}

func (s *Server) failJob(ctx context.Context, jobID, code string, err error, retryable bool) {
	logging.Errorf("job %s: failed (%s): %v", jobID, code, err)
	s.store.UpdateJobError(ctx, jobID, &schemas.ErrorInfo{
		Code:      code,
		Message:   err.Error(),
		Retryable: retryable,
	})
	s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateFailed, nil)
}

// Helper methods

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	resp := ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	}
	s.sendJSON(w, status, resp)
}

func (s *Server) parseListFilter(r *http.Request) *store.ListFilter {
	q := r.URL.Query()
	filter := &store.ListFilter{}

	if statusStr := q.Get("status"); statusStr != "" {
		filter.Status = []schemas.JobState{schemas.JobState(statusStr)}
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		var limit int
		fmt.Sscanf(limitStr, "%d", &limit)
		filter.Limit = limit
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		var offset int
		fmt.Sscanf(offsetStr, "%d", &offset)
		filter.Offset = offset
	}

	return filter
}

// extractJobID extracts job ID from URL path like "/api/v1/jobs/{id}".
func extractJobID(path string) string {
	const prefix = "/api/v1/jobs/"
	if len(path) <= len(prefix) {
		return ""
	}
	return path[len(prefix):]
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
