package schemas

import "time"

// JobState represents the current state of a job.
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateValidating JobState = "validating"
	JobStateCompiling  JobState = "compiling"
	JobStateProcessing JobState = "processing"
	JobStateUploading  JobState = "uploading_output"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
	JobStateCancelled  JobState = "cancelled"
)

// JobStatus represents real-time job status.
type JobStatus struct {
	JobID       string      `json:"job_id"`
	Status      JobState    `json:"status"`
	Progress    *Progress   `json:"progress,omitempty"`
	Error       *ErrorInfo  `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Output      *OutputFile `json:"output,omitempty"`
}

// Progress represents job progress information. FramesTotal/FramesDone
// are zero for single-image jobs (progress is then purely percent-based
// over the validating, compiling and processing steps).
type Progress struct {
	OverallPercent      float64    `json:"overall_percent"`
	CurrentStep         string     `json:"current_step"`
	FramesDone          int        `json:"frames_done,omitempty"`
	FramesTotal         int        `json:"frames_total,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// OutputFile contains information about the produced output.
type OutputFile struct {
	Destination string  `json:"destination"`
	FileSize    int64   `json:"file_size"`
	MD5         string  `json:"md5,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// ErrorInfo contains error details. The API handlers set Code to
// "validation_error" or "evaluation_error"; it is not a pkg/pperr.Code.
type ErrorInfo struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Retryable  bool                   `json:"retryable"`
}
