package models

import (
	"time"
)

// JobStatus represents the status of a validation job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobStatuses lists every status, used for metrics
var JobStatuses = []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed}

// Job represents an asynchronous workbook validation.
// A completed job ran to the end (Success tells whether the workbook passed);
// a failed job hit a fatal error such as a malformed schema.
type Job struct {
	ID                string     `json:"job_id" db:"id"`
	Status            JobStatus  `json:"status" db:"status"`
	IdempotencyKey    string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	WorkbookName      string     `json:"workbook" db:"workbook_name"`
	WorkbookPath      string     `json:"-" db:"workbook_path"`
	SchemaPath        string     `json:"-" db:"schema_path"`
	ReturnData        bool       `json:"return_data" db:"return_data"`
	AllowExtraColumns bool       `json:"allow_extra_columns" db:"allow_extra_columns"`
	Success           *bool      `json:"success,omitempty" db:"success"`
	SheetCount        int        `json:"sheets" db:"sheet_count"`
	RowCount          int        `json:"rows" db:"row_count"`
	ErrorCount        int        `json:"error_count" db:"error_count"`
	DurationMs        int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	RowsPerSec        float64    `json:"rows_per_sec,omitempty" db:"rows_per_sec"`
	ResultPath        string     `json:"-" db:"result_path"`
	FailureReason     string     `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// JobResponse is the API response for job status
type JobResponse struct {
	Job
	Errors      []ValidationError `json:"errors,omitempty"`
	ErrorReport string            `json:"error_report_url,omitempty"`
	ResultURL   string            `json:"result_url,omitempty"`
}

// ValidationRequest describes one validation job to create
type ValidationRequest struct {
	WorkbookName      string
	WorkbookPath      string
	SchemaPath        string
	ReturnData        bool
	AllowExtraColumns bool
	IdempotencyKey    string // From header
}
