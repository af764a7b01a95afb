package mocks

import (
	"context"
	"net/http"

	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/service"
	"github.com/workbook-validation-api/internal/validation"
)

// MockValidationService is a mock implementation of ValidationService
type MockValidationService struct {
	ValidateFunc  func(ctx context.Context, workbookPath, schemaPath string, opts validation.Options) (*models.Result, error)
	CreateJobFunc func(ctx context.Context, req *models.ValidationRequest) (*models.Job, error)
	ProcessFunc   func(ctx context.Context, job *models.Job) error
	ProcessedJobs []*models.Job
	CreatedJobs   []*models.Job
	Requests      []*models.ValidationRequest
}

// Verify interface compliance
var _ service.ValidationService = (*MockValidationService)(nil)

func NewMockValidationService() *MockValidationService {
	return &MockValidationService{
		ProcessedJobs: make([]*models.Job, 0),
		CreatedJobs:   make([]*models.Job, 0),
	}
}

func (m *MockValidationService) ValidateFiles(ctx context.Context, workbookPath, schemaPath string, opts validation.Options) (*models.Result, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, workbookPath, schemaPath, opts)
	}
	return &models.Result{Success: true, Errors: []models.ValidationError{}}, nil
}

func (m *MockValidationService) CreateValidationJob(ctx context.Context, req *models.ValidationRequest) (*models.Job, error) {
	m.Requests = append(m.Requests, req)
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, req)
	}
	job := &models.Job{
		ID:             "test-job-id",
		Status:         models.JobStatusPending,
		WorkbookName:   req.WorkbookName,
		IdempotencyKey: req.IdempotencyKey,
	}
	m.CreatedJobs = append(m.CreatedJobs, job)
	return job, nil
}

func (m *MockValidationService) ProcessValidation(ctx context.Context, job *models.Job) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, job)
	}
	m.ProcessedJobs = append(m.ProcessedJobs, job)
	job.Status = models.JobStatusCompleted
	return nil
}

// MockReportService is a mock implementation of ReportService
type MockReportService struct {
	StreamFunc func(ctx context.Context, w http.ResponseWriter, jobID, format string) error
}

// Verify interface compliance
var _ service.ReportService = (*MockReportService)(nil)

func NewMockReportService() *MockReportService {
	return &MockReportService{}
}

func (m *MockReportService) StreamErrors(ctx context.Context, w http.ResponseWriter, jobID, format string) error {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, jobID, format)
	}
	return nil
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs              map[string]*models.JobResponse
	Errors            map[string][]models.ValidationError
	Counts            map[models.JobStatus]int
	ValidationService service.ValidationService
}

// Verify interface compliance
var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.ValidationError),
		Counts: make(map[models.JobStatus]int),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	return m.Jobs[id], nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	for _, job := range m.Jobs {
		if job.IdempotencyKey == key {
			return &job.Job, nil
		}
	}
	return nil, nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return m.Errors[id], nil
}

func (m *MockJobService) GetJobCounts(ctx context.Context) (map[models.JobStatus]int, error) {
	return m.Counts, nil
}

func (m *MockJobService) SetValidationService(validationService service.ValidationService) {
	m.ValidationService = validationService
}
