package service

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/config"
	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/repository"
	"github.com/workbook-validation-api/internal/validation"
)

// ValidationService defines the interface for workbook validation
type ValidationService interface {
	ValidateFiles(ctx context.Context, workbookPath, schemaPath string, opts validation.Options) (*models.Result, error)
	CreateValidationJob(ctx context.Context, req *models.ValidationRequest) (*models.Job, error)
	ProcessValidation(ctx context.Context, job *models.Job) error
}

// ReportService defines the interface for error report downloads
type ReportService interface {
	StreamErrors(ctx context.Context, w http.ResponseWriter, jobID, format string) error
}

// JobService defines the interface for job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error)
	GetJobCounts(ctx context.Context) (map[models.JobStatus]int, error)
	SetValidationService(validationService ValidationService)
}

// Services holds all service interfaces
type Services struct {
	Validation ValidationService
	Report     ReportService
	Job        JobService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	engine := validation.NewEngine(validation.DefaultRegistry(), log)

	jobSvc := newJobService(repos.Job, cfg.Validation, log)
	validationSvc := newValidationService(repos, engine, cfg, log)
	reportSvc := newReportService(repos, log)

	// Wire up job processor to validation service
	jobSvc.SetValidationService(validationSvc)

	return &Services{
		Validation: validationSvc,
		Report:     reportSvc,
		Job:        jobSvc,
	}
}
