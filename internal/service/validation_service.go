package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/workbook-validation-api/internal/config"
	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/repository"
	"github.com/workbook-validation-api/internal/schema"
	"github.com/workbook-validation-api/internal/validation"
	"github.com/workbook-validation-api/internal/workbook"
)

// validationService is the concrete implementation of ValidationService
type validationService struct {
	repos  *repository.Repositories
	engine *validation.Engine
	cfg    *config.Config
	log    zerolog.Logger
}

// newValidationService creates a new ValidationService
func newValidationService(repos *repository.Repositories, engine *validation.Engine, cfg *config.Config, log zerolog.Logger) *validationService {
	return &validationService{
		repos:  repos,
		engine: engine,
		cfg:    cfg,
		log:    log.With().Str("service", "validation").Logger(),
	}
}

// NewValidationService creates a ValidationService for callers outside this package
func NewValidationService(repos *repository.Repositories, engine *validation.Engine, cfg *config.Config, log zerolog.Logger) ValidationService {
	return newValidationService(repos, engine, cfg, log)
}

type runStats struct {
	sheets int
	rows   int
}

// inputs holds the fully loaded schema and workbook of one run
type inputs struct {
	schema   *schema.Workbook
	workbook *workbook.Workbook
}

// load reads the schema and the workbook in parallel. Both must be fully
// loaded before any validation starts.
func load(ctx context.Context, workbookPath, schemaPath string) (*inputs, error) {
	var in inputs
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		sch, err := schema.Load(schemaPath)
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
		in.schema = sch
		return nil
	})

	g.Go(func() error {
		wb, err := workbook.Open(workbookPath)
		if err != nil {
			return fmt.Errorf("load workbook: %w", err)
		}
		in.workbook = wb
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}

// ValidateFiles loads a workbook and a schema from disk and validates them
func (s *validationService) ValidateFiles(ctx context.Context, workbookPath, schemaPath string, opts validation.Options) (*models.Result, error) {
	result, _, err := s.run(ctx, workbookPath, schemaPath, opts)
	return result, err
}

func (s *validationService) run(ctx context.Context, workbookPath, schemaPath string, opts validation.Options) (*models.Result, runStats, error) {
	in, err := load(ctx, workbookPath, schemaPath)
	if err != nil {
		return nil, runStats{}, err
	}

	result := s.engine.Validate(in.workbook, in.schema, opts)
	return result, runStats{sheets: len(in.schema.Sheets), rows: in.workbook.RowCount()}, nil
}

// CreateValidationJob creates a new pending validation job
func (s *validationService) CreateValidationJob(ctx context.Context, req *models.ValidationRequest) (*models.Job, error) {
	job := &models.Job{
		ID:                uuid.New().String(),
		Status:            models.JobStatusPending,
		IdempotencyKey:    req.IdempotencyKey,
		WorkbookName:      req.WorkbookName,
		WorkbookPath:      req.WorkbookPath,
		SchemaPath:        req.SchemaPath,
		ReturnData:        req.ReturnData,
		AllowExtraColumns: req.AllowExtraColumns,
		CreatedAt:         time.Now(),
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("workbook", job.WorkbookName).
		Msg("Validation job created")

	return job, nil
}

// ProcessValidation runs a job to completion and stores its outcome.
// Schema or workbook load failures mark the job failed.
func (s *validationService) ProcessValidation(ctx context.Context, job *models.Job) error {
	startTime := time.Now()
	now := startTime
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	if err := s.repos.Job.Update(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job as processing")
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("workbook", job.WorkbookName).
		Msg("Starting validation")

	opts := validation.Options{
		AllowExtraColumns: job.AllowExtraColumns,
		ReturnData:        job.ReturnData,
	}
	result, stats, err := s.run(ctx, job.WorkbookPath, job.SchemaPath, opts)
	if err == nil {
		err = s.storeResult(ctx, job, result)
	}

	// Calculate metrics
	duration := time.Since(startTime)
	job.DurationMs = duration.Milliseconds()
	job.SheetCount = stats.sheets
	job.RowCount = stats.rows
	if stats.rows > 0 && duration.Seconds() > 0 {
		job.RowsPerSec = float64(stats.rows) / duration.Seconds()
	}

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = models.JobStatusFailed
		job.FailureReason = err.Error()
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Validation failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Bool("success", result.Success).
			Int("sheets", job.SheetCount).
			Int("rows", job.RowCount).
			Int("errors", job.ErrorCount).
			Int64("duration_ms", job.DurationMs).
			Float64("rows_per_sec", job.RowsPerSec).
			Msg("Validation completed")
	}

	if updateErr := s.repos.Job.Update(ctx, job); updateErr != nil {
		s.log.Error().Err(updateErr).Str("job_id", job.ID).Msg("Failed to update job")
		if err == nil {
			err = updateErr
		}
	}

	return err
}

// storeResult persists errors for paging and the full result as a JSON file
func (s *validationService) storeResult(ctx context.Context, job *models.Job, result *models.Result) error {
	if err := s.repos.Job.AddErrors(ctx, job.ID, result.Errors); err != nil {
		return fmt.Errorf("store errors: %w", err)
	}

	path, err := writeResultFile(s.cfg.Validation.ResultDir, job.ID, result)
	if err != nil {
		return err
	}

	success := result.Success
	job.Success = &success
	job.ErrorCount = len(result.Errors)
	job.ResultPath = path
	return nil
}

func writeResultFile(dir, jobID string, result *models.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}

	path := filepath.Join(dir, jobID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(result); err != nil {
		return "", fmt.Errorf("write result file: %w", err)
	}
	return path, nil
}
