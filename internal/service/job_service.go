package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/config"
	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/repository"
)

const pollInterval = 2 * time.Second

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo           repository.JobRepository
	validationService ValidationService
	log               zerolog.Logger
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	running           bool
	mu                sync.Mutex
	previewLimit      int
	// Semaphore: buffered channel to limit concurrent validations
	sem chan struct{}
}

// newJobService creates a new JobService with a worker pool of cfg.Workers slots.
// Validation is CPU-bound once both inputs are loaded, so the pool stays small.
func newJobService(jobRepo repository.JobRepository, cfg config.ValidationConfig, log zerolog.Logger) *jobService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	log.Info().Int("max_workers", workers).Msg("Initializing job service worker pool")

	return &jobService{
		jobRepo:      jobRepo,
		log:          log.With().Str("service", "job").Logger(),
		previewLimit: cfg.ErrorPreviewLimit,
		sem:          make(chan struct{}, workers),
	}
}

// NewJobService creates a JobService for callers outside this package
func NewJobService(jobRepo repository.JobRepository, cfg config.ValidationConfig, log zerolog.Logger) JobService {
	return newJobService(jobRepo, cfg, log)
}

// SetValidationService sets the validation service for job processing
func (s *jobService) SetValidationService(validationService ValidationService) {
	s.validationService = validationService
}

// StartProcessor starts the background job processor. It blocks until ctx
// is cancelled or StopProcessor is called.
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Msg("Job processor started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Job processor stopping")
			return
		case <-ticker.C:
			s.processPendingJobs()
		}
	}
}

// StopProcessor stops the background job processor and waits for running jobs
func (s *jobService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Job processor stopped")
}

// processPendingJobs claims up to one batch of pending jobs
func (s *jobService) processPendingJobs() {
	jobs, err := s.jobRepo.GetPendingJobs(s.ctx, cap(s.sem))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending jobs")
		return
	}

	for _, job := range jobs {
		// Blocks while every worker is busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		marked, err := s.jobRepo.MarkJobAsProcessing(s.ctx, job.ID)
		if err != nil || !marked {
			<-s.sem
			continue // Another instance already picked it up
		}

		s.wg.Add(1)
		go func(j *models.Job) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Interface("panic", r).
						Str("job_id", j.ID).
						Msg("Job processing panicked - recovered")
					j.Status = models.JobStatusFailed
					j.FailureReason = "internal error"
					if err := s.jobRepo.Update(s.ctx, j); err != nil {
						s.log.Error().Err(err).Str("job_id", j.ID).Msg("Failed to mark job as failed")
					}
				}
			}()
			s.processJob(j)
		}(job)
	}
}

// processJob processes a single job
func (s *jobService) processJob(job *models.Job) {
	select {
	case <-s.ctx.Done():
		s.log.Warn().Str("job_id", job.ID).Msg("Job processing cancelled due to shutdown")
		return
	default:
	}

	if s.validationService == nil {
		s.log.Warn().Str("job_id", job.ID).Msg("No validation service configured")
		return
	}

	s.log.Info().Str("job_id", job.ID).Msg("Processing job")
	if err := s.validationService.ProcessValidation(s.ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Validation processing failed")
	}
}

// GetJob retrieves a job by ID with a preview of its errors
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	response := &models.JobResponse{Job: *job}

	if job.ErrorCount > 0 {
		errs, err := s.jobRepo.GetErrors(ctx, id, s.previewLimit)
		if err != nil {
			s.log.Error().Err(err).Str("job_id", id).Msg("Failed to get job errors")
		}
		response.Errors = errs
		response.ErrorReport = "/v1/validations/" + job.ID + "/errors"
	}

	if job.ResultPath != "" {
		response.ResultURL = "/v1/validations/" + job.ID + "/result"
	}

	return response, nil
}

// GetJobByIdempotencyKey retrieves a job by idempotency key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// GetJobErrors retrieves all validation errors for a job
func (s *jobService) GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return s.jobRepo.GetErrors(ctx, id, 0)
}

// GetJobCounts returns the number of jobs per status
func (s *jobService) GetJobCounts(ctx context.Context) (map[models.JobStatus]int, error) {
	return s.jobRepo.CountByStatus(ctx)
}
