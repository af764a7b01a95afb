package repository

import (
	"context"

	"github.com/workbook-validation-api/internal/database"
	"github.com/workbook-validation-api/internal/models"
)

// JobRepository defines the interface for validation job persistence
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetPendingJobs(ctx context.Context, limit int) ([]*models.Job, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
	AddErrors(ctx context.Context, jobID string, errs []models.ValidationError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error)
	StreamErrors(ctx context.Context, jobID string, fn func(models.ValidationError) error) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Job JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Job: NewJobRepo(db),
	}
}
