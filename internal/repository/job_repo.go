package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/workbook-validation-api/internal/database"
	"github.com/workbook-validation-api/internal/models"
)

const jobColumns = `
	id, status, COALESCE(idempotency_key, '') AS idempotency_key, workbook_name, workbook_path,
	schema_path, return_data, allow_extra_columns, success, sheet_count, row_count, error_count,
	duration_ms, rows_per_sec, COALESCE(result_path, '') AS result_path,
	COALESCE(failure_reason, '') AS failure_reason, created_at, started_at, completed_at`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, status, idempotency_key, workbook_name, workbook_path, schema_path,
			return_data, allow_extra_columns, created_at)
		VALUES (:id, :status, :idempotency_key, :workbook_name, :workbook_path, :schema_path,
			:return_data, :allow_extra_columns, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]any{
		"id":                  job.ID,
		"status":              job.Status,
		"idempotency_key":     nullString(job.IdempotencyKey),
		"workbook_name":       job.WorkbookName,
		"workbook_path":       job.WorkbookPath,
		"schema_path":         job.SchemaPath,
		"return_data":         job.ReturnData,
		"allow_extra_columns": job.AllowExtraColumns,
		"created_at":          job.CreatedAt,
	})
	return err
}

// Update stores the job status and outcome
func (r *jobRepo) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs SET
			status = $1, success = $2, sheet_count = $3, row_count = $4, error_count = $5,
			duration_ms = $6, rows_per_sec = $7, result_path = $8, failure_reason = $9,
			started_at = $10, completed_at = $11
		WHERE id = $12
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.Success, job.SheetCount, job.RowCount, job.ErrorCount,
		job.DurationMs, job.RowsPerSec, nullString(job.ResultPath), nullString(job.FailureReason),
		job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = $1`, key)
}

func (r *jobRepo) getOne(ctx context.Context, query string, arg any) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetPendingJobs retrieves pending jobs, oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var jobs []*models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkJobAsProcessing atomically marks a pending job as processing
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CountByStatus returns the number of jobs per status
func (r *jobRepo) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	var rows []struct {
		Status models.JobStatus `db:"status"`
		Count  int              `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM jobs GROUP BY status`); err != nil {
		return nil, err
	}

	counts := make(map[models.JobStatus]int, len(models.JobStatuses))
	for _, s := range models.JobStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// AddErrors stores validation errors using the COPY protocol.
// Errors keep their result order through the seq column.
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, errs []models.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("job_errors",
		"job_id", "seq", "code", "sheet", "row_number", "column_name", "message", "value", "tuple",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range errs {
		value, tuple, err := encodeErrorPayload(e)
		if err != nil {
			return fmt.Errorf("encode error %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx,
			jobID, i, string(e.Code), e.Sheet, nullInt(e.Row), nullString(e.Column), e.Message, value, tuple,
		); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// jobErrorRow is the stored form of a validation error
type jobErrorRow struct {
	Code    string         `db:"code"`
	Sheet   string         `db:"sheet"`
	Row     sql.NullInt64  `db:"row_number"`
	Column  sql.NullString `db:"column_name"`
	Message string         `db:"message"`
	Value   []byte         `db:"value"`
	Tuple   []byte         `db:"tuple"`
}

func (row *jobErrorRow) toModel() (models.ValidationError, error) {
	e := models.ValidationError{
		Code:    models.ErrorCode(row.Code),
		Sheet:   row.Sheet,
		Row:     int(row.Row.Int64),
		Column:  row.Column.String,
		Message: row.Message,
	}
	if len(row.Value) > 0 {
		if err := json.Unmarshal(row.Value, &e.Value); err != nil {
			return e, err
		}
	}
	if len(row.Tuple) > 0 {
		if err := json.Unmarshal(row.Tuple, &e.Tuple); err != nil {
			return e, err
		}
	}
	return e, nil
}

// GetErrors retrieves validation errors for a job in result order.
// A limit of zero or less returns every error.
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error) {
	query := `SELECT code, sheet, row_number, column_name, message, value, tuple
		FROM job_errors WHERE job_id = $1 ORDER BY seq`
	args := []any{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []jobErrorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]models.ValidationError, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toModel()
		if err != nil {
			return nil, fmt.Errorf("decode error %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// StreamErrors calls fn for every stored error of a job in result order
func (r *jobRepo) StreamErrors(ctx context.Context, jobID string, fn func(models.ValidationError) error) error {
	rows, err := r.db.QueryxContext(ctx, `SELECT code, sheet, row_number, column_name, message, value, tuple
		FROM job_errors WHERE job_id = $1 ORDER BY seq`, jobID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row jobErrorRow
		if err := rows.StructScan(&row); err != nil {
			return err
		}
		e, err := row.toModel()
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func encodeErrorPayload(e models.ValidationError) (value, tuple any, err error) {
	if !e.Value.IsNull() {
		b, err := json.Marshal(e.Value)
		if err != nil {
			return nil, nil, err
		}
		value = string(b)
	}
	if e.Tuple != nil {
		b, err := json.Marshal(e.Tuple)
		if err != nil {
			return nil, nil, err
		}
		tuple = string(b)
	}
	return value, tuple, nil
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// helper to convert a zero row number to NULL
func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
