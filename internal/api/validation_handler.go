package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/config"
	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/schema"
	"github.com/workbook-validation-api/internal/service"
	"github.com/workbook-validation-api/internal/validation"
	"github.com/workbook-validation-api/internal/workbook"
)

var errBadUpload = errors.New("bad upload")

// ValidationHandler handles validation endpoints
type ValidationHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewValidationHandler creates a new ValidationHandler
func NewValidationHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ValidationHandler {
	return &ValidationHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "validation").Logger(),
	}
}

// uploads holds the saved inputs of one request
type uploads struct {
	dir          string
	workbookName string
	workbookPath string
	schemaPath   string
}

// saveUploads stores the workbook and schema of a multipart request under a
// fresh directory. The workbook keeps its original file name so CSV sheets
// are named after it.
func (h *ValidationHandler) saveUploads(c *gin.Context) (*uploads, error) {
	wbFile, wbHeader, err := c.Request.FormFile("workbook")
	if err != nil {
		return nil, fmt.Errorf("%w: workbook file is required", errBadUpload)
	}
	defer wbFile.Close()

	if wbHeader.Size > h.cfg.Validation.MaxUploadSize {
		return nil, fmt.Errorf("%w: file too large, max size is %d MB", errBadUpload, h.cfg.Validation.MaxUploadSize/(1024*1024))
	}

	name := filepath.Base(wbHeader.Filename)
	if !workbook.SupportedExtension(name) {
		return nil, fmt.Errorf("%w: unsupported workbook format %q", errBadUpload, filepath.Ext(name))
	}

	dir := filepath.Join(h.cfg.Validation.UploadDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	up := &uploads{dir: dir, workbookName: name, workbookPath: filepath.Join(dir, name)}
	if err := saveFile(wbFile, up.workbookPath); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := h.saveSchema(c, up); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return up, nil
}

// saveSchema accepts the schema as a file or as JSON text in a form field
func (h *ValidationHandler) saveSchema(c *gin.Context, up *uploads) error {
	file, header, err := c.Request.FormFile("schema")
	if err == nil {
		defer file.Close()
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".yaml" && ext != ".yml" {
			ext = ".json"
		}
		up.schemaPath = filepath.Join(up.dir, "schema"+ext)
		return saveFile(file, up.schemaPath)
	}

	text := c.PostForm("schema")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: schema file or schema field is required", errBadUpload)
	}
	up.schemaPath = filepath.Join(up.dir, "schema.json")
	if err := os.WriteFile(up.schemaPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("save schema: %w", err)
	}
	return nil
}

func saveFile(src multipart.File, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	return nil
}

// boolParam reads a boolean from the form or the query string
func boolParam(c *gin.Context, name string, def bool) bool {
	v := c.PostForm(name)
	if v == "" {
		v = c.Query(name)
	}
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (h *ValidationHandler) options(c *gin.Context) validation.Options {
	return validation.Options{
		ReturnData:        boolParam(c, "returnData", h.cfg.Validation.ReturnData),
		AllowExtraColumns: boolParam(c, "allowExtraColumns", h.cfg.Validation.AllowExtraColumns),
	}
}

// isInputError reports whether err was caused by the client's files
func isInputError(err error) bool {
	return errors.Is(err, errBadUpload) ||
		errors.Is(err, schema.ErrInvalidSchema) ||
		errors.Is(err, workbook.ErrUnsupportedFormat) ||
		errors.Is(err, workbook.ErrWorkbookLoad)
}

func (h *ValidationHandler) uploadFailed(c *gin.Context, err error) {
	if isInputError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.log.Error().Err(err).Msg("Failed to save upload")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save upload"})
}

// Validate handles POST /v1/validate
// Validates the uploaded workbook against the uploaded schema and returns the result
func (h *ValidationHandler) Validate(c *gin.Context) {
	up, err := h.saveUploads(c)
	if err != nil {
		h.uploadFailed(c, err)
		return
	}
	defer os.RemoveAll(up.dir)

	result, err := h.services.Validation.ValidateFiles(c.Request.Context(), up.workbookPath, up.schemaPath, h.options(c))
	if err != nil {
		if isInputError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("Validation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}

	h.log.Info().
		Str("workbook", up.workbookName).
		Bool("success", result.Success).
		Int("errors", len(result.Errors)).
		Msg("Workbook validated")

	c.JSON(http.StatusOK, result)
}

// CreateValidation handles POST /v1/validations
func (h *ValidationHandler) CreateValidation(c *gin.Context) {
	ctx := c.Request.Context()

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey != "" {
		existingJob, err := h.services.Job.GetJobByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existingJob != nil {
			h.log.Info().Str("job_id", existingJob.ID).Msg("Returning existing job for idempotency key")
			c.JSON(http.StatusOK, existingJob)
			return
		}
	}

	up, err := h.saveUploads(c)
	if err != nil {
		h.uploadFailed(c, err)
		return
	}

	opts := h.options(c)
	job, err := h.services.Validation.CreateValidationJob(ctx, &models.ValidationRequest{
		WorkbookName:      up.workbookName,
		WorkbookPath:      up.workbookPath,
		SchemaPath:        up.schemaPath,
		ReturnData:        opts.ReturnData,
		AllowExtraColumns: opts.AllowExtraColumns,
		IdempotencyKey:    idempotencyKey,
	})
	if err != nil {
		os.RemoveAll(up.dir)
		h.log.Error().Err(err).Msg("Failed to create validation job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create validation job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Validation job created and queued for processing",
	})
}

// getJob loads the job named by the path or writes the error response
func (h *ValidationHandler) getJob(c *gin.Context) *models.JobResponse {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required"})
		return nil
	}

	job, err := h.services.Job.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job status"})
		return nil
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return nil
	}
	return job
}

// GetValidation handles GET /v1/validations/:job_id
func (h *ValidationHandler) GetValidation(c *gin.Context) {
	if job := h.getJob(c); job != nil {
		c.JSON(http.StatusOK, job)
	}
}

// GetValidationErrors handles GET /v1/validations/:job_id/errors
func (h *ValidationHandler) GetValidationErrors(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatJSON)
	switch format {
	case service.FormatJSON, service.FormatNDJSON, service.FormatCSV, service.FormatXLSX:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, ndjson, csv, xlsx"})
		return
	}

	job := h.getJob(c)
	if job == nil {
		return
	}

	if err := h.services.Report.StreamErrors(c.Request.Context(), c.Writer, job.ID, format); err != nil {
		// Headers may already be sent, just log
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("Error report failed")
	}
}

// GetValidationResult handles GET /v1/validations/:job_id/result
func (h *ValidationHandler) GetValidationResult(c *gin.Context) {
	job := h.getJob(c)
	if job == nil {
		return
	}

	if job.ResultPath == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "result not available",
			"status": job.Status,
		})
		return
	}

	c.Header("Content-Type", "application/json")
	c.File(job.ResultPath)
}
