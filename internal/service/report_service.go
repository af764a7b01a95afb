package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/repository"
)

// Supported error report formats
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
)

// ErrUnsupportedFormat is returned for unknown report formats
var ErrUnsupportedFormat = errors.New("unsupported format")

var reportHeader = []string{"code", "sheet", "row", "column", "message", "value"}

// reportService is the concrete implementation of ReportService
type reportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newReportService creates a new ReportService
func newReportService(repos *repository.Repositories, log zerolog.Logger) *reportService {
	return &reportService{
		repos: repos,
		log:   log.With().Str("service", "report").Logger(),
	}
}

// NewReportService creates a ReportService for callers outside this package
func NewReportService(repos *repository.Repositories, log zerolog.Logger) ReportService {
	return newReportService(repos, log)
}

// StreamErrors streams all errors of a job in the requested format
func (s *reportService) StreamErrors(ctx context.Context, w http.ResponseWriter, jobID, format string) error {
	s.log.Info().Str("job_id", jobID).Str("format", format).Msg("Starting error report")

	switch format {
	case FormatJSON, "":
		return s.streamJSON(ctx, w, jobID)
	case FormatNDJSON:
		return s.streamNDJSON(ctx, w, jobID)
	case FormatCSV:
		return s.streamCSV(ctx, w, jobID)
	case FormatXLSX:
		return s.streamXLSX(ctx, w, jobID)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func attachment(w http.ResponseWriter, contentType, jobID, ext string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=errors-"+jobID+"."+ext)
}

func (s *reportService) streamJSON(ctx context.Context, w http.ResponseWriter, jobID string) error {
	attachment(w, "application/json", jobID, "json")

	w.Write([]byte("["))
	first := true

	err := s.repos.Job.StreamErrors(ctx, jobID, func(e models.ValidationError) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

func (s *reportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, jobID string) error {
	attachment(w, "application/x-ndjson", jobID, "ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Job.StreamErrors(ctx, jobID, func(e models.ValidationError) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Str("job_id", jobID).Msg("Error report completed")
	return err
}

func (s *reportService) streamCSV(ctx context.Context, w http.ResponseWriter, jobID string) error {
	attachment(w, "text/csv", jobID, "csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(reportHeader); err != nil {
		return err
	}

	return s.repos.Job.StreamErrors(ctx, jobID, func(e models.ValidationError) error {
		return writer.Write(reportRecord(e))
	})
}

func (s *reportService) streamXLSX(ctx context.Context, w http.ResponseWriter, jobID string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Errors"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", toCells(reportHeader)); err != nil {
		return err
	}

	row := 2
	err = s.repos.Job.StreamErrors(ctx, jobID, func(e models.ValidationError) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return sw.SetRow(cell, toCells(reportRecord(e)))
	})
	if err != nil {
		return err
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", jobID, "xlsx")
	_, err = f.WriteTo(w)
	return err
}

// reportRecord flattens an error into one report line
func reportRecord(e models.ValidationError) []string {
	row := ""
	if e.Row > 0 {
		row = strconv.Itoa(e.Row)
	}
	value := ""
	if !e.Value.IsNull() {
		value = e.Value.String()
	}
	return []string{string(e.Code), e.Sheet, row, e.Column, e.Message, value}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
