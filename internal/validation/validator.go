package validation

import (
	"fmt"
	"regexp"

	"github.com/workbook-validation-api/internal/coerce"
	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/schema"
)

// emailRegex rejects leading, trailing and consecutive dots in the local part
var emailRegex = regexp.MustCompile(`(?i)^[a-z0-9_+-]+(?:\.[a-z0-9_+-]+)*@(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// FirstDataRow is the worksheet row of the first data row; row 1 holds headers
const FirstDataRow = 2

// RowNumber converts a zero-based data row index to its worksheet row
func RowNumber(idx int) int {
	return idx + FirstDataRow
}

// IsValidEmail reports whether s looks like a deliverable email address
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// CellResult is the outcome of checking one cell
type CellResult struct {
	Value  models.Value
	Errors []models.ValidationError
}

// ValidateCell checks the cell of row under header against col. The returned
// value is the coerced value when coercion succeeded and the raw value
// otherwise; blank cells yield null.
func ValidateCell(sheet string, idx int, row models.Row, col *schema.Column, header string) CellResult {
	raw := row.Get(header)
	rowNum := RowNumber(idx)

	newError := func(code models.ErrorCode, msg string) models.ValidationError {
		return models.ValidationError{
			Code:    code,
			Message: msg,
			Sheet:   sheet,
			Row:     rowNum,
			Column:  col.Name,
			Value:   raw,
			Tuple:   row.Clone(),
		}
	}

	// Required check
	if coerce.IsBlank(raw) {
		if col.Required {
			e := newError(models.CodeRequiredCellEmpty, fmt.Sprintf("Row %d: Column %q is required.", rowNum, col.Name))
			e.Value = models.Null()
			return CellResult{Value: models.Null(), Errors: []models.ValidationError{e}}
		}
		return CellResult{Value: models.Null()}
	}

	// Coercions keep the raw value on failure so the type check reports it
	val := raw
	switch col.Type {
	case schema.TypeBoolean:
		if b, ok := coerce.Boolean(raw); ok {
			val = models.Bool(b)
		}
	case schema.TypeNumber:
		if n, ok := coerce.Number(raw); ok {
			val = models.Number(n)
		}
	}

	var errs []models.ValidationError
	switch col.Type {
	case schema.TypeEnum:
		if len(col.AllowedValues) > 0 && !contains(col.AllowedValues, val.String()) {
			errs = append(errs, newError(models.CodeInvalidEnum,
				fmt.Sprintf("Row %d: Invalid enum value %q for column %q.", rowNum, raw.String(), col.Name)))
		}

	case schema.TypeEmail:
		if !IsValidEmail(val.String()) {
			errs = append(errs, newError(models.CodeInvalidEmail,
				fmt.Sprintf("Row %d: Invalid email in column %q.", rowNum, col.Name)))
		}

	case schema.TypeNumber:
		if _, ok := val.Number(); !ok {
			errs = append(errs, newError(models.CodeTypeMismatch,
				fmt.Sprintf("Row %d: Expected number in %q.", rowNum, col.Name)))
		}

	case schema.TypeBoolean:
		if _, ok := val.Bool(); !ok {
			errs = append(errs, newError(models.CodeTypeMismatch,
				fmt.Sprintf("Row %d: Expected boolean in %q.", rowNum, col.Name)))
		}

	case schema.TypeDate:
		if d, ok := coerce.Date(val); ok {
			val = models.Text(coerce.DateISO(d))
		} else {
			errs = append(errs, newError(models.CodeTypeMismatch,
				fmt.Sprintf("Row %d: Expected date in %q.", rowNum, col.Name)))
		}

	case schema.TypeTime:
		if t, ok := coerce.TimeHHMMSS(val); ok {
			val = models.Text(t)
		} else {
			errs = append(errs, newError(models.CodeTypeMismatch,
				fmt.Sprintf("Row %d: Expected time (HH:MM or HH:MM:SS) in %q.", rowNum, col.Name)))
		}
	}

	return CellResult{Value: val, Errors: errs}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
