package schema

import (
	"errors"
	"fmt"
)

// ErrInvalidSchema indicates the schema does not match the workbook schema grammar
var ErrInvalidSchema = errors.New("invalid schema")

// ParseError describes why a schema was rejected.
// It matches ErrInvalidSchema with errors.Is.
type ParseError struct {
	Sheet string // tabname or "#index" when the tabname itself is unusable
	Field string // offending field path, if known
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Sheet != "" && e.Field != "":
		return fmt.Sprintf("invalid schema: sheet %s: %s: %v", e.Sheet, e.Field, e.Err)
	case e.Sheet != "":
		return fmt.Sprintf("invalid schema: sheet %s: %v", e.Sheet, e.Err)
	default:
		return fmt.Sprintf("invalid schema: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidSchema
}

func newParseError(sheet, field string, err error) *ParseError {
	return &ParseError{Sheet: sheet, Field: field, Err: err}
}
