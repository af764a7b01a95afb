package models

import (
	"encoding/json"
)

// ErrorCode identifies the kind of validation failure. The set is stable
// and part of the result contract.
type ErrorCode string

const (
	CodeSheetMissing            ErrorCode = "SHEET_MISSING"
	CodeMinRows                 ErrorCode = "MIN_ROWS"
	CodeRequiredColumnMissing   ErrorCode = "REQUIRED_COLUMN_MISSING"
	CodeRequiredCellEmpty       ErrorCode = "REQUIRED_CELL_EMPTY"
	CodeInvalidEnum             ErrorCode = "INVALID_ENUM"
	CodeInvalidEmail            ErrorCode = "INVALID_EMAIL"
	CodeTypeMismatch            ErrorCode = "TYPE_MISMATCH"
	CodeRuleUnique              ErrorCode = "RULE_UNIQUE"
	CodeRuleMutuallyExclusive   ErrorCode = "RULE_MUTUALLY_EXCLUSIVE"
	CodeRuleConditionalRequired ErrorCode = "RULE_CONDITIONAL_REQUIRED"
	CodeRuleAtLeastOneRequired  ErrorCode = "RULE_AT_LEAST_ONE_REQUIRED"
	CodeRuleConditionalEnum     ErrorCode = "RULE_CONDITIONAL_ENUM"
	CodeRuleDateOrder           ErrorCode = "RULE_DATE_ORDER"
	CodeRuleReferenceNotFound   ErrorCode = "RULE_REFERENCE_NOT_FOUND"
	CodeRuleAllOrNone           ErrorCode = "RULE_ALL_OR_NONE"
	CodeRuleCustom              ErrorCode = "RULE_CUSTOM"
)

// ErrorCodes lists every code in contract order
var ErrorCodes = []ErrorCode{
	CodeSheetMissing, CodeMinRows, CodeRequiredColumnMissing, CodeRequiredCellEmpty,
	CodeInvalidEnum, CodeInvalidEmail, CodeTypeMismatch, CodeRuleUnique,
	CodeRuleMutuallyExclusive, CodeRuleConditionalRequired, CodeRuleAtLeastOneRequired,
	CodeRuleConditionalEnum, CodeRuleDateOrder, CodeRuleReferenceNotFound,
	CodeRuleAllOrNone, CodeRuleCustom,
}

// ValidationError represents a single validation failure.
// Row is the 1-based worksheet row; 0 means the error is not row-specific.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Sheet   string    `json:"sheet"`
	Row     int       `json:"row,omitempty"`
	Column  string    `json:"column,omitempty"`
	Value   Value     `json:"value,omitzero"`
	Tuple   Row       `json:"tuple,omitempty"`
}

// OutputRow is one normalized data row keyed by logical column key
type OutputRow struct {
	RowNumber int
	Values    map[string]Value
}

func (o OutputRow) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(o.Values)+1)
	for k, v := range o.Values {
		flat[k] = v
	}
	flat["rowNumber"] = o.RowNumber
	return json.Marshal(flat)
}

func (o *OutputRow) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	o.Values = make(map[string]Value, len(flat))
	for k, raw := range flat {
		if k == "rowNumber" {
			if err := json.Unmarshal(raw, &o.RowNumber); err != nil {
				return err
			}
			continue
		}
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		o.Values[k] = v
	}
	return nil
}

// Result is the outcome of one validation call
type Result struct {
	Success bool                   `json:"success"`
	Errors  []ValidationError      `json:"errors"`
	Data    map[string][]OutputRow `json:"data,omitempty"`
}

// CountByCode tallies errors per code
func (r *Result) CountByCode() map[ErrorCode]int {
	counts := make(map[ErrorCode]int)
	for _, e := range r.Errors {
		counts[e.Code]++
	}
	return counts
}

// ErrorsForSheet returns the errors raised against one sheet, in order
func (r *Result) ErrorsForSheet(sheet string) []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Sheet == sheet {
			out = append(out, e)
		}
	}
	return out
}
