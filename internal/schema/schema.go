// Package schema describes the expected shape of a workbook: which sheets it
// holds, what columns each sheet carries and which rules apply to the rows.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ColumnType is the declared type of a column
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeEnum    ColumnType = "enum"
	TypeEmail   ColumnType = "email"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeTime    ColumnType = "time"
)

// ColumnTypes lists every supported column type
var ColumnTypes = []ColumnType{TypeString, TypeEnum, TypeEmail, TypeNumber, TypeBoolean, TypeDate, TypeTime}

// Column declares one column of a sheet
type Column struct {
	Name          string     `json:"name" yaml:"name" validate:"required"`
	Key           string     `json:"key" yaml:"key" validate:"required"`
	Required      bool       `json:"required" yaml:"required"`
	Type          ColumnType `json:"type" yaml:"type" validate:"oneof=string enum email number boolean date time"`
	AllowedValues []string   `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"`
}

// Sheet declares one sheet of the workbook
type Sheet struct {
	Tabname  string   `json:"tabname" yaml:"tabname" validate:"required"`
	Required bool     `json:"required" yaml:"required"`
	MinRows  int      `json:"minRows" yaml:"minRows" validate:"min=0"`
	Columns  []Column `json:"columns" yaml:"columns" validate:"unique=Key,dive"`
	Rules    RuleSet  `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// ColumnByKey finds a column by its output key
func (s *Sheet) ColumnByKey(key string) (*Column, bool) {
	for i := range s.Columns {
		if s.Columns[i].Key == key {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// HasHeader reports whether a header is declared on the sheet
func (s *Sheet) HasHeader(name string) bool {
	for _, c := range s.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Workbook is an ordered list of sheet declarations
type Workbook struct {
	Sheets []Sheet
}

// Sheet finds a sheet declaration by tabname
func (w *Workbook) Sheet(tabname string) (*Sheet, bool) {
	for i := range w.Sheets {
		if w.Sheets[i].Tabname == tabname {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the workbook schema as a JSON array
func (w Workbook) MarshalJSON() ([]byte, error) {
	if w.Sheets == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(w.Sheets)
}

// rawColumn and rawSheet use pointers so omitted fields can be defaulted
type rawColumn struct {
	Name          *string  `json:"name" yaml:"name"`
	Key           *string  `json:"key" yaml:"key"`
	Required      *bool    `json:"required" yaml:"required"`
	Type          *string  `json:"type" yaml:"type"`
	AllowedValues []string `json:"allowedValues" yaml:"allowedValues"`
}

type rawSheet struct {
	Tabname  *string      `json:"tabname" yaml:"tabname"`
	Required *bool        `json:"required" yaml:"required"`
	MinRows  *int         `json:"minRows" yaml:"minRows"`
	Columns  *[]rawColumn `json:"columns" yaml:"columns"`
	Rules    RuleSet      `json:"rules" yaml:"rules"`
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(enumColumnValidation, Column{})
	return v
}

// enumColumnValidation requires a non-empty value list on enum columns
func enumColumnValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(Column)
	if c.Type == TypeEnum && len(c.AllowedValues) == 0 {
		sl.ReportError(c.AllowedValues, "allowedValues", "AllowedValues", "required_for_enum", "")
	}
}

// Parse decodes a JSON workbook schema
func Parse(data []byte) (*Workbook, error) {
	var raw []rawSheet
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newParseError("", "", err)
	}
	return build(raw)
}

// ParseYAML decodes a YAML workbook schema with the same grammar as Parse
func ParseYAML(data []byte) (*Workbook, error) {
	var raw []rawSheet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newParseError("", "", err)
	}
	return build(raw)
}

// FromValue accepts an already-decoded schema value.
// Rule order of Go maps is not defined, so map input yields rules sorted by name.
func FromValue(v any) (*Workbook, error) {
	switch t := v.(type) {
	case *Workbook:
		if t == nil {
			return nil, newParseError("", "", errors.New("nil schema"))
		}
		return t, nil
	case []byte:
		return Parse(t)
	case string:
		return Parse([]byte(t))
	case json.RawMessage:
		return Parse(t)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, newParseError("", "", err)
	}
	return Parse(data)
}

// Load reads a schema file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func Load(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

func build(raw []rawSheet) (*Workbook, error) {
	if raw == nil {
		return nil, newParseError("", "", errors.New("schema must be an array of sheets"))
	}

	wb := &Workbook{Sheets: make([]Sheet, 0, len(raw))}
	for i, rs := range raw {
		label := fmt.Sprintf("#%d", i)
		if rs.Tabname != nil && *rs.Tabname != "" {
			label = *rs.Tabname
		}

		if rs.Columns == nil {
			return nil, newParseError(label, "columns", errors.New("is required"))
		}

		sheet := Sheet{
			Required: true,
			Columns:  make([]Column, 0, len(*rs.Columns)),
			Rules:    rs.Rules,
		}
		if rs.Tabname != nil {
			sheet.Tabname = *rs.Tabname
		}
		if rs.Required != nil {
			sheet.Required = *rs.Required
		}
		if rs.MinRows != nil {
			sheet.MinRows = *rs.MinRows
		}

		for j, rc := range *rs.Columns {
			if rc.Name == nil {
				return nil, newParseError(label, fmt.Sprintf("columns[%d].name", j), errors.New("is required"))
			}
			col := Column{
				Name:          *rc.Name,
				Key:           *rc.Name,
				Type:          TypeString,
				AllowedValues: rc.AllowedValues,
			}
			if rc.Key != nil && *rc.Key != "" {
				col.Key = *rc.Key
			}
			if rc.Required != nil {
				col.Required = *rc.Required
			}
			if rc.Type != nil {
				col.Type = ColumnType(*rc.Type)
			}
			sheet.Columns = append(sheet.Columns, col)
		}

		if err := validate.Struct(sheet); err != nil {
			return nil, fieldError(label, err)
		}

		wb.Sheets = append(wb.Sheets, sheet)
	}

	return wb, nil
}

// fieldError converts the first validator failure into a ParseError
func fieldError(label string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newParseError(label, "", err)
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Sheet.")

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "oneof":
		msg = fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "min":
		msg = fmt.Sprintf("must be at least %s", fe.Param())
	case "unique":
		msg = "column keys must be unique"
	case "required_for_enum":
		msg = "enum columns need at least one allowed value"
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}

	return newParseError(label, field, errors.New(msg))
}
