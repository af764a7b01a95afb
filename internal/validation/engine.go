// Package validation checks materialized workbook rows against a workbook
// schema: per-cell type checks first, then the schema's rules, sheet by sheet.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/schema"
	"github.com/workbook-validation-api/internal/workbook"
)

// Source supplies materialized sheets by name
type Source interface {
	Sheet(name string) (*workbook.Sheet, bool)
}

// Options tunes one validation call
type Options struct {
	// AllowExtraColumns silences the warning logged for undeclared headers.
	// Undeclared headers are never reported as errors.
	AllowExtraColumns bool
	// ReturnData fills Result.Data with the coerced rows of every sheet
	ReturnData bool
}

// Engine runs validations. It holds no per-call state, so one Engine can
// serve concurrent calls.
type Engine struct {
	registry *Registry
	log      zerolog.Logger
}

// NewEngine creates an engine. A nil registry means DefaultRegistry.
func NewEngine(registry *Registry, log zerolog.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{
		registry: registry,
		log:      log.With().Str("component", "validation_engine").Logger(),
	}
}

// Validate runs a validation with the default rules and no logging
func Validate(src Source, sch *schema.Workbook, opts Options) *models.Result {
	return NewEngine(nil, zerolog.Nop()).Validate(src, sch, opts)
}

// Validate checks every sheet of the schema, in declaration order
func (e *Engine) Validate(src Source, sch *schema.Workbook, opts Options) *models.Result {
	result := &models.Result{Errors: []models.ValidationError{}}
	if opts.ReturnData {
		result.Data = make(map[string][]models.OutputRow)
	}

	resolver := schema.NewResolver(sch)
	sheetRows := func(name string) ([]models.Row, bool) {
		s, ok := src.Sheet(name)
		if !ok {
			return nil, false
		}
		return s.Rows, true
	}

	for i := range sch.Sheets {
		def := &sch.Sheets[i]
		sheet, ok := src.Sheet(def.Tabname)
		if !ok {
			if def.Required {
				result.Errors = append(result.Errors, models.ValidationError{
					Code:    models.CodeSheetMissing,
					Message: fmt.Sprintf("Missing required sheet: %s", def.Tabname),
					Sheet:   def.Tabname,
				})
			}
			e.log.Debug().Str("sheet", def.Tabname).Bool("required", def.Required).Msg("Sheet not found")
			continue
		}

		before := len(result.Errors)
		rows := e.validateSheet(def, sheet, resolver, sheetRows, opts, &result.Errors)
		if opts.ReturnData {
			result.Data[def.Tabname] = rows
		}

		e.log.Debug().
			Str("sheet", def.Tabname).
			Int("rows", len(sheet.Rows)).
			Int("errors", len(result.Errors)-before).
			Msg("Sheet validated")
	}

	result.Success = len(result.Errors) == 0
	return result
}

func (e *Engine) validateSheet(
	def *schema.Sheet,
	sheet *workbook.Sheet,
	resolver *schema.Resolver,
	sheetRows func(string) ([]models.Row, bool),
	opts Options,
	errs *[]models.ValidationError,
) []models.OutputRow {
	rows := sheet.Rows

	if len(rows) < def.MinRows {
		*errs = append(*errs, models.ValidationError{
			Code:    models.CodeMinRows,
			Message: fmt.Sprintf("Sheet %q must have at least %d rows", def.Tabname, def.MinRows),
			Sheet:   def.Tabname,
		})
	}

	headers := presentHeaders(sheet)

	var missing []string
	for _, c := range def.Columns {
		if c.Required && !headers[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		*errs = append(*errs, models.ValidationError{
			Code:    models.CodeRequiredColumnMissing,
			Message: fmt.Sprintf("Sheet %q missing required columns: %s", def.Tabname, strings.Join(missing, ", ")),
			Sheet:   def.Tabname,
		})
	}

	if !opts.AllowExtraColumns {
		if extras := undeclared(def, headers); len(extras) > 0 {
			e.log.Warn().Str("sheet", def.Tabname).Strs("columns", extras).Msg("Sheet has undeclared columns")
		}
	}

	// Column checks
	out := make([]models.OutputRow, 0, len(rows))
	for idx, row := range rows {
		values := make(map[string]models.Value, len(def.Columns))
		for ci := range def.Columns {
			col := &def.Columns[ci]
			res := ValidateCell(def.Tabname, idx, row, col, col.Name)
			*errs = append(*errs, res.Errors...)
			values[col.Key] = res.Value
		}
		out = append(out, models.OutputRow{RowNumber: RowNumber(idx), Values: values})
	}

	// Rules, in declared order
	for _, rule := range def.Rules {
		evaluator, ok := e.registry.Lookup(rule.Name)
		if !ok {
			e.log.Debug().Str("sheet", def.Tabname).Str("rule", rule.Name).Msg("Skipping unknown rule")
			continue
		}
		ctx := &RuleContext{
			Sheet:     def.Tabname,
			Rows:      rows,
			Params:    rule.Params,
			SheetRows: sheetRows,
			Resolve:   resolver.For(def.Tabname),
			ResolveOn: resolver.Resolve,
			Log:       e.log,
		}
		*errs = append(*errs, evaluator.Evaluate(ctx)...)
	}

	return out
}

// presentHeaders is the header set of a sheet, falling back to row keys when
// the sheet carries no header row
func presentHeaders(sheet *workbook.Sheet) map[string]bool {
	set := make(map[string]bool)
	if sheet.Headers != nil {
		for _, h := range sheet.Headers {
			set[h] = true
		}
		return set
	}
	if len(sheet.Rows) > 0 {
		for h := range sheet.Rows[0] {
			set[h] = true
		}
	}
	return set
}

func undeclared(def *schema.Sheet, headers map[string]bool) []string {
	var extras []string
	for h := range headers {
		if !def.HasHeader(h) {
			extras = append(extras, h)
		}
	}
	sort.Strings(extras)
	return extras
}
