package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/coerce"
	"github.com/workbook-validation-api/internal/models"
)

// RuleContext is everything a rule sees when it runs against one sheet
type RuleContext struct {
	Sheet  string
	Rows   []models.Row
	Params json.RawMessage

	// SheetRows looks up the materialized rows of any sheet in the workbook
	SheetRows func(name string) ([]models.Row, bool)
	// Resolve maps a column ref on the current sheet to its header
	Resolve func(ref string) string
	// ResolveOn maps a column ref on another sheet to its header
	ResolveOn func(sheet, ref string) string

	Log zerolog.Logger
}

// RuleEvaluator evaluates one rule kind
type RuleEvaluator interface {
	Evaluate(ctx *RuleContext) []models.ValidationError
}

// RuleFunc adapts a plain function to RuleEvaluator
type RuleFunc func(ctx *RuleContext) []models.ValidationError

func (f RuleFunc) Evaluate(ctx *RuleContext) []models.ValidationError {
	return f(ctx)
}

// Registry maps rule names to evaluators. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]RuleEvaluator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]RuleEvaluator)}
}

// DefaultRegistry returns a registry holding every built-in rule
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("unique", RuleFunc(uniqueRule))
	r.Register("mutuallyExclusive", RuleFunc(mutuallyExclusiveRule))
	r.Register("conditionalRequired", RuleFunc(conditionalRequiredRule))
	r.Register("conditionalEnum", RuleFunc(conditionalEnumRule))
	r.Register("atLeastOneRequired", RuleFunc(atLeastOneRequiredRule))
	r.Register("allOrNone", RuleFunc(allOrNoneRule))
	r.Register("dateOrder", RuleFunc(dateOrderRule))
	r.Register("references", RuleFunc(referencesRule))
	return r
}

// Register adds or replaces the evaluator for a rule name
func (r *Registry) Register(name string, rule RuleEvaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[name] = rule
}

// Lookup returns the evaluator for a rule name
func (r *Registry) Lookup(name string) (RuleEvaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// Names lists registered rule names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RowRule builds a caller-defined rule that checks each row on its own.
// check returns an empty string for a valid row, otherwise the message of
// the RULE_CUSTOM error to raise.
func RowRule(check func(row models.Row) string) RuleEvaluator {
	return RuleFunc(func(ctx *RuleContext) []models.ValidationError {
		var errs []models.ValidationError
		for idx, row := range ctx.Rows {
			if msg := check(row); msg != "" {
				errs = append(errs, rowError(ctx, models.CodeRuleCustom, idx, row, "", msg))
			}
		}
		return errs
	})
}

// decodeParams parses the rule parameters into out. Missing or malformed
// parameters are logged and disable the rule for this sheet.
func decodeParams(ctx *RuleContext, rule string, out any) bool {
	if len(ctx.Params) == 0 || string(ctx.Params) == "null" {
		return false
	}
	if err := json.Unmarshal(ctx.Params, out); err != nil {
		ctx.Log.Warn().
			Err(err).
			Str("rule", rule).
			Str("sheet", ctx.Sheet).
			Msg("Ignoring rule with invalid parameters")
		return false
	}
	return true
}

func (ctx *RuleContext) resolve(ref string) string {
	if ctx.Resolve == nil {
		return ref
	}
	return ctx.Resolve(ref)
}

func (ctx *RuleContext) resolveOn(sheet, ref string) string {
	if ctx.ResolveOn == nil {
		return ref
	}
	return ctx.ResolveOn(sheet, ref)
}

func (ctx *RuleContext) resolveAll(refs []string) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ctx.resolve(ref)
	}
	return out
}

// rowError builds an error for the data row at idx, with a row snapshot
func rowError(ctx *RuleContext, code models.ErrorCode, idx int, row models.Row, column, msg string) models.ValidationError {
	return models.ValidationError{
		Code:    code,
		Message: msg,
		Sheet:   ctx.Sheet,
		Row:     RowNumber(idx),
		Column:  column,
		Tuple:   row.Clone(),
	}
}

func isBlank(v models.Value) bool {
	return coerce.IsBlank(v)
}

// condition is the {column, equals} clause shared by the conditional rules
type condition struct {
	Column string          `json:"column"`
	Equals json.RawMessage `json:"equals"`
}

func (c condition) value() models.Value {
	if len(c.Equals) == 0 {
		return models.Null()
	}
	var x any
	if err := json.Unmarshal(c.Equals, &x); err != nil {
		return models.Null()
	}
	return models.FromAny(x)
}

func (c condition) describe() string {
	return fmt.Sprintf("%s == %s", c.Column, c.value().String())
}

func joinRefs(refs []string) string {
	return "[" + strings.Join(refs, ", ") + "]"
}
