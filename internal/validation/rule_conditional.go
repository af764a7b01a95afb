package validation

import (
	"fmt"

	"github.com/workbook-validation-api/internal/models"
)

type conditionalRequiredParams struct {
	When         *condition `json:"when"`
	ThenRequired []string   `json:"thenRequired"`
}

// conditionalRequiredRule requires columns whenever a condition holds.
// The condition compares the raw cell with strict equality.
func conditionalRequiredRule(ctx *RuleContext) []models.ValidationError {
	var p conditionalRequiredParams
	if !decodeParams(ctx, "conditionalRequired", &p) || p.When == nil {
		return nil
	}

	condHeader := ctx.resolve(p.When.Column)
	want := p.When.value()
	required := ctx.resolveAll(p.ThenRequired)

	var errs []models.ValidationError
	for idx, row := range ctx.Rows {
		if !row.Get(condHeader).Equal(want) {
			continue
		}
		for _, h := range required {
			if isBlank(row.Get(h)) {
				errs = append(errs, rowError(ctx, models.CodeRuleConditionalRequired, idx, row, h,
					fmt.Sprintf("Column %q is required when %s.", h, p.When.describe())))
			}
		}
	}
	return errs
}

type conditionalEnumParams struct {
	If   condition `json:"if"`
	Then struct {
		Column        string   `json:"column"`
		AllowedValues []string `json:"allowedValues"`
	} `json:"then"`
}

// conditionalEnumRule restricts a column to a value set whenever a condition holds
func conditionalEnumRule(ctx *RuleContext) []models.ValidationError {
	var cfgs []conditionalEnumParams
	if !decodeParams(ctx, "conditionalEnum", &cfgs) {
		return nil
	}

	var errs []models.ValidationError
	for _, cfg := range cfgs {
		condHeader := ctx.resolve(cfg.If.Column)
		thenHeader := ctx.resolve(cfg.Then.Column)
		want := cfg.If.value()

		allowed := make(map[string]bool, len(cfg.Then.AllowedValues))
		for _, v := range cfg.Then.AllowedValues {
			allowed[v] = true
		}

		for idx, row := range ctx.Rows {
			if !row.Get(condHeader).Equal(want) {
				continue
			}

			v := row.Get(thenHeader)
			if isBlank(v) {
				errs = append(errs, rowError(ctx, models.CodeRuleConditionalEnum, idx, row, thenHeader,
					fmt.Sprintf("When %s, %s is required.", cfg.If.describe(), cfg.Then.Column)))
				continue
			}
			if !allowed[v.String()] {
				e := rowError(ctx, models.CodeRuleConditionalEnum, idx, row, thenHeader,
					fmt.Sprintf("When %s, %s must be one of %s.", cfg.If.describe(), cfg.Then.Column, joinRefs(cfg.Then.AllowedValues)))
				e.Value = v
				errs = append(errs, e)
			}
		}
	}
	return errs
}
