package validation

import (
	"fmt"

	"github.com/workbook-validation-api/internal/models"
)

type referencesParams struct {
	Column       string `json:"column"`
	TargetSheet  string `json:"targetSheet"`
	TargetColumn string `json:"targetColumn"`
	Message      string `json:"message"`
}

// referencesRule checks that values in a column exist in a column of
// another sheet. A missing target sheet yields an empty reference set.
func referencesRule(ctx *RuleContext) []models.ValidationError {
	var cfgs []referencesParams
	if !decodeParams(ctx, "references", &cfgs) {
		return nil
	}

	var errs []models.ValidationError
	for _, cfg := range cfgs {
		srcHeader := ctx.resolve(cfg.Column)
		tgtHeader := ctx.resolveOn(cfg.TargetSheet, cfg.TargetColumn)

		allowed := make(map[string]bool)
		if ctx.SheetRows != nil {
			if targetRows, ok := ctx.SheetRows(cfg.TargetSheet); ok {
				for _, r := range targetRows {
					if v := r.Get(tgtHeader); !isBlank(v) {
						allowed[v.String()] = true
					}
				}
			}
		}

		for idx, row := range ctx.Rows {
			v := row.Get(srcHeader)
			if isBlank(v) || allowed[v.String()] {
				continue
			}

			msg := cfg.Message
			if msg == "" {
				msg = fmt.Sprintf("Value %q not found in %s.%s (resolved %q).", v.String(), cfg.TargetSheet, cfg.TargetColumn, tgtHeader)
			}
			e := rowError(ctx, models.CodeRuleReferenceNotFound, idx, row, srcHeader, msg)
			e.Value = v
			errs = append(errs, e)
		}
	}
	return errs
}
