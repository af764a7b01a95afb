package validation

import (
	"fmt"

	"github.com/workbook-validation-api/internal/coerce"
	"github.com/workbook-validation-api/internal/models"
)

type dateOrderParams struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Message string `json:"message"`
}

// dateOrderRule requires end to fall strictly after start when both are set
func dateOrderRule(ctx *RuleContext) []models.ValidationError {
	var cfgs []dateOrderParams
	if !decodeParams(ctx, "dateOrder", &cfgs) {
		return nil
	}

	type pair struct {
		cfg        dateOrderParams
		start, end string
	}
	pairs := make([]pair, len(cfgs))
	for i, cfg := range cfgs {
		pairs[i] = pair{cfg: cfg, start: ctx.resolve(cfg.Start), end: ctx.resolve(cfg.End)}
	}

	var errs []models.ValidationError
	for idx, row := range ctx.Rows {
		for _, p := range pairs {
			startV, endV := row.Get(p.start), row.Get(p.end)
			if isBlank(startV) || isBlank(endV) {
				continue
			}

			start, okStart := coerce.Date(startV)
			end, okEnd := coerce.Date(endV)
			if !okStart || !okEnd {
				errs = append(errs, rowError(ctx, models.CodeRuleDateOrder, idx, row, "",
					fmt.Sprintf("Invalid date format in %q or %q.", p.start, p.end)))
				continue
			}

			if !end.After(start) {
				msg := p.cfg.Message
				if msg == "" {
					msg = fmt.Sprintf("End date %q must be after start date %q.", p.end, p.start)
				}
				errs = append(errs, rowError(ctx, models.CodeRuleDateOrder, idx, row, "", msg))
			}
		}
	}
	return errs
}
