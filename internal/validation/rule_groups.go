package validation

import (
	"fmt"

	"github.com/workbook-validation-api/internal/models"
)

// mutuallyExclusiveRule allows at most one filled column per group
func mutuallyExclusiveRule(ctx *RuleContext) []models.ValidationError {
	var groups [][]string
	if !decodeParams(ctx, "mutuallyExclusive", &groups) {
		return nil
	}

	var errs []models.ValidationError
	for _, group := range groups {
		headers := ctx.resolveAll(group)
		for idx, row := range ctx.Rows {
			var filled []string
			for _, h := range headers {
				if !isBlank(row.Get(h)) {
					filled = append(filled, h)
				}
			}
			if len(filled) > 1 {
				errs = append(errs, rowError(ctx, models.CodeRuleMutuallyExclusive, idx, row, filled[0],
					fmt.Sprintf("Columns %s (resolved: %s) must be mutually exclusive. Found multiple filled: %s.",
						joinRefs(group), joinRefs(headers), joinRefs(filled))))
			}
		}
	}
	return errs
}

// atLeastOneRequiredRule needs one filled column per group
func atLeastOneRequiredRule(ctx *RuleContext) []models.ValidationError {
	var groups [][]string
	if !decodeParams(ctx, "atLeastOneRequired", &groups) {
		return nil
	}

	var errs []models.ValidationError
	for _, group := range groups {
		headers := ctx.resolveAll(group)
		for idx, row := range ctx.Rows {
			hasAny := false
			for _, h := range headers {
				if !isBlank(row.Get(h)) {
					hasAny = true
					break
				}
			}
			if !hasAny {
				errs = append(errs, rowError(ctx, models.CodeRuleAtLeastOneRequired, idx, row, "",
					fmt.Sprintf("At least one of %s is required (resolved: %s).", joinRefs(group), joinRefs(headers))))
			}
		}
	}
	return errs
}

// allOrNoneRule wants every column of a group filled, or none of them
func allOrNoneRule(ctx *RuleContext) []models.ValidationError {
	var groups [][]string
	if !decodeParams(ctx, "allOrNone", &groups) {
		return nil
	}

	var errs []models.ValidationError
	for _, group := range groups {
		headers := ctx.resolveAll(group)
		for idx, row := range ctx.Rows {
			var missing []string
			for _, h := range headers {
				if isBlank(row.Get(h)) {
					missing = append(missing, h)
				}
			}
			if len(missing) == 0 || len(missing) == len(headers) {
				continue
			}
			errs = append(errs, rowError(ctx, models.CodeRuleAllOrNone, idx, row, "",
				fmt.Sprintf("All-or-none violation. Either fill all or none of %s (resolved: %s). Missing: %s.",
					joinRefs(group), joinRefs(headers), joinRefs(missing))))
		}
	}
	return errs
}
