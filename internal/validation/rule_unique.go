package validation

import (
	"encoding/json"
	"fmt"

	"github.com/workbook-validation-api/internal/models"
)

// uniqueParams accepts either a list of column refs or {"columns": [...]}
type uniqueParams []string

func (p *uniqueParams) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}
	var obj struct {
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unique expects a list of columns: %w", err)
	}
	*p = obj.Columns
	return nil
}

func uniqueRule(ctx *RuleContext) []models.ValidationError {
	var refs uniqueParams
	if !decodeParams(ctx, "unique", &refs) {
		return nil
	}

	var errs []models.ValidationError
	for _, ref := range refs {
		header := ctx.resolve(ref)
		firstSeen := make(map[string]int)

		for idx, row := range ctx.Rows {
			v := row.Get(header)
			if isBlank(v) {
				continue
			}
			key := v.Key()
			first, dup := firstSeen[key]
			if !dup {
				firstSeen[key] = idx
				continue
			}

			e := rowError(ctx, models.CodeRuleUnique, idx, row, header,
				fmt.Sprintf("Duplicate value %q in column %q (first seen at row %d).", v.String(), header, RowNumber(first)))
			e.Value = v
			errs = append(errs, e)
		}
	}
	return errs
}
