package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/models"
)

func txt(s string) models.Value { return models.Text(s) }
func num(n float64) models.Value { return models.Number(n) }

func runRule(t *testing.T, name, params string, rows []models.Row, others map[string][]models.Row) []models.ValidationError {
	t.Helper()

	rule, ok := DefaultRegistry().Lookup(name)
	if !ok {
		t.Fatalf("rule %q not registered", name)
	}

	ctx := &RuleContext{
		Sheet:  "Sheet",
		Rows:   rows,
		Params: json.RawMessage(params),
		SheetRows: func(name string) ([]models.Row, bool) {
			r, ok := others[name]
			return r, ok
		},
		Resolve: func(ref string) string {
			if ref == "logicalKey" {
				return "Physical Header"
			}
			return ref
		},
		ResolveOn: func(sheet, ref string) string {
			if sheet == "Targets" && ref == "code" {
				return "Code"
			}
			return ref
		},
		Log: zerolog.Nop(),
	}
	return rule.Evaluate(ctx)
}

func rowsOf(errs []models.ValidationError) []int {
	out := make([]int, len(errs))
	for i, e := range errs {
		out[i] = e.Row
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUniqueRule(t *testing.T) {
	rows := []models.Row{
		{"id": num(1)},
		{"id": num(2)},
		{"id": num(2)},
		{"id": models.Null()},
		{"id": num(2)},
	}

	errs := runRule(t, "unique", `["id"]`, rows, nil)
	if got := rowsOf(errs); !equalInts(got, []int{4, 6}) {
		t.Fatalf("rows = %v, want [4 6]", got)
	}
	for _, e := range errs {
		if e.Code != models.CodeRuleUnique || e.Column != "id" {
			t.Errorf("unexpected error %+v", e)
		}
		if !strings.Contains(e.Message, "first seen at row 3") {
			t.Errorf("message should name the first row: %s", e.Message)
		}
	}
}

func TestUniqueRule_ObjectParamsAndKinds(t *testing.T) {
	rows := []models.Row{
		{"Physical Header": num(1)},
		{"Physical Header": txt("1")},
		{"Physical Header": txt("  ")},
		{"Physical Header": txt("  ")},
	}

	errs := runRule(t, "unique", `{"columns": ["logicalKey"]}`, rows, nil)
	if len(errs) != 0 {
		t.Fatalf("number 1 and text \"1\" are distinct and blanks are ignored, got %+v", errs)
	}

	rows = append(rows, models.Row{"Physical Header": txt("1")})
	errs = runRule(t, "unique", `{"columns": ["logicalKey"]}`, rows, nil)
	if len(errs) != 1 || errs[0].Row != 6 || errs[0].Column != "Physical Header" {
		t.Fatalf("unexpected errors %+v", errs)
	}
}

func TestMutuallyExclusiveRule(t *testing.T) {
	rows := []models.Row{
		{"a": txt("x"), "b": models.Null()},
		{"a": txt("x"), "b": txt("y")},
		{"a": models.Null(), "b": models.Null()},
	}

	errs := runRule(t, "mutuallyExclusive", `[["a", "b"]]`, rows, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
	if errs[0].Row != 3 || errs[0].Column != "a" || errs[0].Code != models.CodeRuleMutuallyExclusive {
		t.Errorf("unexpected error %+v", errs[0])
	}
}

func TestAtLeastOneRequiredRule(t *testing.T) {
	rows := []models.Row{
		{"phone": txt("123")},
		{"phone": txt(" "), "Physical Header": models.Null()},
		{"Physical Header": txt("x")},
	}

	errs := runRule(t, "atLeastOneRequired", `[["phone", "logicalKey"]]`, rows, nil)
	if got := rowsOf(errs); !equalInts(got, []int{3}) {
		t.Fatalf("rows = %v, want [3]", got)
	}
	if !strings.Contains(errs[0].Message, "Physical Header") {
		t.Errorf("message should list resolved headers: %s", errs[0].Message)
	}
}

func TestAllOrNoneRule(t *testing.T) {
	rows := []models.Row{
		{"street": txt("Main"), "city": txt("Oslo"), "zip": txt("0150")},
		{"street": models.Null(), "city": models.Null(), "zip": models.Null()},
		{"street": txt("Main"), "city": models.Null(), "zip": models.Null()},
	}

	errs := runRule(t, "allOrNone", `[["street", "city", "zip"]]`, rows, nil)
	if len(errs) != 1 || errs[0].Row != 4 {
		t.Fatalf("unexpected errors %+v", errs)
	}
	if !strings.Contains(errs[0].Message, "Missing: [city, zip]") {
		t.Errorf("message should list missing members: %s", errs[0].Message)
	}
}

func TestConditionalRequiredRule(t *testing.T) {
	rows := []models.Row{
		{"status": txt("closed"), "closedAt": models.Null(), "reason": txt("done")},
		{"status": txt("open"), "closedAt": models.Null()},
		{"status": txt("closed"), "closedAt": txt("2024-01-01"), "reason": txt("x")},
	}

	errs := runRule(t, "conditionalRequired",
		`{"when": {"column": "status", "equals": "closed"}, "thenRequired": ["closedAt", "reason"]}`, rows, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
	if errs[0].Row != 2 || errs[0].Column != "closedAt" || errs[0].Code != models.CodeRuleConditionalRequired {
		t.Errorf("unexpected error %+v", errs[0])
	}
}

func TestConditionalRequiredRule_StrictEquality(t *testing.T) {
	rows := []models.Row{
		{"flag": num(1), "detail": models.Null()},
		{"flag": txt("1"), "detail": models.Null()},
	}

	errs := runRule(t, "conditionalRequired",
		`{"when": {"column": "flag", "equals": 1}, "thenRequired": ["detail"]}`, rows, nil)
	if got := rowsOf(errs); !equalInts(got, []int{2}) {
		t.Fatalf("only the numeric cell should match, rows = %v", got)
	}
}

func TestConditionalEnumRule(t *testing.T) {
	rows := []models.Row{
		{"country": txt("US"), "state": txt("CA")},
		{"country": txt("US"), "state": models.Null()},
		{"country": txt("US"), "state": txt("XX")},
		{"country": txt("NO"), "state": txt("XX")},
	}

	errs := runRule(t, "conditionalEnum",
		`[{"if": {"column": "country", "equals": "US"}, "then": {"column": "state", "allowedValues": ["CA", "NY"]}}]`, rows, nil)
	if got := rowsOf(errs); !equalInts(got, []int{3, 4}) {
		t.Fatalf("rows = %v, want [3 4]", got)
	}
	if !strings.Contains(errs[0].Message, "is required") {
		t.Errorf("blank value should report required: %s", errs[0].Message)
	}
	if !strings.Contains(errs[1].Message, "must be one of [CA, NY]") || !errs[1].Value.Equal(txt("XX")) {
		t.Errorf("unexpected error %+v", errs[1])
	}
}

func TestDateOrderRule(t *testing.T) {
	params := `[{"start": "start", "end": "end"}]`

	tests := []struct {
		name       string
		start, end models.Value
		wantErrors int
		wantInMsg  string
	}{
		{"end before start", txt("2024-01-10"), txt("2024-01-09"), 1, "must be after"},
		{"end after start", txt("2024-01-09"), txt("2024-01-10"), 0, ""},
		{"equal dates", txt("2024-01-09"), txt("2024-01-09"), 1, "must be after"},
		{"blank start", models.Null(), txt("2024-01-09"), 0, ""},
		{"blank end", txt("2024-01-09"), txt(" "), 0, ""},
		{"serial numbers", num(45356), num(45357), 0, ""},
		{"invalid date", txt("soon"), txt("2024-01-09"), 1, "Invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []models.Row{{"start": tt.start, "end": tt.end}}
			errs := runRule(t, "dateOrder", params, rows, nil)
			if len(errs) != tt.wantErrors {
				t.Fatalf("expected %d errors, got %+v", tt.wantErrors, errs)
			}
			if tt.wantErrors > 0 && !strings.Contains(errs[0].Message, tt.wantInMsg) {
				t.Errorf("message %q should contain %q", errs[0].Message, tt.wantInMsg)
			}
		})
	}
}

func TestDateOrderRule_CustomMessage(t *testing.T) {
	rows := []models.Row{{"from": txt("2024-02-01"), "to": txt("2024-01-01")}}
	errs := runRule(t, "dateOrder", `[{"start": "from", "end": "to", "message": "Trip ends before it starts"}]`, rows, nil)
	if len(errs) != 1 || errs[0].Message != "Trip ends before it starts" {
		t.Fatalf("unexpected errors %+v", errs)
	}
}

func TestReferencesRule(t *testing.T) {
	targets := map[string][]models.Row{
		"Targets": {{"Code": txt("A")}, {"Code": txt("B")}, {"Code": models.Null()}},
	}
	params := `[{"column": "ref", "targetSheet": "Targets", "targetColumn": "code"}]`

	rows := []models.Row{
		{"ref": txt("C")},
		{"ref": txt("A")},
		{"ref": models.Null()},
	}

	errs := runRule(t, "references", params, rows, targets)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
	e := errs[0]
	if e.Code != models.CodeRuleReferenceNotFound || e.Row != 2 || e.Column != "ref" || !e.Value.Equal(txt("C")) {
		t.Errorf("unexpected error %+v", e)
	}
}

func TestReferencesRule_MissingTargetSheet(t *testing.T) {
	rows := []models.Row{{"ref": txt("A")}, {"ref": txt("B")}}
	errs := runRule(t, "references",
		`[{"column": "ref", "targetSheet": "Nowhere", "targetColumn": "id", "message": "unknown ref"}]`, rows, nil)
	if len(errs) != 2 || errs[0].Message != "unknown ref" {
		t.Fatalf("every value should be reported, got %+v", errs)
	}
}

func TestRules_MalformedParamsAreIgnored(t *testing.T) {
	rows := []models.Row{{"a": txt("x")}, {"a": txt("x")}}

	for _, name := range DefaultRegistry().Names() {
		t.Run(name, func(t *testing.T) {
			if errs := runRule(t, name, `"not the right shape"`, rows, nil); len(errs) != 0 {
				t.Errorf("expected no errors, got %+v", errs)
			}
			if errs := runRule(t, name, ``, rows, nil); len(errs) != 0 {
				t.Errorf("expected no errors for empty params, got %+v", errs)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	want := []string{"allOrNone", "atLeastOneRequired", "conditionalEnum", "conditionalRequired", "dateOrder", "mutuallyExclusive", "references", "unique"}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", got, want)
	}

	if _, ok := r.Lookup("noSuchRule"); ok {
		t.Error("unexpected rule")
	}

	r.Register("positive", RowRule(func(row models.Row) string {
		if n, ok := row.Get("amount").Number(); ok && n <= 0 {
			return "amount must be positive"
		}
		return ""
	}))
	rule, ok := r.Lookup("positive")
	if !ok {
		t.Fatal("custom rule not registered")
	}

	errs := rule.Evaluate(&RuleContext{
		Sheet: "S",
		Rows:  []models.Row{{"amount": num(5)}, {"amount": num(-1)}},
		Log:   zerolog.Nop(),
	})
	if len(errs) != 1 || errs[0].Code != models.CodeRuleCustom || errs[0].Row != 3 {
		t.Fatalf("unexpected errors %+v", errs)
	}
}
