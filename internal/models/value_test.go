package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbook-validation-api/internal/models"
)

func TestValue_FromAny(t *testing.T) {
	ts := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		kind models.Kind
		str  string
	}{
		{"nil", nil, models.KindNull, ""},
		{"bool", true, models.KindBool, "true"},
		{"string", "abc", models.KindText, "abc"},
		{"float", 1.5, models.KindNumber, "1.5"},
		{"int", 42, models.KindNumber, "42"},
		{"json number", json.Number("7"), models.KindNumber, "7"},
		{"time", ts, models.KindDate, "2024-03-05T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := models.FromAny(tt.in)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.str, v.String())
		})
	}
}

func TestValue_EqualIsStrict(t *testing.T) {
	assert.True(t, models.Number(1).Equal(models.Number(1)))
	assert.False(t, models.Number(1).Equal(models.Text("1")))
	assert.False(t, models.Bool(true).Equal(models.Text("true")))
	assert.True(t, models.Null().Equal(models.Value{}))
	assert.NotEqual(t, models.Number(1).Key(), models.Text("1").Key())
}

func TestValue_JSON(t *testing.T) {
	in := []models.Value{models.Null(), models.Bool(false), models.Number(2.5), models.Text("x")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `[null,false,2.5,"x"]`, string(data))

	var out []models.Value
	require.NoError(t, json.Unmarshal(data, &out))
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "index %d", i)
	}

	var v models.Value
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestValidationError_OmitsNullValue(t *testing.T) {
	data, err := json.Marshal(models.ValidationError{
		Code:    models.CodeSheetMissing,
		Message: "missing",
		Sheet:   "Users",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"SHEET_MISSING","message":"missing","sheet":"Users"}`, string(data))

	data, err = json.Marshal(models.ValidationError{
		Code:  models.CodeTypeMismatch,
		Sheet: "Users",
		Row:   3,
		Value: models.Text("abc"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"TYPE_MISMATCH","message":"","sheet":"Users","row":3,"value":"abc"}`, string(data))
}

func TestOutputRow_JSON(t *testing.T) {
	row := models.OutputRow{
		RowNumber: 2,
		Values:    map[string]models.Value{"email": models.Text("a@b.co"), "age": models.Number(30)},
	}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rowNumber":2,"email":"a@b.co","age":30}`, string(data))

	var back models.OutputRow
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2, back.RowNumber)
	assert.True(t, back.Values["age"].Equal(models.Number(30)))
}

func TestResult_Helpers(t *testing.T) {
	r := &models.Result{Errors: []models.ValidationError{
		{Code: models.CodeRuleUnique, Sheet: "A"},
		{Code: models.CodeRuleUnique, Sheet: "B"},
		{Code: models.CodeMinRows, Sheet: "A"},
	}}
	counts := r.CountByCode()
	assert.Equal(t, 2, counts[models.CodeRuleUnique])
	assert.Equal(t, 1, counts[models.CodeMinRows])
	assert.Len(t, r.ErrorsForSheet("A"), 2)
}
