package coerce

import (
	"math"
	"testing"
	"time"

	"github.com/workbook-validation-api/internal/models"
)

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name  string
		value models.Value
		want  bool
	}{
		{"null", models.Null(), true},
		{"empty text", models.Text(""), true},
		{"whitespace text", models.Text("  \t "), true},
		{"text", models.Text("x"), false},
		{"zero number", models.Number(0), false},
		{"false bool", models.Bool(false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlank(tt.value); got != tt.want {
				t.Errorf("IsBlank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoolean(t *testing.T) {
	for _, s := range []string{"true", "t", "1", "yes", "y", "si", "sí", " YES ", "True"} {
		got, ok := Boolean(models.Text(s))
		if !ok || !got {
			t.Errorf("Boolean(%q) = %v, %v; want true, true", s, got, ok)
		}
	}
	for _, s := range []string{"false", "f", "0", "no", "n", "NO"} {
		got, ok := Boolean(models.Text(s))
		if !ok || got {
			t.Errorf("Boolean(%q) = %v, %v; want false, true", s, got, ok)
		}
	}

	tests := []struct {
		name   string
		value  models.Value
		want   bool
		wantOK bool
	}{
		{"bool passes through", models.Bool(true), true, true},
		{"non-zero number", models.Number(2), true, true},
		{"zero number", models.Number(0), false, true},
		{"unknown word", models.Text("maybe"), false, false},
		{"null", models.Null(), false, false},
		{"date", models.Date(time.Now()), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Boolean(tt.value)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Boolean() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  models.Value
		want   float64
		wantOK bool
	}{
		{"finite number", models.Number(12.5), 12.5, true},
		{"infinite number", models.Number(math.Inf(1)), 0, false},
		{"plain text", models.Text("42"), 42, true},
		{"padded text", models.Text("  7.25 "), 7.25, true},
		{"thousands separator", models.Text("1,234.56"), 1234.56, true},
		{"european notation", models.Text("1.234,56"), 1234.56, true},
		{"european decimal only", models.Text("3,5"), 3.5, true},
		{"negative", models.Text("-10"), -10, true},
		{"scientific", models.Text("1e3"), 1000, true},
		{"garbage", models.Text("abc"), 0, false},
		{"empty", models.Text(""), 0, false},
		{"infinity text", models.Text("Infinity"), 0, false},
		{"bool", models.Bool(true), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("Number() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Number() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name    string
		value   models.Value
		wantISO string
		wantOK  bool
	}{
		{"serial one", models.Number(1), "1899-12-31", true},
		{"serial zero", models.Number(0), "1899-12-30", true},
		{"modern serial", models.Number(45356), "2024-03-05", true},
		{"serial with time", models.Number(45356.75), "2024-03-05", true},
		{"iso", models.Text("2024-03-05"), "2024-03-05", true},
		{"iso with time", models.Text("2024-03-05T23:30:00Z"), "2024-03-05", true},
		{"iso with offset", models.Text("2024-03-05T01:00:00+05:00"), "2024-03-05", true},
		{"slash is month first", models.Text("03/05/2024"), "2024-03-05", true},
		{"dot is day first", models.Text("05.03.2024"), "2024-03-05", true},
		{"month name", models.Text("Mar 5, 2024"), "2024-03-05", true},
		{"date value", models.Date(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)), "2024-03-05", true},
		{"invalid month", models.Text("13/05/2024"), "", false},
		{"garbage", models.Text("not a date"), "", false},
		{"bool", models.Bool(true), "", false},
		{"huge serial", models.Number(1e12), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("Date() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && DateISO(got) != tt.wantISO {
				t.Errorf("DateISO(Date()) = %q, want %q", DateISO(got), tt.wantISO)
			}
		})
	}
}

func TestFromSerialTimeOfDay(t *testing.T) {
	got, ok := FromSerial(45356.5)
	if !ok {
		t.Fatal("FromSerial() failed")
	}
	if got.Hour() != 12 || got.Minute() != 0 {
		t.Errorf("FromSerial(45356.5) = %v, want noon", got)
	}
}

func TestTimeHHMMSS(t *testing.T) {
	tests := []struct {
		name   string
		value  models.Value
		want   string
		wantOK bool
	}{
		{"half day", models.Number(0.5), "12:00:00", true},
		{"zero", models.Number(0), "00:00:00", true},
		{"quarter past six", models.Number(0.2604166667), "06:15:00", true},
		{"one is out of range", models.Number(1), "", false},
		{"negative", models.Number(-0.1), "", false},
		{"single digits", models.Text("9:5:3"), "09:05:03", true},
		{"hours and minutes", models.Text("14:30"), "14:30:00", true},
		{"padded", models.Text(" 07:08:09 "), "07:08:09", true},
		{"hour out of range", models.Text("24:00"), "", false},
		{"minute out of range", models.Text("10:60"), "", false},
		{"second out of range", models.Text("10:00:60"), "", false},
		{"not a time", models.Text("noon"), "", false},
		{"date value", models.Date(time.Date(2024, 1, 1, 8, 9, 10, 0, time.UTC)), "08:09:10", true},
		{"bool", models.Bool(false), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TimeHHMMSS(tt.value)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("TimeHHMMSS() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
