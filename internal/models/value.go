package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a single cell value: null, bool, number, text or date.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	t    time.Time
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number creates a numeric value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Text creates a text value
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Date creates a date value
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// FromAny converts a decoded JSON/YAML scalar or a Go primitive into a Value.
// Unsupported types are rendered as text.
func FromAny(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case bool:
		return Bool(v)
	case string:
		return Text(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Number(f)
		}
		return Text(v.String())
	case time.Time:
		return Date(v)
	default:
		return Text(fmt.Sprintf("%v", v))
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsZero reports whether v is null; used by the omitzero JSON option.
func (v Value) IsZero() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Number() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindDate }

// String renders the value the way it is compared against allowed values
// and reference sets. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindText:
		return v.s
	case KindDate:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal is strict equality: both kind and payload must match.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Key returns a kind-qualified identity, so the number 1 and the text "1"
// are distinct map keys.
func (v Value) Key() string {
	if v.kind == KindDate {
		return fmt.Sprintf("%d:%d", v.kind, v.t.UnixNano())
	}
	return fmt.Sprintf("%d:%s", v.kind, v.String())
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.n)
	case KindText:
		return json.Marshal(v.s)
	case KindDate:
		return json.Marshal(v.t.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	switch x.(type) {
	case nil, bool, string, float64:
		*v = FromAny(x)
		return nil
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if math.IsNaN(n) {
		return "NaN"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Row maps a physical header to its raw cell value
type Row map[string]Value

// Get returns the value under header, or null when the header is absent
func (r Row) Get(header string) Value {
	return r[header]
}

// Clone returns a shallow snapshot of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
