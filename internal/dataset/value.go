package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

// Value is one cell of the record table.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func Null() Value { return Value{} }

// FromDriver converts a value scanned by database/sql into a Value.
// Numeric strings (NUMERIC columns come back as []byte from lib/pq) become numbers.
func FromDriver(src interface{}) Value {
	switch v := src.(type) {
	case nil:
		return Null()
	case int64:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int16:
		return Number(float64(v))
	case int8:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case uint32:
		return Number(float64(v))
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case bool:
		if v {
			return Number(1)
		}
		return Number(0)
	case []byte:
		return Parse(string(v))
	case string:
		return Parse(v)
	case time.Time:
		return Text(v.Format(time.RFC3339))
	default:
		return Parse(fmt.Sprint(src))
	}
}

// Parse returns a number when s parses as a float and text otherwise.
func Parse(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Text(s)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return finite(f)
	}
	return Text(s)
}

// finite maps NaN and the infinities to null so they never reach the binning
// and quantile code.
func finite(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Number(f)
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// Float returns the numeric value and whether the cell is numeric.
func (v Value) Float() (float64, bool) {
	return v.Num, v.Kind == KindNumber
}

// IsZero reports whether the cell is the number zero.
func (v Value) IsZero() bool {
	return v.Kind == KindNumber && v.Num == 0
}

// String is the display form used for category labels: 1 rather than 1.0.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// Interface returns the plain Go value: float64, string or nil.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Text
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Less orders numbers ascending, then text, then nulls.
func Less(a, b Value) bool {
	if a.Kind != b.Kind {
		return rank(a.Kind) < rank(b.Kind)
	}
	switch a.Kind {
	case KindNumber:
		return a.Num < b.Num
	case KindText:
		return a.Text < b.Text
	default:
		return false
	}
}

func rank(k Kind) int {
	switch k {
	case KindNumber:
		return 0
	case KindText:
		return 1
	default:
		return 2
	}
}
