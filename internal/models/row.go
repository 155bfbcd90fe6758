package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row is the loose column/value view of a record, as carried by change
// notifications and used for filter evaluation.
type Row map[string]any

// ToRow flattens a typed record into its JSON column view.
func ToRow(v any) Row {
	data, err := json.Marshal(v)
	if err != nil {
		return Row{}
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return Row{}
	}
	return row
}

// String returns the column as a string, or "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// CompareValues orders two column values. Times, numbers and strings are
// understood, including RFC 3339 strings compared against time.Time. The
// boolean is false when the values are not comparable.
func CompareValues(a, b any) (int, bool) {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			if ba == bb {
				return 0, true
			}
			return -1, true
		}
	}
	sa, okA := asString(a)
	sb, okB := asString(b)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case Amount:
		return x.Float64(), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	case RideStatus:
		return string(x), true
	case DriverStatus:
		return string(x), true
	case VerificationStatus:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}
