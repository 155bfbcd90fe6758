package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a CFA monetary value. Rows coming from the store may carry
// numbers, numeric strings, nulls or garbage; anything that is not a finite
// number decodes to zero.
type Amount float64

// ParseAmount applies the same leniency as decoding.
func ParseAmount(v any) Amount {
	switch x := v.(type) {
	case nil:
		return 0
	case Amount:
		return x.finite()
	case float64:
		return Amount(x).finite()
	case float32:
		return Amount(x).finite()
	case int:
		return Amount(x)
	case int64:
		return Amount(x)
	case int32:
		return Amount(x)
	case json.Number:
		return ParseAmount(x.String())
	case []byte:
		return ParseAmount(string(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return Amount(f).finite()
	}
	return 0
}

func (a Amount) finite() Amount {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return a
}

// Float64 returns the amount as a finite float.
func (a Amount) Float64() float64 {
	return float64(a.finite())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*a = 0
		return nil
	}
	*a = ParseAmount(raw)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float64())
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	*a = ParseAmount(src)
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.Float64(), nil
}
