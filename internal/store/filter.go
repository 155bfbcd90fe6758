package store

import (
	"reflect"

	"github.com/chachabrian/mooveit-admin/internal/models"
)

// Match reports whether row satisfies every filter. Rows missing a filtered
// column never match.
func Match(row models.Row, filters []Filter) bool {
	for _, f := range filters {
		if !f.match(row) {
			return false
		}
	}
	return true
}

func (f Filter) match(row models.Row) bool {
	v, ok := row[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return equal(v, f.Value)
	case OpNeq:
		return !equal(v, f.Value)
	case OpIn:
		for _, candidate := range toSlice(f.Value) {
			if equal(v, candidate) {
				return true
			}
		}
		return false
	case OpGte:
		c, ok := models.CompareValues(v, f.Value)
		return ok && c >= 0
	case OpLte:
		c, ok := models.CompareValues(v, f.Value)
		return ok && c <= 0
	}
	return false
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, ok := models.CompareValues(a, b)
	return ok && c == 0
}

func toSlice(v any) []any {
	if vs, ok := v.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
