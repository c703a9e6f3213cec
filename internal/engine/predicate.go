package engine

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/evently-demo/backend/internal/models"
)

// Op is a predicate operator.
type Op int

const (
	OpEq Op = iota
	OpIn
	// OpEqText and OpInText compare the stored value's text form with the
	// given strings, the way a query-string literal is cast to the column
	// type.
	OpEqText
	OpInText
)

// Predicate is one condition on one field.
type Predicate struct {
	Field  string
	Op     Op
	Value  any   // OpEq
	Values []any // OpIn
}

// Eq returns an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// In returns a set-membership predicate.
func In(field string, values []any) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: values}
}

// EqText returns a predicate comparing the field's text form with text.
func EqText(field, text string) Predicate {
	return Predicate{Field: field, Op: OpEqText, Value: text}
}

// InText returns a predicate matching any of texts against the field's text
// form.
func InText(field string, texts []string) Predicate {
	values := make([]any, len(texts))
	for i, t := range texts {
		values[i] = t
	}
	return Predicate{Field: field, Op: OpInText, Values: values}
}

// Matches reports whether row satisfies p.
func (p Predicate) Matches(row models.Record) bool {
	v, present := row[p.Field]
	switch p.Op {
	case OpEqText:
		return present && Text(v) == p.Value
	case OpInText:
		if !present {
			return false
		}
		t := Text(v)
		for _, want := range p.Values {
			if t == want {
				return true
			}
		}
		return false
	case OpIn:
		if !present {
			return false
		}
		for _, want := range p.Values {
			if Equal(v, want) {
				return true
			}
		}
		return false
	default:
		return present && Equal(v, p.Value)
	}
}

// MatchAll reports whether row satisfies every predicate. An empty set
// matches everything.
func MatchAll(row models.Record, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Matches(row) {
			return false
		}
	}
	return true
}

// Filter returns the rows matching every predicate, in storage order.
func Filter(rows []models.Record, preds []Predicate) []models.Record {
	out := make([]models.Record, 0, len(rows))
	for _, r := range rows {
		if MatchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

// Equal compares two JSON-shaped values. Numbers compare by value whatever
// their Go type, so Eq("price", 0) matches a stored 0.0.
func Equal(a, b any) bool {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values: numbers numerically, strings lexicographically,
// false before true, nil before anything else. Values of different kinds
// compare equal.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return cmp.Compare(af, bf)
		}
		return 0
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return 0
}

// Text renders a stored value the way it would appear in a query string.
func Text(v any) string {
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
