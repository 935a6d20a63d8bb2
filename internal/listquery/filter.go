package listquery

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filter compiles descriptors into bound predicates combined with AND.
// Nothing is appended when any descriptor is invalid.
func (q Query) Filter(filters ...FilterDescriptor) (Query, error) {
	c := q.clone()
	for _, f := range filters {
		pred, ok, err := q.compile(f)
		if err != nil {
			return q, err
		}
		if ok {
			c.where = append(c.where, pred)
		}
	}
	return c, nil
}

func (q Query) compile(f FilterDescriptor) (fragment, bool, error) {
	col, ok := q.schema.Columns[f.Field]
	if !ok {
		return fragment{}, false, fmt.Errorf("%w: %q", ErrInvalidFilterField, f.Field)
	}
	if col.Join != "" && !q.hasJoin(col.Join) {
		return fragment{}, false, fmt.Errorf("%w: field %q needs %q", ErrUnresolvedJoinReference, f.Field, col.Join)
	}

	op := f.Operator
	if op == "" {
		op = OpEq
	}
	if err := checkOperator(op, col.Type); err != nil {
		return fragment{}, false, fmt.Errorf("field %q: %w", f.Field, err)
	}

	switch op {
	case OpIn:
		values := asList(f.Value)
		if values == nil {
			// a scalar is a one-element set; nil fails coercion below
			values = []any{f.Value}
		}
		if len(values) == 0 {
			return fragment{}, false, nil
		}
		args := make([]any, 0, len(values))
		for _, v := range values {
			arg, err := coerce(col.Type, v)
			if err != nil {
				return fragment{}, false, fmt.Errorf("field %q: %w", f.Field, err)
			}
			args = append(args, arg)
		}
		marks := Marks(len(args))
		return fragment{sql: fmt.Sprintf("%s IN (%s)", col.Expr, marks), args: args}, true, nil

	case OpNull:
		isNull, err := coerce(Bool, f.Value)
		if err != nil {
			return fragment{}, false, fmt.Errorf("field %q: %w", f.Field, err)
		}
		if isNull.(bool) {
			return fragment{sql: col.Expr + " IS NULL"}, true, nil
		}
		return fragment{sql: col.Expr + " IS NOT NULL"}, true, nil

	case OpLike:
		term, err := coerce(Text, f.Value)
		if err != nil {
			return fragment{}, false, fmt.Errorf("field %q: %w", f.Field, err)
		}
		pattern := ContainsPattern(term.(string))
		return fragment{sql: q.dialect.ContainsFold(col.Expr), args: []any{pattern}}, true, nil
	}

	if asList(f.Value) != nil {
		return fragment{}, false, fmt.Errorf("%w: field %q takes a single value for %s", ErrInvalidFilterValue, f.Field, op)
	}
	arg, err := coerce(col.Type, f.Value)
	if err != nil {
		return fragment{}, false, fmt.Errorf("field %q: %w", f.Field, err)
	}
	sym := map[Operator]string{OpEq: "=", OpNe: "<>", OpGte: ">=", OpLte: "<="}[op]
	return fragment{sql: fmt.Sprintf("%s %s ?", col.Expr, sym), args: []any{arg}}, true, nil
}

func checkOperator(op Operator, t Type) error {
	switch op {
	case OpEq, OpNe, OpIn, OpNull:
		return nil
	case OpGte, OpLte:
		if t == Bool || t == UUID {
			return fmt.Errorf("%w: %s on %s column", ErrInvalidOperator, op, t)
		}
		return nil
	case OpLike:
		if t != Text {
			return fmt.Errorf("%w: %s on %s column", ErrInvalidOperator, op, t)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

// asList returns the elements of a slice value and nil for scalars.
func asList(v any) []any {
	if v == nil {
		return nil
	}
	switch list := v.(type) {
	case []any:
		if list == nil {
			return []any{}
		}
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// coerce converts loosely typed input (JSON, YAML, query strings) into the
// Go value bound for a column of type t.
func coerce(t Type, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: null", ErrInvalidFilterValue)
	}
	switch t {
	case Text:
		switch val := v.(type) {
		case string:
			return val, nil
		case fmt.Stringer:
			return val.String(), nil
		case bool, int, int32, int64, float32, float64, json.Number:
			return fmt.Sprint(val), nil
		}
	case Number:
		var f float64
		switch val := v.(type) {
		case int:
			return int64(val), nil
		case int32:
			return int64(val), nil
		case int64:
			return val, nil
		case float32:
			f = float64(val)
		case float64:
			f = val
		case json.Number:
			parsed, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidFilterValue, val)
			}
			f = parsed
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidFilterValue, val)
			}
			f = parsed
		default:
			return nil, fmt.Errorf("%w: %T is not a number", ErrInvalidFilterValue, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %v is not a finite number", ErrInvalidFilterValue, f)
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case Time:
		switch val := v.(type) {
		case time.Time:
			return val, nil
		case string:
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, strings.TrimSpace(val)); err == nil {
					return ts, nil
				}
			}
			return nil, fmt.Errorf("%w: %q is not a date", ErrInvalidFilterValue, val)
		}
	case Bool:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidFilterValue, val)
			}
			return parsed, nil
		case json.Number:
			parsed, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidFilterValue, val)
			}
			return parsed != 0, nil
		case float64:
			return val != 0, nil
		case int:
			return val != 0, nil
		case int64:
			return val != 0, nil
		}
	case UUID:
		switch val := v.(type) {
		case uuid.UUID:
			return val.String(), nil
		case string:
			parsed, err := uuid.Parse(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a uuid", ErrInvalidFilterValue, val)
			}
			return parsed.String(), nil
		}
	}
	return nil, fmt.Errorf("%w: %T for %s column", ErrInvalidFilterValue, v, t)
}
