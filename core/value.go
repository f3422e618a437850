package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a float64, a string or nil.
type Value = any

type Row map[string]Value

func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

func TypeOf(v Value) ColumnType {
	switch v.(type) {
	case float64:
		return NumberType
	case string:
		return TextType
	default:
		return UnknownType
	}
}

// Normalize converts a caller supplied argument into a Value.
func Normalize(arg any) (Value, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, EvalErrorf(ErrUnsupportedArgument, "unsupported argument type %T", arg)
	}
}

func ToNumber(v Value) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, EvalErrorf(ErrNotNumeric, "value %q is not numeric", n)
		}
		return f, nil
	default:
		return 0, EvalErrorf(ErrNotNumeric, "value %v is not numeric", v)
	}
}

func ToText(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return FormatNumber(t)
	default:
		return fmt.Sprint(v)
	}
}

func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Coerce converts v for storage in a column of type t.
func Coerce(v Value, t ColumnType) (Value, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case NumberType:
		n, err := ToNumber(v)
		if err != nil {
			return nil, SchemaErrorf(ErrIncompatibleType, "value %q is incompatible with %s", ToText(v), t)
		}
		return n, nil
	case TextType, DateType:
		return ToText(v), nil
	default:
		return v, nil
	}
}

// Compare orders two non-NULL values: numerically when both are numbers,
// as text otherwise. ok is false when either side is NULL.
func Compare(a, b Value) (c int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if x, isNum := a.(float64); isNum {
		if y, isNum := b.(float64); isNum {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	}
	return strings.Compare(ToText(a), ToText(b)), true
}

// Order is a total order over values with NULL first.
func Order(a, b Value) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	c, _ := Compare(a, b)
	return c
}

func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// Key encodes values into a string usable as a map key; numbers and text never collide.
func Key(values ...Value) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0)
		}
		switch t := v.(type) {
		case nil:
			b.WriteByte('N')
		case float64:
			b.WriteByte('F')
			b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		default:
			b.WriteByte('S')
			b.WriteString(ToText(t))
		}
	}
	return b.String()
}
