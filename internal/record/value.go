package record

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tuannm99/coldb/internal/dberr"
)

// DateLayout is the literal format of DATE values.
const DateLayout = "2006-01-02"

// Canonical Go representations:
//
//	INTEGER int64, DOUBLE float64, STRING string, BOOLEAN bool,
//	DATE time.Time (UTC midnight), OBJECT []byte.
//
// NULL is nil for every type.

// Normalize converts v to the canonical representation of typ.
// nil passes through as NULL.
func Normalize(typ ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case ColInteger:
		if x, ok := asInt64(v); ok {
			return x, nil
		}
	case ColDouble:
		if x, ok := asFloat64(v); ok {
			if math.IsNaN(x) {
				return nil, fmt.Errorf("DOUBLE NaN: %w", dberr.ErrInvalidValue)
			}
			return x, nil
		}
	case ColString:
		if x, ok := v.(string); ok {
			return x, nil
		}
	case ColBoolean:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case ColDate:
		if x, ok := v.(time.Time); ok {
			return DateOf(x), nil
		}
	case ColObject:
		switch x := v.(type) {
		case []byte:
			cp := make([]byte, len(x))
			copy(cp, x)
			return cp, nil
		case string:
			return []byte(x), nil
		}
	default:
		return nil, fmt.Errorf("unknown column type %v: %w", typ, dberr.ErrInvalidValue)
	}
	return nil, fmt.Errorf("%T is not a %v value: %w", v, typ, dberr.ErrInvalidValue)
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse converts a literal to typ. Numbers use strconv, BOOLEAN accepts
// "true"/"false", DATE uses YYYY-MM-DD, STRING and OBJECT are taken verbatim.
func Parse(typ ColumnType, literal string) (any, error) {
	switch typ {
	case ColInteger:
		x, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse INTEGER %q: %w", literal, dberr.ErrInvalidValue)
		}
		return x, nil
	case ColDouble:
		x, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil || math.IsNaN(x) {
			return nil, fmt.Errorf("parse DOUBLE %q: %w", literal, dberr.ErrInvalidValue)
		}
		return x, nil
	case ColString:
		return literal, nil
	case ColBoolean:
		switch strings.ToLower(strings.TrimSpace(literal)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("parse BOOLEAN %q: %w", literal, dberr.ErrInvalidValue)
	case ColDate:
		x, err := time.Parse(DateLayout, strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("parse DATE %q: %w", literal, dberr.ErrInvalidValue)
		}
		return x, nil
	case ColObject:
		return []byte(literal), nil
	}
	return nil, fmt.Errorf("parse %q as %v: %w", literal, typ, dberr.ErrInvalidValue)
}

// TypeOf reports the column type of a canonical value.
func TypeOf(v any) (ColumnType, bool) {
	switch v.(type) {
	case int64:
		return ColInteger, true
	case float64:
		return ColDouble, true
	case string:
		return ColString, true
	case bool:
		return ColBoolean, true
	case time.Time:
		return ColDate, true
	case []byte:
		return ColObject, true
	}
	return 0, false
}

// Compare orders two non-NULL canonical values. INTEGER and DOUBLE compare
// numerically with each other; any other mix is ErrTypeMismatch.
func Compare(a, b any) (int, error) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), nil
		case float64:
			return cmp.Compare(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), nil
		case int64:
			return cmp.Compare(x, float64(y)), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("compare %T with %T: %w", a, b, dberr.ErrTypeMismatch)
}

// Equal reports whether two canonical values are equal. NULL equals only NULL.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// HashKey returns a comparable map key for a canonical value.
func HashKey(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Unix()
	case float64:
		// -0 and +0 share a key
		if x == 0 {
			return float64(0)
		}
		return x
	}
	return v
}

// Format renders a value for labels and logs.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(DateLayout)
	case []byte:
		return fmt.Sprintf("0x%x", x)
	}
	return fmt.Sprint(v)
}

// ---- small helpers to accept multiple numeric types ----
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
