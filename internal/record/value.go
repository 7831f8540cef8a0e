package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a sealed interface representing a field value in a record.
// Only Null, String, Number, Bool, Date, Array and Object implement it.
type Value interface {
	recordValue() // Sealed - only these types implement it
}

// Null represents an explicit null. Filters, sorts and groups treat it
// exactly like an absent field.
type Null struct{}

func (Null) recordValue() {}

// String is a string value. Enum fields hold String values too.
type String string

func (String) recordValue() {}

// Number is a numeric value. Integers and decimals share one representation.
type Number float64

func (Number) recordValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) recordValue() {}

// Date is a point in time.
type Date time.Time

func (Date) recordValue() {}

// Time returns the underlying time.Time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// Array is an ordered list of values. Arrays are never filterable leaves,
// but clause values for "between" and "in" are carried as arrays.
type Array []Value

func (Array) recordValue() {}

// Object is a nested mapping. Leaves inside it are addressed with dotted paths.
type Object map[string]Value

func (Object) recordValue() {}

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindDate
	KindString
	KindArray
	KindObject
)

var kindNames = map[Kind]string{
	KindMissing: "missing",
	KindNull:    "null",
	KindBool:    "bool",
	KindNumber:  "number",
	KindDate:    "date",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf returns the kind of v. A nil Value is KindMissing.
func KindOf(v Value) Kind {
	switch v.(type) {
	case nil:
		return KindMissing
	case Null:
		return KindNull
	case Bool:
		return KindBool
	case Number:
		return KindNumber
	case Date:
		return KindDate
	case String:
		return KindString
	case Array:
		return KindArray
	case Object:
		return KindObject
	default:
		return KindMissing
	}
}

// IsScalar reports whether v is a leaf value usable in filters, sorts and groups.
func IsScalar(v Value) bool {
	switch KindOf(v) {
	case KindBool, KindNumber, KindDate, KindString:
		return true
	default:
		return false
	}
}

// Equal reports whether a and b hold the same scalar value.
// Numbers compare numerically, dates by instant, strings byte-for-byte.
// Values of different kinds are never equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && float64(x) == float64(y)
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Date:
		y, ok := b.(Date)
		return ok && x.Time().Equal(y.Time())
	default:
		return false
	}
}

// Key returns the canonical string used to bucket a scalar value.
// Equal values always produce the same key. Non-scalar values return "".
func Key(v Value) string {
	switch x := v.(type) {
	case String:
		return string(x)
	case Number:
		return formatNumber(float64(x))
	case Bool:
		return strconv.FormatBool(bool(x))
	case Date:
		return x.Time().UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// TypedKey is Key prefixed with the value kind, so that String("1") and
// Number(1) land in different buckets.
func TypedKey(v Value) string {
	return KindOf(v).String() + ":" + Key(v)
}

// Text returns the human-readable string form used by free-text search.
// Dates without a clock component render as 2006-01-02.
func Text(v Value) string {
	switch x := v.(type) {
	case String:
		return string(x)
	case Number:
		return formatNumber(float64(x))
	case Bool:
		return strconv.FormatBool(bool(x))
	case Date:
		t := x.Time()
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	default:
		return ""
	}
}

// formatNumber renders a float with the shortest representation that
// round-trips. Negative zero is normalised to "0".
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// dateLayouts are tried in order when parsing date strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
}

// ParseDate parses an RFC 3339 timestamp, "2006-01-02 15:04:05" or a bare date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: want RFC 3339 or 2006-01-02", s)
}

// MustDate is like ParseDate but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
