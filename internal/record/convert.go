package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FromAny converts a decoded Go value (from encoding/json, yaml.v3 or
// database/sql) into a Value. nil becomes Null.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case []byte:
		return String(string(val)), nil
	case bool:
		return Bool(val), nil
	case int:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case float32:
		return Number(float64(val)), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case time.Time:
		return Date(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			rv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = rv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			rv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = rv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// FromMap converts a decoded object into a Record, coercing each declared
// field to its schema type. Fields not in the schema are kept as decoded.
func FromMap(m map[string]any, schema *Schema) (Record, error) {
	r := make(Record, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		r[k] = v
	}
	if schema == nil {
		return r, nil
	}
	for _, f := range schema.fields {
		if !strings.Contains(f.Name, ".") {
			v, ok := r[f.Name]
			if !ok {
				continue
			}
			cv, err := Coerce(v, f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			r[f.Name] = cv
			continue
		}
		if err := coercePath(Object(r), strings.Split(f.Name, "."), f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func coercePath(obj Object, parts []string, f Field) error {
	v, ok := obj[parts[0]]
	if !ok {
		return nil
	}
	if len(parts) == 1 {
		cv, err := Coerce(v, f.Type)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		obj[parts[0]] = cv
		return nil
	}
	nested, ok := v.(Object)
	if !ok {
		return nil
	}
	return coercePath(nested, parts[1:], f)
}

// Coerce converts v to the representation used by fields of type t.
// Null passes through unchanged. Dates accept strings; bools accept 0/1
// numbers (SQLite stores booleans as integers); numbers accept numeric strings.
func Coerce(v Value, t FieldType) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	if _, ok := v.(Null); ok {
		return v, nil
	}
	if t.Accepts(KindOf(v)) {
		return v, nil
	}
	switch t {
	case TypeDate:
		if s, ok := v.(String); ok {
			return ParseDate(string(s))
		}
	case TypeBool:
		if n, ok := v.(Number); ok && (n == 0 || n == 1) {
			return Bool(n == 1), nil
		}
	case TypeNumber:
		if s, ok := v.(String); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", s)
			}
			return Number(f), nil
		}
	case TypeString, TypeEnum:
		if IsScalar(v) {
			return String(Text(v)), nil
		}
	}
	return nil, fmt.Errorf("cannot use %s value as %s", KindOf(v), t)
}

// ParseLiteral parses a literal from expression text into a value of the
// field's type. Quoted strings have their quotes removed.
func ParseLiteral(s string, f Field) (Value, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' && s[len(s)-1] == '\'' || s[0] == '"' && s[len(s)-1] == '"') {
		s = s[1 : len(s)-1]
	}
	switch f.Type {
	case TypeString, TypeEnum:
		return String(s), nil
	case TypeNumber:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid number %q", f.Name, s)
		}
		return Number(n), nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid bool %q", f.Name, s)
		}
		return Bool(b), nil
	case TypeDate:
		d, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("field %q: %s fields have no literal form", f.Name, f.Type)
	}
}
