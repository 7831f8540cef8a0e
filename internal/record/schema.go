package record

import (
	"fmt"
	"slices"
	"strings"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeDate   FieldType = "date"
	TypeEnum   FieldType = "enum"
	TypeObject FieldType = "object"
	TypeArray  FieldType = "array"
)

// ValidTypes lists every accepted field type.
var ValidTypes = []FieldType{TypeString, TypeNumber, TypeBool, TypeDate, TypeEnum, TypeObject, TypeArray}

// ParseFieldType converts a type name into a FieldType.
// "boolean" and "int"/"float" are accepted as aliases.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString, nil
	case "number", "int", "float":
		return TypeNumber, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "date", "datetime", "timestamp":
		return TypeDate, nil
	case "enum":
		return TypeEnum, nil
	case "object":
		return TypeObject, nil
	case "array":
		return TypeArray, nil
	default:
		return "", fmt.Errorf("invalid field type %q: must be one of %v", s, ValidTypes)
	}
}

// Scalar reports whether fields of this type are filterable leaves.
func (t FieldType) Scalar() bool {
	switch t {
	case TypeString, TypeNumber, TypeBool, TypeDate, TypeEnum:
		return true
	default:
		return false
	}
}

// Ordered reports whether greaterThan, lessThan and between apply.
func (t FieldType) Ordered() bool {
	return t == TypeNumber || t == TypeDate
}

// Textual reports whether contains applies.
func (t FieldType) Textual() bool {
	return t == TypeString || t == TypeEnum
}

// Accepts reports whether a value of kind k belongs to this type.
func (t FieldType) Accepts(k Kind) bool {
	switch t {
	case TypeString, TypeEnum:
		return k == KindString
	case TypeNumber:
		return k == KindNumber
	case TypeBool:
		return k == KindBool
	case TypeDate:
		return k == KindDate
	case TypeObject:
		return k == KindObject
	case TypeArray:
		return k == KindArray
	default:
		return false
	}
}

// Field describes one field of a record.
type Field struct {
	Name   string    `json:"name" yaml:"name"`
	Type   FieldType `json:"type" yaml:"type"`
	Values []string  `json:"values,omitempty" yaml:"values,omitempty"` // Allowed values for enum fields
}

// Allows reports whether s is a member of the enum set.
// Non-enum fields allow everything.
func (f Field) Allows(s string) bool {
	if f.Type != TypeEnum {
		return true
	}
	return slices.Contains(f.Values, s)
}

// Schema is an ordered set of field descriptions.
// A nil *Schema knows no fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema, rejecting duplicate names, unknown types and
// enum fields without values.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field name is required")
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		t, err := ParseFieldType(string(f.Type))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		f.Type = t
		if t == TypeEnum && len(f.Values) == 0 {
			return nil, fmt.Errorf("field %q: enum requires at least one value", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	return slices.Clone(s.fields)
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// InferSchema derives a schema from records. Fields appear in first-seen
// order (keys within a record in canonical order); the first non-null value
// decides a field's type. Nested objects contribute dotted leaf paths.
// Strings are never inferred as enums or dates.
func InferSchema(records []Record) *Schema {
	s := &Schema{index: make(map[string]int)}
	for _, r := range records {
		inferObject(s, "", Object(r))
	}
	return s
}

func inferObject(s *Schema, prefix string, obj Object) {
	for _, k := range obj.SortedKeys() {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		v := obj[k]
		if nested, ok := v.(Object); ok {
			inferObject(s, name, nested)
			continue
		}
		if _, seen := s.index[name]; seen {
			continue
		}
		var t FieldType
		switch KindOf(v) {
		case KindString:
			t = TypeString
		case KindNumber:
			t = TypeNumber
		case KindBool:
			t = TypeBool
		case KindDate:
			t = TypeDate
		case KindArray:
			t = TypeArray
		default:
			continue
		}
		s.index[name] = len(s.fields)
		s.fields = append(s.fields, Field{Name: name, Type: t})
	}
}
