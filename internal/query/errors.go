package query

import "fmt"

// Error represents a query that cannot run against a schema.
//
// Errors are raised when clauses and specs are built (NewClause, Validate,
// the Parse* helpers), never while records are being filtered.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Field is the schema field involved, if any.
	Field string

	// Operator is the filter operator involved, if any.
	Operator Operator

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// ErrCodeInvalidOperator: an operator applied to a field type it cannot handle.
	ErrCodeInvalidOperator ErrorCode = "INVALID_OPERATOR_FOR_TYPE"

	// ErrCodeUnknownField: the field is not in the schema.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeInvalidValue: a clause value does not fit the field or operator.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeUnknownOperator: the operator is not supported.
	ErrCodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeInvalidSearch: a search field is unknown or not searchable.
	ErrCodeInvalidSearch ErrorCode = "INVALID_SEARCH"

	// ErrCodeInvalidSort: a sort field or direction is unusable.
	ErrCodeInvalidSort ErrorCode = "INVALID_SORT"

	// ErrCodeInvalidGroup: a group field is unusable.
	ErrCodeInvalidGroup ErrorCode = "INVALID_GROUP"

	// ErrCodeInvalidAggregate: an aggregate spec is malformed.
	ErrCodeInvalidAggregate ErrorCode = "INVALID_AGGREGATE"

	// ErrCodeSyntax: an expression could not be parsed.
	ErrCodeSyntax ErrorCode = "SYNTAX"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Operator != "":
		return fmt.Sprintf("%s: %s (field=%s, op=%s)", e.Code, e.Message, e.Field, e.Operator)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// HasCode reports whether err is, or wraps, a query Error with the given code.
// Joined errors are searched member by member.
func HasCode(err error, code ErrorCode) bool {
	for _, e := range Errors(err) {
		if e.Code == code {
			return true
		}
	}
	return false
}

// IsInvalidOperator returns true if the error is an operator/type mismatch.
func IsInvalidOperator(err error) bool {
	return HasCode(err, ErrCodeInvalidOperator)
}

// IsUnknownField returns true if the error references a field missing from the schema.
func IsUnknownField(err error) bool {
	return HasCode(err, ErrCodeUnknownField)
}

// Errors flattens err into the query Errors it carries, following both
// single and joined wrapping.
func Errors(err error) []*Error {
	switch x := err.(type) {
	case nil:
		return nil
	case *Error:
		return []*Error{x}
	case interface{ Unwrap() []error }:
		var out []*Error
		for _, e := range x.Unwrap() {
			out = append(out, Errors(e)...)
		}
		return out
	case interface{ Unwrap() error }:
		return Errors(x.Unwrap())
	default:
		return nil
	}
}

func newError(code ErrorCode, field string, op Operator, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Field:    field,
		Operator: op,
		Message:  fmt.Sprintf(format, args...),
	}
}
