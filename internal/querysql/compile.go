// Package querysql compiles filter clauses to parameterized SQLite SQL.
//
// Pushdown is an optimization only: the engine re-applies every clause in
// memory, so a clause is pushed to SQL only when SQLite is guaranteed to keep
// every row the in-memory filter would keep. Anything else stays residual.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// Affinity is a SQLite column type affinity.
type Affinity string

const (
	AffinityText    Affinity = "TEXT"
	AffinityNumeric Affinity = "NUMERIC"
	AffinityInteger Affinity = "INTEGER"
	AffinityReal    Affinity = "REAL"
	AffinityBlob    Affinity = "BLOB"
)

// AffinityOf derives a column's affinity from its declared type using
// SQLite's rules (section 3.1 of the datatype documentation).
func AffinityOf(declType string) Affinity {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case t == "", strings.Contains(t, "BLOB"):
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

func (a Affinity) numeric() bool {
	return a == AffinityInteger || a == AffinityReal || a == AffinityNumeric
}

// Statement is a compiled SELECT.
type Statement struct {
	SQL    string
	Params []any

	// Pushed are the clauses compiled into the WHERE clause.
	Pushed []query.Clause

	// Residual are the clauses left for the in-memory filter.
	Residual []query.Clause
}

// SQLCompiler compiles clauses against one table.
//
// CRITICAL: every statement ends in ORDER BY rowid so rows come back in
// insertion order on every run.
// CRITICAL: values are always parameterized, never interpolated.
type SQLCompiler struct {
	// Schema types the clause fields.
	Schema *record.Schema

	// Affinities maps column names to their SQLite affinity. Columns not
	// listed are never pushed down.
	Affinities map[string]Affinity
}

// NewSQLCompiler creates a compiler for a table with the given columns.
func NewSQLCompiler(schema *record.Schema, affinities map[string]Affinity) *SQLCompiler {
	if affinities == nil {
		affinities = make(map[string]Affinity)
	}
	return &SQLCompiler{Schema: schema, Affinities: affinities}
}

// Compile builds "SELECT columns FROM table [WHERE ...] ORDER BY rowid ASC".
//
// An empty column list selects every column. Clauses that cannot be pushed
// down safely are returned in Statement.Residual.
func (c *SQLCompiler) Compile(table string, columns []string, clauses []query.Clause) (Statement, error) {
	if table == "" {
		return Statement{}, fmt.Errorf("table name is required")
	}

	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = QuoteIdent(col)
		}
		selectList = strings.Join(quoted, ", ")
	}

	var (
		where  []string
		params []any
		stmt   Statement
	)
	for _, cl := range clauses {
		sql, p, ok := c.compileClause(cl)
		if !ok {
			stmt.Residual = append(stmt.Residual, cl)
			continue
		}
		where = append(where, sql)
		params = append(params, p...)
		stmt.Pushed = append(stmt.Pushed, cl)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList, QuoteIdent(table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	// MANDATORY: deterministic row order.
	b.WriteString(" ORDER BY rowid ASC")

	stmt.SQL = b.String()
	stmt.Params = params
	return stmt, nil
}

// compileClause returns the SQL fragment for c, or ok=false when c must be
// evaluated in memory.
func (c *SQLCompiler) compileClause(cl query.Clause) (string, []any, bool) {
	f, ok := c.Schema.Field(cl.Field)
	if !ok || strings.Contains(cl.Field, ".") {
		return "", nil, false
	}
	aff, ok := c.Affinities[cl.Field]
	if !ok || !pushable(f.Type, aff, cl.Operator) {
		return "", nil, false
	}
	col := QuoteIdent(cl.Field)
	if f.Type == record.TypeString || f.Type == record.TypeEnum {
		// The in-memory filter compares strings byte for byte, whatever
		// collation the column was declared with.
		col += " COLLATE BINARY"
	}

	switch cl.Operator {
	case query.OpEquals, query.OpNotEquals, query.OpGreaterThan, query.OpLessThan:
		p, ok := toParam(cl.Value, f.Type)
		if !ok {
			return "", nil, false
		}
		return fmt.Sprintf("%s %s ?", col, sqlOperators[cl.Operator]), []any{p}, true

	case query.OpBetween:
		bounds, ok := cl.Value.(record.Array)
		if !ok || len(bounds) != 2 {
			return "", nil, false
		}
		lo, ok1 := toParam(bounds[0], f.Type)
		hi, ok2 := toParam(bounds[1], f.Type)
		if !ok1 || !ok2 {
			return "", nil, false
		}
		return fmt.Sprintf("%s BETWEEN ? AND ?", col), []any{lo, hi}, true

	case query.OpIn:
		members, ok := cl.Value.(record.Array)
		if !ok {
			return "", nil, false
		}
		if len(members) == 0 {
			return "1 = 0", nil, true
		}
		params := make([]any, len(members))
		for i, m := range members {
			p, ok := toParam(m, f.Type)
			if !ok {
				return "", nil, false
			}
			params[i] = p
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(members)), ", ")
		return fmt.Sprintf("%s IN (%s)", col, placeholders), params, true

	default:
		return "", nil, false
	}
}

var sqlOperators = map[query.Operator]string{
	query.OpEquals:      "=",
	query.OpNotEquals:   "!=",
	query.OpGreaterThan: ">",
	query.OpLessThan:    "<",
}

// pushable reports whether SQLite compares a column of this affinity the
// same way the in-memory filter compares values of this field type.
//
// contains is never pushed (SQLite LIKE folds ASCII only) and dates are never
// pushed (their stored text format is not guaranteed to sort).
func pushable(t record.FieldType, aff Affinity, op query.Operator) bool {
	if op == query.OpContains {
		return false
	}
	switch t {
	case record.TypeString, record.TypeEnum:
		return aff == AffinityText
	case record.TypeNumber:
		return aff.numeric()
	case record.TypeBool:
		return (aff == AffinityInteger || aff == AffinityNumeric) &&
			(op == query.OpEquals || op == query.OpNotEquals || op == query.OpIn)
	default:
		return false
	}
}

// toParam converts a clause value to a SQL parameter of the column's type.
// Booleans are stored as 0/1 integers.
func toParam(v record.Value, t record.FieldType) (any, bool) {
	switch x := v.(type) {
	case record.String:
		if t == record.TypeString || t == record.TypeEnum {
			return string(x), true
		}
	case record.Number:
		if t == record.TypeNumber {
			return float64(x), true
		}
	case record.Bool:
		if t == record.TypeBool {
			if x {
				return int64(1), true
			}
			return int64(0), true
		}
	}
	return nil, false
}

// QuoteIdent quotes a SQLite identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
