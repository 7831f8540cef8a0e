package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/querysql"
	"github.com/roach88/facetview/internal/record"
)

// DB is a read-only SQLite record source.
type DB struct {
	db *sql.DB
}

// Open opens an existing SQLite database for reading.
//
// The connection is configured with:
//   - query_only, so a source can never write to the database
//   - 5-second busy timeout for lock contention with writers
//   - a single connection, so pragmas apply to every query
func Open(path string) (*DB, error) {
	// sql.Open would silently create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return &DB{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA query_only = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Column describes one table column.
type Column struct {
	Name     string
	DeclType string
	Affinity querysql.Affinity
}

// Columns returns the table's columns in declaration order.
func (d *DB) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DeclType); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		c.Affinity = querysql.AffinityOf(c.DeclType)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}
	return cols, nil
}

// FieldTypeOf maps a declared column type to a record field type.
func FieldTypeOf(c Column) record.FieldType {
	decl := strings.ToUpper(c.DeclType)
	switch {
	case strings.Contains(decl, "BOOL"):
		return record.TypeBool
	case strings.Contains(decl, "DATE"), strings.Contains(decl, "TIME"):
		return record.TypeDate
	case c.Affinity == querysql.AffinityText, c.Affinity == querysql.AffinityBlob:
		return record.TypeString
	default:
		return record.TypeNumber
	}
}

// Schema derives a record schema from the table's declared column types.
func (d *DB) Schema(ctx context.Context, table string) (*record.Schema, error) {
	cols, err := d.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	fields := make([]record.Field, len(cols))
	for i, c := range cols {
		fields[i] = record.Field{Name: c.Name, Type: FieldTypeOf(c)}
	}
	return record.NewSchema(fields...)
}

// LoadRequest selects what to read from a table.
type LoadRequest struct {
	Table string

	// Schema types the columns. Nil derives it from the table.
	Schema *record.Schema

	// Clauses are offered for pushdown when Pushdown is set. Only clauses
	// SQLite evaluates exactly like the in-memory filter are pushed.
	Clauses  []query.Clause
	Pushdown bool
}

// Load reads the table's rows as records, ORDER BY rowid.
//
// Only top-level schema fields that exist as columns are selected. SQL NULL
// leaves the field absent from the record.
func (d *DB) Load(ctx context.Context, req LoadRequest) (*Collection, error) {
	cols, err := d.Columns(ctx, req.Table)
	if err != nil {
		return nil, err
	}

	schema := req.Schema
	if schema == nil {
		if schema, err = d.Schema(ctx, req.Table); err != nil {
			return nil, err
		}
	}

	affinities := make(map[string]querysql.Affinity, len(cols))
	for _, c := range cols {
		affinities[c.Name] = c.Affinity
	}
	var projection []record.Field
	for _, f := range schema.Fields() {
		if _, ok := affinities[f.Name]; ok && f.Type.Scalar() {
			projection = append(projection, f)
		}
	}
	if len(projection) == 0 {
		return nil, fmt.Errorf("table %q has no columns matching the schema", req.Table)
	}
	names := make([]string, len(projection))
	for i, f := range projection {
		names[i] = f.Name
	}

	var clauses []query.Clause
	if req.Pushdown {
		clauses = req.Clauses
	}
	stmt, err := querysql.NewSQLCompiler(schema, affinities).Compile(req.Table, names, clauses)
	if err != nil {
		return nil, fmt.Errorf("compile load query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Table, err)
	}
	defer rows.Close()

	var records []record.Record
	dest := make([]any, len(projection))
	ptrs := make([]any, len(projection))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", req.Table, err)
		}
		r := make(record.Record, len(projection))
		for i, f := range projection {
			if dest[i] == nil {
				continue
			}
			v, err := record.FromAny(dest[i])
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", req.Table, len(records)+1, f.Name, err)
			}
			if v, err = record.Coerce(v, f.Type); err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", req.Table, len(records)+1, f.Name, err)
			}
			r[f.Name] = v
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", req.Table, err)
	}
	if records == nil {
		records = []record.Record{}
	}

	slog.Debug("sqlite load",
		"table", req.Table,
		"rows", len(records),
		"pushed", len(stmt.Pushed),
		"residual", len(stmt.Residual))

	return &Collection{Schema: schema, Records: records, Pushed: stmt.Pushed}, nil
}
