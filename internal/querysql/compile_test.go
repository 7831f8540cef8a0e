package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
	"github.com/roach88/facetview/internal/testutil"
)

func leadCompiler() *SQLCompiler {
	return NewSQLCompiler(testutil.LeadSchema(), map[string]Affinity{
		"name":    AffinityText,
		"stage":   AffinityText,
		"region":  AffinityText,
		"score":   AffinityReal,
		"wins":    AffinityInteger,
		"total":   AffinityInteger,
		"hot":     AffinityInteger,
		"created": AffinityText,
	})
}

func mustClause(t *testing.T, expr string) query.Clause {
	t.Helper()
	c, err := query.ParseClause(testutil.LeadSchema(), expr)
	require.NoError(t, err)
	return c
}

func TestCompile_NoClauses(t *testing.T) {
	stmt, err := leadCompiler().Compile("leads", []string{"name", "score"}, nil)
	require.NoError(t, err)

	assert.Equal(t, `SELECT "name", "score" FROM "leads" ORDER BY rowid ASC`, stmt.SQL)
	assert.Empty(t, stmt.Params)
	assert.Empty(t, stmt.Pushed)
	assert.Empty(t, stmt.Residual)
}

func TestCompile_SelectStar(t *testing.T) {
	stmt, err := leadCompiler().Compile("leads", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "leads" ORDER BY rowid ASC`, stmt.SQL)
}

func TestCompile_PushedClauses(t *testing.T) {
	tests := []struct {
		expr   string
		sql    string
		params []any
	}{
		{"stage == won", `"stage" COLLATE BINARY = ?`, []any{"won"}},
		{"region != west", `"region" COLLATE BINARY != ?`, []any{"west"}},
		{"score > 10", `"score" > ?`, []any{float64(10)}},
		{"wins < 3", `"wins" < ?`, []any{float64(3)}},
		{"score between 1..5", `"score" BETWEEN ? AND ?`, []any{float64(1), float64(5)}},
		{"stage in new|won", `"stage" COLLATE BINARY IN (?, ?)`, []any{"new", "won"}},
		{"hot == true", `"hot" = ?`, []any{int64(1)}},
		{"hot in false", `"hot" IN (?)`, []any{int64(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			stmt, err := leadCompiler().Compile("leads", []string{"name"}, []query.Clause{mustClause(t, tt.expr)})
			require.NoError(t, err)

			assert.Equal(t, `SELECT "name" FROM "leads" WHERE `+tt.sql+` ORDER BY rowid ASC`, stmt.SQL)
			assert.Equal(t, tt.params, stmt.Params)
			assert.Len(t, stmt.Pushed, 1)
			assert.Empty(t, stmt.Residual)
		})
	}
}

func TestCompile_ResidualClauses(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"contains is never pushed", "name ~ acme"},
		{"dates are never pushed", "created > 2024-01-01"},
		{"nested fields stay in memory", "owner.name == Lee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := leadCompiler().Compile("leads", nil, []query.Clause{mustClause(t, tt.expr)})
			require.NoError(t, err)

			assert.Empty(t, stmt.Pushed)
			assert.Len(t, stmt.Residual, 1)
			assert.NotContains(t, stmt.SQL, "WHERE")
		})
	}
}

func TestCompile_AffinityMismatchStaysResidual(t *testing.T) {
	c := NewSQLCompiler(testutil.LeadSchema(), map[string]Affinity{
		"score": AffinityText, // numbers stored as text compare as strings
		"stage": AffinityBlob,
	})

	stmt, err := c.Compile("leads", nil, []query.Clause{
		mustClause(t, "score > 10"),
		mustClause(t, "stage == won"),
		mustClause(t, "region == west"), // no affinity known
	})
	require.NoError(t, err)
	assert.Empty(t, stmt.Pushed)
	assert.Len(t, stmt.Residual, 3)
}

func TestCompile_MixedPushdown(t *testing.T) {
	clauses := []query.Clause{
		mustClause(t, "stage in new|qualified"),
		mustClause(t, "name ~ co"),
		mustClause(t, "score between 40..80"),
	}

	stmt, err := leadCompiler().Compile("leads", []string{"name", "stage", "score"}, clauses)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "name", "stage", "score" FROM "leads" WHERE "stage" COLLATE BINARY IN (?, ?) AND "score" BETWEEN ? AND ? ORDER BY rowid ASC`,
		stmt.SQL)
	assert.Equal(t, []any{"new", "qualified", float64(40), float64(80)}, stmt.Params)
	assert.Equal(t, []query.Clause{clauses[0], clauses[2]}, stmt.Pushed)
	assert.Equal(t, []query.Clause{clauses[1]}, stmt.Residual)
}

func TestCompile_EmptyIn(t *testing.T) {
	c := query.MustClause(testutil.LeadSchema(), "stage", query.OpIn, record.Array{})

	stmt, err := leadCompiler().Compile("leads", nil, []query.Clause{c})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE 1 = 0")
	assert.Empty(t, stmt.Params)
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	malicious := `x'; DROP TABLE leads; --`
	c := query.MustClause(testutil.LeadSchema(), "name", query.OpEquals, record.String(malicious))

	stmt, err := leadCompiler().Compile("leads", nil, []query.Clause{c})
	require.NoError(t, err)

	assert.NotContains(t, stmt.SQL, "DROP")
	assert.Equal(t, []any{malicious}, stmt.Params)
}

func TestCompile_QuotesIdentifiers(t *testing.T) {
	stmt, err := leadCompiler().Compile(`my "leads"`, []string{"first name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "first name" FROM "my ""leads""" ORDER BY rowid ASC`, stmt.SQL)
}

func TestCompile_RequiresTable(t *testing.T) {
	_, err := leadCompiler().Compile("", nil, nil)
	assert.Error(t, err)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	for _, clauses := range [][]query.Clause{
		nil,
		{mustClause(t, "stage == won")},
		{mustClause(t, "name ~ a")},
	} {
		stmt, err := leadCompiler().Compile("leads", nil, clauses)
		require.NoError(t, err)
		assert.Contains(t, stmt.SQL, "ORDER BY rowid ASC")
	}
}

func TestAffinityOf(t *testing.T) {
	tests := map[string]Affinity{
		"INTEGER":          AffinityInteger,
		"bigint":           AffinityInteger,
		"VARCHAR(40)":      AffinityText,
		"text":             AffinityText,
		"CLOB":             AffinityText,
		"":                 AffinityBlob,
		"blob":             AffinityBlob,
		"REAL":             AffinityReal,
		"DOUBLE PRECISION": AffinityReal,
		"FLOAT":            AffinityReal,
		"DECIMAL(10,5)":    AffinityNumeric,
		"BOOLEAN":          AffinityNumeric,
		"DATE":             AffinityNumeric,
	}
	for decl, want := range tests {
		assert.Equal(t, want, AffinityOf(decl), decl)
	}
}

func TestCompile_GoldenSQL(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	stmt, err := leadCompiler().Compile("leads",
		[]string{"name", "stage", "region", "score", "hot"},
		[]query.Clause{
			mustClause(t, "stage in new|qualified|won"),
			mustClause(t, "region != east"),
			mustClause(t, "score > 20"),
			mustClause(t, "hot == true"),
			mustClause(t, "name ~ corp"),
		})
	require.NoError(t, err)

	g.Assert(t, "pushdown", []byte(stmt.SQL+"\n"))
}
