package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facetview/internal/record"
)

func TestParseClause(t *testing.T) {
	s := leadSchema()
	tests := []struct {
		expr  string
		field string
		op    Operator
		value record.Value
	}{
		{"name == Acme", "name", OpEquals, record.String("Acme")},
		{"name = 'Acme Corp'", "name", OpEquals, record.String("Acme Corp")},
		{"stage != won", "stage", OpNotEquals, record.String("won")},
		{"name ~ acme", "name", OpContains, record.String("acme")},
		{"score > 9", "score", OpGreaterThan, record.Number(9)},
		{"score < -2.5", "score", OpLessThan, record.Number(-2.5)},
		{"hot == true", "hot", OpEquals, record.Bool(true)},
		{"created > 2024-01-01", "created", OpGreaterThan, record.MustDate("2024-01-01")},
		{"score between 1..5", "score", OpBetween, record.Array{record.Number(1), record.Number(5)}},
		{"created BETWEEN 2024-01-01..2024-03-31", "created", OpBetween,
			record.Array{record.MustDate("2024-01-01"), record.MustDate("2024-03-31")}},
		{"stage in new|won", "stage", OpIn, record.Array{record.String("new"), record.String("won")}},
		{"name ~ sign in form", "name", OpContains, record.String("sign in form")},
		{"hot==true", "hot", OpEquals, record.Bool(true)},
		{`name ~ "a>b"`, "name", OpContains, record.String("a>b")},
		{`name != "x==y"`, "name", OpNotEquals, record.String("x==y")},
		{`name == "a<b"`, "name", OpEquals, record.String("a<b")},
		{`name ~ 'x != y'`, "name", OpContains, record.String("x != y")},
		{`name == "score between 1..5"`, "name", OpEquals, record.String("score between 1..5")},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := ParseClause(s, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.field, c.Field)
			assert.Equal(t, tt.op, c.Operator)
			assert.True(t, record.Equal(tt.value, c.Value), "got %v", c.Value)
		})
	}
}

func TestParseClause_Errors(t *testing.T) {
	s := leadSchema()
	tests := []struct {
		expr string
		code ErrorCode
	}{
		{"", ErrCodeSyntax},
		{"score", ErrCodeSyntax},
		{"== Acme", ErrCodeSyntax},
		{"name Acme", ErrCodeSyntax},
		{"name inside x", ErrCodeSyntax},
		{"score >= 10", ErrCodeSyntax},
		{"score between 1-5", ErrCodeSyntax},
		{"owner == bob", ErrCodeUnknownField},
		{"score ~ 1", ErrCodeInvalidOperator},
		{"name > m", ErrCodeInvalidOperator},
		{"hot between false..true", ErrCodeInvalidOperator},
		{"score == ten", ErrCodeInvalidValue},
		{"score between 9..1", ErrCodeInvalidValue},
		{"stage == lost", ErrCodeInvalidValue},
		{"created < yesterday", ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseClause(s, tt.expr)
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}

func TestParseSort(t *testing.T) {
	s := leadSchema()

	got, err := ParseSort(s, "score:DESC")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: "score", Direction: Desc}, got)

	got, err = ParseSort(s, "name")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: "name"}, got)
	assert.False(t, got.Descending())

	got, err = ParseSort(s, "")
	require.NoError(t, err)
	assert.False(t, got.Active())

	_, err = ParseSort(s, "score:up")
	assert.True(t, HasCode(err, ErrCodeInvalidSort))

	_, err = ParseSort(s, "owner")
	assert.True(t, IsUnknownField(err))
}

func TestParseGroup(t *testing.T) {
	s := leadSchema()

	g, err := ParseGroup(s, " stage ")
	require.NoError(t, err)
	assert.Equal(t, Group{Field: "stage"}, g)

	_, err = ParseGroup(s, "tags")
	assert.True(t, HasCode(err, ErrCodeInvalidGroup))
}

func TestParseAggregate(t *testing.T) {
	s := leadSchema()
	two := 2
	one := 1
	tests := []struct {
		expr string
		want Aggregate
	}{
		{"total=sum(score)", Aggregate{Name: "total", Kind: AggSum, Field: "score"}},
		{"avg_score=avg(score,2)", Aggregate{Name: "avg_score", Kind: AggAverage, Field: "score", Precision: &two}},
		{"leads=count()", Aggregate{Name: "leads", Kind: AggCount}},
		{"dated=count(created)", Aggregate{Name: "dated", Kind: AggCount, Field: "created"}},
		{"conversion=rate(wins, total)", Aggregate{Name: "conversion", Kind: AggRate, Numerator: "wins", Denominator: "total"}},
		{"conversion=rate(wins,total,1)", Aggregate{Name: "conversion", Kind: AggRate, Numerator: "wins", Denominator: "total", Precision: &one}},
		{"top=MAX(score)", Aggregate{Name: "top", Kind: AggMax, Field: "score"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseAggregate(s, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAggregate_Errors(t *testing.T) {
	s := leadSchema()
	tests := []struct {
		expr string
		code ErrorCode
	}{
		{"sum(score)", ErrCodeSyntax},
		{"total=sum", ErrCodeSyntax},
		{"total=sum(score,x)", ErrCodeSyntax},
		{"conversion=rate(wins)", ErrCodeSyntax},
		{"total=sum()", ErrCodeInvalidAggregate},
		{"total=sum(name)", ErrCodeInvalidAggregate},
		{"total=median(score)", ErrCodeInvalidAggregate},
		{"total=sum(owner)", ErrCodeUnknownField},
		{"r=rate(wins,total,12)", ErrCodeInvalidAggregate},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseAggregate(s, tt.expr)
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}
