package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facetview/internal/record"
	"github.com/roach88/facetview/internal/testutil"
)

const leadsJSON = `[
  {"name": "Acme Corp", "stage": "new", "score": 40, "created": "2024-01-05", "hot": true, "owner": {"name": "Dana"}},
  {"name": "Beta LLC", "stage": "qualified", "score": 75.5, "created": "2024-02-10T09:30:00Z", "hot": false},
  {"name": "delta co", "stage": "won", "score": null, "created": "2024-03-01"}
]`

const leadsYAML = `
- name: Acme Corp
  stage: new
  score: 40
  created: 2024-01-05
  hot: true
  owner:
    name: Dana
- name: Beta LLC
  stage: qualified
  score: 75.5
  created: "2024-02-10T09:30:00Z"
  hot: false
- name: delta co
  stage: won
  score: ~
  created: 2024-03-01
`

func TestLoadJSON_WithSchema(t *testing.T) {
	s := testutil.LeadSchema()
	c, err := LoadJSON(strings.NewReader(leadsJSON), s)
	require.NoError(t, err)

	assert.Same(t, s, c.Schema)
	require.Len(t, c.Records, 3)
	assertLeads(t, c.Records)
}

func TestLoadYAML_WithSchema(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(leadsYAML), testutil.LeadSchema())
	require.NoError(t, err)

	require.Len(t, c.Records, 3)
	assertLeads(t, c.Records)
}

func assertLeads(t *testing.T, records []record.Record) {
	t.Helper()
	assert.Equal(t, []string{"Acme Corp", "Beta LLC", "delta co"}, testutil.Names(records))

	score, ok := records[1].Get("score")
	require.True(t, ok)
	assert.Equal(t, record.Number(75.5), score)

	created, ok := records[0].Get("created")
	require.True(t, ok)
	assert.True(t, record.Equal(record.MustDate("2024-01-05"), created), "date strings are coerced")

	created, _ = records[1].Get("created")
	assert.True(t, record.Equal(record.MustDate("2024-02-10T09:30:00Z"), created))

	owner, ok := records[0].Get("owner.name")
	require.True(t, ok)
	assert.Equal(t, record.String("Dana"), owner)

	_, ok = records[2].Get("score")
	assert.False(t, ok, "null score is missing")

	hot, _ := records[0].Get("hot")
	assert.Equal(t, record.Bool(true), hot)
}

func TestLoadJSON_InfersSchema(t *testing.T) {
	c, err := LoadJSON(strings.NewReader(leadsJSON), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"created", "hot", "name", "owner.name", "score", "stage"}, c.Schema.Names())

	f, ok := c.Schema.Field("score")
	require.True(t, ok)
	assert.Equal(t, record.TypeNumber, f.Type)

	f, _ = c.Schema.Field("created")
	assert.Equal(t, record.TypeString, f.Type, "without a schema dates stay strings")
}

func TestLoadJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an array", `{"name": "x"}`},
		{"malformed", `[{"name": }]`},
		{"null element", `[null]`},
		{"bad number", `[{"score": "lots"}]`},
		{"bad date", `[{"created": "last tuesday"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSON(strings.NewReader(tt.input), testutil.LeadSchema())
			assert.Error(t, err)
		})
	}
}

func TestLoadYAML_Empty(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Empty(t, c.Records)
	assert.Equal(t, 0, c.Schema.Len())
}

func TestLoadYAML_NonStringKeys(t *testing.T) {
	c, err := LoadYAML(strings.NewReader("- name: a\n  meta:\n    1: one\n"), nil)
	require.NoError(t, err)

	v, ok := c.Records[0].Get("meta.1")
	require.True(t, ok)
	assert.Equal(t, record.String("one"), v)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	for _, path := range []string{
		write("leads.json", leadsJSON),
		write("leads.yaml", leadsYAML),
		write("leads.YML", leadsYAML),
	} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			c, err := LoadFile(path, testutil.LeadSchema())
			require.NoError(t, err)
			assert.Len(t, c.Records, 3)
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := LoadFile(write("leads.csv", "name\nA\n"), nil)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.json"), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("error names the file", func(t *testing.T) {
		path := write("broken.json", "[")
		_, err := LoadFile(path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})
}
