package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir    = filepath.Join("..", "harness", "testdata", "golden")
)

const passingScenario = `name: sorted
description: names sort ascending
records:
  - {name: b}
  - {name: a}
query:
  sort: name
expect:
  order: [a, b]
`

const failingScenario = `name: wrong_order
description: expects the input order back
records:
  - {name: b}
  - {name: a}
query:
  sort: name
expect:
  order: [b, a]
`

func writeScenario(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestTestCommand_AllPass(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir)
	require.NoError(t, err, out)

	for _, name := range []string{"empty_rate", "filter_sort", "grouping", "invalid_operator", "pipeline", "rate", "search"} {
		assert.Contains(t, out, "✓ "+name+"\n")
	}
	assert.Contains(t, out, "7 passed, 0 failed, 7 total")
}

func TestTestCommand_Golden(t *testing.T) {
	// pipeline and rate have no golden file and are judged by expectations.
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", goldenDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "7 passed, 0 failed, 7 total")
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 7, resp.Data.Total)
	assert.Equal(t, 7, resp.Data.Passed)
	assert.Zero(t, resp.Data.Failed)
	assert.Len(t, resp.Data.Scenarios, 7)
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "*rate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ empty_rate")
	assert.Contains(t, out, "✓ rate")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "zzz*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a_pass.yaml", passingScenario)
	writeScenario(t, dir, "b_fail.yaml", failingScenario)
	writeScenario(t, dir, "c_broken.yml", "name: broken\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "2 scenario(s) failed", err.Error())

	assert.Contains(t, out, "✓ sorted\n")
	assert.Contains(t, out, "✗ wrong_order\n  order: expected [b, a], got [a, b]\n")
	assert.Contains(t, out, "✗ c_broken.yml\n  failed to load scenario:")
	assert.Contains(t, out, "1 passed, 2 failed, 3 total")
}

func TestTestCommand_FailuresJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b_fail.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, []string{"order: expected [b, a], got [a, b]"}, resp.Data.Scenarios[0].Errors)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	golden := filepath.Join(dir, "golden")
	writeScenario(t, dir, "sorted.yaml", passingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--golden", golden, "--update")
	require.NoError(t, err, out)

	data, err := os.ReadFile(filepath.Join(golden, "sorted.golden"))
	require.NoError(t, err)
	assert.Equal(t, `{"matched":2,"records":[{"name":"a"},{"name":"b"}],"scenario":"sorted","total":2}`+"\n", string(data))

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--golden", golden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ sorted")

	// A stale golden file fails the scenario even when expectations hold.
	stale := strings.Replace(string(data), `"total":2`, `"total":3`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(golden, "sorted.golden"), []byte(stale), 0o644))

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "✗ sorted\n  result does not match golden file")
}

func TestTestCommand_CommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing path", []string{"/nonexistent/scenarios"}, "scenarios not found"},
		{"empty directory", []string{t.TempDir()}, "no scenario files found"},
		{"update without golden", []string{scenariosDir, "--update"}, "--update requires --golden"},
		{"bad filter", []string{scenariosDir, "--filter", "[x"}, "invalid filter pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestTestCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestFilterScenarioFiles(t *testing.T) {
	files := []string{"s/cart-add.yaml", "s/cart-test.yml", "s/inventory.yaml"}

	assert.Equal(t, files, filterScenarioFiles(files, ""))
	assert.Equal(t, []string{"s/cart-add.yaml", "s/cart-test.yml"}, filterScenarioFiles(files, "cart-*"))
	assert.Empty(t, filterScenarioFiles(files, "cart"))
}
