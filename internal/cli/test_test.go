package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: passing
description: "Adjusts one product"
flow:
  - invoke: adjust_stock
    args: { id: "4", delta: -3 }
assertions:
  - type: stock
    id: "4"
    value: 5
`

const failingScenario = `
name: failing
description: "Asserts the wrong stock"
flow:
  - invoke: adjust_stock
    args: { id: "4", delta: -3 }
assertions:
  - type: stock
    id: "4"
    value: 8
`

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	out, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandShippedScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", filepath.Join("..", "..", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ stock_lifecycle")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailure(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"passing.yaml": passingScenario, "failing.yaml": failingScenario})

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"passing.yaml": passingScenario, "failing.yaml": failingScenario})

	out, err := runTestCommand(t, "text", dir, "--filter", "pass*")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"failing.yaml": failingScenario})

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "expected 4 = 8, got 5")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"passing.yaml": passingScenario})

	_, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)
	golden, err := os.ReadFile(filepath.Join(dir, "golden", "passing.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"invoke": "adjust_stock"`)

	out, err := runTestCommand(t, "text", dir)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "passing.golden"), []byte("{}\n"), 0644))
	out, err = runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}
