package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
signed_in: u1
setup:
  - invoke: add_product
    args: { id: p1, name: Mesa, stock: 5 }
flow:
  - invoke: adjust_stock
    args:
      id: p1
      delta: -2
    expect:
      outcome: OK
assertions:
  - type: stock
    id: p1
    value: 3
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, "u1", scenario.SignedIn)
	assert.Len(t, scenario.Setup, 1)
	assert.Len(t, scenario.Flow, 1)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, "adjust_stock", scenario.Flow[0].Invoke)
	assert.Equal(t, -2, scenario.Flow[0].Args["delta"])
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, "OK", scenario.Flow[0].Expect.Outcome)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "Missing name"
flow:
  - invoke: reset
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
flow:
  - invoke: reset
`,
			wantErr: "description is required",
		},
		{
			name: "empty flow",
			content: `
name: x
description: "No flow"
flow: []
`,
			wantErr: "flow list is required",
		},
		{
			name: "unknown field",
			content: `
name: x
description: "Typo"
flow:
  - invoke: reset
assertion:
  - type: count
`,
			wantErr: "field assertion not found",
		},
		{
			name: "unknown invocation",
			content: `
name: x
description: "Bad invoke"
flow:
  - invoke: launch_rocket
`,
			wantErr: `unknown invocation "launch_rocket"`,
		},
		{
			name: "unknown invocation in setup",
			content: `
name: x
description: "Bad setup"
setup:
  - invoke: nope
flow:
  - invoke: reset
`,
			wantErr: "step 1",
		},
		{
			name: "unknown seed",
			content: `
name: x
description: "Bad seed"
seed: production
flow:
  - invoke: reset
`,
			wantErr: `unknown seed "production"`,
		},
		{
			name: "unknown assertion type",
			content: `
name: x
description: "Bad assertion"
flow:
  - invoke: reset
assertions:
  - type: vibes
`,
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name: "stock without value",
			content: `
name: x
description: "Incomplete assertion"
flow:
  - invoke: reset
assertions:
  - type: stock
    id: "1"
`,
			wantErr: "stock requires id and value",
		},
		{
			name: "exists without id",
			content: `
name: x
description: "Incomplete assertion"
flow:
  - invoke: reset
assertions:
  - type: exists
    collection: orders
`,
			wantErr: "exists requires collection and id",
		},
		{
			name:    "malformed yaml",
			content: "name: [unterminated",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_Anchors(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: anchors
description: "Repeated args through YAML anchors"
flow:
  - invoke: delete_order
    args: &target { id: "#5026" }
  - invoke: delete_order
    args: *target
`))
	require.NoError(t, err)
	require.Len(t, scenario.Flow, 2)
	assert.Equal(t, scenario.Flow[0].Args, scenario.Flow[1].Args)
}

// Every scenario shipped in testdata/scenarios must parse.
func TestScenarioFiles_Parse(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
