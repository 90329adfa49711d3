package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_ScenarioFiles(t *testing.T) {
	for _, name := range []string{"stock_lifecycle", "remote_first_abort"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			// First run with -update to create golden file:
			//   go test ./internal/harness -run TestRunWithGolden -update
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_OmitsEmptyMissing(t *testing.T) {
	result := NewResult()
	result.AddStep(TraceEvent{Step: 1, Invoke: "reset", Outcome: OutcomeOK})
	result.AddStep(TraceEvent{Step: 2, Invoke: "create_order", Outcome: OutcomeOK, Missing: []string{"ghost"}})

	data, err := MarshalTrace("t", result)
	require.NoError(t, err)

	want := `{
  "scenario": "t",
  "trace": [
    {
      "step": 1,
      "invoke": "reset",
      "outcome": "OK"
    },
    {
      "step": 2,
      "invoke": "create_order",
      "outcome": "OK",
      "missing": [
        "ghost"
      ]
    }
  ],
  "events": []
}
`
	assert.Equal(t, want, string(data))
}
