package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one executable script of intents with expectations.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// SignedIn starts the scenario with a session for this user id.
	SignedIn string `yaml:"signed_in,omitempty"`

	// Seed selects the data loaded in local mode: "demo" or "empty".
	Seed string `yaml:"seed,omitempty"`

	Setup      []Step      `yaml:"setup,omitempty"`
	Flow       []Step      `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one intent or control action.
type Step struct {
	Invoke string                 `yaml:"invoke"`
	Args   map[string]interface{} `yaml:"args,omitempty"`

	// Expect is checked for flow steps. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

type Expect struct {
	Outcome string `yaml:"outcome"`

	// Missing lists product ids the ledger skipped. Nil means no check.
	Missing []string `yaml:"missing,omitempty"`
}

// Assertion validates final state or the event log.
type Assertion struct {
	Type       string      `yaml:"type"`
	Collection string      `yaml:"collection,omitempty"`
	ID         string      `yaml:"id,omitempty"`
	Field      string      `yaml:"field,omitempty"`
	Value      interface{} `yaml:"value,omitempty"`
	Events     []string    `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertStock         = "stock"
	AssertMaterialStock = "material_stock"
	AssertCount         = "count"
	AssertExists        = "exists"
	AssertAbsent        = "absent"
	AssertField         = "field"
	AssertEvents        = "events"
	AssertRemoteWrites  = "remote_writes"
)

// Seed names.
const (
	SeedDemo  = "demo"
	SeedEmpty = "empty"
)

// LoadScenario reads a scenario file. Unknown fields are rejected so typos
// like "assertion:" fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	switch s.Seed {
	case "", SeedDemo, SeedEmpty:
	default:
		return fmt.Errorf("unknown seed %q", s.Seed)
	}

	steps := append(append([]Step{}, s.Setup...), s.Flow...)
	for i, step := range steps {
		if _, ok := invocations[step.Invoke]; !ok {
			return fmt.Errorf("step %d: unknown invocation %q", i+1, step.Invoke)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i+1, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertStock, AssertMaterialStock:
		if a.ID == "" || a.Value == nil {
			return fmt.Errorf("%s requires id and value", a.Type)
		}
	case AssertCount:
		if a.Collection == "" || a.Value == nil {
			return fmt.Errorf("count requires collection and value")
		}
	case AssertExists, AssertAbsent:
		if a.Collection == "" || a.ID == "" {
			return fmt.Errorf("%s requires collection and id", a.Type)
		}
	case AssertField:
		if a.Collection == "" || a.Field == "" {
			return fmt.Errorf("field requires collection and field")
		}
	case AssertEvents:
	case AssertRemoteWrites:
		if a.Value == nil {
			return fmt.Errorf("remote_writes requires value")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
