package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/officeswitcher/officeswitcher/internal/action"
)

// Scenario defines one pass and the checks run against its result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// PassID is the fixed pass id. Defaults to testutil.DefaultPassID.
	PassID string `yaml:"pass_id,omitempty"`

	// Config is a configuration file, relative to the scenario file.
	// Empty uses the built-in configuration.
	Config string `yaml:"config,omitempty"`

	// Capabilities is the capability tree the host reports.
	Capabilities map[string]any `yaml:"capabilities,omitempty"`

	// State is the set of state slots the server provides.
	State []StateSlot `yaml:"state,omitempty"`

	// ExistingActions are registered before the pass, each succeeding when run.
	ExistingActions []string `yaml:"existing_actions,omitempty"`

	// Icons maps integration ids to icon SVG. Nil disables icon fetching;
	// integrations missing from a non-nil map fail to fetch.
	Icons map[string]string `yaml:"icons,omitempty"`

	// Query is the route query in place before any step runs.
	Query map[string]string `yaml:"query,omitempty"`

	// Steps are replayed after the pass, in order.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the pass result.
	Assertions []Assertion `yaml:"assertions"`
}

// StateSlot is one server-provided state value.
type StateSlot struct {
	App   string `yaml:"app"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Step is a selection check, an exec, or a viewer close. Exactly one of
// Select, Exec and Close is set.
type Step struct {
	// Select is the node selection to evaluate every action against.
	Select []action.Node `yaml:"select,omitempty"`

	// View is the view id for Select and Exec. Defaults to "files".
	View string `yaml:"view,omitempty"`

	// ExpectEnabled lists the enabled action ids in host order.
	ExpectEnabled []string `yaml:"expect_enabled,omitempty"`

	// Exec is the id of the action to run on Node.
	Exec string `yaml:"exec,omitempty"`

	// Node is the node Exec runs on.
	Node *action.Node `yaml:"node,omitempty"`

	// Dir is the directory passed to Exec.
	Dir string `yaml:"dir,omitempty"`

	// ExpectOutcome is the outcome name Exec must return ("deferred", "succeeded"...).
	ExpectOutcome string `yaml:"expect_outcome,omitempty"`

	// Close closes the open viewer the way a user would.
	Close bool `yaml:"close,omitempty"`
}

// Assertion validates the pass result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Actions lists action ids (registered, absent, suppressed).
	Actions []string `yaml:"actions,omitempty"`

	// Code is the diagnostic code (diagnostic).
	Code string `yaml:"code,omitempty"`

	// Integration narrows a diagnostic assertion to one integration.
	Integration string `yaml:"integration,omitempty"`
}

// Assertion type constants.
const (
	AssertRegistered = "registered"
	AssertAbsent     = "absent"
	AssertSuppressed = "suppressed"
	AssertDiagnostic = "diagnostic"
	AssertJournal    = "journal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Config path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	for i, slot := range s.State {
		if slot.App == "" || slot.Key == "" {
			return fmt.Errorf("state[%d]: app and key are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	kinds := 0
	if s.Select != nil {
		kinds++
	}
	if s.Exec != "" {
		kinds++
		if s.Node == nil {
			return fmt.Errorf("steps[%d]: node is required for exec", index)
		}
	}
	if s.Close {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("steps[%d]: exactly one of select, exec and close is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRegistered:
		// An empty list asserts that nothing was registered.
	case AssertAbsent, AssertSuppressed:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for %s", index, a.Type)
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
	case AssertJournal:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
