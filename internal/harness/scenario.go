package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/doc"
)

// Scenario is a sequence of pulls against named documents.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an engine configuration in the config file format.
	Config yaml.Node `yaml:"config,omitempty"`

	// Documents are the initial documents.
	Documents []DocumentSpec `yaml:"documents"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate final documents and the log.
	Assertions []Assertion `yaml:"assertions"`
}

// DocumentSpec names an initial document.
type DocumentSpec struct {
	ID    string    `yaml:"id"`
	Value yaml.Node `yaml:"value"`
}

// Step is one pull.
type Step struct {
	Doc        string          `yaml:"doc"`
	Path       string          `yaml:"path"`
	Cond       yaml.Node       `yaml:"cond"`
	Collation  *collation.Spec `yaml:"collation,omitempty"`
	Replicated bool            `yaml:"replicated,omitempty"`

	// Expect, if set, is checked against the step outcome. Unset fields are
	// not checked.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of a step.
type Expect struct {
	Noop            *bool  `yaml:"noop,omitempty"`
	IndexesAffected *bool  `yaml:"indexes_affected,omitempty"`
	Removed         *int   `yaml:"removed,omitempty"`
	Error           string `yaml:"error,omitempty"` // expected error code
}

// Assertion validates state after all steps.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Doc names the document. Optional for log_count, where empty counts
	// every entry.
	Doc string `yaml:"doc,omitempty"`

	// Expect is the expected document (final_document).
	Expect yaml.Node `yaml:"expect,omitempty"`

	// Count is the expected number of entries (log_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalDocument = "final_document"
	AssertLogCount      = "log_count"
	AssertReplayMatches = "replay_matches"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario.
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
	if len(s.Documents) == 0 {
		return fmt.Errorf("documents list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(s.Documents))
	for i, d := range s.Documents {
		if d.ID == "" {
			return fmt.Errorf("documents[%d]: id is required", i)
		}
		if ids[d.ID] {
			return fmt.Errorf("documents[%d]: duplicate id %q", i, d.ID)
		}
		ids[d.ID] = true
		v, err := nodeValue(&d.Value)
		if err != nil {
			return fmt.Errorf("documents[%d]: %w", i, err)
		}
		if v.Type() != doc.ObjectType {
			return fmt.Errorf("documents[%d]: value must be an object", i)
		}
	}

	for i, step := range s.Steps {
		if !ids[step.Doc] {
			return fmt.Errorf("steps[%d]: unknown document %q", i, step.Doc)
		}
		if step.Path == "" {
			return fmt.Errorf("steps[%d]: path is required", i)
		}
		if step.Cond.Kind == 0 {
			return fmt.Errorf("steps[%d]: cond is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, ids); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, ids map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalDocument:
		if a.Expect.Kind == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_document", index)
		}
	case AssertLogCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
		if a.Doc == "" {
			return nil
		}
	case AssertReplayMatches:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if !ids[a.Doc] {
		return fmt.Errorf("assertions[%d]: unknown document %q", index, a.Doc)
	}
	return nil
}

// nodeValue converts a decoded YAML node. An absent node is an error.
func nodeValue(n *yaml.Node) (doc.Value, error) {
	if n.Kind == 0 {
		return doc.Value{}, fmt.Errorf("value is required")
	}
	return doc.FromYAMLNode(n)
}
