package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cartography/internal/dynamics"
)

// Scenario defines one write-then-read check.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kind is "training" or "eval".
	Kind string `yaml:"kind"`

	// Writes are applied in order.
	Writes []WriteStep `yaml:"writes"`

	// Read configures the final merge.
	Read ReadStep `yaml:"read"`

	// Expect describes the outcome of the read.
	Expect Expectation `yaml:"expect"`
}

// WriteStep writes one batch for one epoch.
type WriteStep struct {
	Epoch int `yaml:"epoch"`

	// IDs are integers or strings.
	IDs    []interface{} `yaml:"ids,omitempty"`
	Logits [][]float64   `yaml:"logits,omitempty"`
	Gold   []int         `yaml:"gold,omitempty"`

	// Raw replaces the epoch file with these lines instead of calling the
	// writer. Mutually exclusive with IDs.
	Raw []string `yaml:"raw,omitempty"`
}

// ReadStep mirrors dynamics.ReadOptions.
type ReadStep struct {
	StripLast bool   `yaml:"strip_last,omitempty"`
	NFC       bool   `yaml:"nfc,omitempty"`
	IDField   string `yaml:"id_field,omitempty"`
	BurnOut   int    `yaml:"burn_out,omitempty"`
	Strict    bool   `yaml:"strict,omitempty"`
}

// Options converts the step to dynamics.ReadOptions.
func (r ReadStep) Options() dynamics.ReadOptions {
	return dynamics.ReadOptions{
		StripLast: r.StripLast,
		NFC:       r.NFC,
		IDField:   r.IDField,
		BurnOut:   r.BurnOut,
		Strict:    r.Strict,
	}
}

// Expectation validates the read.
type Expectation struct {
	// Error is the expected dynamics.ErrorCode. Empty means the read succeeds.
	Error string `yaml:"error,omitempty"`

	// Instances is the expected number of merged instances.
	Instances *int `yaml:"instances,omitempty"`

	// History lists instances whose gold and logits must match exactly.
	// Instances not listed are not checked.
	History []ExpectedInstance `yaml:"history,omitempty"`
}

// ExpectedInstance is one expected merged history entry.
type ExpectedInstance struct {
	GUID   interface{} `yaml:"guid"`
	Gold   int         `yaml:"gold"`
	Logits [][]float64 `yaml:"logits"`
}

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

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if _, err := dynamics.ParseKind(s.Kind); err != nil {
		return fmt.Errorf("kind: %w", err)
	}

	if len(s.Writes) == 0 {
		return fmt.Errorf("writes list is required and must be non-empty")
	}

	for i, w := range s.Writes {
		if w.Epoch < 0 {
			return fmt.Errorf("writes[%d]: epoch must be non-negative", i)
		}
		if len(w.Raw) > 0 && len(w.IDs) > 0 {
			return fmt.Errorf("writes[%d]: raw and ids are mutually exclusive", i)
		}
		if _, err := toGUIDs(w.IDs); err != nil {
			return fmt.Errorf("writes[%d]: %w", i, err)
		}
	}

	for i, e := range s.Expect.History {
		if _, err := toGUID(e.GUID); err != nil {
			return fmt.Errorf("expect.history[%d]: %w", i, err)
		}
	}

	return nil
}

// toGUID converts a YAML scalar to a dynamics.GUID.
func toGUID(v interface{}) (dynamics.GUID, error) {
	switch val := v.(type) {
	case int:
		return dynamics.IntGUID(int64(val)), nil
	case int64:
		return dynamics.IntGUID(val), nil
	case uint64:
		return dynamics.IntGUID(int64(val)), nil
	case string:
		return dynamics.StringGUID(val), nil
	default:
		return dynamics.GUID{}, fmt.Errorf("identifier must be an integer or string, got %T", v)
	}
}

func toGUIDs(vs []interface{}) ([]dynamics.GUID, error) {
	out := make([]dynamics.GUID, len(vs))
	for i, v := range vs {
		g, err := toGUID(v)
		if err != nil {
			return nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}
