package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cartography/internal/dynamics"
)

// Snapshot captures everything a scenario produced, for golden comparison.
type Snapshot struct {
	Scenario string           `json:"scenario"`
	Kind     string           `json:"kind"`
	Files    []EpochFile      `json:"files"`
	History  []dynamics.Entry `json:"history,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// NewSnapshot builds a Snapshot from a scenario result.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	s := Snapshot{
		Scenario: scenario.Name,
		Kind:     scenario.Kind,
		Files:    result.Files,
	}
	if result.ReadErr != nil {
		s.Error = string(dynamics.CodeOf(result.ReadErr))
	} else {
		s.History = result.History.Entries()
	}
	return s
}

// Marshal renders the snapshot as indented JSON with HTML escaping disabled.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := NewSnapshot(scenario, result).Marshal()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
