package harness

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartography/internal/dynamics"
)

const scenarioDir = "../../testdata/scenarios"

func TestExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join(scenarioDir, "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed: %v", result.Errors)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"two_epoch_example", "first_seen_late"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed: %v", result.Errors)
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectations
description: "Expectations that do not hold"
kind: training
writes:
  - epoch: 0
    ids: [1]
    logits: [[0.5, 0.5]]
    gold: [1]
read: {}
expect:
  instances: 2
  history:
    - guid: 1
      gold: 0
      logits: [[0.5, 0.4]]
    - guid: "missing"
      gold: 0
      logits: []
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected 2 instances, got 1")
	assert.Contains(t, result.Errors[1], "expected gold 0, got 1")
	assert.Contains(t, result.Errors[2], "expected logits")
	assert.Contains(t, result.Errors[3], "instance missing not found")
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: no_error
description: "Consistent files with an error expected"
kind: eval
writes:
  - epoch: 0
    ids: [1]
    logits: [[0.5]]
    gold: [1]
read: {}
expect:
  error: MISSING_EPOCH_FILE
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "read succeeded")
}

func TestRun_WriteStepFailureIsAnError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_write
description: "Lengths do not match"
kind: training
writes:
  - epoch: 0
    ids: [1, 2]
    logits: [[0.5]]
    gold: [1, 0]
read: {}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Equal(t, dynamics.ErrCodeLengthMismatch, dynamics.CodeOf(err))
}

func TestRunWithLogger_LogsWrites(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "merge_append.yaml"))
	require.NoError(t, err)

	var buf bytes.Buffer
	result, err := RunWithLogger(scenario, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	require.True(t, result.Pass, "scenario failed: %v", result.Errors)

	assert.Contains(t, buf.String(), "Eval dynamics logged")
	assert.Contains(t, buf.String(), "scenario completed")
	require.Len(t, result.Files, 1)
	assert.Len(t, result.Files[0].Lines, 3)
}

func TestRun_CleansUpTempDir(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "two_epoch_example.yaml"))
	require.NoError(t, err)

	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "dynamics-scenario-*"))
	_, err = Run(scenario)
	require.NoError(t, err)
	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "dynamics-scenario-*"))

	assert.Equal(t, len(before), len(after))
}

func TestEpochFromName(t *testing.T) {
	tests := []struct {
		name  string
		epoch int
		ok    bool
	}{
		{"dynamics_epoch_0.jsonl", 0, true},
		{"dynamics_epoch_12.jsonl", 12, true},
		{"dynamics_epoch_x.jsonl", 0, false},
		{"dynamics_epoch_1.json", 0, false},
		{".dynamics-123.tmp", 0, false},
	}
	for _, tt := range tests {
		epoch, ok := epochFromName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.epoch, epoch, tt.name)
	}
}
