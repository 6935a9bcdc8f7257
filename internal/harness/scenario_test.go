package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartography/internal/dynamics"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "two_epoch_example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "two_epoch_example", scenario.Name)
	assert.Equal(t, "training", scenario.Kind)
	require.Len(t, scenario.Writes, 2)
	assert.Equal(t, []interface{}{1, 2}, scenario.Writes[0].IDs)
	assert.Equal(t, [][]float64{{0.1, 0.9}, {0.8, 0.2}}, scenario.Writes[0].Logits)
	assert.Equal(t, []int{1, 0}, scenario.Writes[0].Gold)
	assert.True(t, scenario.Read.Strict)
	require.NotNil(t, scenario.Expect.Instances)
	assert.Equal(t, 2, *scenario.Expect.Instances)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "typo in writes"
kind: training
write:
  - epoch: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nkind: training\nwrites: [{epoch: 0}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nkind: training\nwrites: [{epoch: 0}]\n",
			wantErr: "description is required",
		},
		{
			name:    "bad kind",
			yaml:    "name: n\ndescription: d\nkind: test\nwrites: [{epoch: 0}]\n",
			wantErr: "kind",
		},
		{
			name:    "no writes",
			yaml:    "name: n\ndescription: d\nkind: eval\n",
			wantErr: "writes list is required",
		},
		{
			name:    "negative epoch",
			yaml:    "name: n\ndescription: d\nkind: eval\nwrites: [{epoch: -1}]\n",
			wantErr: "epoch must be non-negative",
		},
		{
			name:    "raw and ids",
			yaml:    "name: n\ndescription: d\nkind: eval\nwrites: [{epoch: 0, ids: [1], raw: ['{}']}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "float id",
			yaml:    "name: n\ndescription: d\nkind: eval\nwrites: [{epoch: 0, ids: [1.5]}]\n",
			wantErr: "identifier must be an integer or string",
		},
		{
			name:    "bad expected guid",
			yaml:    "name: n\ndescription: d\nkind: eval\nwrites: [{epoch: 0}]\nexpect: {history: [{guid: [1], gold: 0}]}\n",
			wantErr: "expect.history[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToGUID(t *testing.T) {
	g, err := toGUID(3)
	require.NoError(t, err)
	assert.Equal(t, dynamics.IntGUID(3), g)

	g, err = toGUID("abc")
	require.NoError(t, err)
	assert.Equal(t, dynamics.StringGUID("abc"), g)

	_, err = toGUID(true)
	assert.Error(t, err)
}

func TestReadStep_Options(t *testing.T) {
	opts := ReadStep{StripLast: true, NFC: true, IDField: "id", BurnOut: 3, Strict: true}.Options()
	assert.Equal(t, dynamics.ReadOptions{StripLast: true, NFC: true, IDField: "id", BurnOut: 3, Strict: true}, opts)
}

func TestLoadScenario_FromTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tmp
description: "written by the test"
kind: eval
writes:
  - epoch: 0
    ids: ["a"]
    logits: [[1]]
    gold: [0]
`), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a"}, scenario.Writes[0].IDs)
}
