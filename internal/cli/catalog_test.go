package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartography/internal/catalog"
	"github.com/roach88/cartography/internal/dynamics"
	"github.com/roach88/cartography/internal/testutil"
)

// seedCatalog writes the example run with a catalog attached and returns the
// catalog path.
func seedCatalog(t *testing.T) (dbPath, outputDir string) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "dynamics.db")
	outputDir = t.TempDir()

	cat, err := catalog.Open(dbPath, catalog.WithIDGenerator(testutil.NewSequentialIDs("write")))
	require.NoError(t, err)
	defer cat.Close()

	writeExampleRun(t, outputDir, dynamics.WithRecorder(cat))
	return dbPath, outputDir
}

func TestCatalog_Text(t *testing.T) {
	dbPath, outputDir := seedCatalog(t)

	out, _, err := execute(t, "catalog", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 write(s)")
	assert.Contains(t, out, "#1\ttraining\tepoch 0\t+2 (2 total)\t"+dynamics.EpochPath(outputDir, dynamics.Training, 0))
	assert.Contains(t, out, "#2\ttraining\tepoch 1")
}

func TestCatalog_JSONWithFilters(t *testing.T) {
	dbPath, outputDir := seedCatalog(t)

	out, _, err := execute(t, "catalog", "--db", dbPath, "--kind", "training", "--epoch", "1", "--output-dir", outputDir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CatalogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, "write-2", resp.Data.Entries[0].ID)
	assert.Equal(t, 1, resp.Data.Entries[0].Epoch)
	assert.Len(t, resp.Data.Entries[0].ContentSHA256, 64)
}

func TestCatalog_NoMatches(t *testing.T) {
	dbPath, _ := seedCatalog(t)

	out, _, err := execute(t, "catalog", "--db", dbPath, "--kind", "eval")
	require.NoError(t, err)
	assert.Contains(t, out, "No writes recorded")
}

func TestCatalog_DatabaseNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	out, _, err := execute(t, "catalog", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "catalog not found")
	assert.NoFileExists(t, dbPath)
}

func TestCatalog_InvalidFilters(t *testing.T) {
	dbPath, _ := seedCatalog(t)

	_, _, err := execute(t, "catalog", "--db", dbPath, "--kind", "test")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "catalog", "--db", dbPath, "--epoch", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
