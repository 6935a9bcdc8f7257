package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/cartography/internal/dynamics"
)

// WriteEpochFile writes raw JSONL lines as epoch file <epoch> of kind under
// dir, bypassing dynamics.Writer. Use it to build inconsistent or malformed
// fixtures. Returns the file path.
func WriteEpochFile(t testing.TB, dir string, kind dynamics.Kind, epoch int, lines ...string) string {
	t.Helper()
	path := dynamics.EpochPath(dir, kind, epoch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dynamics dir: %v", err)
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write epoch file: %v", err)
	}
	return path
}

// ExampleRun is the two-epoch, two-instance run used across packages:
// ids 1 and 2, gold 1 and 0.
var ExampleRun = []struct {
	IDs    []int64
	Logits [][]float64
	Golds  []int
}{
	{IDs: []int64{1, 2}, Logits: [][]float64{{0.1, 0.9}, {0.8, 0.2}}, Golds: []int{1, 0}},
	{IDs: []int64{1, 2}, Logits: [][]float64{{0.2, 0.8}, {0.7, 0.3}}, Golds: []int{1, 0}},
}
