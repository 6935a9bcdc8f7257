package dynamics

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeEpochFile writes raw JSONL lines to <dir>/<kind>_dynamics/dynamics_epoch_<epoch>.jsonl.
func writeEpochFile(t *testing.T, dir string, kind Kind, epoch int, lines ...string) string {
	t.Helper()
	path := EpochPath(dir, kind, epoch)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// readLines returns the non-empty lines of path.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// bufferLogger returns a text logger writing into the returned buffer.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// logExample writes the two-epoch example used throughout the tests.
func logExample(t *testing.T, dir string, kind Kind) {
	t.Helper()
	w := NewWriter(nil)
	ctx := context.Background()
	require.NoError(t, w.Log(ctx, dir, kind, 0, IntGUIDs(1, 2),
		[][]float64{{0.1, 0.9}, {0.8, 0.2}}, []int{1, 0}))
	require.NoError(t, w.Log(ctx, dir, kind, 1, IntGUIDs(1, 2),
		[][]float64{{0.2, 0.8}, {0.7, 0.3}}, []int{1, 0}))
}
