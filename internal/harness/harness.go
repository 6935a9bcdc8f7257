package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/cartography/internal/dynamics"
)

// EpochFile is the content of one epoch file after all writes.
type EpochFile struct {
	Epoch int      `json:"epoch"`
	Lines []string `json:"lines"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation holds.
	Pass bool

	// Files are the epoch files in epoch order.
	Files []EpochFile

	// History is the merged history; nil if the read failed.
	History dynamics.History

	// ReadErr is the error returned by the read, if any.
	ReadErr error

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Files:  []EpochFile{},
		Errors: []string{},
	}
}

// AddError records an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario in a fresh temporary directory.
//
// An error is returned only when the scenario cannot be executed (a write
// step fails, the temp dir cannot be created). Read failures are captured in
// Result.ReadErr and checked against the expectation.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.DiscardHandler))
}

// RunWithLogger is Run with the writer and reader logging to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	kind, err := dynamics.ParseKind(scenario.Kind)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "dynamics-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	w := dynamics.NewWriter(logger)
	for i, step := range scenario.Writes {
		if len(step.Raw) > 0 {
			if err := writeRaw(dir, kind, step); err != nil {
				return nil, fmt.Errorf("write step %d: %w", i, err)
			}
			continue
		}
		ids, err := toGUIDs(step.IDs)
		if err != nil {
			return nil, fmt.Errorf("write step %d: %w", i, err)
		}
		if err := w.Log(ctx, dir, kind, step.Epoch, ids, step.Logits, step.Gold); err != nil {
			return nil, fmt.Errorf("write step %d: %w", i, err)
		}
	}

	result := NewResult()
	result.Files, err = snapshotFiles(dynamics.DynamicsDir(dir, kind))
	if err != nil {
		return nil, err
	}

	result.History, result.ReadErr = dynamics.NewReader(logger).Read(ctx, dir, kind, scenario.Read.Options())

	for _, msg := range EvaluateExpectations(scenario.Expect, result.History, result.ReadErr) {
		result.AddError(msg)
	}

	logger.Info("scenario completed", "name", scenario.Name, "pass", result.Pass)
	return result, nil
}

func writeRaw(dir string, kind dynamics.Kind, step WriteStep) error {
	path := dynamics.EpochPath(dir, kind, step.Epoch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.Join(step.Raw, "\n")+"\n"), 0o644)
}

// snapshotFiles returns every dynamics_epoch_<N>.jsonl in dir, ordered by N.
func snapshotFiles(dir string) ([]EpochFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []EpochFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := []EpochFile{}
	for _, e := range entries {
		epoch, ok := epochFromName(e.Name())
		if !ok || !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		lines := []string{}
		for _, l := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(l) != "" {
				lines = append(lines, l)
			}
		}
		files = append(files, EpochFile{Epoch: epoch, Lines: lines})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Epoch < files[j].Epoch })
	return files, nil
}

func epochFromName(name string) (int, bool) {
	const prefix, suffix = "dynamics_epoch_", ".jsonl"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
