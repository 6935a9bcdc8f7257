package dynamics

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// maxLineSize bounds a single JSONL record. Score vectors over large label
// sets make lines far longer than bufio's 64 KiB default.
const maxLineSize = 64 << 20

// WriteEvent describes one completed epoch-file write.
type WriteEvent struct {
	OutputDir     string
	Kind          Kind
	Epoch         int
	Path          string
	RecordsAdded  int
	RecordsTotal  int
	ContentSHA256 string
}

// Recorder is notified after every successful write.
type Recorder interface {
	Record(ctx context.Context, ev WriteEvent) error
}

// Writer appends epoch records to dynamics files.
type Writer struct {
	logger   *slog.Logger
	recorder Recorder
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithRecorder registers a Recorder that receives a WriteEvent after each
// write. A recorder error is returned from Log; the epoch file is already
// written at that point.
func WithRecorder(r Recorder) WriterOption {
	return func(w *Writer) {
		w.recorder = r
	}
}

// NewWriter creates a Writer. A nil logger discards log output.
func NewWriter(logger *slog.Logger, opts ...WriterOption) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Writer{logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LogTraining writes training dynamics for one epoch.
func (w *Writer) LogTraining(ctx context.Context, outputDir string, epoch int, ids []GUID, logits [][]float64, golds []int) error {
	return w.Log(ctx, outputDir, Training, epoch, ids, logits, golds)
}

// LogEval writes evaluation dynamics for one epoch.
func (w *Writer) LogEval(ctx context.Context, outputDir string, epoch int, ids []GUID, logits [][]float64, golds []int) error {
	return w.Log(ctx, outputDir, Eval, epoch, ids, logits, golds)
}

// Log writes one record per index of ids/logits/golds to
// <outputDir>/<kind>_dynamics/dynamics_epoch_<epoch>.jsonl.
//
// If the file exists its records are kept and the new records follow them.
// Existing lines must be valid JSON; a malformed file is left untouched and
// an ErrCodeMalformedRecord error is returned.
func (w *Writer) Log(ctx context.Context, outputDir string, kind Kind, epoch int, ids []GUID, logits [][]float64, golds []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKind(kind); err != nil {
		return err
	}
	if epoch < 0 {
		return &Error{
			Code:    ErrCodeInvalidEpoch,
			Message: fmt.Sprintf("epoch must be non-negative, got %d", epoch),
		}
	}
	if len(ids) != len(logits) || len(ids) != len(golds) {
		return &Error{
			Code: ErrCodeLengthMismatch,
			Message: fmt.Sprintf("ids, logits and golds must have equal length (got %d, %d, %d)",
				len(ids), len(logits), len(golds)),
		}
	}

	var batch bytes.Buffer
	for i := range ids {
		line, err := Record{GUID: ids[i], Epoch: epoch, Logits: logits[i], Gold: golds[i]}.MarshalLine()
		if err != nil {
			return fmt.Errorf("log %s dynamics: record %d: %w", kind, i, err)
		}
		batch.Write(line)
		batch.WriteByte('\n')
	}

	dir := DynamicsDir(outputDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("log %s dynamics: create dir: %w", kind, err)
	}
	path := EpochPath(outputDir, kind, epoch)

	unlock := epochFileLocks.lock(path)
	defer unlock()

	existing, existingCount, err := readExistingLines(path)
	if err != nil {
		return fmt.Errorf("log %s dynamics: %w", kind, err)
	}

	content := append(existing, batch.Bytes()...)
	if err := writeFileAtomic(path, content); err != nil {
		return fmt.Errorf("log %s dynamics: %w", kind, err)
	}

	total := existingCount + len(ids)
	w.logger.Info(kind.Label()+" dynamics logged", "path", path, "records", len(ids), "total", total)

	if w.recorder == nil {
		return nil
	}
	sum := sha256.Sum256(content)
	ev := WriteEvent{
		OutputDir:     outputDir,
		Kind:          kind,
		Epoch:         epoch,
		Path:          path,
		RecordsAdded:  len(ids),
		RecordsTotal:  total,
		ContentSHA256: hex.EncodeToString(sum[:]),
	}
	if err := w.recorder.Record(ctx, ev); err != nil {
		return fmt.Errorf("log %s dynamics: record write: %w", kind, err)
	}
	return nil
}

// readExistingLines returns the non-blank lines of path, each terminated by a
// newline, and their count. A missing file yields no lines.
func readExistingLines(path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open existing epoch file: %w", err)
	}
	defer f.Close()

	var out bytes.Buffer
	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, 0, newMalformedRecordError(path, lineNo, errors.New("invalid JSON"))
		}
		out.Write(line)
		out.WriteByte('\n')
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read existing epoch file: %w", err)
	}
	return out.Bytes(), count, nil
}
