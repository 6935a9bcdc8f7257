package dynamics

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ReadOptions controls how epoch files are merged.
type ReadOptions struct {
	// StripLast drops the final character of every identifier before merging.
	StripLast bool

	// NFC merges string identifiers by their NFC form, after StripLast. Off
	// by default: keys are the identifiers exactly as written.
	NFC bool

	// IDField names the identifier field. Defaults to "guid".
	IDField string

	// BurnOut, when positive, is the number of epochs to read instead of the
	// number of files in the dynamics directory. Zero reads every file;
	// negative values are rejected.
	BurnOut int

	// Strict additionally requires every instance to appear exactly once in
	// every epoch with the same gold label and score-vector width.
	Strict bool
}

// Reader merges epoch files into a History.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader. A nil logger discards log output.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{logger: logger}
}

// ReadTraining merges <modelDir>/training_dynamics.
func (r *Reader) ReadTraining(ctx context.Context, modelDir string, opts ReadOptions) (History, error) {
	return r.Read(ctx, modelDir, Training, opts)
}

// ReadEval merges <modelDir>/eval_dynamics.
func (r *Reader) ReadEval(ctx context.Context, modelDir string, opts ReadOptions) (History, error) {
	return r.Read(ctx, modelDir, Eval, opts)
}

// Read merges epochs 0..N-1 of <modelDir>/<kind>_dynamics, where N is the
// number of regular files in that directory or opts.BurnOut when positive.
//
// A missing epoch file fails with ErrCodeMissingEpochFile; an identifier whose
// first appearance is after epoch 0 fails with ErrCodeFirstSeenLate. No
// partial history is returned on error.
func (r *Reader) Read(ctx context.Context, modelDir string, kind Kind, opts ReadOptions) (History, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if opts.BurnOut < 0 {
		return nil, &Error{
			Code:    ErrCodeInvalidBurnOut,
			Message: fmt.Sprintf("burn-out must be non-negative, got %d", opts.BurnOut),
		}
	}
	if opts.IDField == "" {
		opts.IDField = DefaultIDField
	}

	dir := DynamicsDir(modelDir, kind)
	numEpochs, err := CountEpochFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s dynamics: %w", kind, err)
	}
	if opts.BurnOut > 0 {
		numEpochs = opts.BurnOut
	}

	r.logger.Info("reading dynamics", "kind", string(kind), "files", numEpochs, "dir", dir)

	m := &merger{history: make(History), opts: opts}
	for epoch := 0; epoch < numEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, EpochFileName(epoch))
		if err := m.mergeEpoch(path, epoch); err != nil {
			return nil, err
		}
		r.logger.Debug("epoch merged", "epoch", epoch, "instances", len(m.history))
	}

	r.logger.Info(fmt.Sprintf("read %s dynamics", kind), "instances", len(m.history))
	return m.history, nil
}

type merger struct {
	history History
	opts    ReadOptions
}

func (m *merger) mergeEpoch(path string, epoch int) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newMissingEpochFileError(path, epoch, err)
	}
	if err != nil {
		return fmt.Errorf("open epoch file: %w", err)
	}
	defer f.Close()

	var seen map[GUID]struct{}
	if m.opts.Strict {
		seen = make(map[GUID]struct{})
	}

	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := ParseRecord(line, epoch, m.opts.IDField)
		if err != nil {
			return newMalformedRecordError(path, lineNo, err)
		}

		key := rec.GUID
		if m.opts.StripLast {
			if key, err = key.StripLast(); err != nil {
				return err
			}
		}
		if m.opts.NFC {
			key = key.NFC()
		}

		inst, ok := m.history[key]
		if !ok {
			if epoch != 0 {
				return newFirstSeenLateError(path, epoch, key)
			}
			inst = &Instance{Gold: rec.Gold, Logits: [][]float64{}}
			m.history[key] = inst
		} else if m.opts.Strict {
			if err := checkConsistent(path, epoch, key, inst, rec, seen); err != nil {
				return err
			}
		}
		if seen != nil {
			seen[key] = struct{}{}
		}
		inst.Logits = append(inst.Logits, rec.Logits)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read epoch file %s: %w", path, err)
	}

	if m.opts.Strict {
		for _, key := range m.history.Keys() {
			if len(m.history[key].Logits) != epoch+1 {
				return &Error{
					Code:    ErrCodeInstanceMissing,
					Message: fmt.Sprintf("instance absent from epoch %d", epoch),
					Path:    path,
					Key:     key.String(),
				}
			}
		}
	}
	return nil
}

func checkConsistent(path string, epoch int, key GUID, inst *Instance, rec Record, seen map[GUID]struct{}) error {
	if _, dup := seen[key]; dup {
		return &Error{
			Code:    ErrCodeDuplicateInstance,
			Message: fmt.Sprintf("instance recorded more than once in epoch %d", epoch),
			Path:    path,
			Key:     key.String(),
		}
	}
	if rec.Gold != inst.Gold {
		return &Error{
			Code:    ErrCodeGoldMismatch,
			Message: fmt.Sprintf("gold label %d at epoch %d differs from %d", rec.Gold, epoch, inst.Gold),
			Path:    path,
			Key:     key.String(),
		}
	}
	if len(inst.Logits) > 0 && len(rec.Logits) != len(inst.Logits[0]) {
		return &Error{
			Code:    ErrCodeWidthMismatch,
			Message: fmt.Sprintf("score vector width %d at epoch %d differs from %d", len(rec.Logits), epoch, len(inst.Logits[0])),
			Path:    path,
			Key:     key.String(),
		}
	}
	return nil
}
